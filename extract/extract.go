// Package extract reads the metadata the renamer needs from a message file.
// Outlook .msg containers (compound file binary) and RFC 5322 messages,
// optionally framed as a single-message mbox, are supported. Extraction
// never fails as a whole: every problem is reported per field.
package extract

import (
	"bytes"
	"errors"
	"log/slog"

	"github.com/spf13/afero"

	"github.com/dhcgn/msg-file-renamer/model"
)

// ErrEmptyFile is reported for zero-length files.
var ErrEmptyFile = errors.New("message file is empty")

var cfbMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// Extractor produces model.Metadata for one file per call.
type Extractor struct {
	fs     afero.Fs
	logger *slog.Logger
}

func New(fsys afero.Fs, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{fs: fsys, logger: logger}
}

// Extract parses path in one pass. File-level errors (not found, permission,
// undecodable container) mark every field as failed with the same kind.
func (e *Extractor) Extract(path string) model.Metadata {
	data, err := afero.ReadFile(e.fs, path)
	if err != nil {
		e.logger.Warn("read message file", "path", path, "error", err)
		return model.FailedMetadata(model.KindOf(err), err)
	}
	if len(data) == 0 {
		return model.FailedMetadata(model.ErrorCorrupt, ErrEmptyFile)
	}

	var meta model.Metadata
	if bytes.HasPrefix(data, cfbMagic) {
		meta, err = parseOutlook(data)
	} else {
		meta, err = parseMIME(data)
	}
	if err != nil {
		e.logger.Warn("parse message file", "path", path, "error", err)
		return model.FailedMetadata(model.ErrorCorrupt, err)
	}

	e.logger.Debug("extracted metadata", "path", path, "status", meta.Status())
	return meta
}

func textField(s string, ok bool) model.Field[string] {
	if !ok {
		return model.Missing[string]()
	}
	return model.Present(s)
}

func formatSender(name, email string) string {
	switch {
	case email == "":
		return name
	case name == "" || name == email:
		return "<" + email + ">"
	default:
		return name + " <" + email + ">"
	}
}

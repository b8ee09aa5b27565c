// Package sink persists one model.LogRow per processed file. A fresh sink
// file is created per batch and old ones are pruned.
package sink

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/dhcgn/msg-file-renamer/model"
)

type Format string

const (
	FormatXLSX   Format = "xlsx"
	FormatCSV    Format = "csv"
	FormatJSONL  Format = "jsonl"
	FormatSQLite Format = "sqlite"
)

// TimestampLayout is embedded in every sink filename.
const TimestampLayout = "20060102_150405"

// Formats lists the supported formats in help order.
func Formats() []Format {
	return []Format{FormatXLSX, FormatCSV, FormatJSONL, FormatSQLite}
}

// ParseFormat accepts a format name case-insensitively.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats() {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown report format %q", s)
}

// Ext returns the file extension including the dot.
func (f Format) Ext() string { return "." + string(f) }

// Sink receives rows in call order.
type Sink interface {
	Append(row model.LogRow) error
	// Flush makes appended rows durable.
	Flush() error
	Close() error
	Path() string
}

type Options struct {
	Dir      string
	Basename string
	Format   Format
	RunID    string
	// Keep is the number of sink files with the same basename that survive
	// pruning, including the new one. Zero disables pruning.
	Keep int
	Now  time.Time
}

// Open creates a fresh sink file <basename>_<timestamp>.<ext> in Dir and
// prunes older ones. SQLite sinks always live on the OS filesystem.
func Open(fsys afero.Fs, opts Options) (Sink, error) {
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	if strings.TrimSpace(opts.Basename) == "" {
		return nil, fmt.Errorf("report basename is empty")
	}
	if err := fsys.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create report directory: %w", err)
	}

	path := filepath.Join(opts.Dir, Filename(opts.Basename, opts.Format, opts.Now))

	var (
		s   Sink
		err error
	)
	switch opts.Format {
	case FormatXLSX:
		s, err = newXLSXSink(fsys, path)
	case FormatCSV:
		s, err = newCSVSink(fsys, path)
	case FormatJSONL:
		s, err = newJSONLSink(fsys, path)
	case FormatSQLite:
		s, err = newSQLiteSink(path, opts.RunID, opts.Now)
	default:
		return nil, fmt.Errorf("unknown report format %q", opts.Format)
	}
	if err != nil {
		return nil, err
	}

	if opts.Keep > 0 {
		if _, err := Prune(fsys, opts.Dir, opts.Basename+"_", opts.Format.Ext(), opts.Keep); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("prune reports: %w", err)
		}
	}
	return s, nil
}

// Filename returns the sink filename for a batch started at now.
func Filename(basename string, format Format, now time.Time) string {
	return basename + "_" + now.Format(TimestampLayout) + format.Ext()
}

package naming

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/afero"

	"github.com/dhcgn/msg-file-renamer/model"
)

const (
	columnSenderName  = "sender_name"
	columnSenderEmail = "sender_email"
)

// LoadKnownSenders reads a CSV file with at least the columns sender_name
// and sender_email. Row order is preserved because lookups take the first
// match.
func LoadKnownSenders(fsys afero.Fs, path string) (model.KnownSenders, error) {
	file, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open known senders %s: %w", path, err)
	}
	defer file.Close()

	known, err := ReadKnownSenders(file)
	if err != nil {
		return nil, fmt.Errorf("read known senders %s: %w", path, err)
	}
	return known, nil
}

// ReadKnownSenders parses the known-senders CSV from r.
func ReadKnownSenders(r io.Reader) (model.KnownSenders, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("missing header row")
	}
	if err != nil {
		return nil, err
	}

	nameIdx, emailIdx := -1, -1
	for i, col := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(col, "\ufeff"))) {
		case columnSenderName:
			nameIdx = i
		case columnSenderEmail:
			emailIdx = i
		}
	}
	if nameIdx < 0 || emailIdx < 0 {
		return nil, fmt.Errorf("header must contain %s and %s", columnSenderName, columnSenderEmail)
	}

	var known model.KnownSenders
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if nameIdx >= len(record) || emailIdx >= len(record) {
			continue
		}
		name := strings.TrimSpace(record[nameIdx])
		email := strings.TrimSpace(record[emailIdx])
		if name == "" {
			continue
		}
		known = append(known, model.KnownSender{Name: name, Email: email})
	}
	return known, nil
}

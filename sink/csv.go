package sink

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/spf13/afero"

	"github.com/dhcgn/msg-file-renamer/model"
)

type csvSink struct {
	path   string
	file   afero.File
	writer *csv.Writer
}

func newCSVSink(fsys afero.Fs, path string) (*csvSink, error) {
	file, err := fsys.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create report %s: %w", path, err)
	}

	s := &csvSink{path: path, file: file, writer: csv.NewWriter(file)}
	if err := s.writer.Write(model.Columns()); err != nil {
		file.Close()
		return nil, fmt.Errorf("write report header: %w", err)
	}
	if err := s.Flush(); err != nil {
		file.Close()
		return nil, err
	}
	return s, nil
}

func (s *csvSink) Append(row model.LogRow) error {
	values := row.Values()
	record := make([]string, len(values))
	for i, v := range values {
		record[i] = fmt.Sprint(v)
	}
	if err := s.writer.Write(record); err != nil {
		return fmt.Errorf("write report row: %w", err)
	}
	return nil
}

func (s *csvSink) Flush() error {
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		return fmt.Errorf("flush report: %w", err)
	}
	return nil
}

func (s *csvSink) Close() error {
	err := s.Flush()
	if cerr := s.file.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("close report: %w", cerr)
	}
	return err
}

func (s *csvSink) Path() string { return s.path }

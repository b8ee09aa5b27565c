package sink

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/spf13/afero"

	"github.com/dhcgn/msg-file-renamer/model"
)

// jsonlSink appends one JSON object per line through a buffered writer.
type jsonlSink struct {
	path    string
	file    afero.File
	writer  *bufio.Writer
	writeMu sync.Mutex
}

func newJSONLSink(fsys afero.Fs, path string) (*jsonlSink, error) {
	file, err := fsys.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open report for append: %w", err)
	}
	return &jsonlSink{
		path:   path,
		file:   file,
		writer: bufio.NewWriterSize(file, 64*1024), // 64KB buffer
	}, nil
}

func (s *jsonlSink) Append(row model.LogRow) error {
	data, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("encode report row: %w", err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, err := s.writer.Write(data); err != nil {
		return fmt.Errorf("write report row: %w", err)
	}
	if err := s.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("write newline: %w", err)
	}
	return nil
}

// Flush writes any buffered data to the underlying file.
func (s *jsonlSink) Flush() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.writer.Flush(); err != nil {
		return fmt.Errorf("flush report: %w", err)
	}
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("sync report: %w", err)
	}
	return nil
}

// Close flushes and closes the report file.
func (s *jsonlSink) Close() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var firstErr error
	if err := s.writer.Flush(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("flush report: %w", err)
	}
	if err := s.file.Sync(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("sync report: %w", err)
	}
	if err := s.file.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("close report: %w", err)
	}
	return firstErr
}

func (s *jsonlSink) Path() string { return s.path }

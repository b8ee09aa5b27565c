package sink

import (
	"fmt"
	"os"

	"github.com/spf13/afero"
	"github.com/xuri/excelize/v2"

	"github.com/dhcgn/msg-file-renamer/model"
)

const (
	xlsxSheet = "Log"
	// The workbook is rewritten to disk every xlsxSaveEvery rows.
	xlsxSaveEvery = 50
)

type xlsxSink struct {
	fs      afero.Fs
	path    string
	book    *excelize.File
	row     int
	pending int
}

func newXLSXSink(fsys afero.Fs, path string) (*xlsxSink, error) {
	book := excelize.NewFile()
	if err := book.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	s := &xlsxSink{fs: fsys, path: path, book: book}

	header := make([]interface{}, 0, len(model.Columns()))
	for _, c := range model.Columns() {
		header = append(header, c)
	}
	if err := s.setRow(header); err != nil {
		return nil, err
	}
	if style, err := book.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = book.SetRowStyle(xlsxSheet, 1, 1, style)
	}
	if err := book.SetPanes(xlsxSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return nil, fmt.Errorf("freeze header: %w", err)
	}

	if err := s.Flush(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *xlsxSink) setRow(values []interface{}) error {
	s.row++
	cell, err := excelize.CoordinatesToCellName(1, s.row)
	if err != nil {
		return err
	}
	if err := s.book.SetSheetRow(xlsxSheet, cell, &values); err != nil {
		return fmt.Errorf("write xlsx row %d: %w", s.row, err)
	}
	return nil
}

func (s *xlsxSink) Append(row model.LogRow) error {
	if err := s.setRow(row.Values()); err != nil {
		return err
	}
	s.pending++
	if s.pending >= xlsxSaveEvery {
		return s.Flush()
	}
	return nil
}

// Flush rewrites the whole workbook; xlsx has no append mode.
func (s *xlsxSink) Flush() error {
	file, err := s.fs.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("open report %s: %w", s.path, err)
	}
	if err := s.book.Write(file); err != nil {
		file.Close()
		return fmt.Errorf("write report %s: %w", s.path, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close report %s: %w", s.path, err)
	}
	s.pending = 0
	return nil
}

func (s *xlsxSink) Close() error {
	err := s.Flush()
	if cerr := s.book.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

func (s *xlsxSink) Path() string { return s.path }

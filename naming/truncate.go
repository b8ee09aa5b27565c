package naming

import (
	"errors"
	"fmt"
	"path/filepath"
	"unicode/utf8"
)

// ErrInvalidTruncation is returned for a non-positive path limit or an empty
// truncation marker.
var ErrInvalidTruncation = errors.New("invalid truncation parameters")

// Truncation is the outcome of fitting one filename into a path budget.
type Truncation struct {
	Filename string
	Path     string
	// Truncated is set when the filename was cut and the marker appended.
	Truncated bool
	// OverBudget is set when the resulting path is still longer than the
	// limit because the directory leaves no room for the filename.
	OverBudget bool
}

// ValidateTruncation checks the truncation parameters.
func ValidateTruncation(maxPathLength int, marker string) error {
	if maxPathLength <= 0 {
		return fmt.Errorf("%w: max path length %d must be positive", ErrInvalidTruncation, maxPathLength)
	}
	if marker == "" {
		return fmt.Errorf("%w: truncation marker must not be empty", ErrInvalidTruncation)
	}
	return nil
}

// Truncate fits filename into dir so that the joined path is at most
// maxPathLength characters. A cut filename is exactly
// maxPathLength-len(dir)-len(marker)-1 characters long and ends with marker.
// Lengths are counted in runes.
func Truncate(dir, filename string, maxPathLength int, marker string) (Truncation, error) {
	if err := ValidateTruncation(maxPathLength, marker); err != nil {
		return Truncation{}, err
	}

	fullPath := filepath.Join(dir, filename)
	if utf8.RuneCountInString(fullPath) <= maxPathLength {
		return Truncation{Filename: filename, Path: fullPath}, nil
	}

	markerLen := utf8.RuneCountInString(marker)
	maxFilenameLength := maxPathLength - utf8.RuneCountInString(dir) - markerLen - 1
	keep := maxFilenameLength - markerLen

	if utf8.RuneCountInString(filename) <= maxFilenameLength || keep < 0 {
		return Truncation{Filename: filename, Path: fullPath, OverBudget: true}, nil
	}

	cut := string([]rune(filename)[:keep]) + marker
	path := filepath.Join(dir, cut)
	return Truncation{
		Filename:   cut,
		Path:       path,
		Truncated:  true,
		OverBudget: utf8.RuneCountInString(path) > maxPathLength,
	}, nil
}

package runner

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/dhcgn/msg-file-renamer/filter"
	"github.com/dhcgn/msg-file-renamer/naming"
)

// IsMessageFile reports whether name carries the .msg extension in any case.
func IsMessageFile(name string) bool {
	return strings.EqualFold(filepath.Ext(name), naming.Extension)
}

// Discover lists the message files below root in lexical order. Only the
// top level is read unless recursive is set. Unreadable subdirectories are
// logged and skipped; an unreadable root is an error. A nil filter allows
// every path.
func Discover(fsys afero.Fs, root string, recursive bool, f *filter.Filter, logger *slog.Logger) ([]string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	info, err := fsys.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("search directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("search directory %s is not a directory", root)
	}

	var files []string
	accept := func(path string) {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		if f != nil && !f.Allows(rel) {
			logger.Debug("filtered out", "path", rel)
			return
		}
		files = append(files, path)
	}

	if !recursive {
		entries, err := afero.ReadDir(fsys, root)
		if err != nil {
			return nil, fmt.Errorf("read search directory: %w", err)
		}
		for _, entry := range entries {
			if entry.Mode().IsRegular() && IsMessageFile(entry.Name()) {
				accept(filepath.Join(root, entry.Name()))
			}
		}
		return files, nil
	}

	err = afero.Walk(fsys, root, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			logger.Warn("skipping unreadable path", "path", path, "error", walkErr)
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.Mode().IsRegular() && IsMessageFile(info.Name()) {
			accept(path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk search directory: %w", err)
	}
	return files, nil
}

// Package testset stages a pristine copy of sample messages into the
// directory a batch is about to rename.
package testset

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

var ErrOverlap = errors.New("source and target directories overlap")

// Stage empties target and copies every file below source into it,
// keeping the relative layout. It returns the number of copied files.
// The source tree is never modified.
func Stage(fsys afero.Fs, source, target string) (int, error) {
	source = filepath.Clean(source)
	target = filepath.Clean(target)

	if within(source, target) || within(target, source) {
		return 0, fmt.Errorf("%w: %s and %s", ErrOverlap, source, target)
	}

	info, err := fsys.Stat(source)
	if err != nil {
		return 0, fmt.Errorf("test data source: %w", err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("test data source %s is not a directory", source)
	}

	if err := emptyDir(fsys, target); err != nil {
		return 0, err
	}

	copied := 0
	err = afero.Walk(fsys, source, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(source, path)
		if err != nil {
			return err
		}
		dst := filepath.Join(target, rel)

		if info.IsDir() {
			return fsys.MkdirAll(dst, 0o755)
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		if err := copyFile(fsys, path, dst, info.Mode().Perm()); err != nil {
			return err
		}
		copied++
		return nil
	})
	if err != nil {
		return copied, fmt.Errorf("copy test data: %w", err)
	}
	return copied, nil
}

// emptyDir removes the contents of dir, creating it when absent.
func emptyDir(fsys afero.Fs, dir string) error {
	entries, err := afero.ReadDir(fsys, dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fsys.MkdirAll(dir, 0o755)
		}
		return fmt.Errorf("read test directory: %w", err)
	}
	for _, entry := range entries {
		if err := fsys.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
			return fmt.Errorf("clear test directory: %w", err)
		}
	}
	return nil
}

func copyFile(fsys afero.Fs, src, dst string, perm os.FileMode) error {
	in, err := fsys.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := fsys.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		return err
	}

	// Keep the source modification time so date handling sees the sample as is.
	if info, err := fsys.Stat(src); err == nil {
		_ = fsys.Chtimes(dst, info.ModTime(), info.ModTime())
	}
	return nil
}

func within(parent, child string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

package rename

import (
	"errors"
	"io/fs"
	"os"

	"github.com/spf13/afero"
)

// Access is the result of probing a file before it is touched.
type Access string

const (
	AccessWritable Access = "writable"
	AccessReadOnly Access = "read_only"
	AccessNotFound Access = "not_found"
	AccessDenied   Access = "denied"
)

// Writable reports whether the file may enter the rename engine.
func (a Access) Writable() bool { return a == AccessWritable }

// Probe checks that path exists, is a regular file and can be opened for
// reading and writing. The file content is never modified.
func Probe(fsys afero.Fs, path string) (Access, error) {
	info, err := fsys.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return AccessNotFound, err
	case err != nil:
		return AccessDenied, err
	case !info.Mode().IsRegular():
		return AccessDenied, &fs.PathError{Op: "probe", Path: path, Err: fs.ErrInvalid}
	case info.Mode().Perm()&0o200 == 0:
		return AccessReadOnly, &fs.PathError{Op: "probe", Path: path, Err: fs.ErrPermission}
	}

	r, err := fsys.Open(path)
	if err != nil {
		return AccessDenied, err
	}
	_ = r.Close()

	w, err := fsys.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return AccessReadOnly, err
		}
		return AccessDenied, err
	}
	_ = w.Close()

	return AccessWritable, nil
}

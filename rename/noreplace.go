package rename

import (
	"io/fs"
	"os"

	"github.com/spf13/afero"
)

// NoReplaceFs is an afero.Fs whose Rename fails with fs.ErrExist instead of
// replacing an existing destination.
type NoReplaceFs struct {
	afero.Fs
}

// NewNoReplaceFs wraps base. Wrapping twice is a no-op.
func NewNoReplaceFs(base afero.Fs) afero.Fs {
	if _, ok := base.(*NoReplaceFs); ok {
		return base
	}
	return &NoReplaceFs{Fs: base}
}

func (n *NoReplaceFs) Name() string { return "NoReplaceFs(" + n.Fs.Name() + ")" }

func (n *NoReplaceFs) Rename(oldname, newname string) error {
	if _, ok := n.Fs.(*afero.OsFs); ok {
		return renameNoReplace(oldname, newname)
	}
	if _, err := n.Fs.Stat(newname); err == nil {
		return &os.LinkError{Op: "rename", Old: oldname, New: newname, Err: fs.ErrExist}
	}
	return n.Fs.Rename(oldname, newname)
}

// renameChecked is the portable fallback: check, then rename. It leaves a
// small window in which a concurrently created destination is replaced.
func renameChecked(oldname, newname string) error {
	if _, err := os.Lstat(newname); err == nil {
		return &os.LinkError{Op: "rename", Old: oldname, New: newname, Err: fs.ErrExist}
	}
	return os.Rename(oldname, newname)
}

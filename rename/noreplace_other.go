//go:build !linux

package rename

func renameNoReplace(oldname, newname string) error {
	return renameChecked(oldname, newname)
}

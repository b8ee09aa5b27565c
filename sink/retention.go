package sink

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// Prune keeps the keep newest regular files in dir whose names start with
// prefix and end with suffix and removes the rest. Names embed a sortable
// timestamp, so name order is age order. It returns the removed paths.
func Prune(fsys afero.Fs, dir, prefix, suffix string, keep int) ([]string, error) {
	if keep <= 0 {
		return nil, nil
	}

	entries, err := afero.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, suffix) {
			continue
		}
		names = append(names, name)
	}
	if len(names) <= keep {
		return nil, nil
	}

	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	var removed []string
	for _, name := range names[keep:] {
		path := filepath.Join(dir, name)
		if err := fsys.Remove(path); err != nil {
			return removed, fmt.Errorf("remove %s: %w", path, err)
		}
		removed = append(removed, path)
	}
	return removed, nil
}

package watcher

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Snapshot maps each source document path to its modification time.
type Snapshot map[string]time.Time

// Equal reports whether both snapshots hold the same paths with the same
// modification times.
func (s Snapshot) Equal(o Snapshot) bool {
	if len(s) != len(o) {
		return false
	}
	for p, mt := range s {
		other, ok := o[p]
		if !ok || !other.Equal(mt) {
			return false
		}
	}
	return true
}

// Paths returns the document paths in lexical order.
func (s Snapshot) Paths() []string {
	paths := make([]string, 0, len(s))
	for p := range s {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// without returns a copy of s minus the given paths.
func (s Snapshot) without(drop map[string]error) Snapshot {
	out := make(Snapshot, len(s))
	for p, mt := range s {
		if _, skip := drop[p]; !skip {
			out[p] = mt
		}
	}
	return out
}

// IsDocument reports whether name is a source document (*.html, any case).
func IsDocument(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".html")
}

// Scan walks root recursively and snapshots every document under it.
// A missing root yields an empty snapshot. Files that vanish during the
// walk are skipped.
func Scan(root string) (Snapshot, error) {
	snap, _, err := scan(root)
	return snap, err
}

// scan also returns the directories visited, for the fsnotify watch.
func scan(root string) (Snapshot, []string, error) {
	snap := Snapshot{}
	var dirs []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				if path == root {
					return filepath.SkipAll
				}
				return nil
			}
			return err
		}
		if d.IsDir() {
			dirs = append(dirs, path)
			return nil
		}
		if !d.Type().IsRegular() || !IsDocument(d.Name()) {
			return nil
		}
		info, err := d.Info()
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		if err != nil {
			return err
		}
		snap[path] = info.ModTime()
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("scan %s: %w", root, err)
	}
	return snap, dirs, nil
}

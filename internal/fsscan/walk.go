// Package fsscan walks the import directory for the Scanner processor's
// empty-directory pruning and import-detection steps (spec.md §4.6 steps
// 1-2). Reduced to plain os/filepath: the reference implementation this is
// adapted from ties its directory walk to video-container probing that
// this domain has no use for.
package fsscan

import (
	"io/fs"
	"os"
	"path/filepath"
)

// HasRegularFile reports whether any regular file exists anywhere under
// root (spec.md §4.6 step 2: import detection).
func HasRegularFile(root string) (bool, error) {
	found := false
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if !d.IsDir() && d.Type().IsRegular() {
			found = true
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil && err != filepath.SkipAll {
		return found, err
	}
	return found, nil
}

// PruneEmptyDirs walks root bottom-up and removes every directory left
// empty after its children are considered, ignoring individual removal
// failures (spec.md §4.6 step 1: "ignore failures"). root itself is never
// removed.
func PruneEmptyDirs(root string) error {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		child := filepath.Join(root, e.Name())
		_ = PruneEmptyDirs(child)
		remaining, err := os.ReadDir(child)
		if err != nil {
			continue
		}
		if len(remaining) == 0 {
			_ = os.Remove(child)
		}
	}
	return nil
}

package core

import (
	"os"
	"path/filepath"
	"strings"
)

// NormalizePath cleans a project-relative path: forward slashes, no leading "./".
func NormalizePath(path string) string {
	clean := filepath.ToSlash(filepath.Clean(filepath.FromSlash(path)))
	return strings.TrimPrefix(clean, "./")
}

// JoinPath joins path elements and normalizes the result.
func JoinPath(parts ...string) string {
	return NormalizePath(filepath.Join(parts...))
}

// RelPath returns target relative to base, forward-slash normalized.
func RelPath(base, target string) (string, error) {
	rel, err := filepath.Rel(filepath.FromSlash(base), filepath.FromSlash(target))
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// dirOf returns the directory of a project-relative path, "" for root-level files.
func dirOf(rel string) string {
	d := filepath.ToSlash(filepath.Dir(filepath.FromSlash(rel)))
	if d == "." {
		return ""
	}
	return d
}

// baseOf returns the file name of a project-relative path.
func baseOf(rel string) string {
	return filepath.Base(filepath.FromSlash(rel))
}

// depthOf counts directory separators in a normalized relative path.
func depthOf(rel string) int {
	return strings.Count(rel, "/")
}

// escapesRoot reports whether a normalized relative path points outside the root.
func escapesRoot(rel string) bool {
	return rel == ".." || strings.HasPrefix(rel, "../") || filepath.IsAbs(filepath.FromSlash(rel))
}

// fileExists checks if a file exists at the given path.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// writeFilePreservePerm writes data to path with the given permission bits.
// os.WriteFile applies umask on file creation, so os.Chmod is called to
// ensure the exact permission bits are set.
func writeFilePreservePerm(path string, data []byte, perm os.FileMode) error {
	if err := os.WriteFile(path, data, perm); err != nil {
		return err
	}
	return os.Chmod(path, perm)
}

// CleanupEmptyDirs removes empty directories left after files were moved away.
// It walks from each path's parent directory upward, removing empty directories
// until it reaches root or encounters a non-empty directory.
func CleanupEmptyDirs(root string, paths []string) {
	cleaned := make(map[string]bool)
	for _, p := range paths {
		dir := filepath.Dir(filepath.Join(root, filepath.FromSlash(p)))
		for {
			rel, err := filepath.Rel(root, dir)
			if err != nil {
				break
			}
			rel = filepath.ToSlash(rel)
			if rel == "." || rel == "" || strings.HasPrefix(rel, "..") {
				break
			}
			if cleaned[dir] {
				break
			}
			if err := os.Remove(dir); err != nil {
				break // non-empty or permission error
			}
			cleaned[dir] = true
			dir = filepath.Dir(dir)
		}
	}
}

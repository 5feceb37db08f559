package core

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// rewriteBackup holds original file content for rollback on failure.
type rewriteBackup struct {
	path    string // root-relative location that was written
	content []byte
	perm    os.FileMode
}

// restoreBackups restores files to their original content (best-effort).
// It returns the paths that were restored.
func restoreBackups(root string, backups []rewriteBackup) []string {
	var restored []string
	for i := len(backups) - 1; i >= 0; i-- {
		fb := backups[i]
		if err := writeFilePreservePerm(filepath.Join(root, filepath.FromSlash(fb.path)), fb.content, fb.perm); err == nil {
			restored = append(restored, fb.path)
		}
	}
	return restored
}

// applyLineEdits rewrites the lines named by edits, keeping every line's
// terminator. Each edit's Old text must still match the current line.
func applyLineEdits(content string, edits []TextEdit) (string, error) {
	lines, eols := splitLines(content)
	sep := "\n"
	for _, e := range eols {
		if e != "" {
			sep = e
			break
		}
	}

	byLine := make(map[int]TextEdit, len(edits))
	for _, e := range edits {
		idx := e.Line - 1
		if idx < 0 || idx >= len(lines) {
			return "", fmt.Errorf("line %d out of range (file has %d lines)", e.Line, len(lines))
		}
		if lines[idx] != e.Old {
			return "", fmt.Errorf("line %d is stale: have %q, want %q", e.Line, lines[idx], e.Old)
		}
		byLine[idx] = e
	}

	var b strings.Builder
	b.Grow(len(content))
	for i, line := range lines {
		e, ok := byLine[i]
		if !ok {
			b.WriteString(line)
			b.WriteString(eols[i])
			continue
		}
		for k, nl := range e.New {
			b.WriteString(nl)
			if k < len(e.New)-1 {
				b.WriteString(sep)
			} else {
				b.WriteString(eols[i])
			}
		}
	}
	return b.String(), nil
}

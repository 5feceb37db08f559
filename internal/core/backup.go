package core

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const backupMarker = "__backup__"

// BackupStore writes timestamped copies of files before they are edited.
// Names follow <root>/<dir>/<YYYYmmdd_HHMMSS>__backup__<rel>.
type BackupStore struct {
	root  string
	dir   string
	stamp string
}

// NewBackupStore returns a store under root/dir stamped with now.
func NewBackupStore(root, dir string, now time.Time) *BackupStore {
	return &BackupStore{root: root, dir: dir, stamp: now.Format("20060102_150405")}
}

// Path returns the backup location for rel.
func (b *BackupStore) Path(rel string) string {
	return filepath.Join(b.root, filepath.FromSlash(b.dir), b.stamp+backupMarker+filepath.FromSlash(rel))
}

// Save writes content as the backup of rel and returns the backup path.
func (b *BackupStore) Save(rel string, content []byte) (string, error) {
	p := b.Path(rel)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(p, content, 0o644); err != nil {
		return "", err
	}
	return p, nil
}

// Restore copies a backup back over the file it was taken from and returns
// that file's root-relative path.
func (b *BackupStore) Restore(backupPath string) (string, error) {
	rel, err := b.target(backupPath)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(backupPath)
	if err != nil {
		return "", err
	}
	dst := filepath.Join(b.root, filepath.FromSlash(rel))
	perm := os.FileMode(0o644)
	if info, err := os.Stat(dst); err == nil {
		perm = info.Mode().Perm()
	}
	if err := writeFilePreservePerm(dst, data, perm); err != nil {
		return "", err
	}
	return rel, nil
}

func (b *BackupStore) target(backupPath string) (string, error) {
	rel, err := filepath.Rel(filepath.Join(b.root, filepath.FromSlash(b.dir)), backupPath)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)
	idx := strings.Index(rel, backupMarker)
	if idx < 0 {
		return "", fmt.Errorf("not a backup file: %s", backupPath)
	}
	return NormalizePath(rel[idx+len(backupMarker):]), nil
}

package core

import (
	"os"
	"path/filepath"
	"sort"
)

// Tree is a read-only view of the project, addressed by root-relative paths.
type Tree interface {
	Root() string
	Exists(rel string) bool
	ReadFile(rel string) ([]byte, error)
	Files() []string
}

// OSTree is the project as it is on disk.
type OSTree struct {
	root  string
	files []string
}

// NewOSTree discovers the files under root using cfg's ignore rules.
func NewOSTree(root string, cfg Config) (*OSTree, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	files, err := DiscoverFiles(abs, cfg)
	if err != nil {
		return nil, err
	}
	return &OSTree{root: abs, files: files}, nil
}

func (t *OSTree) Root() string { return t.root }

func (t *OSTree) Exists(rel string) bool {
	return fileExists(filepath.Join(t.root, filepath.FromSlash(rel)))
}

func (t *OSTree) ReadFile(rel string) ([]byte, error) {
	return os.ReadFile(filepath.Join(t.root, filepath.FromSlash(rel)))
}

func (t *OSTree) Files() []string { return t.files }

// premoveTree presents the layout from before a set of moves that already
// happened on disk: old paths read from their new location, new paths are hidden.
type premoveTree struct {
	base    Tree
	forward map[string]string // old -> new
	hidden  map[string]bool   // new paths
	files   []string
}

// NewPremoveTree wraps base so that the moves in mapping appear undone.
func NewPremoveTree(base Tree, mapping *MoveMapping) Tree {
	t := &premoveTree{
		base:    base,
		forward: make(map[string]string),
		hidden:  make(map[string]bool),
	}
	for _, mv := range mapping.Sorted() {
		t.forward[mv.Old] = mv.New
		t.hidden[mv.New] = true
	}
	seen := make(map[string]bool)
	for _, f := range base.Files() {
		if t.hidden[f] {
			continue
		}
		seen[f] = true
		t.files = append(t.files, f)
	}
	for old, newRel := range t.forward {
		if !seen[old] && base.Exists(newRel) {
			t.files = append(t.files, old)
		}
	}
	sort.Strings(t.files)
	return t
}

func (t *premoveTree) Root() string { return t.base.Root() }

func (t *premoveTree) Exists(rel string) bool {
	if n, ok := t.forward[rel]; ok {
		return t.base.Exists(n)
	}
	if t.hidden[rel] {
		return false
	}
	return t.base.Exists(rel)
}

func (t *premoveTree) ReadFile(rel string) ([]byte, error) {
	if n, ok := t.forward[rel]; ok {
		return t.base.ReadFile(n)
	}
	if t.hidden[rel] {
		return nil, os.ErrNotExist
	}
	return t.base.ReadFile(rel)
}

func (t *premoveTree) Files() []string { return t.files }

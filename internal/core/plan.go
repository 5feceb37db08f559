package core

import (
	"sort"
	"strings"
)

// Move is a single old -> new relocation, both project-root relative.
type Move struct {
	Old string `json:"old"`
	New string `json:"new"`
}

// Conflict lists the sources that map to one destination.
type Conflict struct {
	Dest    string   `json:"dest"`
	Sources []string `json:"sources"`
}

func (c Conflict) String() string {
	return c.Dest + " <- " + strings.Join(c.Sources, ", ")
}

// MoveMapping maps old relative paths to new relative paths.
// No-op entries are never stored.
type MoveMapping struct {
	moves map[string]string
}

// NewMoveMapping returns an empty mapping.
func NewMoveMapping() *MoveMapping {
	return &MoveMapping{moves: make(map[string]string)}
}

// Add records old -> new. It returns the previous destination of old when
// this call replaced one.
func (m *MoveMapping) Add(oldRel, newRel string) (replaced string, ok bool) {
	oldRel = NormalizePath(oldRel)
	newRel = NormalizePath(newRel)
	if oldRel == newRel {
		return "", false
	}
	if m.moves == nil {
		m.moves = make(map[string]string)
	}
	prev, had := m.moves[oldRel]
	m.moves[oldRel] = newRel
	if had && prev != newRel {
		return prev, true
	}
	return "", false
}

// Get returns where rel ends up: its destination, or rel itself if it does not move.
func (m *MoveMapping) Get(rel string) string {
	if m == nil {
		return rel
	}
	if n, ok := m.moves[rel]; ok {
		return n
	}
	return rel
}

// Moved reports whether rel is a move source.
func (m *MoveMapping) Moved(rel string) bool {
	if m == nil {
		return false
	}
	_, ok := m.moves[rel]
	return ok
}

// Len returns the number of entries.
func (m *MoveMapping) Len() int {
	if m == nil {
		return 0
	}
	return len(m.moves)
}

// Sorted returns all entries ordered lexicographically by old path.
func (m *MoveMapping) Sorted() []Move {
	if m == nil {
		return nil
	}
	out := make([]Move, 0, len(m.moves))
	for o, n := range m.moves {
		out = append(out, Move{Old: o, New: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Old < out[j].Old })
	return out
}

// Inverse swaps old and new for every entry.
func (m *MoveMapping) Inverse() *MoveMapping {
	inv := NewMoveMapping()
	for _, mv := range m.Sorted() {
		inv.Add(mv.New, mv.Old)
	}
	return inv
}

// Conflicts returns every destination claimed by more than one source.
func (m *MoveMapping) Conflicts() []Conflict {
	if m == nil {
		return nil
	}
	byDest := make(map[string][]string)
	for o, n := range m.moves {
		byDest[n] = append(byDest[n], o)
	}
	var out []Conflict
	for dest, srcs := range byDest {
		if len(srcs) < 2 {
			continue
		}
		sort.Strings(srcs)
		out = append(out, Conflict{Dest: dest, Sources: srcs})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Dest < out[j].Dest })
	return out
}

// TextEdit replaces one line of a file, numbered against its pre-move content.
// New holds the replacement lines: one replaces, several expand, none deletes.
type TextEdit struct {
	Line int      `json:"line"`
	Old  string   `json:"old"`
	New  []string `json:"new"`
}

// FileEdits is the edit list of a single file, identified by its pre-move path.
type FileEdits struct {
	Path  string     `json:"path"`
	Edits []TextEdit `json:"edits"`
}

// HasChanges reports whether the file is affected at all.
func (f FileEdits) HasChanges() bool {
	return len(f.Edits) > 0
}

// RefactorPlan aggregates the move mapping and every file's edits.
type RefactorPlan struct {
	Mapping  *MoveMapping
	Files    []FileEdits
	Warnings []string
}

// IsEmpty reports whether the plan has neither moves nor edits.
func (p *RefactorPlan) IsEmpty() bool {
	if p == nil {
		return true
	}
	if p.Mapping.Len() > 0 {
		return false
	}
	for _, f := range p.Files {
		if f.HasChanges() {
			return false
		}
	}
	return true
}

// EditCount returns the number of files with edits and the total number of edited lines.
func (p *RefactorPlan) EditCount() (files, lines int) {
	for _, f := range p.Files {
		if f.HasChanges() {
			files++
			lines += len(f.Edits)
		}
	}
	return files, lines
}

package core

import (
	"errors"
	"sort"
	"strings"
	"unicode/utf8"
)

// PlanOptions controls reference planning.
type PlanOptions struct {
	// DescriptorsOnly restricts planning to build-descriptor files.
	DescriptorsOnly bool
}

// ReferencePlanner computes the line edits that keep references valid after a move.
type ReferencePlanner struct {
	tree     Tree
	cfg      Config
	resolver *Resolver
	opts     PlanOptions
}

// NewReferencePlanner returns a planner reading the pre-move state from tree.
func NewReferencePlanner(tree Tree, cfg Config, opts PlanOptions) *ReferencePlanner {
	return &ReferencePlanner{tree: tree, cfg: cfg, resolver: NewResolver(tree, cfg), opts: opts}
}

// Plan returns the edits for every affected text file, sorted by path, plus
// one warning per file that could not be read. An empty mapping yields no edits.
func (p *ReferencePlanner) Plan(mapping *MoveMapping) ([]FileEdits, []string) {
	if mapping.Len() == 0 {
		return nil, nil
	}
	rootPairs := make(map[string]string, mapping.Len())
	for _, mv := range mapping.Sorted() {
		rootPairs[mv.Old] = mv.New
	}
	literals := newPathMatcher(rootPairs, false)

	var out []FileEdits
	var warnings []string
	for _, rel := range p.tree.Files() {
		if !p.cfg.IsTextCandidate(rel) {
			continue
		}
		descriptor := p.cfg.IsDescriptor(rel)
		if p.opts.DescriptorsOnly && !descriptor {
			continue
		}
		snapshot, err := p.readLines(rel)
		if err != nil {
			warnings = append(warnings, err.Error())
			continue
		}

		set := newEditSet(snapshot)
		work := append([]string(nil), snapshot...)

		// Pass 1: include directives.
		prev := append([]string(nil), work...)
		p.rewriteIncludes(rel, work, mapping)
		set.diff(prev, work)

		if descriptor {
			// Pass 2: descriptor path literals and tokens, then the structural guard.
			prev = append(prev[:0], work...)
			m := newPairMatcher(p.descriptorPairs(rel, mapping), true)
			replaceLines(work, m)
			set.diff(prev, work)
			if rel == NormalizePath(p.cfg.TestManifest) {
				for _, op := range guardExecutables(work, p.cfg.GuardLookbehind, p.cfg.GuardLookahead) {
					set.record(op.Index, op.Lines)
				}
			}
		} else {
			// Pass 3: quoted literal paths in ordinary text files.
			prev = append(prev[:0], work...)
			replaceLines(work, literals)
			set.diff(prev, work)
		}

		if edits := set.edits(); len(edits) > 0 {
			out = append(out, FileEdits{Path: rel, Edits: edits})
		}
	}
	return out, warnings
}

func (p *ReferencePlanner) readLines(rel string) ([]string, error) {
	data, err := p.tree.ReadFile(rel)
	if err != nil {
		return nil, &ReadError{Path: rel, Err: err}
	}
	if !utf8.Valid(data) {
		return nil, &ReadError{Path: rel, Err: errors.New("not valid UTF-8 text")}
	}
	lines, _ := splitLines(string(data))
	return lines, nil
}

// rewriteIncludes updates work in place. A directive changes only when the
// including file or the included file moves.
func (p *ReferencePlanner) rewriteIncludes(rel string, work []string, mapping *MoveMapping) {
	selfNew := mapping.Get(rel)
	for i, line := range work {
		ref, ok := matchInclude(line)
		if !ok {
			continue
		}
		target, ok := p.resolver.Resolve(rel, ref.Path)
		if !ok {
			continue
		}
		if !mapping.Moved(rel) && !mapping.Moved(target) {
			continue
		}
		text, ok := p.resolver.Recompute(selfNew, mapping.Get(target))
		if !ok || text == ref.Path {
			continue
		}
		work[i] = ref.replaceSpan(line, text)
	}
}

// descriptorPairs returns the substitutions for a build descriptor: each move
// root-relative, and relative to the descriptor's own directory. The
// directory-relative form wins when both produce the same key, and a
// root-relative key is dropped when it also names an existing file next to
// the descriptor. Root-relative tokens may follow ${PROJECT_SOURCE_DIR}/ and
// directory-relative ones ${CMAKE_CURRENT_SOURCE_DIR}/; in a root descriptor
// the two coincide.
func (p *ReferencePlanner) descriptorPairs(rel string, mapping *MoveMapping) []pathPair {
	dir := dirOf(rel)
	byOld := make(map[string]pathPair, mapping.Len()*2)
	rootVars := rootPathVars
	if dir == "" {
		rootVars = append(append([]string(nil), rootPathVars...), dirPathVars...)
	}
	for _, mv := range mapping.Sorted() {
		if dir != "" && p.tree.Exists(JoinPath(dir, mv.Old)) {
			continue
		}
		byOld[mv.Old] = pathPair{old: mv.Old, new: mv.New, vars: rootVars}
	}
	if dir != "" {
		for _, mv := range mapping.Sorted() {
			o, err := RelPath(dir, mv.Old)
			if err != nil {
				continue
			}
			n, err := RelPath(dir, mv.New)
			if err != nil {
				continue
			}
			byOld[o] = pathPair{old: o, new: n, vars: dirPathVars}
		}
	}
	pairs := make([]pathPair, 0, len(byOld))
	for _, pp := range byOld {
		pairs = append(pairs, pp)
	}
	return pairs
}

// replaceLines applies m to every line except include directives, which
// rewriteIncludes owns.
func replaceLines(lines []string, m *pathMatcher) {
	for i, l := range lines {
		if _, ok := matchInclude(l); ok {
			continue
		}
		if nl, ok := m.Replace(l); ok {
			lines[i] = nl
		}
	}
}

// editSet accumulates at most one edit per snapshot line; later passes
// compose on top of earlier ones.
type editSet struct {
	snapshot []string
	byLine   map[int][]string
}

func newEditSet(snapshot []string) *editSet {
	return &editSet{snapshot: snapshot, byLine: make(map[int][]string)}
}

// diff records every line that differs between prev and cur.
func (s *editSet) diff(prev, cur []string) {
	for i := range cur {
		if i < len(prev) && prev[i] == cur[i] {
			continue
		}
		s.record(i, []string{cur[i]})
	}
}

func (s *editSet) record(idx int, lines []string) {
	if lines == nil {
		lines = []string{}
	}
	if len(lines) == 1 && lines[0] == s.snapshot[idx] {
		delete(s.byLine, idx)
		return
	}
	s.byLine[idx] = lines
}

func (s *editSet) edits() []TextEdit {
	out := make([]TextEdit, 0, len(s.byLine))
	for idx, lines := range s.byLine {
		out = append(out, TextEdit{Line: idx + 1, Old: s.snapshot[idx], New: lines})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Line < out[j].Line })
	return out
}

// splitLines splits text into lines without terminators, returning each
// line's terminator ("\n", "\r\n", or "" for an unterminated last line).
func splitLines(text string) (lines, eols []string) {
	for len(text) > 0 {
		idx := strings.IndexByte(text, '\n')
		if idx < 0 {
			lines = append(lines, text)
			eols = append(eols, "")
			break
		}
		line := text[:idx]
		eol := "\n"
		if strings.HasSuffix(line, "\r") {
			line = line[:len(line)-1]
			eol = "\r\n"
		}
		lines = append(lines, line)
		eols = append(eols, eol)
		text = text[idx+1:]
	}
	return lines, eols
}

// BuildPlan diffs layout against tree and computes the reference edits the
// resulting moves require. A *ConflictError is returned alongside the partial
// plan when destinations collide; such a plan must not be applied.
func BuildPlan(tree Tree, cfg Config, layout *Layout) (*RefactorPlan, error) {
	mp, err := BuildMovePlan(tree, layout)
	plan := &RefactorPlan{Mapping: mp.Mapping, Warnings: mp.Warnings}
	if err != nil {
		return plan, err
	}
	return planEdits(tree, cfg, plan, PlanOptions{}), nil
}

// PlanForMapping computes the edits for an explicit mapping.
func PlanForMapping(tree Tree, cfg Config, mapping *MoveMapping, opts PlanOptions) (*RefactorPlan, error) {
	plan := &RefactorPlan{Mapping: mapping}
	if conflicts := mapping.Conflicts(); len(conflicts) > 0 {
		return plan, &ConflictError{Conflicts: conflicts}
	}
	return planEdits(tree, cfg, plan, opts), nil
}

func planEdits(tree Tree, cfg Config, plan *RefactorPlan, opts PlanOptions) *RefactorPlan {
	files, warnings := NewReferencePlanner(tree, cfg, opts).Plan(plan.Mapping)
	plan.Files = files
	plan.Warnings = append(plan.Warnings, warnings...)
	return plan
}

package core

import (
	"path/filepath"
	"strings"
)

// Resolver maps a reference found inside a project file to the project file it names.
type Resolver struct {
	tree Tree
	cfg  Config
}

// NewResolver returns a resolver over tree.
func NewResolver(tree Tree, cfg Config) *Resolver {
	return &Resolver{tree: tree, cfg: cfg}
}

// Resolve returns the root-relative path that ref, written inside including,
// points at. The first existing candidate wins:
//
//  1. the including file's directory
//  2. the project root
//  3. the source prefix, unless ref already starts with it
//  4. each prefix alias whose From matches
//
// ok is false for external or system references, which must never be rewritten.
func (r *Resolver) Resolve(including, ref string) (string, bool) {
	ref = strings.TrimSpace(filepath.ToSlash(ref))
	if ref == "" || filepath.IsAbs(filepath.FromSlash(ref)) {
		return "", false
	}
	for _, cand := range r.candidates(including, ref) {
		if escapesRoot(cand) {
			continue
		}
		if r.tree.Exists(cand) {
			return cand, true
		}
	}
	return "", false
}

// ResolveAbs is Resolve returning an absolute filesystem path.
func (r *Resolver) ResolveAbs(including, ref string) (string, bool) {
	rel, ok := r.Resolve(including, ref)
	if !ok {
		return "", false
	}
	return filepath.Join(r.tree.Root(), filepath.FromSlash(rel)), true
}

func (r *Resolver) candidates(including, ref string) []string {
	cands := []string{
		JoinPath(dirOf(including), ref),
		NormalizePath(ref),
	}
	if p := strings.Trim(r.cfg.SourcePrefix, "/"); p != "" && !strings.HasPrefix(ref, p+"/") {
		cands = append(cands, JoinPath(p, ref))
	}
	for _, a := range r.cfg.PrefixAliases {
		if strings.HasPrefix(ref, a.From) {
			cands = append(cands, JoinPath(a.To, strings.TrimPrefix(ref, a.From)))
		}
	}
	return cands
}

// Recompute returns the reference text that reaches included from including,
// relative to including's directory. ok is false when no relative path exists.
func (r *Resolver) Recompute(including, included string) (string, bool) {
	return relativeRef(including, included)
}

func relativeRef(including, included string) (string, bool) {
	dir := dirOf(including)
	if dir == "" {
		dir = "."
	}
	rel, err := RelPath(dir, included)
	if err != nil {
		return "", false
	}
	return rel, true
}

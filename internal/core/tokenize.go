package core

import (
	"regexp"
	"slices"
	"sort"
	"strings"
)

var includePattern = regexp.MustCompile(`^\s*#\s*include\s*(?:"([^"\n]+)"|<([^>\n]+)>)`)

// includeRef is an include directive found on a line. Start and End delimit
// the path text inside the quotes or brackets.
type includeRef struct {
	Path  string
	Start int
	End   int
	Angle bool
}

// matchInclude recognizes a line-leading #include "path" or #include <path>.
func matchInclude(line string) (includeRef, bool) {
	m := includePattern.FindStringSubmatchIndex(line)
	if m == nil {
		return includeRef{}, false
	}
	if m[2] >= 0 {
		return includeRef{Path: line[m[2]:m[3]], Start: m[2], End: m[3]}, true
	}
	return includeRef{Path: line[m[4]:m[5]], Start: m[4], End: m[5], Angle: true}, true
}

// replaceSpan substitutes the path of ref inside line.
func (ref includeRef) replaceSpan(line, path string) string {
	return line[:ref.Start] + path + line[ref.End:]
}

// CMake variables that may directly prefix a path token, by the form of the
// path that follows them.
var (
	rootPathVars = []string{"PROJECT_SOURCE_DIR", "CMAKE_SOURCE_DIR"}
	dirPathVars  = []string{"CMAKE_CURRENT_SOURCE_DIR", "CMAKE_CURRENT_LIST_DIR"}
)

type pathPair struct {
	old string
	new string
	// vars lists the ${VAR}/ prefixes old may follow as a bare token.
	vars []string
}

// pathMatcher rewrites moved paths inside text in a single left-to-right scan.
//
// Precedence at each position: a quoted literal ('old' or "old", matching
// quotes) wins over a bare token. Among paths, the longest match wins. Each
// position is rewritten at most once, so chained mappings (a->b, b->c) never
// compose within one scan.
type pathMatcher struct {
	pairs []pathPair
	bare  bool
}

// newPathMatcher builds a matcher over old->new pairs. With bare false only
// quoted literals are rewritten. vars names the CMake variables each bare
// token may follow.
func newPathMatcher(pairs map[string]string, bare bool, vars ...string) *pathMatcher {
	list := make([]pathPair, 0, len(pairs))
	for o, n := range pairs {
		list = append(list, pathPair{old: o, new: n, vars: vars})
	}
	return newPairMatcher(list, bare)
}

func newPairMatcher(pairs []pathPair, bare bool) *pathMatcher {
	m := &pathMatcher{bare: bare}
	for _, p := range pairs {
		if p.old == "" || p.old == p.new {
			continue
		}
		m.pairs = append(m.pairs, p)
	}
	sort.Slice(m.pairs, func(i, j int) bool {
		if len(m.pairs[i].old) != len(m.pairs[j].old) {
			return len(m.pairs[i].old) > len(m.pairs[j].old)
		}
		return m.pairs[i].old < m.pairs[j].old
	})
	return m
}

// Replace returns text with every match rewritten and whether anything changed.
func (m *pathMatcher) Replace(text string) (string, bool) {
	if len(m.pairs) == 0 {
		return text, false
	}
	var b strings.Builder
	changed := false
	i := 0
	for i < len(text) {
		c := text[i]
		if c == '"' || c == '\'' {
			if p, ok := m.quotedAt(text, i); ok {
				b.WriteByte(c)
				b.WriteString(p.new)
				b.WriteByte(c)
				i += len(p.old) + 2
				changed = true
				continue
			}
		}
		if m.bare {
			if p, ok := m.bareAt(text, i); ok {
				b.WriteString(p.new)
				i += len(p.old)
				changed = true
				continue
			}
		}
		b.WriteByte(c)
		i++
	}
	if !changed {
		return text, false
	}
	return b.String(), true
}

func (m *pathMatcher) quotedAt(text string, i int) (pathPair, bool) {
	q := text[i]
	rest := text[i+1:]
	for _, p := range m.pairs {
		if strings.HasPrefix(rest, p.old) && len(rest) > len(p.old) && rest[len(p.old)] == q {
			return p, true
		}
	}
	return pathPair{}, false
}

func (m *pathMatcher) bareAt(text string, i int) (pathPair, bool) {
	plain := i == 0 || !isPathChar(text[i-1])
	v := ""
	if !plain {
		if v = cmakeVarBefore(text, i); v == "" {
			return pathPair{}, false
		}
	}
	rest := text[i:]
	for _, p := range m.pairs {
		if !strings.HasPrefix(rest, p.old) || !boundaryAfter(text, i+len(p.old)) {
			continue
		}
		if plain || slices.Contains(p.vars, v) {
			return p, true
		}
	}
	return pathPair{}, false
}

// isPathChar reports whether c can be part of a path or identifier token.
func isPathChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '_', c == '-', c == '/', c == '.':
		return true
	}
	return false
}

// cmakeVarBefore returns NAME when text[:i] ends with "${NAME}/".
func cmakeVarBefore(text string, i int) string {
	if i < 4 || text[i-1] != '/' || text[i-2] != '}' {
		return ""
	}
	start := strings.LastIndex(text[:i-2], "${")
	if start < 0 {
		return ""
	}
	name := text[start+2 : i-2]
	if name == "" || strings.ContainsAny(name, "${}") {
		return ""
	}
	return name
}

func boundaryAfter(text string, end int) bool {
	return end >= len(text) || !isPathChar(text[end])
}

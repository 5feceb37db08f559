package core

import (
	"regexp"
	"strings"
)

var addExecutablePattern = regexp.MustCompile(`^(\s*)add_executable\s*\(\s*(\w+)\s+([^)]*?)\s*\)`)

// guardRelatedCommands are statements carried into an existence guard when
// they follow the guarded target and mention its name.
var guardRelatedCommands = []string{
	"target_link_libraries",
	"target_compile_definitions",
	"add_test",
	"set_tests_properties",
}

var compileUnitExts = []string{".c", ".cc", ".cpp", ".cxx"}

// guardOp replaces line Index with Lines; nil Lines deletes it.
type guardOp struct {
	Index int
	Lines []string
}

// guardExecutables wraps every unconditional add_executable(<name> <src> ...)
// in an if(EXISTS ...) block keyed on its first translation unit. Statements
// about the same target that immediately follow are carried into the block
// while they fall inside a window of lookahead lines starting at the call, so
// at most lookahead-1 of them move. Calls with an EXISTS/CMAKE_CURRENT_SOURCE_DIR check in the
// previous lookbehind lines are left alone.
func guardExecutables(lines []string, lookbehind, lookahead int) []guardOp {
	var ops []guardOp
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		m := addExecutablePattern.FindStringSubmatch(line)
		if m == nil || hasExistsCheck(lines, i, lookbehind) {
			continue
		}
		indent, target := m[1], m[2]
		src := firstCompileUnit(m[3])
		if src == "" {
			continue
		}

		block := []string{
			indent + "if(EXISTS ${CMAKE_CURRENT_SOURCE_DIR}/" + src + " AND NOT TARGET " + target + ")",
			indent + "    " + strings.TrimLeft(line, " \t"),
		}
		j := i + 1
		for j < len(lines) && j < i+lookahead && relatesTo(lines[j], target) {
			block = append(block, indent+"    "+strings.TrimSpace(lines[j]))
			j++
		}
		block = append(block, indent+"endif()")

		ops = append(ops, guardOp{Index: i, Lines: block})
		for k := i + 1; k < j; k++ {
			ops = append(ops, guardOp{Index: k})
		}
		i = j - 1
	}
	return ops
}

func hasExistsCheck(lines []string, i, lookbehind int) bool {
	start := i - lookbehind
	if start < 0 {
		start = 0
	}
	for _, l := range lines[start:i] {
		if strings.Contains(l, "EXISTS") && strings.Contains(l, "CMAKE_CURRENT_SOURCE_DIR") {
			return true
		}
	}
	return false
}

func firstCompileUnit(args string) string {
	for _, a := range strings.Fields(args) {
		if hasExt(a, compileUnitExts) {
			return a
		}
	}
	return ""
}

func relatesTo(line, target string) bool {
	if !containsWord(line, target) {
		return false
	}
	for _, cmd := range guardRelatedCommands {
		if strings.Contains(line, cmd) {
			return true
		}
	}
	return false
}

// containsWord reports whether word occurs in s delimited by non-identifier characters.
func containsWord(s, word string) bool {
	for off := 0; ; {
		idx := strings.Index(s[off:], word)
		if idx < 0 {
			return false
		}
		start := off + idx
		end := start + len(word)
		if (start == 0 || !isIdentChar(s[start-1])) && (end == len(s) || !isIdentChar(s[end])) {
			return true
		}
		off = start + 1
	}
}

func isIdentChar(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mapping(pairs ...string) *MoveMapping {
	m := NewMoveMapping()
	for i := 0; i+1 < len(pairs); i += 2 {
		m.Add(pairs[i], pairs[i+1])
	}
	return m
}

func planFor(t *testing.T, tree Tree, m *MoveMapping, opts PlanOptions) *RefactorPlan {
	t.Helper()
	plan, err := PlanForMapping(tree, DefaultConfig(), m, opts)
	require.NoError(t, err)
	return plan
}

func editsOf(plan *RefactorPlan, path string) []TextEdit {
	for _, f := range plan.Files {
		if f.Path == path {
			return f.Edits
		}
	}
	return nil
}

func TestPlan_IncludedFileMoves(t *testing.T) {
	tree := newTestTree(t, map[string]string{
		"src/foo/a.h":    "int a;\n",
		"src/foo/main.c": "#include \"a.h\"\nint main(void) { return 0; }\n",
	})
	plan := planFor(t, tree, mapping("src/foo/a.h", "src/bar/a.h"), PlanOptions{})

	require.Len(t, plan.Files, 1)
	assert.Equal(t, FileEdits{Path: "src/foo/main.c", Edits: []TextEdit{
		{Line: 1, Old: `#include "a.h"`, New: []string{`#include "../bar/a.h"`}},
	}}, plan.Files[0])
}

func TestPlan_IncludingFileMoves(t *testing.T) {
	tree := newTestTree(t, map[string]string{
		"src/foo/a.h":    "",
		"src/foo/main.c": "#include \"a.h\"\n#include <stdio.h>\n",
	})
	plan := planFor(t, tree, mapping("src/foo/main.c", "app/main.c"), PlanOptions{})

	assert.Equal(t, []TextEdit{
		{Line: 1, Old: `#include "a.h"`, New: []string{`#include "../src/foo/a.h"`}},
	}, editsOf(plan, "src/foo/main.c"))
}

func TestPlan_AngleIncludeInsideProject(t *testing.T) {
	tree := newTestTree(t, map[string]string{
		"include/lib/api.h": "",
		"src/main.c":        "#include <include/lib/api.h>\n",
	})
	plan := planFor(t, tree, mapping("include/lib/api.h", "include/api.h"), PlanOptions{})

	assert.Equal(t, []TextEdit{
		{Line: 1, Old: `#include <include/lib/api.h>`, New: []string{`#include <../include/api.h>`}},
	}, editsOf(plan, "src/main.c"))
}

func TestPlan_UnaffectedIncludesUntouched(t *testing.T) {
	tree := newTestTree(t, map[string]string{
		"src/bar/b.h":    "",
		"src/foo/a.h":    "",
		"src/foo/main.c": "#include \"bar/b.h\"\n#include <stdio.h>\n",
	})
	plan := planFor(t, tree, mapping("src/foo/a.h", "src/baz/a.h"), PlanOptions{})
	assert.Empty(t, plan.Files)
}

func TestPlan_EmptyMappingHasNoEdits(t *testing.T) {
	tree := newTestTree(t, map[string]string{
		"src/main.c":     "#include \"foo/a.h\"\n",
		"src/foo/a.h":    "",
		"CMakeLists.txt": "add_library(x src/main.c)\n",
	})
	plan := planFor(t, tree, NewMoveMapping(), PlanOptions{})
	assert.True(t, plan.IsEmpty())
}

func TestPlan_ChainedMappings(t *testing.T) {
	tree := newTestTree(t, map[string]string{
		"a.h":            "",
		"b.h":            "",
		"main.c":         "#include \"a.h\"\n#include \"b.h\"\n",
		"CMakeLists.txt": "add_library(x a.h b.h)\n",
	})
	plan := planFor(t, tree, mapping("a.h", "b.h", "b.h", "c.h"), PlanOptions{})

	assert.Equal(t, []TextEdit{
		{Line: 1, Old: `#include "a.h"`, New: []string{`#include "b.h"`}},
		{Line: 2, Old: `#include "b.h"`, New: []string{`#include "c.h"`}},
	}, editsOf(plan, "main.c"))
	assert.Equal(t, []TextEdit{
		{Line: 1, Old: "add_library(x a.h b.h)", New: []string{"add_library(x b.h c.h)"}},
	}, editsOf(plan, "CMakeLists.txt"))
}

func TestPlan_RootDescriptor(t *testing.T) {
	tree := newTestTree(t, map[string]string{
		"src/foo/a.c":    "",
		"src/foo/b.c":    "",
		"CMakeLists.txt": "add_library(core src/foo/a.c src/foo/b.c)\n",
	})
	plan := planFor(t, tree, mapping("src/foo/a.c", "src/core/a.c"), PlanOptions{})

	assert.Equal(t, []TextEdit{
		{Line: 1, Old: "add_library(core src/foo/a.c src/foo/b.c)", New: []string{"add_library(core src/core/a.c src/foo/b.c)"}},
	}, editsOf(plan, "CMakeLists.txt"))
}

func TestPlan_DescriptorDirectoryRelative(t *testing.T) {
	tree := newTestTree(t, map[string]string{
		"src/foo/a.c": "",
		"src/CMakeLists.txt": "add_library(core foo/a.c)\n" +
			"set(EXTRA ${CMAKE_CURRENT_SOURCE_DIR}/foo/a.c)\n",
	})
	plan := planFor(t, tree, mapping("src/foo/a.c", "src/core/a.c"), PlanOptions{})

	assert.Equal(t, []TextEdit{
		{Line: 1, Old: "add_library(core foo/a.c)", New: []string{"add_library(core core/a.c)"}},
		{Line: 2, Old: "set(EXTRA ${CMAKE_CURRENT_SOURCE_DIR}/foo/a.c)", New: []string{"set(EXTRA ${CMAKE_CURRENT_SOURCE_DIR}/core/a.c)"}},
	}, editsOf(plan, "src/CMakeLists.txt"))
}

func TestPlan_DescriptorPrefersLocalFile(t *testing.T) {
	tree := newTestTree(t, map[string]string{
		"foo.c":              "",
		"src/foo.c":          "",
		"src/CMakeLists.txt": "add_library(x foo.c)\n",
	})
	plan := planFor(t, tree, mapping("foo.c", "lib/foo.c"), PlanOptions{})
	assert.Nil(t, editsOf(plan, "src/CMakeLists.txt"))
}

func TestPlan_CMakeModule(t *testing.T) {
	tree := newTestTree(t, map[string]string{
		"src/foo/a.c":         "",
		"cmake/sources.cmake": "set(SRCS \"${PROJECT_SOURCE_DIR}/src/foo/a.c\")\n",
	})
	plan := planFor(t, tree, mapping("src/foo/a.c", "src/core/a.c"), PlanOptions{})

	assert.Equal(t, []TextEdit{
		{Line: 1, Old: `set(SRCS "${PROJECT_SOURCE_DIR}/src/foo/a.c")`, New: []string{`set(SRCS "${PROJECT_SOURCE_DIR}/src/core/a.c")`}},
	}, editsOf(plan, "cmake/sources.cmake"))
}

func TestPlan_DescriptorForeignVariableUntouched(t *testing.T) {
	tree := newTestTree(t, map[string]string{
		"lib/x.c": "",
		"lib/CMakeLists.txt": "add_library(l x.c ${VENDOR_DIR}/x.c)\n" +
			"set(ALT ${PROJECT_SOURCE_DIR}/x.c)\n" +
			"set(OWN ${PROJECT_SOURCE_DIR}/lib/x.c)\n",
	})
	plan := planFor(t, tree, mapping("lib/x.c", "lib/core/x.c"), PlanOptions{})

	assert.Equal(t, []TextEdit{
		{Line: 1, Old: "add_library(l x.c ${VENDOR_DIR}/x.c)", New: []string{"add_library(l core/x.c ${VENDOR_DIR}/x.c)"}},
		{Line: 3, Old: "set(OWN ${PROJECT_SOURCE_DIR}/lib/x.c)", New: []string{"set(OWN ${PROJECT_SOURCE_DIR}/lib/core/x.c)"}},
	}, editsOf(plan, "lib/CMakeLists.txt"))
}

func TestPlan_RootDescriptorAcceptsEitherVariable(t *testing.T) {
	tree := newTestTree(t, map[string]string{
		"src/a.c": "",
		"CMakeLists.txt": "set(A ${CMAKE_CURRENT_SOURCE_DIR}/src/a.c)\n" +
			"set(B ${CMAKE_SOURCE_DIR}/src/a.c)\n",
	})
	plan := planFor(t, tree, mapping("src/a.c", "lib/a.c"), PlanOptions{})

	assert.Equal(t, []TextEdit{
		{Line: 1, Old: "set(A ${CMAKE_CURRENT_SOURCE_DIR}/src/a.c)", New: []string{"set(A ${CMAKE_CURRENT_SOURCE_DIR}/lib/a.c)"}},
		{Line: 2, Old: "set(B ${CMAKE_SOURCE_DIR}/src/a.c)", New: []string{"set(B ${CMAKE_SOURCE_DIR}/lib/a.c)"}},
	}, editsOf(plan, "CMakeLists.txt"))
}

func TestPlan_DescriptorsAtEachLevel(t *testing.T) {
	tree := newTestTree(t, map[string]string{
		"lib/x.c":              "",
		"tools/x.c":            "",
		"CMakeLists.txt":       "add_subdirectory(lib)\nset(GEN \"lib/x.c\")\n",
		"lib/CMakeLists.txt":   "add_library(l \"x.c\")\n",
		"tools/CMakeLists.txt": "add_executable(t x.c)\n",
	})
	plan := planFor(t, tree, mapping("lib/x.c", "lib/core/x.c", "tools/x.c", "tools/util/x.c"), PlanOptions{})

	assert.Equal(t, []TextEdit{
		{Line: 2, Old: `set(GEN "lib/x.c")`, New: []string{`set(GEN "lib/core/x.c")`}},
	}, editsOf(plan, "CMakeLists.txt"))
	assert.Equal(t, []TextEdit{
		{Line: 1, Old: `add_library(l "x.c")`, New: []string{`add_library(l "core/x.c")`}},
	}, editsOf(plan, "lib/CMakeLists.txt"))
	assert.Equal(t, []TextEdit{
		{Line: 1, Old: "add_executable(t x.c)", New: []string{"add_executable(t util/x.c)"}},
	}, editsOf(plan, "tools/CMakeLists.txt"))
}

func TestPlan_QuotedLiteralInSource(t *testing.T) {
	tree := newTestTree(t, map[string]string{
		"data/table.h": "",
		"src/gen.c":    "static const char *p = \"data/table.h\";\nint data/table;\n",
	})
	plan := planFor(t, tree, mapping("data/table.h", "include/table.h"), PlanOptions{})

	assert.Equal(t, []TextEdit{
		{Line: 1, Old: `static const char *p = "data/table.h";`, New: []string{`static const char *p = "include/table.h";`}},
	}, editsOf(plan, "src/gen.c"))
}

func TestPlan_TestManifestGuard(t *testing.T) {
	tree := newTestTree(t, map[string]string{
		"tests/test_a.c": "",
		"tests/CMakeLists.txt": "add_executable(test_a test_a.c)\n" +
			"target_link_libraries(test_a core)\n",
	})
	plan := planFor(t, tree, mapping("tests/test_a.c", "tests/unit/test_a.c"), PlanOptions{})

	assert.Equal(t, []TextEdit{
		{Line: 1, Old: "add_executable(test_a test_a.c)", New: []string{
			"if(EXISTS ${CMAKE_CURRENT_SOURCE_DIR}/unit/test_a.c AND NOT TARGET test_a)",
			"    add_executable(test_a unit/test_a.c)",
			"    target_link_libraries(test_a core)",
			"endif()",
		}},
		{Line: 2, Old: "target_link_libraries(test_a core)", New: []string{}},
	}, editsOf(plan, "tests/CMakeLists.txt"))
}

func TestPlan_DescriptorsOnly(t *testing.T) {
	tree := newTestTree(t, map[string]string{
		"a.h":            "",
		"main.c":         "#include \"a.h\"\n",
		"CMakeLists.txt": "add_library(x a.h)\n",
	})
	plan := planFor(t, tree, mapping("a.h", "inc/a.h"), PlanOptions{DescriptorsOnly: true})

	require.Len(t, plan.Files, 1)
	assert.Equal(t, "CMakeLists.txt", plan.Files[0].Path)
}

func TestPlan_UnreadableFileWarns(t *testing.T) {
	tree := newTestTree(t, map[string]string{
		"a.h":   "",
		"bad.c": "\xff\xfe#include \"a.h\"\n",
	})
	plan := planFor(t, tree, mapping("a.h", "inc/a.h"), PlanOptions{})

	assert.Empty(t, plan.Files)
	assert.Equal(t, []string{"read bad.c: not valid UTF-8 text"}, plan.Warnings)
}

func TestPlan_ConflictingMapping(t *testing.T) {
	tree := newTestTree(t, map[string]string{"a.c": "", "b.c": ""})
	_, err := PlanForMapping(tree, DefaultConfig(), mapping("a.c", "x.c", "b.c", "x.c"), PlanOptions{})
	var ce *ConflictError
	assert.ErrorAs(t, err, &ce)
}

func TestPlan_PremoveTree(t *testing.T) {
	// a.h was already moved on disk; references still use the old layout.
	tree := newTestTree(t, map[string]string{
		"src/bar/a.h":    "",
		"src/foo/main.c": "#include \"a.h\"\n",
	})
	m := mapping("src/foo/a.h", "src/bar/a.h")
	pre := NewPremoveTree(tree, m)

	assert.True(t, pre.Exists("src/foo/a.h"))
	assert.False(t, pre.Exists("src/bar/a.h"))
	assert.Equal(t, []string{"src/foo/a.h", "src/foo/main.c"}, pre.Files())

	plan := planFor(t, pre, m, PlanOptions{})
	assert.Equal(t, []TextEdit{
		{Line: 1, Old: `#include "a.h"`, New: []string{`#include "../bar/a.h"`}},
	}, editsOf(plan, "src/foo/main.c"))
}

func TestSplitLines(t *testing.T) {
	lines, eols := splitLines("a\r\nb\nc")
	assert.Equal(t, []string{"a", "b", "c"}, lines)
	assert.Equal(t, []string{"\r\n", "\n", ""}, eols)

	lines, eols = splitLines("")
	assert.Empty(t, lines)
	assert.Empty(t, eols)
}

func TestBuildPlan_MovesHeaderBesideSibling(t *testing.T) {
	tree := newTestTree(t, map[string]string{
		"src/foo/a.h":    "",
		"src/foo/main.c": "#include \"a.h\"\n",
	})
	l, err := ParseLayout([]byte(`
- name: src
  children:
    - name: bar
      children:
        - name: a.h
    - name: foo
      children:
        - name: main.c
`))
	require.NoError(t, err)

	plan, err := BuildPlan(tree, DefaultConfig(), l)
	require.NoError(t, err)
	assert.Equal(t, []Move{{Old: "src/foo/a.h", New: "src/bar/a.h"}}, plan.Mapping.Sorted())
	assert.Equal(t, []TextEdit{
		{Line: 1, Old: `#include "a.h"`, New: []string{`#include "../bar/a.h"`}},
	}, editsOf(plan, "src/foo/main.c"))
}

package core

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryotapoi/restruct/internal/testutil"
)

func TestParseStagedRenames(t *testing.T) {
	out := "R  src/a.h -> include/a.h\n" +
		"RM src/b.c -> lib/b.c\n" +
		" M src/main.c\n" +
		"?? notes.txt\n" +
		"R  \"dir with space/c.h\" -> \"inc/c\\303\\251.h\"\r\n" +
		"A  new.c\n"
	assert.Equal(t, []Move{
		{Old: "src/a.h", New: "include/a.h"},
		{Old: "src/b.c", New: "lib/b.c"},
		{Old: "dir with space/c.h", New: "inc/cé.h"},
	}, parseStagedRenames(out))
	assert.Empty(t, parseStagedRenames(""))
}

// stagedProject returns a tree where src/foo/a.h was already moved to
// src/bar/a.h but references still use the old location.
func stagedProject(t *testing.T) string {
	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{
		"CMakeLists.txt": "add_executable(app src/foo/main.c src/foo/a.h)\n",
		"src/bar/a.h":    "int a;\n",
		"src/foo/main.c": "#include \"a.h\"\n",
	})
	return root
}

func TestApplyStaged_UpdateRefs(t *testing.T) {
	root := stagedProject(t)
	j := openTestJournal(t, root)
	e := newTestExecutor(root)
	e.Journal = j

	plan, res, err := ApplyStaged(context.Background(), e, mapping("src/foo/a.h", "src/bar/a.h"), StagedOptions{UpdateRefs: true})
	require.NoError(t, err)
	assert.Len(t, plan.Files, 2)
	assert.Empty(t, res.Moved)
	assert.Equal(t, map[string]string{
		"CMakeLists.txt": "add_executable(app src/foo/main.c src/bar/a.h)\n",
		"src/bar/a.h":    "int a;\n",
		"src/foo/main.c": "#include \"../bar/a.h\"\n",
	}, testutil.ReadTree(t, root, dataDirName))

	// Only the edits are undone; the staged move stays.
	_, err = Revert(context.Background(), newTestExecutor(root), j, RevertOptions{})
	require.NoError(t, err)
	assert.Equal(t, "#include \"a.h\"\n", readFile(t, root, "src/foo/main.c"))
	assert.FileExists(t, filepath.Join(root, "src", "bar", "a.h"))
}

func TestApplyStaged_DescriptorsOnly(t *testing.T) {
	root := stagedProject(t)
	_, _, err := ApplyStaged(context.Background(), newTestExecutor(root), mapping("src/foo/a.h", "src/bar/a.h"),
		StagedOptions{UpdateRefs: true, DescriptorsOnly: true})
	require.NoError(t, err)
	assert.Equal(t, "add_executable(app src/foo/main.c src/bar/a.h)\n", readFile(t, root, "CMakeLists.txt"))
	assert.Equal(t, "#include \"a.h\"\n", readFile(t, root, "src/foo/main.c"))
}

func TestApplyStaged_RevertMoves(t *testing.T) {
	root := stagedProject(t)
	_, res, err := ApplyStaged(context.Background(), newTestExecutor(root), mapping("src/foo/a.h", "src/bar/a.h"), StagedOptions{})
	require.NoError(t, err)
	assert.Equal(t, []Move{{Old: "src/bar/a.h", New: "src/foo/a.h"}}, res.Moved)
	assert.Empty(t, res.Edited)
	assert.Equal(t, "int a;\n", readFile(t, root, "src/foo/a.h"))
	assert.NoDirExists(t, filepath.Join(root, "src", "bar"))
}

func TestApplyStaged_DryRun(t *testing.T) {
	root := stagedProject(t)
	before := testutil.ReadTree(t, root)
	_, res, err := ApplyStaged(context.Background(), newTestExecutor(root), mapping("src/foo/a.h", "src/bar/a.h"),
		StagedOptions{UpdateRefs: true, DryRun: true})
	require.NoError(t, err)
	assert.Len(t, res.Edited, 2)
	assert.Equal(t, before, testutil.ReadTree(t, root))
}

func git(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", append([]string{"-c", "user.email=test@example.com", "-c", "user.name=test"}, args...)...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, string(out))
}

func gitRepo(t *testing.T, files map[string]string) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	root := t.TempDir()
	testutil.WriteTree(t, root, files)
	git(t, root, "init", "-q")
	git(t, root, "add", "-A")
	git(t, root, "commit", "-q", "-m", "init")
	return root
}

func TestDetectStagedMoves_Git(t *testing.T) {
	root := gitRepo(t, map[string]string{
		"src/foo/a.h":    "int a;\n",
		"src/foo/main.c": "#include \"a.h\"\n",
	})
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src", "bar"), 0o755))
	git(t, root, "mv", "src/foo/a.h", "src/bar/a.h")

	m, err := DetectStagedMoves(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, []Move{{Old: "src/foo/a.h", New: "src/bar/a.h"}}, m.Sorted())
}

func TestDetectStagedMoves_Subdirectory(t *testing.T) {
	root := gitRepo(t, map[string]string{
		"proj/a.c": "int a;\n",
		"proj/b.c": "int b;\n",
		"other.c":  "int other;\n",
	})
	require.NoError(t, os.MkdirAll(filepath.Join(root, "proj", "lib"), 0o755))
	git(t, root, "mv", "proj/a.c", "proj/lib/a.c")
	git(t, root, "mv", "proj/b.c", "b.c")
	git(t, root, "mv", "other.c", "other2.c")

	m, err := DetectStagedMoves(context.Background(), filepath.Join(root, "proj"))
	require.NoError(t, err)
	assert.Equal(t, []Move{{Old: "a.c", New: "lib/a.c"}}, m.Sorted())
}

func TestUnderPrefix(t *testing.T) {
	moves := []Move{
		{Old: "proj/a.c", New: "proj/lib/a.c"},
		{Old: "proj/b.c", New: "b.c"},
		{Old: "x.c", New: "proj/x.c"},
		{Old: "project/c.c", New: "project/d.c"},
	}
	assert.Equal(t, []Move{{Old: "a.c", New: "lib/a.c"}}, underPrefix(moves, "proj/"))
	assert.Equal(t, moves, underPrefix(moves, ""))
}

func TestGitMover(t *testing.T) {
	root := gitRepo(t, map[string]string{"src/a.c": "int a;\n"})
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "untracked.c"), []byte("x\n"), 0o644))
	ctx := context.Background()

	mover := DetectMover(ctx, root, "auto")
	require.IsType(t, GitMover{}, mover)
	require.NoError(t, mover.Move(ctx, root, "src/a.c", "lib/a.c"))
	require.NoError(t, mover.Move(ctx, root, "src/untracked.c", "lib/untracked.c"))

	m, err := DetectStagedMoves(ctx, root)
	require.NoError(t, err)
	assert.Equal(t, []Move{{Old: "src/a.c", New: "lib/a.c"}}, m.Sorted())
	assert.FileExists(t, filepath.Join(root, "lib", "untracked.c"))
}

func TestDetectMover_Outside(t *testing.T) {
	ctx := context.Background()
	assert.IsType(t, FSMover{}, DetectMover(ctx, t.TempDir(), "none"))
	assert.IsType(t, GitMover{}, DetectMover(ctx, t.TempDir(), "git"))
}

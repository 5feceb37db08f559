package core

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func layoutFiles(l *Layout) map[string]string {
	out := make(map[string]string)
	l.WalkFiles(func(id NodeID, rel string) {
		out[rel] = l.Node(id).Origin
	})
	return out
}

func TestParseLayout_YAML(t *testing.T) {
	doc := `
- name: src
  children:
    - name: bar
      children:
        - name: a.h
          origin: /abs/root/src/foo/a.h
    - name: main.c
- name: empty
  dir: true
- name: README.md
`
	l, err := ParseLayout([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"src/bar/a.h": "/abs/root/src/foo/a.h",
		"src/main.c":  "",
		"README.md":   "",
	}, layoutFiles(l))

	roots := l.Roots()
	require.Len(t, roots, 3)
	assert.True(t, l.Node(roots[1]).Folder)
	assert.Equal(t, NoParent, l.Node(roots[0]).Parent)
}

func TestParseLayout_JSON(t *testing.T) {
	l, err := ParseLayout([]byte(`[{"name":"src","children":[{"name":"a.c","origin":"lib/a.c"}]}]`))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"src/a.c": "lib/a.c"}, layoutFiles(l))
}

func TestParseLayout_InvalidNames(t *testing.T) {
	for _, doc := range []string{
		`- name: ""`,
		`- name: ..`,
		`- name: a/b.c`,
		`- {name: d, dir: true, origin: x}`,
	} {
		_, err := ParseLayout([]byte(doc))
		assert.Error(t, err, doc)
	}
}

func TestLoadLayout_WrapsPath(t *testing.T) {
	p := filepath.Join(t.TempDir(), "layout.yaml")
	require.NoError(t, os.WriteFile(p, []byte("- name: a/b\n"), 0o644))
	_, err := LoadLayout(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), p)
}

func TestLayoutEncodeRoundTrip(t *testing.T) {
	tree := newTestTree(t, map[string]string{
		"CMakeLists.txt": "",
		"src/a.c":        "",
		"src/sub/b.h":    "",
	})
	mirror := MirrorLayout(tree)

	var buf bytes.Buffer
	require.NoError(t, mirror.Encode(&buf))
	back, err := ParseLayout(buf.Bytes())
	require.NoError(t, err)

	assert.Equal(t, layoutFiles(mirror), layoutFiles(back))
	assert.Equal(t, filepath.Join(tree.Root(), "src", "sub", "b.h"), layoutFiles(back)["src/sub/b.h"])
}

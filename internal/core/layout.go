package core

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// NodeID addresses a node inside a Layout.
type NodeID int

// NoParent is the parent of top-level nodes.
const NoParent NodeID = -1

// Node is one entry of the desired hierarchy.
type Node struct {
	Name     string
	Folder   bool
	Origin   string // pre-move location of a file node, absolute or root-relative; may be empty
	Parent   NodeID
	Children []NodeID
}

// Layout is an ordered desired hierarchy stored as an arena of nodes.
type Layout struct {
	nodes []Node
	roots []NodeID
}

// NewLayout returns an empty layout.
func NewLayout() *Layout {
	return &Layout{}
}

// AddFolder appends a folder node under parent.
func (l *Layout) AddFolder(parent NodeID, name string) NodeID {
	return l.add(parent, Node{Name: name, Folder: true})
}

// AddFile appends a file node under parent. origin may be empty.
func (l *Layout) AddFile(parent NodeID, name, origin string) NodeID {
	return l.add(parent, Node{Name: name, Origin: origin})
}

func (l *Layout) add(parent NodeID, n Node) NodeID {
	id := NodeID(len(l.nodes))
	n.Parent = parent
	l.nodes = append(l.nodes, n)
	if parent == NoParent {
		l.roots = append(l.roots, id)
	} else {
		l.nodes[parent].Children = append(l.nodes[parent].Children, id)
	}
	return id
}

// Node returns a copy of the node with the given id.
func (l *Layout) Node(id NodeID) Node {
	n := l.nodes[id]
	n.Children = append([]NodeID(nil), n.Children...)
	return n
}

// Roots returns the top-level nodes in order.
func (l *Layout) Roots() []NodeID {
	return append([]NodeID(nil), l.roots...)
}

// Len returns the number of nodes.
func (l *Layout) Len() int { return len(l.nodes) }

// WalkFiles calls fn for every file node in depth-first order with its desired
// root-relative path.
func (l *Layout) WalkFiles(fn func(id NodeID, rel string)) {
	var walk func(ids []NodeID, prefix string)
	walk = func(ids []NodeID, prefix string) {
		for _, id := range ids {
			n := l.nodes[id]
			rel := n.Name
			if prefix != "" {
				rel = prefix + "/" + n.Name
			}
			if n.Folder {
				walk(n.Children, rel)
				continue
			}
			fn(id, rel)
		}
	}
	walk(l.roots, "")
}

type layoutEntry struct {
	Name     string        `yaml:"name"`
	Dir      bool          `yaml:"dir,omitempty"`
	Origin   string        `yaml:"origin,omitempty"`
	Children []layoutEntry `yaml:"children,omitempty"`
}

// LoadLayout reads a YAML (or JSON) layout file.
func LoadLayout(path string) (*Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	l, err := ParseLayout(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return l, nil
}

// ParseLayout decodes a layout document: a list of nodes with name, optional
// origin, and children for folders.
func ParseLayout(data []byte) (*Layout, error) {
	var entries []layoutEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	l := NewLayout()
	if err := l.addEntries(NoParent, entries); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Layout) addEntries(parent NodeID, entries []layoutEntry) error {
	for _, e := range entries {
		if err := validateNodeName(e.Name); err != nil {
			return err
		}
		if e.Dir || len(e.Children) > 0 {
			if e.Origin != "" && len(e.Children) == 0 {
				return fmt.Errorf("folder %q cannot carry an origin", e.Name)
			}
			id := l.AddFolder(parent, e.Name)
			if err := l.addEntries(id, e.Children); err != nil {
				return err
			}
			continue
		}
		l.AddFile(parent, e.Name, e.Origin)
	}
	return nil
}

func validateNodeName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("layout node without a name")
	case name == "." || name == "..":
		return fmt.Errorf("invalid layout node name: %q", name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("layout node name must not contain a separator: %q", name)
	}
	return nil
}

// Encode writes the layout as YAML.
func (l *Layout) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(l.entries(l.roots)); err != nil {
		return err
	}
	return enc.Close()
}

func (l *Layout) entries(ids []NodeID) []layoutEntry {
	out := make([]layoutEntry, 0, len(ids))
	for _, id := range ids {
		n := l.nodes[id]
		e := layoutEntry{Name: n.Name, Origin: n.Origin}
		if n.Folder {
			e.Dir = true
			e.Origin = ""
			e.Children = l.entries(n.Children)
		}
		out = append(out, e)
	}
	return out
}

// MirrorLayout builds a layout that reproduces the current tree: every file
// node carries its absolute origin, so planning against it yields no moves.
func MirrorLayout(tree Tree) *Layout {
	l := NewLayout()
	folders := map[string]NodeID{"": NoParent}
	files := append([]string(nil), tree.Files()...)
	sort.Strings(files)

	var folderFor func(dir string) NodeID
	folderFor = func(dir string) NodeID {
		if id, ok := folders[dir]; ok {
			return id
		}
		id := l.AddFolder(folderFor(dirOf(dir)), baseOf(dir))
		folders[dir] = id
		return id
	}
	for _, rel := range files {
		parent := folderFor(dirOf(rel))
		l.AddFile(parent, baseOf(rel), filepath.Join(tree.Root(), filepath.FromSlash(rel)))
	}
	return l
}

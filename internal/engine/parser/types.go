package parser

import (
	"bytes"
	"checkdelta/internal/engine/scope"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// Tree is a parsed source file. Nodes taken from it are only valid until
// Close.
type Tree struct {
	tree   *sitter.Tree
	source []byte
	lines  int
}

func newTree(tree *sitter.Tree, source []byte) *Tree {
	return &Tree{tree: tree, source: source, lines: countLines(source)}
}

func (t *Tree) Root() *sitter.Node {
	return t.tree.RootNode()
}

func (t *Tree) Source() []byte {
	return t.source
}

// LineCount is the number of lines in the source.
func (t *Tree) LineCount() int {
	return t.lines
}

func (t *Tree) Close() {
	if t == nil || t.tree == nil {
		return
	}
	t.tree.Close()
	t.tree = nil
}

func countLines(source []byte) int {
	if len(source) == 0 {
		return 0
	}
	n := bytes.Count(source, []byte{'\n'})
	if source[len(source)-1] != '\n' {
		n++
	}
	return n
}

// Region is the syntax selected for one issue: one or more sibling nodes
// (or a single enclosing node) of a Tree.
type Region struct {
	Scope     scope.Scope
	Nodes     []*sitter.Node
	StartLine int
	EndLine   int
}

func newRegion(s scope.Scope, nodes []*sitter.Node) *Region {
	r := &Region{Scope: s, Nodes: nodes}
	for i, n := range nodes {
		first, last := NodeLines(n)
		if i == 0 || first < r.StartLine {
			r.StartLine = first
		}
		if last > r.EndLine {
			r.EndLine = last
		}
	}
	return r
}

// Kinds returns the leaf token kinds of the region in document order.
func (r *Region) Kinds() []string {
	out := make([]string, 0, 64)
	for _, n := range r.Nodes {
		WalkTokens(n, func(tok *sitter.Node) {
			out = append(out, tok.Kind())
		})
	}
	return out
}

func (r *Region) hasError() bool {
	for _, n := range r.Nodes {
		if n.HasError() {
			return true
		}
	}
	return false
}

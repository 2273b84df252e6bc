package parser

import (
	"fortio.org/safecast"
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// TokenHandler receives each leaf token of a walk in document order.
type TokenHandler func(node *sitter.Node)

// WalkTokens visits every leaf below node, anonymous punctuation and
// keywords included.
func WalkTokens(node *sitter.Node, handle TokenHandler) {
	if node == nil {
		return
	}
	count := node.ChildCount()
	if count == 0 {
		handle(node)
		return
	}
	for i := uint(0); i < count; i++ {
		WalkTokens(node.Child(i), handle)
	}
}

// NodeLines returns the 1-based first and last line a node covers. A node
// that ends at column 0 does not cover that final line.
func NodeLines(node *sitter.Node) (int, int) {
	start := node.StartPosition()
	end := node.EndPosition()
	first := rowToLine(start.Row)
	last := rowToLine(end.Row)
	if end.Column == 0 && last > first {
		last--
	}
	return first, last
}

func coversLine(node *sitter.Node, line int) bool {
	first, last := NodeLines(node)
	return first <= line && line <= last
}

func rowToLine(row uint) int {
	n, err := safecast.Conv[int](row)
	if err != nil {
		return 0
	}
	return n + 1
}

func isComment(node *sitter.Node) bool {
	switch node.Kind() {
	case "line_comment", "block_comment":
		return true
	}
	return node.IsExtra()
}

// statements returns the named, non-comment children of node.
func statements(node *sitter.Node) []*sitter.Node {
	out := make([]*sitter.Node, 0, node.NamedChildCount())
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child == nil || isComment(child) {
			continue
		}
		out = append(out, child)
	}
	return out
}

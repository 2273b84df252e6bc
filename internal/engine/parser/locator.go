package parser

import (
	coreerrors "checkdelta/internal/core/errors"
	"checkdelta/internal/engine/scope"
	"checkdelta/internal/shared/observability"
	"fmt"
	"time"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// Miss reasons attached to LOCATOR_MISS errors under the "reason" key.
const (
	ReasonLineOutOfRange = "line_out_of_range"
	ReasonParseFailed    = "parse_failed"
	ReasonScopeNotFound  = "scope_not_found"
	ReasonFileMissing    = "file_missing"
	ReasonUnsupported    = "unsupported_file"
)

const ctxReason = "reason"

var (
	methodKinds = kindSet("method_declaration", "constructor_declaration", "compact_constructor_declaration")
	typeKinds   = kindSet("class_declaration", "interface_declaration", "enum_declaration",
		"record_declaration", "annotation_type_declaration")
	fieldKinds     = kindSet("field_declaration", "constant_declaration")
	containerKinds = kindSet("program", "block", "constructor_body", "switch_block", "switch_block_statement_group",
		"class_body", "interface_body", "enum_body_declarations", "annotation_type_body")
)

func kindSet(kinds ...string) map[string]bool {
	m := make(map[string]bool, len(kinds))
	for _, k := range kinds {
		m[k] = true
	}
	return m
}

// Miss builds a LOCATOR_MISS error for reason.
func Miss(reason, msg string) error {
	err := coreerrors.New(coreerrors.CodeLocatorMiss, msg)
	return coreerrors.AddContext(err, ctxReason, reason)
}

// MissReason extracts the reason of a LOCATOR_MISS error, or "".
func MissReason(err error) string {
	if !coreerrors.IsCode(err, coreerrors.CodeLocatorMiss) {
		return ""
	}
	v, _ := coreerrors.ContextValue(err, ctxReason)
	reason, _ := v.(string)
	return reason
}

// Locator parses Java sources and selects the region a scope designates.
type Locator struct {
	loader *GrammarLoader
	pool   *ParserPool
}

func NewLocator(loader *GrammarLoader) *Locator {
	return &Locator{loader: loader, pool: NewParserPool(loader.Java())}
}

// Supports reports whether path has a grammar the locator parses.
func (l *Locator) Supports(path string) bool {
	return l.loader.LanguageForPath(path) == "java"
}

// Parse builds a Tree. The caller must Close it.
func (l *Locator) Parse(content []byte) (*Tree, error) {
	started := time.Now()
	tree := l.pool.Parse(content)
	observability.ParsingDuration.WithLabelValues("java").Observe(time.Since(started).Seconds())
	if tree == nil {
		return nil, Miss(ReasonParseFailed, "tree-sitter returned no tree")
	}
	return newTree(tree, content), nil
}

// Locate selects the region for scope s around the 1-based line.
func (l *Locator) Locate(tree *Tree, s scope.Scope, line int) (*Region, error) {
	if tree == nil || tree.tree == nil {
		return nil, Miss(ReasonParseFailed, "no syntax tree")
	}
	if line < 1 || line > tree.LineCount() {
		return nil, coreerrors.AddContext(
			Miss(ReasonLineOutOfRange, fmt.Sprintf("line %d outside 1..%d", line, tree.LineCount())),
			coreerrors.CtxLine, line)
	}

	root := tree.Root()
	var nodes []*sitter.Node
	switch s.Kind {
	case scope.KindMethod:
		nodes = single(enclosing(root, line, methodKinds))
	case scope.KindClass:
		nodes = single(enclosing(root, line, typeKinds))
	case scope.KindMethodOrClass:
		if m := enclosing(root, line, methodKinds); m != nil {
			nodes = single(m)
		} else {
			nodes = single(enclosing(root, line, typeKinds))
		}
	case scope.KindFieldGroup:
		nodes = fieldGroup(enclosing(root, line, typeKinds))
	case scope.KindFile:
		nodes = single(root)
	case scope.KindNamePackage:
		nodes = single(packageDeclaration(root))
	case scope.KindBlock:
		nodes = surrounding(root, line, s.Depth)
	default:
		return nil, Miss(ReasonScopeNotFound, fmt.Sprintf("unsupported scope %s", s))
	}

	if len(nodes) == 0 {
		return nil, coreerrors.AddContext(
			Miss(ReasonScopeNotFound, fmt.Sprintf("no %s scope at line %d", s, line)),
			coreerrors.CtxLine, line)
	}
	region := newRegion(s, nodes)
	if region.hasError() {
		return nil, Miss(ReasonParseFailed, fmt.Sprintf("syntax errors in %s scope at line %d", s, line))
	}
	return region, nil
}

func single(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	return []*sitter.Node{n}
}

// path returns the chain of nodes from root down to the deepest node that
// covers line. The root is always included.
func path(root *sitter.Node, line int) []*sitter.Node {
	chain := []*sitter.Node{root}
	node := root
	for {
		var next *sitter.Node
		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			if child != nil && coversLine(child, line) {
				next = child
				break
			}
		}
		if next == nil {
			return chain
		}
		chain = append(chain, next)
		node = next
	}
}

// enclosing finds the innermost node of one of kinds that covers line. A
// line inside a comment directly preceding such a declaration (Javadoc)
// resolves to that declaration.
func enclosing(root *sitter.Node, line int, kinds map[string]bool) *sitter.Node {
	chain := path(root, line)
	for i := len(chain) - 1; i >= 0; i-- {
		if kinds[chain[i].Kind()] {
			return chain[i]
		}
	}
	deepest := chain[len(chain)-1]
	if !isComment(deepest) {
		return nil
	}
	next := deepest.NextNamedSibling()
	for next != nil && isComment(next) {
		next = next.NextNamedSibling()
	}
	if next != nil && kinds[next.Kind()] {
		return next
	}
	return nil
}

func fieldGroup(typeDecl *sitter.Node) []*sitter.Node {
	if typeDecl == nil {
		return nil
	}
	body := typeDecl.ChildByFieldName("body")
	if body == nil {
		return nil
	}
	members := statements(body)
	if body.Kind() == "enum_body" {
		members = nil
		for _, child := range statements(body) {
			if child.Kind() == "enum_body_declarations" {
				members = append(members, statements(child)...)
			}
		}
	}
	fields := make([]*sitter.Node, 0, len(members))
	for _, m := range members {
		if fieldKinds[m.Kind()] {
			fields = append(fields, m)
		}
	}
	return fields
}

func packageDeclaration(root *sitter.Node) *sitter.Node {
	for i := uint(0); i < root.NamedChildCount(); i++ {
		child := root.NamedChild(i)
		if child != nil && child.Kind() == "package_declaration" {
			return child
		}
	}
	return nil
}

// surrounding selects the statement at line plus depth siblings on each
// side, clipped to the enclosing statement container.
func surrounding(root *sitter.Node, line, depth int) []*sitter.Node {
	chain := path(root, line)
	containers := make([]*sitter.Node, 0, 4)
	for _, n := range chain {
		if containerKinds[n.Kind()] {
			containers = append(containers, n)
		}
	}
	if len(containers) == 0 {
		containers = append(containers, root)
	}

	// A line holding only a container's opening or closing brace belongs
	// to the statement that owns the container.
	container := containers[len(containers)-1]
	stmts := statements(container)
	anchor := indexCovering(stmts, line)
	for i := len(containers) - 1; anchor < 0 && i > 0; i-- {
		first, last := NodeLines(containers[i])
		if first != line && last != line {
			break
		}
		outer := statements(containers[i-1])
		if idx := indexCovering(outer, line); idx >= 0 {
			container, stmts, anchor = containers[i-1], outer, idx
		}
	}

	if len(stmts) == 0 {
		if parent := container.Parent(); parent != nil {
			return []*sitter.Node{parent}
		}
		return []*sitter.Node{container}
	}
	if anchor < 0 {
		anchor = indexFollowing(stmts, line)
	}

	if depth < 0 {
		depth = 0
	}
	lo := max(anchor-depth, 0)
	hi := min(anchor+depth, len(stmts)-1)
	return stmts[lo : hi+1]
}

func indexCovering(nodes []*sitter.Node, line int) int {
	for i, n := range nodes {
		if coversLine(n, line) {
			return i
		}
	}
	return -1
}

func indexFollowing(nodes []*sitter.Node, line int) int {
	for i, n := range nodes {
		if first, _ := NodeLines(n); first >= line {
			return i
		}
	}
	return len(nodes) - 1
}

package parser

import (
	"path/filepath"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"
)

// GrammarLoader owns the grammars the locator can parse. Only Java is
// registered because Checkstyle reports are about Java sources.
type GrammarLoader struct {
	languages  map[string]*sitter.Language
	extensions map[string]string
}

func NewGrammarLoader() *GrammarLoader {
	return &GrammarLoader{
		languages: map[string]*sitter.Language{
			"java": sitter.NewLanguage(tree_sitter_java.Language()),
		},
		extensions: map[string]string{
			".java": "java",
		},
	}
}

// Language returns the grammar registered under id, or nil.
func (gl *GrammarLoader) Language(id string) *sitter.Language {
	return gl.languages[id]
}

// Java returns the Java grammar.
func (gl *GrammarLoader) Java() *sitter.Language {
	return gl.Language("java")
}

// LanguageForPath detects the grammar id from a file extension.
func (gl *GrammarLoader) LanguageForPath(path string) string {
	return gl.extensions[strings.ToLower(filepath.Ext(path))]
}

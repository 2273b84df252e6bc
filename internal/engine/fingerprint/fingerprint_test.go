package fingerprint

import (
	"fmt"
	"strings"
	"testing"

	"checkdelta/internal/core/model"
	"checkdelta/internal/engine/parser"
	"checkdelta/internal/engine/scope"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapResolver map[string]string

func (m mapResolver) Read(fileName string) ([]byte, error) {
	content, ok := m[fileName]
	if !ok {
		return nil, fmt.Errorf("%s: not found", fileName)
	}
	return []byte(content), nil
}

type countingResolver struct {
	mapResolver
	reads int
}

func (c *countingResolver) Read(fileName string) ([]byte, error) {
	c.reads++
	return c.mapResolver.Read(fileName)
}

const source = `package a;

public class Counter {
    private int count;

    public void increment() {
        int before = count;
        count = before + 1;
        log(before);
    }

    private void log(int v) {
        System.out.println(v);
    }
}
`

func newSession(resolver mapResolver) *Session {
	return NewSession(resolver, scope.NewTable(), parser.NewLocator(parser.NewGrammarLoader()), nil)
}

func issueAt(rule string, line int) model.Issue {
	return model.Issue{FileName: "Counter.java", Type: rule, Message: "m", LineStart: line, LineEnd: line}
}

func TestFingerprint_IsDeterministic(t *testing.T) {
	s := newSession(mapResolver{"Counter.java": source})
	defer s.Close()

	first, ok := s.Fingerprint(issueAt("MagicNumber", 8))
	require.True(t, ok)
	second, ok := s.Fingerprint(issueAt("MagicNumber", 8))
	require.True(t, ok)

	assert.Equal(t, first, second)
	assert.Len(t, first, 64)
}

func TestFingerprint_IndependentOfLineNumber(t *testing.T) {
	shifted := strings.Replace(source, "package a;\n", "package a;\n\n\n\n\n", 1)

	s := newSession(mapResolver{"Counter.java": source})
	defer s.Close()
	moved := newSession(mapResolver{"Counter.java": shifted})
	defer moved.Close()

	for _, rule := range []string{"MagicNumber", "MethodLength", "MemberName", "JavadocType", "FileLength"} {
		t.Run(rule, func(t *testing.T) {
			before, ok := s.Fingerprint(issueAt(rule, 8))
			require.True(t, ok)
			after, ok := moved.Fingerprint(issueAt(rule, 12))
			require.True(t, ok)
			assert.Equal(t, before, after)
		})
	}
}

func TestFingerprint_ChangesWithRegionEdit(t *testing.T) {
	edited := strings.Replace(source, "        log(before);\n", "        log(before);\n        log(count);\n", 1)

	s := newSession(mapResolver{"Counter.java": source})
	defer s.Close()
	changed := newSession(mapResolver{"Counter.java": edited})
	defer changed.Close()

	before, ok := s.Fingerprint(issueAt("MethodLength", 7))
	require.True(t, ok)
	after, ok := changed.Fingerprint(issueAt("MethodLength", 7))
	require.True(t, ok)
	assert.NotEqual(t, before, after)
}

func TestFingerprint_ScopeNameIsPartOfDigest(t *testing.T) {
	s := newSession(mapResolver{"Counter.java": source})
	defer s.Close()

	method, ok := s.Fingerprint(issueAt("MethodLength", 7))
	require.True(t, ok)
	methodOrClass, ok := s.Fingerprint(issueAt("ModifierOrder", 7))
	require.True(t, ok)
	assert.NotEqual(t, method, methodOrClass)
}

func TestFingerprint_StoredValueWins(t *testing.T) {
	s := newSession(mapResolver{})
	issue := issueAt("MagicNumber", 8)
	issue.Fingerprint = "stored"

	fp, ok := s.Fingerprint(issue)
	assert.True(t, ok)
	assert.Equal(t, "stored", fp)
	assert.Empty(t, s.Misses())
}

func TestFingerprint_MissingSourceIsAMiss(t *testing.T) {
	s := newSession(mapResolver{})
	defer s.Close()

	_, ok := s.Fingerprint(issueAt("MagicNumber", 8))
	assert.False(t, ok)
	require.Len(t, s.Misses(), 1)
	assert.Equal(t, parser.ReasonFileMissing, s.Misses()[0].Reason)
}

func TestFingerprint_LineOutOfRangeIsAMiss(t *testing.T) {
	s := newSession(mapResolver{"Counter.java": source})
	defer s.Close()

	_, ok := s.Fingerprint(issueAt("MagicNumber", 500))
	assert.False(t, ok)
	require.Len(t, s.Misses(), 1)
	assert.Equal(t, parser.ReasonLineOutOfRange, s.Misses()[0].Reason)
}

func TestSession_CachesTreesPerFile(t *testing.T) {
	resolver := &countingResolver{mapResolver: mapResolver{"Counter.java": source}}
	s := NewSession(resolver, scope.NewTable(), parser.NewLocator(parser.NewGrammarLoader()), nil)
	defer s.Close()

	for line := 6; line <= 9; line++ {
		_, ok := s.Fingerprint(issueAt("MagicNumber", line))
		require.True(t, ok)
	}
	_, _ = s.Fingerprint(model.Issue{FileName: "Gone.java", Type: "MagicNumber", LineStart: 1})
	_, _ = s.Fingerprint(model.Issue{FileName: "Gone.java", Type: "MagicNumber", LineStart: 2})

	assert.Equal(t, 2, resolver.reads)
}

func TestFingerprint_NonJavaFileIsNotRead(t *testing.T) {
	resolver := &countingResolver{mapResolver: mapResolver{"messages.properties": "greeting=hi\n"}}
	s := NewSession(resolver, scope.NewTable(), parser.NewLocator(parser.NewGrammarLoader()), nil)
	defer s.Close()

	_, ok := s.Fingerprint(model.Issue{FileName: "messages.properties", Type: "NewlineAtEndOfFile", LineStart: 1})
	assert.False(t, ok)
	_, ok = s.Fingerprint(model.Issue{FileName: "messages.properties", Type: "FileLength", LineStart: 1})
	assert.False(t, ok)

	assert.Zero(t, resolver.reads)
	require.Len(t, s.Misses(), 2)
	assert.Equal(t, parser.ReasonUnsupported, s.Misses()[0].Reason)
}

func TestSession_Attach(t *testing.T) {
	s := newSession(mapResolver{"Counter.java": source})
	defer s.Close()

	issues := []model.Issue{
		issueAt("MagicNumber", 8),
		{FileName: "Gone.java", Type: "MagicNumber", LineStart: 3},
		func() model.Issue { i := issueAt("MagicNumber", 9); i.Fingerprint = "keep"; return i }(),
	}
	added := s.Attach(issues)

	assert.Equal(t, 1, added)
	assert.Len(t, issues[0].Fingerprint, 64)
	assert.Empty(t, issues[1].Fingerprint)
	assert.Equal(t, "keep", issues[2].Fingerprint)
}

func TestSession_NilIsInert(t *testing.T) {
	var s *Session
	_, ok := s.Fingerprint(issueAt("MagicNumber", 8))
	assert.False(t, ok)
	assert.Nil(t, s.Misses())
	s.Close()
}

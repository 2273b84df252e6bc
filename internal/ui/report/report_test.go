package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	coreerrors "checkdelta/internal/core/errors"
	"checkdelta/internal/core/model"
	"checkdelta/internal/core/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapSources map[string]string

func (m mapSources) Read(name string) ([]byte, error) {
	content, ok := m[name]
	if !ok {
		return nil, os.ErrNotExist
	}
	return []byte(content), nil
}

func result() ports.AnalyzeResult {
	issue := model.Issue{Priority: model.PriorityNormal, Type: "MagicNumber", FileName: "A.java", LineStart: 3, Message: "'42' is a magic number."}
	return ports.AnalyzeResult{
		Project:     "demo",
		Number:      2,
		VerdictName: "STABLE",
		Reports:     1,
		Totals:      model.Counts{Normal: 1},
		Issues:      []model.Issue{issue},
		New:         []model.Issue{issue},
	}
}

func TestParseFormat(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want Format
	}{
		{"", FormatText},
		{"TEXT", FormatText},
		{"md", FormatMarkdown},
		{"json", FormatJSON},
		{"sarif", FormatSARIF},
		{"tsv", FormatTSV},
	} {
		got, err := ParseFormat(tc.in)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}
	_, err := ParseFormat("html")
	assert.Error(t, err)
}

func TestRender_AllFormats(t *testing.T) {
	for _, format := range Formats {
		var buf bytes.Buffer
		require.NoError(t, Render(&buf, format, result(), Options{}), format)
		assert.NotEmpty(t, buf.String(), format)
	}
}

func TestRender_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, FormatJSON, result(), Options{}))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "STABLE", decoded["verdict"])
	assert.Len(t, decoded["new"], 1)
}

func TestRender_TextWithSources(t *testing.T) {
	sources := mapSources{"A.java": "class A {\n  void m() {\n    int x = 42;\n  }\n}\n"}
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, FormatText, result(), Options{ListIssues: true, Sources: sources}))
	assert.Contains(t, buf.String(), ">     3:     int x = 42;")
}

func TestIssueContext(t *testing.T) {
	sources := mapSources{"A.java": "l1\nl2\nl3\nl4\nl5\nl6\n"}

	snippet := IssueContext(sources, model.Issue{FileName: "A.java", LineStart: 1})
	assert.Equal(t, []string{">     1: l1", "      2: l2", "      3: l3"}, snippet.Lines)

	snippet = IssueContext(sources, model.Issue{FileName: "A.java", LineStart: 6})
	assert.Len(t, snippet.Lines, 3)

	assert.Empty(t, IssueContext(sources, model.Issue{FileName: "A.java"}).Lines)
	assert.Empty(t, IssueContext(sources, model.Issue{FileName: "A.java", LineStart: 9}).Lines)
	assert.Empty(t, IssueContext(sources, model.Issue{FileName: "B.java", LineStart: 1}).Lines)
}

func TestUpsertSection(t *testing.T) {
	content := "# Title\n<!-- checkdelta:summary:start -->\nold\n<!-- checkdelta:summary:end -->\nfooter\n"
	out, err := UpsertSection(content, "summary", "new text\n")
	require.NoError(t, err)
	assert.Equal(t, "# Title\n<!-- checkdelta:summary:start -->\nnew text\n<!-- checkdelta:summary:end -->\nfooter\n", out)

	out, err = UpsertSection("# Title", "summary", "body")
	require.NoError(t, err)
	assert.Equal(t, "# Title\n\n<!-- checkdelta:summary:start -->\nbody\n<!-- checkdelta:summary:end -->\n", out)

	out, err = UpsertSection("a\r\nb\r\n", "s", "one\ntwo")
	require.NoError(t, err)
	assert.Equal(t, "a\r\nb\r\n\r\n<!-- checkdelta:s:start -->\r\none\r\ntwo\r\n<!-- checkdelta:s:end -->\r\n", out)
}

func TestUpsertSection_RejectsBrokenMarkers(t *testing.T) {
	start, end := "<!-- checkdelta:s:start -->", "<!-- checkdelta:s:end -->"
	for name, content := range map[string]string{
		"start only": "x\n" + start + "\n",
		"end only":   end + "\n",
		"repeated":   start + end + start + end,
		"reversed":   end + "\n" + start + "\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := UpsertSection(content, "s", "body")
			require.Error(t, err)
			assert.True(t, coreerrors.IsCode(err, coreerrors.CodeValidationError))
		})
	}

	_, err := UpsertSection("", " ", "x")
	assert.Error(t, err)
}

func TestInjectSummary(t *testing.T) {
	res := ports.AnalyzeResult{
		Number:      3,
		VerdictName: "UNSTABLE",
		Reports:     1,
		Issues:      make([]model.Issue, 2),
		New:         make([]model.Issue, 1),
	}

	t.Run("existing section keeps line endings and mode", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "README.md")
		require.NoError(t, os.WriteFile(path, []byte("<!-- checkdelta:status:start -->\r\n<!-- checkdelta:status:end -->\r\n"), 0o600))

		require.NoError(t, InjectSummary(path, "status", res))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "\r\nCheckstyle: 2 warnings in 1 Checkstyle file.\r\n")
		assert.Contains(t, string(data), "Build #3: **UNSTABLE**\r\n")
		assert.NotContains(t, strings.ReplaceAll(string(data), "\r\n", ""), "\n")
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	})

	t.Run("missing file is created", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "docs", "STATUS.md")

		require.NoError(t, InjectSummary(path, "checkstyle", res))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(data), "<!-- checkdelta:checkstyle:start -->\n"))
		assert.Contains(t, string(data), "- 1 new warning")
		entries, err := os.ReadDir(filepath.Dir(path))
		require.NoError(t, err)
		assert.Len(t, entries, 1, "no temp files left behind")
	})

	t.Run("broken markers leave the file alone", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "README.md")
		original := "<!-- checkdelta:status:end -->\n"
		require.NoError(t, os.WriteFile(path, []byte(original), 0o644))

		err := InjectSummary(path, "status", res)
		require.Error(t, err)
		p, _ := coreerrors.ContextValue(err, coreerrors.CtxPath)
		assert.Equal(t, path, p)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, original, string(data))
	})
}

func TestBuildTrend(t *testing.T) {
	ts := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	records := []model.BuildRecord{
		{ID: "b3", Number: 3, Timestamp: ts, Issues: make([]model.Issue, 1), Analyzed: true},
		{ID: "b2", Number: 2, Timestamp: ts, Issues: make([]model.Issue, 4), Verdict: model.VerdictUnstable, Analyzed: true},
		{ID: "b1", Number: 1, Timestamp: ts, Analyzed: true},
	}
	points := BuildTrend(records)
	require.Len(t, points, 3)
	assert.Equal(t, -3, points[0].Delta)
	assert.Equal(t, 4, points[1].Delta)
	assert.Equal(t, 0, points[2].Delta)
	assert.Equal(t, "UNSTABLE", points[1].Verdict)

	tsv, err := RenderTrendTSV(points)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(tsv)), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[1], "3\t2024-05-01T00:00:00Z\tSTABLE\ttrue\t1\t"))
	assert.Contains(t, lines[1], "\t-3\t")

	js, err := RenderTrendJSON(points)
	require.NoError(t, err)
	assert.Contains(t, string(js), `"number": 3`)
}

package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const calcSource = `package demo;

public class Calc {
    public int twice(int x) {
        return x * 2;
    }

    public int add(int a, int b) {
        return a + b;
    }
}
`

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func checkstyleReport(source string, lines ...int) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n<checkstyle version=\"8.0\">\n")
	fmt.Fprintf(&b, "  <file name=%q>\n", source)
	for _, line := range lines {
		fmt.Fprintf(&b, `    <error line="%d" severity="warning" message="Missing a Javadoc comment." source="com.puppycrawl.tools.checkstyle.checks.javadoc.JavadocMethodCheck"/>`+"\n", line)
	}
	b.WriteString("  </file>\n</checkstyle>\n")
	return b.String()
}

type workspace struct {
	root   string
	source string
	report string
}

func newWorkspace(t *testing.T, config string) *workspace {
	t.Helper()
	root := t.TempDir()
	if config != "" {
		writeFile(t, filepath.Join(root, "checkdelta.toml"), config)
	}
	return &workspace{
		root:   root,
		source: filepath.Join(root, "src", "main", "java", "demo", "Calc.java"),
		report: filepath.Join(root, "target", "checkstyle-result.xml"),
	}
}

func (w *workspace) build(t *testing.T, source string, lines ...int) {
	t.Helper()
	writeFile(t, w.source, source)
	writeFile(t, w.report, checkstyleReport(w.source, lines...))
}

func execute(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestVersion(t *testing.T) {
	code, out, _ := execute("version")
	assert.Equal(t, 0, code)
	assert.True(t, strings.HasPrefix(out, "checkdelta "))

	code, out, _ = execute("version", "--format", "json")
	require.Equal(t, 0, code)
	var payload versionPayload
	require.NoError(t, json.Unmarshal([]byte(out), &payload))
	assert.Equal(t, "checkdelta", payload.Tool)
}

func TestScope(t *testing.T) {
	code, out, _ := execute("scope", "MethodLength", "NoSuchRule")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "MethodLength")
	assert.Contains(t, out, "method")
	assert.Contains(t, out, "block(3) (default)")

	code, out, _ = execute("scope", "--list")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "PackageDeclaration")
	assert.Contains(t, out, "83 rules mapped; unlisted rules use block(3).")

	code, _, stderr := execute("scope")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "--list")
}

func TestAnalyzeAndHistory(t *testing.T) {
	ws := newWorkspace(t, "")

	ws.build(t, calcSource, 4, 8)
	code, out, stderr := execute("analyze", "-w", ws.root, "--format", "json", "--color", "never")
	require.Equal(t, 0, code, stderr)
	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &first))
	assert.Equal(t, "STABLE", first["verdict"])
	assert.Len(t, first["new"], 2)

	ws.build(t, "// moved\n\n"+calcSource, 6, 10)
	code, out, stderr = execute("analyze", "-w", ws.root, "--color", "never")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, out, "Checkstyle: 2 warnings in 1 Checkstyle file.")
	assert.NotContains(t, out, "new warning")
	assert.Contains(t, out, "Build #2 of default: STABLE")

	code, out, stderr = execute("history", "list", "-w", ws.root, "--format", "tsv")
	require.Equal(t, 0, code, stderr)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], "2\t"))
	assert.True(t, strings.HasPrefix(lines[2], "1\t"))

	id := first["build_id"].(string)
	code, out, stderr = execute("history", "show", "-w", ws.root, id)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, out, `"build_id": "`+id+`"`)

	code, out, _ = execute("history", "list", "-w", ws.root)
	require.Equal(t, 0, code)
	assert.Contains(t, out, "#2")
}

func TestAnalyze_FailOn(t *testing.T) {
	ws := newWorkspace(t, `
version = 1

[thresholds]
unstable_new_all = "1"
`)
	ws.build(t, calcSource, 4, 8)

	code, _, stderr := execute("analyze", "-w", ws.root, "--fail-on", "unstable", "--dry-run", "--color", "never")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "UNSTABLE")

	code, _, _ = execute("analyze", "-w", ws.root, "--fail-on", "failed", "--dry-run", "--color", "never")
	assert.Equal(t, 0, code)

	_, err := os.Stat(filepath.Join(ws.root, ".checkdelta", "history.db"))
	assert.True(t, os.IsNotExist(err), "dry runs do not create the history database")
}

func TestAnalyze_OutputFileAndInject(t *testing.T) {
	ws := newWorkspace(t, "")
	ws.build(t, calcSource, 4)
	readme := writeFile(t, filepath.Join(ws.root, "README.md"), "# Demo\n<!-- checkdelta:checkstyle:start -->\n<!-- checkdelta:checkstyle:end -->\n")
	sarif := filepath.Join(ws.root, "out", "checkstyle.sarif")

	code, _, stderr := execute("analyze", "-w", ws.root, "--format", "sarif", "-o", sarif, "--inject", readme)
	require.Equal(t, 0, code, stderr)

	data, err := os.ReadFile(sarif)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"ruleId": "JavadocMethod"`)
	assert.Contains(t, string(data), `"uri": "src/main/java/demo/Calc.java"`)

	data, err = os.ReadFile(readme)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Checkstyle: 1 warning in 1 Checkstyle file.")
	assert.Contains(t, string(data), "- 1 new warning")
}

func TestDiff(t *testing.T) {
	ws := newWorkspace(t, "")
	ws.build(t, calcSource, 4, 8)
	ref := writeFile(t, filepath.Join(ws.root, "ref.xml"), checkstyleReport(ws.source, 4))

	code, out, stderr := execute("diff", "-w", ws.root, "--color", "never", ref, ws.report)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, out, "1 new warning")
	assert.Contains(t, out, "Calc.java:8 JavadocMethod")
}

func TestInvalidFormat(t *testing.T) {
	ws := newWorkspace(t, "")
	code, _, stderr := execute("analyze", "-w", ws.root, "--format", "html")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "unknown output format")
}

package report

import (
	coreerrors "checkdelta/internal/core/errors"
	"checkdelta/internal/core/model"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapResolver map[string]string

func (m mapResolver) Read(fileName string) ([]byte, error) {
	content, ok := m[fileName]
	if !ok {
		return nil, os.ErrNotExist
	}
	return []byte(content), nil
}

func parseString(t *testing.T, p *Parser, xml string) ([]model.Issue, error) {
	t.Helper()
	return p.Parse(strings.NewReader(xml), "module")
}

func TestParse_DropsUnknownSeverity(t *testing.T) {
	xml := `<checkstyle>
  <file name="src/main/java/a/A.java">
    <error line="1" severity="error" message="e" source="com.puppycrawl.tools.checkstyle.checks.blocks.NeedBracesCheck"/>
    <error line="2" severity="warning" message="w" source="com.puppycrawl.tools.checkstyle.checks.blocks.NeedBracesCheck"/>
    <error line="3" severity="fatal" message="f" source="com.puppycrawl.tools.checkstyle.checks.blocks.NeedBracesCheck"/>
  </file>
</checkstyle>`

	issues, err := parseString(t, &Parser{}, xml)
	require.NoError(t, err)
	require.Len(t, issues, 2)
	assert.Equal(t, model.PriorityHigh, issues[0].Priority)
	assert.Equal(t, model.PriorityNormal, issues[1].Priority)
}

func TestParseFile_AnalyseCheckStyleFile(t *testing.T) {
	p := NewParser("UTF-8", nil)
	issues, err := p.ParseFile(filepath.Join("testdata", "checkstyle.xml"), "tasks")
	require.NoError(t, err)

	require.Len(t, issues, 6)
	assert.Equal(t, []string{
		"X:/Build/workspace/tasks/src/main/java/hudson/plugins/tasks/parser/CsharpNamespaceDetector.java",
	}, model.Files(issues))

	actual := issues[2]
	assert.Equal(t, 22, actual.LineStart)
	assert.Equal(t, 22, actual.LineEnd)
	assert.Equal(t, 5, actual.Column)
	assert.Equal(t, "Design", actual.Category)
	assert.Equal(t, "DesignForExtension", actual.Type)
	assert.Equal(t, model.PriorityHigh, actual.Priority)
	assert.Equal(t, "tasks", actual.ModuleName)
	assert.Equal(t, "hudson.plugins.tasks.parser", actual.PackageName)
	assert.Empty(t, actual.Fingerprint)

	assert.Equal(t, "Checks", issues[0].Category)
	assert.Equal(t, "NewlineAtEndOfFile", issues[0].Type)
	assert.Equal(t, model.PriorityLow, issues[3].Priority)
	assert.Equal(t, "'if' construct must use '{}'s.", issues[4].Message)
}

func TestParse_IsIdempotent(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "checkstyle.xml"))
	require.NoError(t, err)

	p := &Parser{}
	first, err := parseString(t, p, string(data))
	require.NoError(t, err)
	second, err := parseString(t, p, string(data))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestParse_SkipsPackageHTML(t *testing.T) {
	xml := `<checkstyle>
  <file name="C:\ws\src\a\package.html"><error line="0" severity="error" message="x" source="a.b.PackageHtml"/></file>
  <file name="/ws/src/a/package.html"><error line="0" severity="error" message="x" source="a.b.PackageHtml"/></file>
  <file name="/ws/src/a/mypackage.html"><error line="0" severity="error" message="x" source="a.b.PackageHtml"/></file>
</checkstyle>`

	issues, err := parseString(t, &Parser{}, xml)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "/ws/src/a/mypackage.html", issues[0].FileName)
}

func TestParse_WrongRootIsMalformed(t *testing.T) {
	_, err := parseString(t, &Parser{}, `<?xml version="1.0"?><pmd><file name="a"/></pmd>`)
	require.Error(t, err)

	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, KindMalformedDocument, pe.Kind)
	assert.True(t, coreerrors.IsCode(err, coreerrors.CodeMalformedDocument))
}

func TestParse_BrokenXMLIsMalformed(t *testing.T) {
	for _, input := range []string{"", "not xml at all", `<checkstyle><file name="a">`} {
		_, err := parseString(t, &Parser{}, input)
		var pe *ParseError
		require.True(t, errors.As(err, &pe), "input %q", input)
		assert.Equal(t, KindMalformedDocument, pe.Kind, "input %q", input)
	}
}

func TestParse_InvalidUTF8IsEncodingError(t *testing.T) {
	xml := "<checkstyle><file name=\"A.java\"><error line=\"1\" severity=\"error\" message=\"bad \xff\xfe\" source=\"a.B\"/></file></checkstyle>"

	_, err := parseString(t, &Parser{Encoding: "UTF-8"}, xml)
	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, KindEncoding, pe.Kind)
	assert.True(t, coreerrors.IsCode(err, coreerrors.CodeEncoding))
}

func TestParse_UnknownEncodingName(t *testing.T) {
	_, err := parseString(t, &Parser{Encoding: "klingon-8"}, "<checkstyle/>")
	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, KindEncoding, pe.Kind)
}

func TestParse_DecodesLatin1(t *testing.T) {
	xml := "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?><checkstyle><file name=\"A.java\">" +
		"<error line=\"4\" severity=\"warning\" message=\"Gr\xfc\xdfe\" source=\"x.y.TodoComment\"/></file></checkstyle>"

	issues, err := parseString(t, &Parser{Encoding: "ISO-8859-1"}, xml)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "Grüße", issues[0].Message)
	assert.Equal(t, "Y", issues[0].Category)
	assert.Equal(t, "TodoComment", issues[0].Type)
}

func TestParse_UTF8ByteOrderMark(t *testing.T) {
	xml := "\xef\xbb\xbf<checkstyle><file name=\"A.java\"><error line=\"4\" severity=\"info\" message=\"m\" source=\"x.y.Z\"/></file></checkstyle>"

	issues, err := parseString(t, &Parser{}, xml)
	require.NoError(t, err)
	assert.Len(t, issues, 1)
}

func TestParse_EmptyReport(t *testing.T) {
	issues, err := parseString(t, &Parser{}, `<checkstyle version="8.0"></checkstyle>`)
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestParseFile_MissingFile(t *testing.T) {
	_, err := (&Parser{}).ParseFile(filepath.Join(t.TempDir(), "missing.xml"), "m")
	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Contains(t, pe.Report, "missing.xml")
}

func TestSplitSource(t *testing.T) {
	tests := []struct {
		source, category, ruleType string
	}{
		{"com.puppycrawl.tools.checkstyle.checks.design.DesignForExtensionCheck", "Design", "DesignForExtension"},
		{"naming.MethodName", "Naming", "MethodName"},
		{"Standalone", "", "Standalone"},
		{"org.scalastyle.file.FileTabChecker", "File", "FileTabChecker"},
	}
	for _, tt := range tests {
		category, ruleType := splitSource(tt.source)
		assert.Equal(t, tt.category, category, tt.source)
		assert.Equal(t, tt.ruleType, ruleType, tt.source)
	}
}

func TestPackageDetector_PrefersSourceDeclaration(t *testing.T) {
	resolver := mapResolver{
		"src/main/java/wrong/Foo.java": "/* header */\npackage com.example.right;\n\nclass Foo {}\n",
	}
	d := NewPackageDetector(resolver)

	assert.Equal(t, "com.example.right", d.Detect("src/main/java/wrong/Foo.java"))
	assert.Equal(t, "org.acme", d.Detect("module/src/test/java/org/acme/BarTest.java"))
	assert.Equal(t, "-", d.Detect("README.md"))
}

func TestPackageFromPath(t *testing.T) {
	assert.Equal(t, "a.b", PackageFromPath(`C:\ws\src\main\java\a\b\C.java`))
	assert.Equal(t, "x", PackageFromPath("java/x/Y.java"))
	assert.Equal(t, "-", PackageFromPath("src/main/java/Top.java"))
	assert.Equal(t, "-", PackageFromPath("lib/Other.java"))
}

func TestParse_UsesPackageDetector(t *testing.T) {
	resolver := mapResolver{"A.java": "package p.q;\nclass A {}"}
	p := NewParser("", NewPackageDetector(resolver))

	issues, err := parseString(t, p, `<checkstyle><file name="A.java"><error line="2" severity="error" message="m" source="a.b.C"/></file></checkstyle>`)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "p.q", issues[0].PackageName)
}

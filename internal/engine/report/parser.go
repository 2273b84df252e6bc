// Package report converts Checkstyle XML reports into issues.
package report

import (
	coreerrors "checkdelta/internal/core/errors"
	"checkdelta/internal/core/model"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	xunicode "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const (
	rootElement = "checkstyle"
	// Legacy doc-comment checker output; never reported.
	legacyPackageDoc = "package.html"
	unknownPackage   = "-"
)

type ErrorKind string

const (
	KindMalformedDocument ErrorKind = "MalformedDocument"
	KindEncoding          ErrorKind = "Encoding"
)

// ParseError aborts the parse of a single report.
type ParseError struct {
	Kind   ErrorKind
	Report string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Report != "" {
		return fmt.Sprintf("parse report %s: %s: %v", e.Report, e.Kind, e.Err)
	}
	return fmt.Sprintf("parse report: %s: %v", e.Kind, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func malformed(err error, msg string) *ParseError {
	return &ParseError{Kind: KindMalformedDocument, Err: coreerrors.Wrap(err, coreerrors.CodeMalformedDocument, msg)}
}

func badEncoding(err error, msg string) *ParseError {
	return &ParseError{Kind: KindEncoding, Err: coreerrors.Wrap(err, coreerrors.CodeEncoding, msg)}
}

type document struct {
	Files []fileElement `xml:"file"`
}

type fileElement struct {
	Name   string         `xml:"name,attr"`
	Errors []errorElement `xml:"error"`
}

type errorElement struct {
	Source   string `xml:"source,attr"`
	Severity string `xml:"severity,attr"`
	Message  string `xml:"message,attr"`
	Line     string `xml:"line,attr"`
	Column   string `xml:"column,attr"`
}

// Parser reads Checkstyle XML. A zero Parser decodes UTF-8 and infers
// packages from file paths only.
type Parser struct {
	Encoding string
	Packages *PackageDetector
}

func NewParser(encodingName string, packages *PackageDetector) *Parser {
	return &Parser{Encoding: encodingName, Packages: packages}
}

// ParseFile opens and parses the report at path.
func (p *Parser) ParseFile(path, moduleName string) ([]model.Issue, error) {
	f, err := os.Open(path)
	if err != nil {
		pe := malformed(err, "open report")
		pe.Report = path
		return nil, pe
	}
	defer f.Close()

	issues, err := p.Parse(f, moduleName)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.Report = path
		}
		return nil, err
	}
	return issues, nil
}

// Parse decodes one report. Diagnostics with an unknown severity and files
// named package.html are skipped.
func (p *Parser) Parse(r io.Reader, moduleName string) ([]model.Issue, error) {
	raw := &trackingReader{r: r}
	decoded, err := p.decodingReader(raw)
	if err != nil {
		return nil, err
	}
	tracked := &trackingReader{r: decoded}

	doc, err := decodeDocument(tracked)
	if err != nil {
		if tracked.err != nil && raw.err == nil {
			return nil, badEncoding(tracked.err, "decode report bytes")
		}
		return nil, err
	}
	return p.convert(doc, moduleName), nil
}

func (p *Parser) decodingReader(r io.Reader) (io.Reader, error) {
	name := strings.TrimSpace(p.Encoding)
	if name == "" {
		name = "utf-8"
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, badEncoding(err, fmt.Sprintf("unsupported encoding %q", p.Encoding))
	}
	if canonical, _ := htmlindex.Name(enc); canonical == "utf-8" {
		return transform.NewReader(r, xunicode.BOMOverride(encoding.UTF8Validator)), nil
	}
	return enc.NewDecoder().Reader(r), nil
}

func decodeDocument(r io.Reader) (*document, error) {
	dec := xml.NewDecoder(r)
	// bytes are already UTF-8; the prolog's declared charset is irrelevant
	dec.CharsetReader = func(_ string, in io.Reader) (io.Reader, error) { return in, nil }

	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, malformed(err, "report has no root element")
			}
			return nil, malformed(err, "read report")
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if start.Name.Local != rootElement {
			return nil, malformed(fmt.Errorf("root element <%s>", start.Name.Local), "input is not a Checkstyle report")
		}
		var doc document
		if err := dec.DecodeElement(&doc, &start); err != nil {
			return nil, malformed(err, "decode report")
		}
		return &doc, nil
	}
}

func (p *Parser) convert(doc *document, moduleName string) []model.Issue {
	issues := make([]model.Issue, 0)
	for _, file := range doc.Files {
		if isLegacyPackageDoc(file.Name) {
			continue
		}
		packageName := ""
		for _, e := range file.Errors {
			priority, ok := model.PriorityFromSeverity(e.Severity)
			if !ok {
				continue
			}
			if packageName == "" {
				packageName = p.detectPackage(file.Name)
			}
			category, ruleType := splitSource(e.Source)
			line := parseInt(e.Line)
			issues = append(issues, model.Issue{
				Priority:    priority,
				Message:     e.Message,
				Category:    category,
				Type:        ruleType,
				FileName:    file.Name,
				ModuleName:  moduleName,
				PackageName: packageName,
				LineStart:   line,
				LineEnd:     line,
				Column:      parseInt(e.Column),
			})
		}
	}
	return issues
}

func (p *Parser) detectPackage(fileName string) string {
	if p.Packages != nil {
		return p.Packages.Detect(fileName)
	}
	return PackageFromPath(fileName)
}

func isLegacyPackageDoc(name string) bool {
	normalized := strings.ReplaceAll(name, "\\", "/")
	if idx := strings.LastIndex(normalized, "/"); idx >= 0 {
		normalized = normalized[idx+1:]
	}
	return normalized == legacyPackageDoc
}

// splitSource derives category and type from a dotted rule identifier such
// as com.puppycrawl.tools.checkstyle.checks.design.DesignForExtensionCheck.
func splitSource(source string) (category, ruleType string) {
	source = strings.TrimSpace(source)
	idx := strings.LastIndex(source, ".")
	if idx < 0 {
		return "", strings.TrimSuffix(source, "Check")
	}
	ruleType = strings.TrimSuffix(source[idx+1:], "Check")
	prefix := source[:idx]
	if j := strings.LastIndex(prefix, "."); j >= 0 {
		prefix = prefix[j+1:]
	}
	return capitalize(prefix), ruleType
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}

func parseInt(value string) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

type trackingReader struct {
	r   io.Reader
	err error
}

func (t *trackingReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) && t.err == nil {
		t.err = err
	}
	return n, err
}

package report

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	coreerrors "checkdelta/internal/core/errors"
	"checkdelta/internal/core/ports"
	"checkdelta/internal/ui/report/formats"
)

// SummarySection is the Markdown block kept between the checkdelta markers
// of a README or job summary.
func SummarySection(res ports.AnalyzeResult) string {
	var b bytes.Buffer
	b.WriteString(formats.Summary(len(res.Issues), res.Reports))
	b.WriteString("\n")
	for _, line := range formats.DeltaLines(len(res.New), len(res.Fixed)) {
		b.WriteString("- " + line + "\n")
	}
	fmt.Fprintf(&b, "\nBuild #%d: **%s**\n", res.Number, res.VerdictName)
	return b.String()
}

// InjectSummary writes the summary of res into the named section of the
// Markdown file at path. Missing files and sections are created.
func InjectSummary(path, name string, res ports.AnalyzeResult) error {
	mode := fs.FileMode(0o644)
	content, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return coreerrors.AddContext(err, coreerrors.CtxPath, path)
	default:
		if info, statErr := os.Stat(path); statErr == nil {
			mode = info.Mode().Perm()
		}
	}

	next, err := UpsertSection(string(content), name, SummarySection(res))
	if err != nil {
		return coreerrors.AddContext(err, coreerrors.CtxPath, path)
	}
	if next == string(content) {
		return nil
	}
	return replaceFile(path, []byte(next), mode)
}

func markers(name string) (start, end string) {
	return fmt.Sprintf("<!-- checkdelta:%s:start -->", name), fmt.Sprintf("<!-- checkdelta:%s:end -->", name)
}

// UpsertSection replaces the body of the named section, or appends a new
// marked section when content has none. Half-present, repeated or
// reversed markers are rejected.
func UpsertSection(content, name, body string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", coreerrors.New(coreerrors.CodeValidationError, "section name must not be empty")
	}
	nl := "\n"
	if strings.Contains(content, "\r\n") {
		nl = "\r\n"
	}
	body = strings.ReplaceAll(strings.TrimRight(body, "\r\n"), "\r\n", "\n")
	body = strings.ReplaceAll(body, "\n", nl)
	start, end := markers(name)

	starts, ends := strings.Count(content, start), strings.Count(content, end)
	if starts == 0 && ends == 0 {
		var b strings.Builder
		b.WriteString(content)
		if content != "" {
			if !strings.HasSuffix(content, nl) {
				b.WriteString(nl)
			}
			b.WriteString(nl)
		}
		b.WriteString(start + nl + body + nl + end + nl)
		return b.String(), nil
	}
	if starts != 1 || ends != 1 {
		return "", coreerrors.AddContext(
			coreerrors.New(coreerrors.CodeValidationError,
				fmt.Sprintf("section %q needs exactly one start and one end marker, found %d and %d", name, starts, ends)),
			coreerrors.CtxField, name)
	}
	i, j := strings.Index(content, start), strings.Index(content, end)
	if j < i {
		return "", coreerrors.AddContext(
			coreerrors.New(coreerrors.CodeValidationError, fmt.Sprintf("section %q ends before it starts", name)),
			coreerrors.CtxField, name)
	}
	return content[:i+len(start)] + nl + body + nl + content[j:], nil
}

// replaceFile swaps data in through a sibling temp file so readers never
// see a half-written document.
func replaceFile(path string, data []byte, mode fs.FileMode) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return coreerrors.AddContext(err, coreerrors.CtxPath, dir)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return coreerrors.AddContext(err, coreerrors.CtxPath, path)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return coreerrors.AddContext(err, coreerrors.CtxPath, tmp.Name())
	}
	if err = tmp.Chmod(mode); err != nil {
		_ = tmp.Close()
		return coreerrors.AddContext(err, coreerrors.CtxPath, tmp.Name())
	}
	if err = tmp.Close(); err != nil {
		return coreerrors.AddContext(err, coreerrors.CtxPath, tmp.Name())
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return coreerrors.AddContext(err, coreerrors.CtxPath, path)
	}
	return nil
}

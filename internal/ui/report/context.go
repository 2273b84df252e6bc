package report

import (
	"bytes"
	"fmt"

	"checkdelta/internal/core/model"
	"checkdelta/internal/core/ports"
)

const contextRadius = 2 // ±2 lines around the issue

// Snippet is the source surrounding one issue.
type Snippet struct {
	File string
	Line int
	// Lines are formatted as "<linenum>: <source>"; the issue line is
	// marked with ">".
	Lines []string
}

// IssueContext reads the source of issue and returns the lines around it.
// Unreadable sources and file-level issues (line 0) yield no lines.
func IssueContext(sources ports.SourceResolver, issue model.Issue) Snippet {
	snippet := Snippet{File: issue.FileName, Line: issue.LineStart}
	if sources == nil || issue.LineStart <= 0 {
		return snippet
	}
	content, err := sources.Read(issue.FileName)
	if err != nil {
		return snippet
	}
	lines := splitLines(content)
	if issue.LineStart > len(lines) {
		return snippet
	}
	snippet.Lines = buildContext(lines, issue.LineStart-1, contextRadius)
	return snippet
}

func buildContext(lines []string, hitIdx, radius int) []string {
	start := max(hitIdx-radius, 0)
	end := min(hitIdx+radius+1, len(lines))

	out := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		marker := " "
		if i == hitIdx {
			marker = ">"
		}
		out = append(out, fmt.Sprintf("%s%6d: %s", marker, i+1, lines[i]))
	}
	return out
}

// splitLines splits content on newlines, preserving empty lines.
func splitLines(content []byte) []string {
	raw := bytes.Split(content, []byte("\n"))
	lines := make([]string, len(raw))
	for i, b := range raw {
		lines[i] = string(bytes.TrimSuffix(b, []byte("\r")))
	}
	// Trim trailing empty line that Split adds for a final newline.
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

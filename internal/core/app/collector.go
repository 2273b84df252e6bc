package app

import (
	"encoding/xml"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

// ReportFile is one discovered report and the module it belongs to.
type ReportFile struct {
	Path   string
	Module string
}

var skippedDirs = map[string]bool{
	".git":         true,
	".svn":         true,
	".checkdelta":  true,
	"node_modules": true,
}

// ReportMatcher selects report files by workspace-relative path.
type ReportMatcher struct {
	workspace string
	include   glob.Glob
	exclude   []glob.Glob
}

// NewReportMatcher compiles pattern and exclude. Patterns use Ant-style
// globs over slash-separated paths relative to workspace; a leading "**/"
// also matches files at the top level.
func NewReportMatcher(workspace, pattern string, exclude []string) (*ReportMatcher, error) {
	include, err := glob.Compile(pattern, '/')
	if err != nil {
		return nil, fmt.Errorf("invalid report pattern %q: %w", pattern, err)
	}
	excludes := make([]glob.Glob, 0, len(exclude))
	for _, p := range exclude {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", p, err)
		}
		excludes = append(excludes, g)
	}
	return &ReportMatcher{workspace: filepath.Clean(workspace), include: include, exclude: excludes}, nil
}

// Match reports whether the file at path is a report. Paths outside the
// workspace never match.
func (m *ReportMatcher) Match(path string) bool {
	if !filepath.IsAbs(path) {
		path = filepath.Join(m.workspace, path)
	}
	rel, err := filepath.Rel(m.workspace, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	rel = filepath.ToSlash(rel)
	if !matches(m.include, rel) {
		return false
	}
	for _, g := range m.exclude {
		if matches(g, rel) {
			return false
		}
	}
	return true
}

// SkippedDirs lists the directory names never searched for reports.
func SkippedDirs() []string {
	names := make([]string, 0, len(skippedDirs))
	for name := range skippedDirs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FindReports walks workspace for files matching pattern and none of
// exclude, sorted by path.
func FindReports(workspace, pattern string, exclude []string) ([]string, error) {
	matcher, err := NewReportMatcher(workspace, pattern, exclude)
	if err != nil {
		return nil, err
	}

	var files []string
	err = filepath.WalkDir(workspace, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != workspace && skippedDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if matcher.Match(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan workspace %q: %w", workspace, err)
	}
	sort.Strings(files)
	return files, nil
}

func matches(g glob.Glob, rel string) bool {
	return g.Match(rel) || g.Match("/"+rel)
}

// ModuleDetector guesses module names from the build layout. Repeated names
// get a numeric suffix so every report keeps its own module.
type ModuleDetector struct {
	workspace string
	seen      map[string]int
}

func NewModuleDetector(workspace string) *ModuleDetector {
	return &ModuleDetector{workspace: filepath.Clean(workspace), seen: make(map[string]int)}
}

// Guess returns the artifactId of the nearest pom.xml above report, or the
// name of the directory holding the build output.
func (m *ModuleDetector) Guess(report string) string {
	name := m.guess(report)
	if count, dup := m.seen[name]; dup {
		m.seen[name] = count + 1
		return fmt.Sprintf("%s-%d", name, count+1)
	}
	m.seen[name] = 0
	return name
}

func (m *ModuleDetector) guess(report string) string {
	dir := filepath.Dir(filepath.Clean(report))
	for {
		if id := artifactID(filepath.Join(dir, "pom.xml")); id != "" {
			return id
		}
		if dir == m.workspace {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir || !strings.HasPrefix(parent, m.workspace) {
			break
		}
		dir = parent
	}

	dir = filepath.Dir(filepath.Clean(report))
	if filepath.Base(dir) == "target" || filepath.Base(dir) == "build" {
		dir = filepath.Dir(dir)
	}
	return filepath.Base(dir)
}

type pomProject struct {
	ArtifactID string `xml:"artifactId"`
	Name       string `xml:"name"`
}

func artifactID(pomPath string) string {
	data, err := os.ReadFile(pomPath)
	if err != nil {
		return ""
	}
	var project pomProject
	if err := xml.Unmarshal(data, &project); err != nil {
		return ""
	}
	if id := strings.TrimSpace(project.ArtifactID); id != "" {
		return id
	}
	return strings.TrimSpace(project.Name)
}

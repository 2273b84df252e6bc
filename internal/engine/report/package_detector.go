package report

import (
	"checkdelta/internal/core/ports"
	"path"
	"regexp"
	"strings"
	"sync"
)

var packageDeclaration = regexp.MustCompile(`(?m)^\s*package\s+([A-Za-z_$][\w$]*(?:\s*\.\s*[A-Za-z_$][\w$]*)*)\s*;`)

var sourceRootMarkers = []string{"src/main/java/", "src/test/java/", "java/"}

// PackageDetector infers the Java package of a reported file, preferring the
// package declaration in the source over the file's path.
type PackageDetector struct {
	resolver ports.SourceResolver

	mu    sync.Mutex
	cache map[string]string
}

func NewPackageDetector(resolver ports.SourceResolver) *PackageDetector {
	return &PackageDetector{resolver: resolver, cache: make(map[string]string)}
}

func (d *PackageDetector) Detect(fileName string) string {
	d.mu.Lock()
	if pkg, ok := d.cache[fileName]; ok {
		d.mu.Unlock()
		return pkg
	}
	d.mu.Unlock()

	pkg := ""
	if d.resolver != nil && strings.HasSuffix(strings.ToLower(fileName), ".java") {
		if content, err := d.resolver.Read(fileName); err == nil {
			pkg = PackageFromSource(content)
		}
	}
	if pkg == "" {
		pkg = PackageFromPath(fileName)
	}

	d.mu.Lock()
	d.cache[fileName] = pkg
	d.mu.Unlock()
	return pkg
}

// PackageFromSource returns the declared package or "".
func PackageFromSource(content []byte) string {
	m := packageDeclaration.FindSubmatch(content)
	if m == nil {
		return ""
	}
	return strings.Join(strings.Fields(string(m[1])), "")
}

// PackageFromPath derives a package from the directories below a Java source
// root, or "-" when none is recognizable.
func PackageFromPath(fileName string) string {
	normalized := strings.ReplaceAll(fileName, "\\", "/")
	if !strings.HasSuffix(strings.ToLower(normalized), ".java") {
		return unknownPackage
	}
	for _, marker := range sourceRootMarkers {
		idx := strings.LastIndex(normalized, marker)
		if idx < 0 {
			continue
		}
		if marker == "java/" && idx > 0 && normalized[idx-1] != '/' {
			continue
		}
		dir := path.Dir(normalized[idx+len(marker):])
		if dir == "." || dir == "" {
			return unknownPackage
		}
		return strings.ReplaceAll(dir, "/", ".")
	}
	return unknownPackage
}

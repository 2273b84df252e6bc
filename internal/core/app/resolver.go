package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	coreerrors "checkdelta/internal/core/errors"
)

// FileResolver reads source files named in reports. Reports usually carry
// absolute paths from the machine that ran the build, so when a path does
// not exist its trailing segments are retried under each source root.
type FileResolver struct {
	roots []string

	mu    sync.Mutex
	paths map[string]string
}

func NewFileResolver(roots ...string) *FileResolver {
	return &FileResolver{roots: roots, paths: make(map[string]string)}
}

func (r *FileResolver) Read(fileName string) ([]byte, error) {
	path, err := r.locate(fileName)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

func (r *FileResolver) locate(fileName string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if path, ok := r.paths[fileName]; ok {
		if path == "" {
			return "", notFound(fileName)
		}
		return path, nil
	}
	path := r.search(fileName)
	r.paths[fileName] = path
	if path == "" {
		return "", notFound(fileName)
	}
	return path, nil
}

func (r *FileResolver) search(fileName string) string {
	clean := filepath.Clean(filepath.FromSlash(fileName))
	if filepath.IsAbs(clean) && isFile(clean) {
		return clean
	}

	segments := strings.Split(strings.TrimPrefix(filepath.ToSlash(clean), "/"), "/")
	for i := range segments {
		suffix := filepath.Join(segments[i:]...)
		for _, root := range r.roots {
			candidate := filepath.Join(root, suffix)
			if isFile(candidate) {
				return candidate
			}
		}
	}
	return ""
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func notFound(fileName string) error {
	err := coreerrors.Wrap(os.ErrNotExist, coreerrors.CodeNotFound, fmt.Sprintf("source %s not found", fileName))
	return coreerrors.AddContext(err, coreerrors.CtxPath, fileName)
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type ResolvedPaths struct {
	Workspace        string
	HistoryPath      string
	SourceRoots      []string
	DescriptionsFile string
	MetricsFile      string
}

// ResolvePaths anchors every relative path of cfg at workspace.
func ResolvePaths(cfg *Config, workspace string) (ResolvedPaths, error) {
	if strings.TrimSpace(workspace) == "" {
		return ResolvedPaths{}, fmt.Errorf("workspace must not be empty")
	}
	abs, err := filepath.Abs(workspace)
	if err != nil {
		return ResolvedPaths{}, fmt.Errorf("resolve workspace %q: %w", workspace, err)
	}

	resolved := ResolvedPaths{
		Workspace:   filepath.Clean(abs),
		HistoryPath: ResolveRelative(abs, cfg.History.Path),
	}
	for _, root := range cfg.Sources.Roots {
		resolved.SourceRoots = append(resolved.SourceRoots, ResolveRelative(abs, root))
	}
	if cfg.Rules.DescriptionsFile != "" {
		resolved.DescriptionsFile = ResolveRelative(abs, cfg.Rules.DescriptionsFile)
	}
	if cfg.Observability.MetricsFile != "" {
		resolved.MetricsFile = ResolveRelative(abs, cfg.Observability.MetricsFile)
	}
	return resolved, nil
}

func ResolveRelative(base, value string) string {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return filepath.Clean(base)
	}
	if filepath.IsAbs(raw) {
		return filepath.Clean(raw)
	}
	return filepath.Clean(filepath.Join(base, raw))
}

// DetectProjectRoot walks up from each candidate until it finds a directory
// holding a configuration file or a build marker.
func DetectProjectRoot(candidates []string) (string, error) {
	markers := []string{
		DefaultFile,
		"pom.xml",
		".git",
	}

	for _, candidate := range candidates {
		if strings.TrimSpace(candidate) == "" {
			continue
		}

		abs, err := filepath.Abs(candidate)
		if err != nil {
			continue
		}
		root := abs
		if info, err := os.Stat(abs); err == nil && !info.IsDir() {
			root = filepath.Dir(abs)
		}

		for {
			for _, marker := range markers {
				if _, err := os.Stat(filepath.Join(root, marker)); err == nil {
					return filepath.Clean(root), nil
				}
			}
			parent := filepath.Dir(root)
			if parent == root {
				break
			}
			root = parent
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Clean(cwd), nil
}

package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	coreapp "checkdelta/internal/core/app"
	"checkdelta/internal/core/config"
	"checkdelta/internal/shared/observability"

	"github.com/mattn/go-isatty"
)

func configureLogging(w io.Writer, verbose bool) {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
}

// resolveWorkspace returns the explicit workspace or the project root found
// above the working directory.
func resolveWorkspace(explicit string) (string, error) {
	if strings.TrimSpace(explicit) != "" {
		return filepath.Abs(explicit)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("detect working directory: %w", err)
	}
	root, err := config.DetectProjectRoot([]string{cwd})
	if err != nil {
		return cwd, nil
	}
	return root, nil
}

// loadConfig reads the config file, falling back to defaults when the
// default path does not exist, and applies CHECKDELTA_* overrides.
func loadConfig(path, workspace string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if strings.TrimSpace(path) == "" {
		cfg, err = config.LoadOrDefault(filepath.Join(workspace, config.DefaultFile))
	} else {
		cfg, err = config.Load(path)
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	config.ApplyEnvOverrides(cfg)
	if errs := config.Validate(cfg); len(errs) > 0 {
		return nil, fmt.Errorf("invalid config: %w", errs[0])
	}
	return cfg, nil
}

// session is the state shared by one command invocation.
type session struct {
	workspace string
	cfg       *config.Config
	app       *coreapp.App
	shutdown  observability.ShutdownFunc
	metrics   string
}

// openSession loads the configuration and builds the App. deps may override
// the history store. close must be called when the command is done.
func openSession(ctx context.Context, opts *globalOptions, deps coreapp.Dependencies) (*session, error) {
	workspace, err := resolveWorkspace(opts.workspace)
	if err != nil {
		return nil, err
	}
	cfg, err := loadConfig(opts.configPath, workspace)
	if err != nil {
		return nil, err
	}

	shutdown, err := observability.SetupTracing(ctx, cfg.Observability.OTLPEndpoint)
	if err != nil {
		return nil, err
	}
	deps.Logger = slog.Default()
	app, err := coreapp.NewWithDependencies(cfg, workspace, deps)
	if err != nil {
		_ = shutdown(ctx)
		return nil, err
	}

	metrics := opts.metricsFile
	if metrics == "" {
		metrics = app.Paths.MetricsFile
	}
	slog.Debug("session opened", "workspace", workspace, "history", app.Paths.HistoryPath)
	return &session{workspace: workspace, cfg: cfg, app: app, shutdown: shutdown, metrics: metrics}, nil
}

func (s *session) close(ctx context.Context) error {
	var firstErr error
	if s.metrics != "" {
		if err := observability.WriteTextfile(s.metrics); err != nil {
			firstErr = fmt.Errorf("write metrics: %w", err)
		}
	}
	if err := s.app.Close(ctx); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := s.shutdown(ctx); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("shutdown tracing: %w", err)
	}
	return firstErr
}

// useColor decides whether text output to w is styled.
func useColor(mode string, w io.Writer) bool {
	switch strings.ToLower(mode) {
	case "always":
		return true
	case "never":
		return false
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

// openOutput returns w, or a created file when path is set.
func openOutput(path string, w io.Writer) (io.Writer, func() error, error) {
	if strings.TrimSpace(path) == "" || path == "-" {
		return w, func() error { return nil }, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output %s: %w", path, err)
	}
	return f, f.Close, nil
}

// Package cli wires the checkdelta commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"checkdelta/internal/core/config"
	"checkdelta/internal/shared/version"

	"github.com/spf13/cobra"
)

type globalOptions struct {
	configPath  string
	workspace   string
	verbose     bool
	color       string
	metricsFile string

	stdout io.Writer
	stderr io.Writer
}

// exitError carries a process exit code for a failed verdict.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

// Run executes the command line and returns the process exit code.
func Run(args []string) int {
	return run(args, os.Stdout, os.Stderr)
}

func run(args []string, stdout, stderr io.Writer) int {
	opts := &globalOptions{stdout: stdout, stderr: stderr}
	root := newRootCommand(opts)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	var exit *exitError
	if errors.As(err, &exit) {
		fmt.Fprintln(stderr, exit.msg)
		return exit.code
	}
	fmt.Fprintln(stderr, "error:", err)
	return 1
}

func newRootCommand(opts *globalOptions) *cobra.Command {
	root := &cobra.Command{
		Use:           "checkdelta",
		Short:         "Track Checkstyle warnings from build to build",
		Long:          `checkdelta parses Checkstyle XML reports, matches warnings against a reference build using syntax fingerprints and classifies the build against thresholds.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			configureLogging(opts.stderr, opts.verbose)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "path to config file (default: <workspace>/"+config.DefaultFile+")")
	flags.StringVarP(&opts.workspace, "workspace", "w", "", "workspace root (default: detected from the working directory)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	flags.StringVar(&opts.color, "color", "auto", "colorize text output (auto|always|never)")
	flags.StringVar(&opts.metricsFile, "metrics-file", "", "write Prometheus metrics to this file after the run")

	root.AddCommand(
		newAnalyzeCommand(opts),
		newDiffCommand(opts),
		newHistoryCommand(opts),
		newScopeCommand(opts),
		newVersionCommand(opts),
		newWatchCommand(opts),
	)
	return root
}

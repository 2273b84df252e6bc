package cli

import (
	coreapp "checkdelta/internal/core/app"
	"checkdelta/internal/data/history"
	"checkdelta/internal/ui/report"

	"github.com/spf13/cobra"
)

type diffOptions struct {
	format           string
	output           string
	referenceSources []string
	list             bool
}

func newDiffCommand(global *globalOptions) *cobra.Command {
	opts := &diffOptions{}
	cmd := &cobra.Command{
		Use:   "diff <reference.xml> <current.xml>",
		Short: "Compare two Checkstyle reports without recording a build",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(cmd, global, opts, args[0], args[1])
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.format, "format", "f", "text", "output format (text|markdown|json|sarif|tsv)")
	flags.StringVarP(&opts.output, "output", "o", "", "write the report to this file instead of stdout")
	flags.StringSliceVar(&opts.referenceSources, "reference-sources", nil, "source roots of the reference build; enables fingerprint matching for its issues")
	flags.BoolVar(&opts.list, "list", true, "list new and fixed warnings in text output")
	return cmd
}

func runDiff(cmd *cobra.Command, global *globalOptions, opts *diffOptions, referencePath, currentPath string) error {
	format, err := report.ParseFormat(opts.format)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	sess, err := openSession(ctx, global, coreapp.Dependencies{Store: history.NewMemoryStore()})
	if err != nil {
		return err
	}
	defer closeSession(cmd, sess)

	res, err := sess.app.Compare(ctx, coreapp.CompareRequest{
		ReferenceReport:  referencePath,
		CurrentReport:    currentPath,
		ReferenceSources: opts.referenceSources,
	})
	if err != nil {
		return err
	}

	out, closeOut, err := openOutput(opts.output, global.stdout)
	if err != nil {
		return err
	}
	renderErr := report.Render(out, format, res, report.Options{
		ProjectRoot: sess.workspace,
		Color:       opts.output == "" && useColor(global.color, global.stdout),
		ListIssues:  opts.list,
		Rules:       sess.app.Rules,
	})
	if err := closeOut(); err != nil && renderErr == nil {
		renderErr = err
	}
	return renderErr
}

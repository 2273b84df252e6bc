package cli

import (
	"fmt"
	"log/slog"
	"strings"
	"text/tabwriter"

	coreapp "checkdelta/internal/core/app"
	"checkdelta/internal/core/ports"
	"checkdelta/internal/ui/report"

	"github.com/spf13/cobra"
)

func newHistoryCommand(global *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded builds",
	}
	cmd.AddCommand(newHistoryListCommand(global), newHistoryShowCommand(global))
	return cmd
}

func newHistoryListCommand(global *globalOptions) *cobra.Command {
	var (
		project string
		limit   int
		format  string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List builds, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sess, err := openSession(ctx, global, coreapp.Dependencies{})
			if err != nil {
				return err
			}
			defer closeSession(cmd, sess)

			if project == "" {
				project = sess.cfg.Project
			}
			records, err := sess.app.Store.List(ctx, project, limit)
			if err != nil {
				return err
			}
			points := report.BuildTrend(records)

			var data []byte
			switch strings.ToLower(format) {
			case "json":
				data, err = report.RenderTrendJSON(points)
				data = append(data, '\n')
			case "tsv":
				data, err = report.RenderTrendTSV(points)
			case "text", "":
				return writeTrendTable(global, points)
			default:
				return fmt.Errorf("unknown history format %q", format)
			}
			if err != nil {
				return err
			}
			_, err = global.stdout.Write(data)
			return err
		},
	}
	cmd.Flags().StringVarP(&project, "project", "p", "", "project key (default: config project)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of builds (0 = all)")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format (text|tsv|json)")
	return cmd
}

func writeTrendTable(global *globalOptions, points []report.TrendPoint) error {
	if len(points) == 0 {
		_, err := fmt.Fprintln(global.stdout, "No builds recorded.")
		return err
	}
	tw := tabwriter.NewWriter(global.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "BUILD\tTIMESTAMP\tVERDICT\tWARNINGS\tDELTA\tHEALTH\tID")
	for _, p := range points {
		health := "-"
		if p.Health >= 0 {
			health = fmt.Sprintf("%d%%", p.Health)
		}
		verdict := p.Verdict
		if !p.Analyzed {
			verdict += " (aborted)"
		}
		fmt.Fprintf(tw, "#%d\t%s\t%s\t%d\t%+d\t%s\t%s\n",
			p.Number, p.Timestamp.Format("2006-01-02 15:04:05"), verdict, p.Total, p.Delta, health, p.ID)
	}
	return tw.Flush()
}

func newHistoryShowCommand(global *globalOptions) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "show <build-id>",
		Short: "Print the warnings of one recorded build",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			renderFormat, err := report.ParseFormat(format)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			sess, err := openSession(ctx, global, coreapp.Dependencies{})
			if err != nil {
				return err
			}
			defer closeSession(cmd, sess)

			rec, err := sess.app.Store.Load(ctx, args[0])
			if err != nil {
				return err
			}
			res := ports.AnalyzeResult{
				BuildID:       rec.ID,
				Project:       rec.Project,
				Number:        rec.Number,
				ReferenceID:   rec.ReferenceID,
				Verdict:       rec.Verdict,
				VerdictName:   rec.Verdict.String(),
				Health:        rec.Health,
				HealthEnabled: rec.Health >= 0,
				ZeroStreak:    rec.ZeroStreak,
				HighScore:     rec.HighScore,
				Totals:        rec.Counts(),
				Issues:        rec.Issues,
			}
			return report.Render(global.stdout, renderFormat, res, report.Options{
				ProjectRoot: sess.workspace,
				Color:       useColor(global.color, global.stdout),
				Rules:       sess.app.Rules,
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format (text|markdown|json|tsv)")
	return cmd
}

func closeSession(cmd *cobra.Command, sess *session) {
	if err := sess.close(cmd.Context()); err != nil {
		slog.Warn("cleanup failed", "error", err)
	}
}

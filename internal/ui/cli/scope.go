package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"checkdelta/internal/engine/rules"
	"checkdelta/internal/engine/scope"

	"github.com/spf13/cobra"
)

func newScopeCommand(global *globalOptions) *cobra.Command {
	var (
		list             bool
		descriptionsFile string
	)
	cmd := &cobra.Command{
		Use:   "scope [rule...]",
		Short: "Show the fingerprint scope of Checkstyle rules",
		Long: `Scope prints the syntax scope each rule is fingerprinted with. Rules missing
from the table use a block scope. With --list every known rule is printed by scope.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !list && len(args) == 0 {
				return fmt.Errorf("name at least one rule or use --list")
			}
			catalog, err := rules.Load(descriptionsFile)
			if err != nil {
				return err
			}
			table := scope.NewTable()

			tw := tabwriter.NewWriter(global.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RULE\tSCOPE\tCATEGORY\tDESCRIPTION")
			if list {
				for _, kind := range scope.Kinds {
					for _, name := range table.Rules(kind) {
						writeRuleRow(tw, catalog, table, name)
					}
				}
			}
			for _, name := range args {
				writeRuleRow(tw, catalog, table, strings.TrimSpace(name))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if list {
				fmt.Fprintf(global.stdout, "\n%d rules mapped; unlisted rules use %s.\n",
					table.Len(), scope.Scope{Kind: scope.KindBlock, Depth: scope.DefaultBlockDepth})
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "list every rule of the scope table")
	cmd.Flags().StringVar(&descriptionsFile, "descriptions", "", "TOML file with additional rule descriptions")
	return cmd
}

func writeRuleRow(tw *tabwriter.Writer, catalog *rules.Catalog, table *scope.Table, name string) {
	rule := catalog.Rule(name)
	s := table.Classify(name)
	label := s.String()
	if !table.Known(name) {
		label += " (default)"
	}
	fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", name, label, dash(rule.Category), dash(rule.Description))
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

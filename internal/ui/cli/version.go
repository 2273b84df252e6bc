package cli

import (
	"encoding/json"
	"fmt"
	"runtime"

	"checkdelta/internal/shared/version"

	"github.com/spf13/cobra"
)

type versionPayload struct {
	Tool      string `json:"tool"`
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
}

func newVersionCommand(global *globalOptions) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := versionPayload{
				Tool:      "checkdelta",
				Version:   version.Version,
				Commit:    version.Commit,
				BuildDate: version.Date,
				GoVersion: runtime.Version(),
			}
			switch format {
			case "json":
				enc := json.NewEncoder(global.stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(payload)
			case "pretty", "":
				_, err := fmt.Fprintf(global.stdout, "checkdelta %s (commit %s, built %s, %s)\n",
					payload.Version, payload.Commit, payload.BuildDate, payload.GoVersion)
				return err
			default:
				return fmt.Errorf("unsupported format %q (must be pretty or json)", format)
			}
		},
	}
	cmd.Flags().StringVar(&format, "format", "pretty", "output format (pretty|json)")
	return cmd
}

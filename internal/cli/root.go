package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

func NewRootCommand(out io.Writer, build BuildInfo) *cobra.Command {
	deps := &commandDeps{out: out, build: build}

	cmd := &cobra.Command{
		Use:           "uniarr",
		Short:         "UniArr dashboard companion",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(out)
	cmd.SetErr(out)

	cmd.PersistentFlags().StringVar(&deps.configPath, "config", "", "Path to config file")
	cmd.PersistentFlags().StringVar(&deps.dbPath, "db", "", "Path to database file (overrides config)")

	cmd.AddCommand(newVersionCommand(out, build))
	cmd.AddCommand(newServiceCommand(deps))
	cmd.AddCommand(newWidgetCommand(deps))
	cmd.AddCommand(newProfileCommand(deps))
	cmd.AddCommand(newCredentialCommand(deps))
	cmd.AddCommand(newSettingCommand(deps))
	cmd.AddCommand(newBackupCommand(deps))
	cmd.InitDefaultCompletionCmd()
	return cmd
}

func newVersionCommand(out io.Writer, build BuildInfo) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print build version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(build)
			}

			_, err := fmt.Fprintf(out, "version=%s commit=%s build_time=%s\n", build.Version, build.Commit, build.BuildTime)
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print version as JSON")
	return cmd
}

package cli

import (
	"fmt"

	"github.com/autonomys/pulsar/internal/paths"
	"github.com/autonomys/pulsar/internal/platform"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(openLogsCmd)
}

var openLogsCmd = &cobra.Command{
	Use:   "open-logs",
	Short: "Open the log directory in the file browser",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := paths.LogDir()
		if err != nil {
			return err
		}
		if err := paths.EnsureDir(dir, paths.DirPermNormal); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Opening %s\n", dir)
		return platform.Open(dir)
	},
}

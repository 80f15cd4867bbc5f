package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/autonomys/pulsar/internal/branding"
	"github.com/autonomys/pulsar/internal/installer"
	"github.com/autonomys/pulsar/internal/paths"
	"github.com/autonomys/pulsar/internal/ui"
	"github.com/spf13/cobra"
)

var (
	installVersion string
	installForce   bool
	installCheck   bool
)

func init() {
	installCmd.Flags().StringVar(&installVersion, "version", "", "Release tag to install (default: latest)")
	installCmd.Flags().BoolVar(&installForce, "force", false, "Reinstall even when already up to date")
	installCmd.Flags().BoolVar(&installCheck, "check", false, "Only report whether a newer release exists")
	rootCmd.AddCommand(installCmd)
}

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Download the subspace-node and subspace-farmer executables",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		binDir, err := paths.BinaryDir()
		if err != nil {
			return err
		}
		inst := installer.New(binDir,
			installer.WithLogger(logger.Logger),
			installer.WithOutput(out, out == os.Stdout && ui.IsTerminal(os.Stdout)))

		if installCheck {
			res, err := inst.Check(cmd.Context())
			if err != nil {
				return err
			}
			for _, b := range installer.Binaries {
				tag := res.Installed[b]
				if tag == "" {
					tag = "not installed"
				}
				fmt.Fprintf(out, "  %-16s %s\n", b, tag)
			}
			if res.UpToDate() {
				fmt.Fprintf(out, "%s Up to date with %s\n", ui.Green("✓"), res.Latest)
			} else {
				fmt.Fprintf(out, "Latest release is %s. Run `%s install` to update.\n", ui.Bold(res.Latest), branding.CLIName())
			}
			return nil
		}

		report, err := inst.Install(cmd.Context(), installer.Request{Tag: installVersion, Force: installForce})
		if err != nil {
			return err
		}
		if len(report.Skipped) > 0 {
			fmt.Fprintf(out, "Already installed from %s: %s\n", report.Tag, strings.Join(report.Skipped, ", "))
		}
		if len(report.Installed) > 0 {
			fmt.Fprintf(out, "%s Installed %s from %s into %s\n",
				ui.Green("✓"), strings.Join(report.Installed, ", "), report.Tag, binDir)
		}
		return nil
	},
}

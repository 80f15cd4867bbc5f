package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/autonomys/pulsar/internal/branding"
	"github.com/autonomys/pulsar/internal/installer"
	plog "github.com/autonomys/pulsar/internal/log"
	"github.com/autonomys/pulsar/internal/paths"
	"github.com/autonomys/pulsar/internal/ui"
	"github.com/spf13/cobra"
)

var (
	buildVersion string
	buildCommit  string
	buildDate    string
)

var (
	debugLogs bool
	logger    = plog.Nop()
)

// Commands that skip the update banner.
var noBanner = map[string]bool{
	"version":    true,
	"install":    true,
	"open-logs":  true,
	"completion": true,
	"__complete": true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugLogs, "debug", false, "Print debug logs to the console")
	// Set here to keep rootCmd out of an initialization cycle with the
	// commands the picker offers.
	rootCmd.RunE = runPicker
}

var rootCmd = &cobra.Command{
	Use:   branding.CLIName(),
	Short: branding.Description(),
	Long: branding.DisplayName() + ` runs a Subspace node and farmer for you: it sets up the
configuration, downloads the executables, shows syncing and plotting
progress, and keeps count of the blocks you have farmed.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := setupLogger(!farmNoRotation); err != nil {
			return err
		}
		logger.Debug("starting command")

		if noBanner[cmd.Name()] || os.Getenv(branding.EnvVar("no_update_check")) != "" {
			return nil
		}
		if dir, err := paths.CacheDir(); err == nil {
			inst := installer.New("", installer.WithLogger(logger.Logger))
			inst.CheckAndPrintBanner(cmd.Context(), cmd.ErrOrStderr(), dir, buildVersion)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Close()
	},
}

// setupLogger replaces the package logger. The file sink is skipped when the
// log directory cannot be resolved.
func setupLogger(rotate bool) error {
	_ = logger.Close()

	dir, err := paths.LogDir()
	if err != nil {
		dir = ""
	}
	l, err := plog.New(plog.Options{
		Dir:     dir,
		Verbose: debugLogs,
		Rotate:  rotate,
		Console: os.Stderr,
	})
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	logger = l
	return nil
}

// Execute runs the root command with build info injected via ldflags. The
// error is printed here; callers only set the exit code.
func Execute(version, commit, date string) error {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	err := rootCmd.ExecuteContext(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n%s\n", ui.Red("Error:"), err, ui.Dim(branding.SupportMessage()))
	}
	return err
}

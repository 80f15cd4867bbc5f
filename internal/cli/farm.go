package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/autonomys/pulsar/internal/config"
	"github.com/autonomys/pulsar/internal/farm"
	"github.com/autonomys/pulsar/internal/ui"
	"github.com/spf13/cobra"
)

var (
	farmVerbose    bool
	farmNoRotation bool
)

func init() {
	farmCmd.Flags().BoolVarP(&farmVerbose, "verbose", "v", false, "Stream node and farmer output instead of progress bars")
	farmCmd.Flags().BoolVar(&farmNoRotation, "no-rotation", false, "Write one log file instead of one per day")
	rootCmd.AddCommand(farmCmd)
}

var farmCmd = &cobra.Command{
	Use:   "farm",
	Short: "Start the node and the farmer",
	Long: `Start farming with the settings written by init.

The node syncs first; the farmer starts once it has caught up. Progress is
shown until initial plotting finishes, after which the number of blocks you
have farmed is kept up to date. Press ctrl+c once to stop gracefully, twice
to force.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		sigs := make(chan os.Signal, 2)
		signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigs)

		out := cmd.OutOrStdout()
		return farm.Run(cmd.Context(), farm.Options{
			Config:      cfg,
			Verbose:     farmVerbose,
			Out:         out,
			Interactive: out == os.Stdout && ui.IsTerminal(os.Stdout),
			Logger:      logger.Logger,
			Signals:     sigs,
		})
	},
}

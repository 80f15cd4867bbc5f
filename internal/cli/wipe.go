package cli

import (
	"errors"
	"fmt"

	"github.com/autonomys/pulsar/internal/config"
	"github.com/autonomys/pulsar/internal/ui"
	"github.com/autonomys/pulsar/internal/wipe"
	"github.com/spf13/cobra"
)

var (
	wipeFarmer bool
	wipeNode   bool
	wipeYes    bool
)

func init() {
	wipeCmd.Flags().BoolVar(&wipeFarmer, "farmer", false, "Wipe only the farm and the farming summary")
	wipeCmd.Flags().BoolVar(&wipeNode, "node", false, "Wipe only the node database")
	wipeCmd.Flags().BoolVarP(&wipeYes, "yes", "y", false, "Do not ask for confirmation")
	rootCmd.AddCommand(wipeCmd)
}

var wipeCmd = &cobra.Command{
	Use:   "wipe",
	Short: "Delete the node database and the farm",
	Long: `Delete farming state so the next farm run starts from scratch.

Without flags the node database, the farm (including plots) and the farming
summary are removed. The settings file is kept.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if !wipeYes {
			what := "the node and the farm (along with your plots)"
			switch {
			case wipeFarmer && !wipeNode:
				what = "the farm (along with your plots)"
			case wipeNode && !wipeFarmer:
				what = "the node database"
			}
			ok, err := ui.NewPrompter(cmd.InOrStdin(), out).
				Confirm(fmt.Sprintf("This will delete %s. Continue?", what), false, config.ParseYesNo)
			if err != nil && !errors.Is(err, ui.ErrNoInput) {
				return err
			}
			if !ok {
				fmt.Fprintln(out, "Nothing was wiped.")
				return nil
			}
		}

		_, err := wipe.Wipe(wipe.Options{
			Farmer: wipeFarmer,
			Node:   wipeNode,
			Out:    out,
			Logger: logger.Logger,
		})
		return err
	},
}

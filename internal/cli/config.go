package cli

import (
	"errors"
	"fmt"

	"github.com/autonomys/pulsar/internal/branding"
	"github.com/autonomys/pulsar/internal/config"
	"github.com/autonomys/pulsar/internal/instance"
	"github.com/autonomys/pulsar/internal/ui"
	"github.com/autonomys/pulsar/internal/wipe"
	"github.com/spf13/cobra"
)

var (
	configShow          bool
	configOutput        string
	configChain         string
	configFarmSize      string
	configRewardAddress string
	configNodeDir       string
	configFarmDir       string
)

func init() {
	configCmd.Flags().BoolVar(&configShow, "show", false, "Print the current settings")
	configCmd.Flags().StringVarP(&configOutput, "output", "o", config.FormatTOML, "Format for --show: toml, yaml or json")
	configCmd.Flags().StringVar(&configChain, "chain", "", "Change the chain")
	configCmd.Flags().StringVar(&configFarmSize, "farm-size", "", "Change the pledged farm size")
	configCmd.Flags().StringVar(&configRewardAddress, "reward-address", "", "Change the reward address")
	configCmd.Flags().StringVar(&configNodeDir, "node-dir", "", "Move the node database to a new directory")
	configCmd.Flags().StringVar(&configFarmDir, "farm-dir", "", "Move the farm to a new directory")
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change the settings",
	Long: `Show or change the settings written by init.

Changing a directory moves the existing data there. Changing the chain means
the old node database and farm belong to another network, so pulsar farm
should be preceded by pulsar wipe.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		path, err := config.Path()
		if err != nil {
			return err
		}
		cfg, err := config.LoadFile(path)
		if err != nil {
			return err
		}

		u := config.Update{}
		flags := cmd.Flags()
		for _, f := range []struct {
			name string
			val  *string
			dst  **string
		}{
			{"chain", &configChain, &u.Chain},
			{"farm-size", &configFarmSize, &u.FarmSize},
			{"reward-address", &configRewardAddress, &u.RewardAddress},
			{"node-dir", &configNodeDir, &u.NodeDirectory},
			{"farm-dir", &configFarmDir, &u.FarmDirectory},
		} {
			if flags.Changed(f.name) {
				*f.dst = f.val
			}
		}

		if u.Empty() {
			if !configShow {
				return cmd.Help()
			}
			return showConfig(cmd, cfg)
		}

		lock, err := lockForUpdate()
		if err != nil {
			return err
		}
		defer lock.Release()

		oldChain := cfg.Chain
		if err := config.Apply(cfg, u); err != nil {
			return err
		}
		if err := config.SaveFile(path, cfg); err != nil {
			return err
		}
		fmt.Fprintf(out, "%s Settings updated.\n", ui.Green("✓"))
		if cfg.Chain != oldChain {
			ui.Warnf("the chain changed from %s to %s; run `%s wipe` before farming", oldChain, cfg.Chain, branding.CLIName())
		}
		if configShow {
			return showConfig(cmd, cfg)
		}
		return nil
	},
}

// lockForUpdate refuses to touch settings or move data while farming.
func lockForUpdate() (*instance.Lock, error) {
	lockPath, err := instance.Path()
	if err != nil {
		return nil, err
	}
	lock, err := instance.Acquire(lockPath)
	if errors.Is(err, instance.ErrAlreadyRunning) {
		return nil, wipe.ErrFarming
	}
	return lock, err
}

func showConfig(cmd *cobra.Command, cfg *config.Config) error {
	data, err := config.Encode(cfg, configOutput)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

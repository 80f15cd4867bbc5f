package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/autonomys/pulsar/internal/branding"
	"github.com/autonomys/pulsar/internal/config"
	"github.com/autonomys/pulsar/internal/ui"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	initRewardAddress  string
	initNodeName       string
	initFarmDir        string
	initFarmSize       string
	initChain          string
	initNonInteractive bool
)

func init() {
	initCmd.Flags().StringVar(&initRewardAddress, "reward-address", "", "SS58 address that receives farming rewards")
	initCmd.Flags().StringVar(&initNodeName, "node-name", "", "Name the node announces on the network (default: your user name)")
	initCmd.Flags().StringVar(&initFarmDir, "farm-dir", "", "Directory for the farm")
	initCmd.Flags().StringVar(&initFarmSize, "farm-size", "", "Space to pledge, e.g. \"100 GB\" (default \""+config.DefaultFarmSize+"\")")
	initCmd.Flags().StringVar(&initChain, "chain", "", "Network to farm on (gemini-3h, devnet, dev)")
	initCmd.Flags().BoolVar(&initNonInteractive, "non-interactive", false, "Use flags and defaults without prompting")
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the farming configuration",
	Long: `Create the settings file pulsar farms with.

Every value can be given as a flag. Missing values are asked for, with the
defaults shown; --non-interactive takes the defaults instead and requires
--reward-address.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInit(cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func runInit(in io.Reader, out io.Writer) error {
	path, err := config.Path()
	if err != nil {
		return err
	}

	fmt.Fprintln(out, ui.Accent(branding.Banner()))
	fmt.Fprintf(out, "\n%s\n\n", ui.Bold("Configuring "+branding.DisplayName()+" for farming"))

	cfg := config.Default()
	if initNonInteractive {
		if err := applyInitFlags(cfg); err != nil {
			return err
		}
	} else {
		if err := promptInit(cfg, ui.NewPrompter(in, out)); err != nil {
			return err
		}
	}

	if err := config.SaveFile(path, cfg); err != nil {
		return fmt.Errorf("saving configuration: %w", err)
	}
	logger.Info("configuration written")

	fmt.Fprintf(out, "\n%s Configuration creation process has finished!\n", ui.Green("✓"))
	fmt.Fprintf(out, "Settings saved to %s\n", path)
	fmt.Fprintf(out, "Run `%s farm` to start farming.\n", branding.CLIName())
	return nil
}

func applyInitFlags(cfg *config.Config) error {
	if initRewardAddress == "" {
		return errors.New("--reward-address is required with --non-interactive")
	}
	steps := []struct {
		value string
		apply func(string) error
	}{
		{initRewardAddress, setRewardAddress(cfg)},
		{initNodeName, setNodeName(cfg)},
		{initFarmDir, setFarmDir(cfg)},
		{initFarmSize, setFarmSize(cfg)},
		{initChain, setChain(cfg)},
	}
	for _, s := range steps {
		if s.value == "" {
			continue
		}
		if err := s.apply(s.value); err != nil {
			return err
		}
	}
	return nil
}

func promptInit(cfg *config.Config, p *ui.Prompter) error {
	questions := []struct {
		flag     string
		question string
		def      string
		apply    func(string) error
	}{
		{initRewardAddress, "Enter your reward address", "", setRewardAddress(cfg)},
		{initNodeName, "Enter your node name to be identified on the network", cfg.Node.Name, setNodeName(cfg)},
		{initFarmDir, "Specify a path for storing farm files", cfg.Farmer.FarmDirectory, setFarmDir(cfg)},
		{initFarmSize, fmt.Sprintf("Specify a farm size (minimum %s)", humanize.Bytes(config.MinFarmSize)), cfg.Farmer.FarmSize, setFarmSize(cfg)},
		{initChain, "Specify the chain to farm (" + strings.Join(config.Chains, ", ") + ")", cfg.Chain, setChain(cfg)},
	}
	for _, q := range questions {
		if q.flag != "" {
			if err := q.apply(q.flag); err != nil {
				return err
			}
			continue
		}
		if _, err := p.Ask(q.question, q.def, q.apply); err != nil {
			if errors.Is(err, ui.ErrNoInput) {
				return errors.New("init was aborted before every question was answered")
			}
			return err
		}
	}
	return nil
}

func setRewardAddress(cfg *config.Config) func(string) error {
	return func(s string) error {
		if _, err := config.ParseRewardAddress(s); err != nil {
			return err
		}
		cfg.Farmer.RewardAddress = strings.TrimSpace(s)
		return nil
	}
}

func setNodeName(cfg *config.Config) func(string) error {
	return func(s string) error {
		name, err := config.ParseNodeName(s)
		if err != nil {
			return err
		}
		cfg.Node.Name = name
		return nil
	}
}

func setFarmDir(cfg *config.Config) func(string) error {
	return func(s string) error {
		dir, err := config.ParseDirectory(s)
		if err != nil {
			return err
		}
		cfg.Farmer.FarmDirectory = dir
		return nil
	}
}

func setFarmSize(cfg *config.Config) func(string) error {
	return func(s string) error {
		n, err := config.ParseSize(s)
		if err != nil {
			return err
		}
		cfg.Farmer.FarmSize = config.FormatSize(n)
		return nil
	}
}

func setChain(cfg *config.Config) func(string) error {
	return func(s string) error {
		c, err := config.ParseChain(s)
		if err != nil {
			return err
		}
		cfg.Chain = c
		return nil
	}
}

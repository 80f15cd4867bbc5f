package cli

import (
	"errors"
	"os"

	"github.com/autonomys/pulsar/internal/config"
	"github.com/autonomys/pulsar/internal/ui"
	"github.com/spf13/cobra"
)

// pickable lists the commands offered when pulsar runs without one.
var pickable = []*cobra.Command{initCmd, farmCmd, wipeCmd, infoCmd, configCmd, openLogsCmd}

func runPicker(cmd *cobra.Command, args []string) error {
	if !ui.IsTerminal(os.Stdin) || !ui.IsTerminal(os.Stdout) {
		return cmd.Help()
	}

	items := make([]ui.PickerItem, 0, len(pickable))
	for _, c := range pickable {
		items = append(items, ui.PickerItem{Name: c.Name(), Description: c.Short})
	}
	choice, err := ui.Pick("What do you want to do?", items, cmd.InOrStdin(), cmd.OutOrStdout())
	if err != nil || choice == "" {
		return err
	}

	switch choice {
	case farmCmd.Name():
		if err := askFarmOptions(cmd); err != nil {
			return err
		}
		// Rotation is decided by the answer above.
		if err := setupLogger(!farmNoRotation); err != nil {
			return err
		}
	case configCmd.Name():
		configShow = true
	}

	for _, c := range pickable {
		if c.Name() == choice {
			c.SetContext(cmd.Context())
			return c.RunE(c, nil)
		}
	}
	return nil
}

func askFarmOptions(cmd *cobra.Command) error {
	p := ui.NewPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
	var err error
	if farmVerbose, err = p.Confirm("Do you want to initialize farmer in verbose mode?", false, config.ParseYesNo); err != nil {
		return noInputIsNo(err)
	}
	if farmNoRotation, err = p.Confirm("Do you want to disable rotation for logs?", false, config.ParseYesNo); err != nil {
		return noInputIsNo(err)
	}
	return nil
}

func noInputIsNo(err error) error {
	if errors.Is(err, ui.ErrNoInput) {
		return nil
	}
	return err
}

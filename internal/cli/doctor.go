package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/autonomys/pulsar/internal/branding"
	"github.com/autonomys/pulsar/internal/config"
	"github.com/autonomys/pulsar/internal/installer"
	"github.com/autonomys/pulsar/internal/instance"
	plog "github.com/autonomys/pulsar/internal/log"
	"github.com/autonomys/pulsar/internal/paths"
	"github.com/autonomys/pulsar/internal/platform"
	"github.com/autonomys/pulsar/internal/process"
	"github.com/autonomys/pulsar/internal/summary"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the pulsar installation",
	Long:  `Run diagnostic checks on the settings, executables, directories and farming state.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		d := &doctor{out: cmd.OutOrStdout()}
		cfg := d.checkConfig()
		d.checkBinaries()
		if cfg != nil {
			d.checkDirectories(cfg)
		}
		d.checkState()
		if d.problems > 0 {
			return fmt.Errorf("%d problem(s) found", d.problems)
		}
		return nil
	},
}

type doctor struct {
	out      io.Writer
	problems int
}

func (d *doctor) ok(format string, args ...any) {
	fmt.Fprintf(d.out, "  [ OK ] "+format+"\n", args...)
}

func (d *doctor) miss(format string, args ...any) {
	d.problems++
	fmt.Fprintf(d.out, "  [MISS] "+format+"\n", args...)
}

func (d *doctor) fail(format string, args ...any) {
	d.problems++
	fmt.Fprintf(d.out, "  [FAIL] "+format+"\n", args...)
}

func (d *doctor) warn(format string, args ...any) {
	fmt.Fprintf(d.out, "  [WARN] "+format+"\n", args...)
}

func (d *doctor) info(format string, args ...any) {
	fmt.Fprintf(d.out, "  [INFO] "+format+"\n", args...)
}

func (d *doctor) checkConfig() *config.Config {
	fmt.Fprintln(d.out, "Settings check:")
	path, err := config.Path()
	if err != nil {
		d.fail("cannot resolve settings path: %v", err)
		return nil
	}
	cfg, err := config.LoadFile(path)
	switch {
	case errors.Is(err, config.ErrNotFound):
		d.miss("%s not found (run `%s init`)", path, branding.CLIName())
		return nil
	case err != nil:
		d.fail("%v", err)
		return nil
	}
	d.ok("%s is valid (chain %s, farm size %s)", path, cfg.Chain, cfg.Farmer.FarmSize)
	return cfg
}

func (d *doctor) checkBinaries() {
	fmt.Fprintln(d.out, "Executables check:")
	binDir, err := paths.BinaryDir()
	if err != nil {
		d.fail("cannot resolve binary directory: %v", err)
		return
	}
	rec, err := installer.LoadRecord(binDir)
	if err != nil {
		d.warn("%v", err)
	}
	for _, b := range installer.Binaries {
		path, err := process.LookPath(b)
		if err != nil {
			d.miss("%s not found (run `%s install`)", b, branding.CLIName())
			continue
		}
		if tag := rec.Tag(b); tag != "" && filepath.Dir(path) == binDir {
			d.ok("%s found at %s (%s)", b, path, tag)
			continue
		}
		d.ok("%s found at %s", b, path)
	}
}

func (d *doctor) checkDirectories(cfg *config.Config) {
	fmt.Fprintln(d.out, "Directories check:")
	for _, dir := range []struct{ name, path string }{
		{"node", cfg.Node.Directory},
		{"farm", cfg.Farmer.FarmDirectory},
	} {
		info, err := os.Stat(dir.path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			d.info("%s directory %s will be created on the first farm run", dir.name, dir.path)
		case err != nil:
			d.fail("%s directory %s: %v", dir.name, dir.path, err)
		case !info.IsDir():
			d.fail("%s directory %s is not a directory", dir.name, dir.path)
		default:
			d.ok("%s directory %s", dir.name, dir.path)
		}
	}
}

func (d *doctor) checkState() {
	fmt.Fprintln(d.out, "Farming state check:")
	if lockPath, err := instance.Path(); err == nil {
		running, err := instance.IsRunning(lockPath)
		switch {
		case err != nil:
			d.warn("cannot check instance lock: %v", err)
		case running:
			d.info("a farm instance is running")
		default:
			d.ok("no farm instance is running")
		}
	}

	if summaryPath, err := summary.Path(); err == nil {
		s, err := summary.Read(summaryPath)
		switch {
		case errors.Is(err, summary.ErrNotFound):
			d.info("no farming summary yet")
		case err != nil:
			d.fail("%v (run `%s wipe --farmer` to reset it)", err, branding.CLIName())
		default:
			d.ok("summary: %d farmed block(s) in the first %d blocks", s.AuthoredCount, s.LastProcessedBlockNum)
		}
	}

	if logDir, err := paths.LogDir(); err == nil {
		if target, err := platform.ReadSymlinkTarget(filepath.Join(logDir, plog.LatestLink)); err == nil {
			d.ok("latest log: %s", filepath.Join(logDir, target))
		} else {
			d.info("no logs in %s yet", logDir)
		}
	}
}

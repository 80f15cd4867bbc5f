package wipe

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/autonomys/pulsar/internal/config"
	"github.com/autonomys/pulsar/internal/farmer"
	"github.com/autonomys/pulsar/internal/instance"
	"github.com/autonomys/pulsar/internal/node"
	"github.com/autonomys/pulsar/internal/summary"
	"go.uber.org/zap"
)

// ErrFarming is returned while a farm instance holds the lock.
var ErrFarming = errors.New("pulsar is farming right now, stop it before wiping")

// Options selects what to wipe. With neither Farmer nor Node set both are
// wiped.
type Options struct {
	Farmer bool
	Node   bool

	Out    io.Writer
	Logger *zap.Logger

	// Overrides for the default locations.
	SettingsPath string
	SummaryPath  string
	LockPath     string
}

// Result reports what was removed.
type Result struct {
	Node    bool
	Farm    bool
	Summary bool
}

// Wipe removes state according to opts. A missing settings file is not an
// error: nothing is known about the directories, so nothing is removed.
func Wipe(opts Options) (*Result, error) {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if err := opts.resolve(); err != nil {
		return nil, err
	}

	running, err := instance.IsRunning(opts.LockPath)
	if err != nil {
		return nil, err
	}
	if running {
		return nil, ErrFarming
	}

	cfg, err := config.LoadFile(opts.SettingsPath)
	if err != nil {
		opts.Logger.Debug("cannot wipe without settings", zap.Error(err))
		fmt.Fprintln(opts.Out, "Could not read your config. You must have a valid config in order to wipe. Aborting...")
		return &Result{}, nil
	}

	wipeNode, wipeFarm := opts.Node, opts.Farmer
	if !wipeNode && !wipeFarm {
		wipeNode, wipeFarm = true, true
	}

	res := &Result{}
	if wipeNode {
		if err := node.Wipe(cfg.Node.Directory); err != nil {
			return res, err
		}
		res.Node = true
		opts.Logger.Info("wiped node", zap.String("dir", cfg.Node.Directory))
		fmt.Fprintln(opts.Out, "Node is wiped!")
	}
	if wipeFarm {
		if err := farmer.Wipe(cfg.Farmer.FarmDirectory); err != nil {
			return res, err
		}
		res.Farm = true
		if err := summary.Delete(opts.SummaryPath); err != nil {
			return res, err
		}
		res.Summary = true
		opts.Logger.Info("wiped farm", zap.String("dir", cfg.Farmer.FarmDirectory), zap.String("summary", opts.SummaryPath))
		fmt.Fprintln(opts.Out, "Farmer is wiped!")
	}
	return res, nil
}

func (o *Options) resolve() error {
	var err error
	if o.SettingsPath == "" {
		if o.SettingsPath, err = config.Path(); err != nil {
			return err
		}
	}
	if o.SummaryPath == "" {
		if o.SummaryPath, err = summary.Path(); err != nil {
			return err
		}
	}
	if o.LockPath == "" {
		if o.LockPath, err = instance.Path(); err != nil {
			return err
		}
	}
	return nil
}

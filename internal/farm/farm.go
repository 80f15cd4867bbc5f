package farm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/autonomys/pulsar/internal/config"
	"github.com/autonomys/pulsar/internal/farmer"
	"github.com/autonomys/pulsar/internal/instance"
	"github.com/autonomys/pulsar/internal/node"
	"github.com/autonomys/pulsar/internal/process"
	"github.com/autonomys/pulsar/internal/summary"
	"github.com/autonomys/pulsar/internal/ui"
	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultSyncInterval   = time.Second
	defaultFollowInterval = 2 * time.Second
	defaultStopTimeout    = 2 * time.Minute
)

// Options configures Run.
type Options struct {
	Config *config.Config
	// Verbose streams node and farmer output instead of progress bars.
	Verbose bool
	Out     io.Writer
	// Interactive redraws progress bars in place.
	Interactive bool
	Logger      *zap.Logger
	// Signals delivers interrupts. The first one stops gracefully, the
	// second one kills the children.
	Signals <-chan os.Signal

	LockPath     string
	SummaryPath  string
	NodeBinary   string
	FarmerBinary string

	SyncInterval   time.Duration
	FollowInterval time.Duration
	StopTimeout    time.Duration
}

func (o *Options) defaults() error {
	if o.Out == nil {
		o.Out = os.Stdout
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.SyncInterval == 0 {
		o.SyncInterval = defaultSyncInterval
	}
	if o.FollowInterval == 0 {
		o.FollowInterval = defaultFollowInterval
	}
	if o.StopTimeout == 0 {
		o.StopTimeout = defaultStopTimeout
	}
	var err error
	if o.LockPath == "" {
		if o.LockPath, err = instance.Path(); err != nil {
			return err
		}
	}
	if o.SummaryPath == "" {
		if o.SummaryPath, err = summary.Path(); err != nil {
			return err
		}
	}
	return nil
}

// Run farms until ctx ends, an interrupt arrives, or a child exits.
func Run(ctx context.Context, opts Options) error {
	if err := opts.defaults(); err != nil {
		return err
	}
	cfg := opts.Config
	if cfg == nil {
		return errors.New("farm: no config")
	}
	logger := opts.Logger

	lock, err := instance.Acquire(opts.LockPath)
	if err != nil {
		return err
	}
	defer lock.Release()

	if limit, err := process.RaiseFileLimit(); err != nil {
		logger.Warn("could not raise open file limit", zap.Error(err))
	} else if limit > 0 {
		logger.Debug("open file limit", zap.Uint64("limit", limit))
	}

	rewardAddress, err := config.ParseRewardAddress(cfg.Farmer.RewardAddress)
	if err != nil {
		return err
	}
	pledged, err := cfg.Farmer.FarmSizeBytes()
	if err != nil {
		return err
	}

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()
	stopCtx, forceStop := context.WithCancel(context.Background())
	defer forceStop()
	go watchSignals(opts.Signals, opts.Out, cancelRun, forceStop, stopCtx.Done())

	var childOut io.Writer
	if opts.Verbose {
		childOut = opts.Out
	}

	fmt.Fprintln(opts.Out, "Starting node ...")
	n, err := node.Start(runCtx, cfg, node.Options{Logger: logger, Output: childOut, Binary: opts.NodeBinary})
	if err != nil {
		if runCtx.Err() != nil {
			return nil
		}
		return fmt.Errorf("starting node: %w", err)
	}
	fmt.Fprintln(opts.Out, "Node started successfully!")

	var f *farmer.Farmer
	defer func() {
		shutdown(stopCtx, opts, f, n)
	}()

	if cfg.Chain != config.ChainDev {
		if err := waitSynced(runCtx, n, opts); err != nil {
			if runCtx.Err() != nil {
				return nil
			}
			return fmt.Errorf("node syncing failed: %w", err)
		}
	}

	sum, err := summary.Open(opts.SummaryPath, &pledged)
	if err != nil {
		return fmt.Errorf("opening summary: %w", err)
	}
	current, err := sum.Parse()
	if err != nil {
		return err
	}

	tracker := farmer.NewPlottingTracker()
	if current.InitialPlottingFinished {
		tracker.MarkFinished()
	}

	fmt.Fprintln(opts.Out, "Starting farmer ...")
	f, err = farmer.Start(runCtx, cfg, cfg.Node.RPCURL(), farmer.Options{
		Logger:  logger,
		Output:  childOut,
		Binary:  opts.FarmerBinary,
		Tracker: tracker,
	})
	if err != nil {
		return fmt.Errorf("starting farmer: %w", err)
	}
	fmt.Fprintln(opts.Out, "Farmer started successfully!")

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		select {
		case <-n.Done():
			return fmt.Errorf("node exited unexpectedly: %v", n.Wait())
		case <-f.Done():
			return fmt.Errorf("farmer exited unexpectedly: %v", f.Wait())
		case <-gctx.Done():
			return nil
		}
	})
	if !opts.Verbose {
		g.Go(func() error {
			return watchPlotting(gctx, tracker, sum, pledged, opts)
		})
		scanner := &Scanner{
			Chain:         n.Client,
			Summary:       sum,
			RewardAddress: rewardAddress,
			Pruned:        n.Pruned(),
			Logger:        logger,
		}
		g.Go(func() error {
			return followBlocks(gctx, scanner, tracker, sum, opts)
		})
	}

	err = g.Wait()
	if runCtx.Err() != nil {
		// Interrupted; whatever the workers returned is a consequence.
		return nil
	}
	return err
}

func watchSignals(sigs <-chan os.Signal, out io.Writer, cancelRun, forceStop context.CancelFunc, done <-chan struct{}) {
	if sigs == nil {
		return
	}
	select {
	case <-sigs:
	case <-done:
		return
	}
	fmt.Fprintln(out, "\nWill try to gracefully exit the application now. Please wait for a couple of seconds... "+
		"If you press ctrl+c again, it will try to forcefully close the app!")
	cancelRun()

	select {
	case <-sigs:
		fmt.Fprintln(out, "\nForcefully closing the app!")
		forceStop()
	case <-done:
	}
}

// shutdown stops the farmer before the node. Canceling ctx kills both.
func shutdown(ctx context.Context, opts Options, f *farmer.Farmer, n *node.Node) {
	ctx, cancel := context.WithTimeout(ctx, opts.StopTimeout)
	defer cancel()

	if f != nil {
		if err := f.Stop(ctx); err != nil {
			opts.Logger.Warn("stopping farmer", zap.Error(err))
		}
	}
	if n != nil {
		if err := n.Stop(ctx); err != nil {
			opts.Logger.Warn("stopping node", zap.Error(err))
		}
	}
	if ctx.Err() == nil {
		fmt.Fprintln(opts.Out, "Gracefully closed the app!")
	}
}

func waitSynced(ctx context.Context, n *node.Node, opts Options) error {
	if opts.Verbose {
		return n.WaitSynced(ctx, opts.SyncInterval)
	}

	w := n.SubscribeSyncingProgress(ctx, opts.SyncInterval)
	var bar *ui.ProgressLine
	for p := range w.C {
		if bar == nil {
			bar = ui.NewProgressLine(opts.Out, "Syncing ", opts.Interactive)
		}
		bar.Update(p.Percent(), fmt.Sprintf("(%d/%d) %s", p.At, p.Target, p.Status))
	}
	if err := w.Err(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if bar != nil {
		bar.Done("Initial syncing is completed! Syncing will continue in the background...")
	}
	return nil
}

// watchPlotting shows plotting progress and records in the summary when
// initial plotting is done. The farmer may finish before this runs, so the
// summary decides whether there is anything left to report.
func watchPlotting(ctx context.Context, tracker *farmer.PlottingTracker, sum *summary.File, pledged uint64, opts Options) error {
	cur, err := sum.Parse()
	if err != nil {
		return err
	}
	if cur.InitialPlottingFinished {
		return nil
	}

	bar := ui.NewProgressLine(opts.Out, "Plotting", opts.Interactive)
	render := func() {
		p := tracker.Progress()
		plotted := uint64(float64(pledged) * p.Percent / 100)
		bar.Update(p.Percent/100, fmt.Sprintf("(%s/%s)", humanize.Bytes(plotted), humanize.Bytes(pledged)))
	}
	render()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tracker.Updates():
			render()
		case <-tracker.Finished():
			render()
			bar.Done("Initial plotting finished!")
			if _, err := sum.Update(summary.UpdateFields{PlottingFinished: true}); err != nil {
				return fmt.Errorf("updating summary: %w", err)
			}
			return nil
		}
	}
}

// followBlocks runs the batched catch-up scan, then keeps following the
// chain one block at a time and reports the authored count once plotting is
// done.
func followBlocks(ctx context.Context, s *Scanner, tracker *farmer.PlottingTracker, sum *summary.File, opts Options) error {
	if err := s.Scan(ctx, BatchBlocks, NTasks); err != nil {
		return scanErr(ctx, err)
	}

	ticker := time.NewTicker(opts.FollowInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		select {
		case <-tracker.Finished():
		default:
			continue
		}

		cur, err := sum.Parse()
		if err != nil {
			return err
		}
		fmt.Fprintf(opts.Out, "\rYou have farmed %d block(s). This data is derived from the first %d blocks.",
			cur.AuthoredCount, cur.LastProcessedBlockNum)
		if err := s.Scan(ctx, 1, 1); err != nil {
			return scanErr(ctx, err)
		}
	}
}

func scanErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return nil
	}
	return fmt.Errorf("processing blocks: %w", err)
}

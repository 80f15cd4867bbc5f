package farmer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"

	"github.com/autonomys/pulsar/internal/config"
	"github.com/autonomys/pulsar/internal/process"
	"go.uber.org/zap"
)

// BinaryName is the farmer executable installed by `pulsar install`.
const BinaryName = "subspace-farmer"

// Options tunes Start.
type Options struct {
	Logger *zap.Logger
	// Output receives the raw farmer output (verbose mode).
	Output io.Writer
	// Binary overrides the executable lookup.
	Binary string
	// Tracker, when set, is fed every output line.
	Tracker *PlottingTracker
}

// Farmer is a running subspace-farmer.
type Farmer struct {
	proc    *process.Process
	tracker *PlottingTracker
}

// Args builds the farmer command line.
func Args(cfg *config.Config, rpcURL string) ([]string, error) {
	size, err := cfg.Farmer.FarmSizeBytes()
	if err != nil {
		return nil, err
	}
	args := []string{
		"farm",
		"--reward-address", cfg.Farmer.RewardAddress,
		"--node-rpc-url", rpcURL,
	}
	if cfg.Farmer.CachePercentage > 0 {
		args = append(args, "--cache-percentage", strconv.Itoa(cfg.Farmer.CachePercentage))
	}
	args = append(args, fmt.Sprintf("path=%s,size=%d", cfg.Farmer.FarmDirectory, size))
	return args, nil
}

// Start launches the farmer connected to the node at rpcURL.
func Start(ctx context.Context, cfg *config.Config, rpcURL string, opts Options) (*Farmer, error) {
	args, err := Args(cfg, rpcURL)
	if err != nil {
		return nil, err
	}

	bin := opts.Binary
	if bin == "" {
		if bin, err = process.LookPath(BinaryName); err != nil {
			return nil, fmt.Errorf("%w; run `pulsar install` first", err)
		}
	}
	if err := os.MkdirAll(cfg.Farmer.FarmDirectory, 0755); err != nil {
		return nil, fmt.Errorf("creating farm directory: %w", err)
	}

	spec := process.Spec{
		Name:   "farmer",
		Path:   bin,
		Args:   args,
		Logger: opts.Logger,
		Output: opts.Output,
	}
	if opts.Tracker != nil {
		spec.Handlers = append(spec.Handlers, opts.Tracker.HandleLine)
	}

	proc, err := process.Start(ctx, spec)
	if err != nil {
		return nil, err
	}
	return &Farmer{proc: proc, tracker: opts.Tracker}, nil
}

// Tracker returns the plotting tracker given to Start, if any.
func (f *Farmer) Tracker() *PlottingTracker { return f.tracker }

// Done is closed when the farmer process exits.
func (f *Farmer) Done() <-chan struct{} { return f.proc.Done() }

// Wait returns the exit error of the farmer process.
func (f *Farmer) Wait() error { return f.proc.Wait() }

// Stop interrupts the farmer and kills it when ctx ends first.
func (f *Farmer) Stop(ctx context.Context) error { return f.proc.Stop(ctx) }

// Kill terminates the farmer immediately.
func (f *Farmer) Kill() error { return f.proc.Kill() }

// Wipe removes the farm directory. A missing directory is not an error.
func Wipe(dir string) error {
	if dir == "" {
		return errors.New("farm directory is not set")
	}
	if err := os.RemoveAll(dir); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing farm directory %s: %w", dir, err)
	}
	return nil
}

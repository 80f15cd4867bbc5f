package farm

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/autonomys/pulsar/internal/config"
	"github.com/autonomys/pulsar/internal/farmer"
	"github.com/autonomys/pulsar/internal/instance"
	"github.com/autonomys/pulsar/internal/node"
	"github.com/autonomys/pulsar/internal/process"
	"github.com/autonomys/pulsar/internal/summary"
	"github.com/autonomys/pulsar/internal/ui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const aliceAddress = "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY"

// syncBuffer is a bytes.Buffer safe for the concurrent writers in Run.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Farmer.RewardAddress = aliceAddress
	cfg.Farmer.FarmDirectory = filepath.Join(dir, "farm")
	cfg.Node.Directory = filepath.Join(dir, "node")
	cfg.Node.Name = "tester"
	return cfg
}

func testOptions(t *testing.T, cfg *config.Config, out *syncBuffer) Options {
	t.Helper()
	dir := t.TempDir()
	return Options{
		Config:       cfg,
		Out:          out,
		LockPath:     filepath.Join(dir, "pulsar.lock"),
		SummaryPath:  filepath.Join(dir, "summary.toml"),
		NodeBinary:   filepath.Join(dir, "does-not-exist"),
		FarmerBinary: filepath.Join(dir, "does-not-exist"),
	}
}

func TestRun_AlreadyRunning(t *testing.T) {
	out := &syncBuffer{}
	opts := testOptions(t, testConfig(t), out)

	lock, err := instance.Acquire(opts.LockPath)
	require.NoError(t, err)
	defer lock.Release()

	err = Run(context.Background(), opts)
	assert.ErrorIs(t, err, instance.ErrAlreadyRunning)
	assert.NotContains(t, out.String(), "Starting node")
}

func TestRun_InvalidRewardAddress(t *testing.T) {
	cfg := testConfig(t)
	cfg.Farmer.RewardAddress = "not-an-address"
	err := Run(context.Background(), testOptions(t, cfg, &syncBuffer{}))
	require.Error(t, err)
}

func TestRun_NodeBinaryMissing(t *testing.T) {
	out := &syncBuffer{}
	opts := testOptions(t, testConfig(t), out)

	err := Run(context.Background(), opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "starting node")
	assert.Contains(t, out.String(), "Starting node ...")

	// The lock is released on the way out.
	running, err := instance.IsRunning(opts.LockPath)
	require.NoError(t, err)
	assert.False(t, running)
}

func TestRun_NoConfig(t *testing.T) {
	opts := testOptions(t, testConfig(t), &syncBuffer{})
	opts.Config = nil
	assert.Error(t, Run(context.Background(), opts))
}

func TestWatchSignals(t *testing.T) {
	t.Run("first signal cancels, second forces", func(t *testing.T) {
		out := &syncBuffer{}
		sigs := make(chan os.Signal, 2)
		runCtx, cancelRun := context.WithCancel(context.Background())
		stopCtx, forceStop := context.WithCancel(context.Background())
		defer cancelRun()

		finished := make(chan struct{})
		go func() {
			watchSignals(sigs, out, cancelRun, forceStop, stopCtx.Done())
			close(finished)
		}()

		sigs <- os.Interrupt
		<-runCtx.Done()
		assert.NoError(t, stopCtx.Err())
		assert.Contains(t, out.String(), "gracefully exit")

		sigs <- os.Interrupt
		<-stopCtx.Done()
		<-finished
		assert.Contains(t, out.String(), "Forcefully closing")
	})

	t.Run("returns when done", func(t *testing.T) {
		done := make(chan struct{})
		finished := make(chan struct{})
		go func() {
			watchSignals(make(chan os.Signal), &syncBuffer{}, func() {}, func() {}, done)
			close(finished)
		}()
		close(done)
		<-finished
	})
}

func TestWatchPlotting(t *testing.T) {
	ui.SetColorEnabled(false)
	out := &syncBuffer{}
	sum := newSummary(t)
	tracker := farmer.NewPlottingTracker()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errc := make(chan error, 1)
	go func() {
		errc <- watchPlotting(ctx, tracker, sum, 10_000_000_000, Options{Out: out})
	}()

	tracker.HandleLine(process.Stdout, "Plotting sector (50.00% complete)")
	tracker.HandleLine(process.Stdout, "Initial plotting complete")

	select {
	case err := <-errc:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watchPlotting did not return")
	}

	got, err := sum.Parse()
	require.NoError(t, err)
	assert.True(t, got.InitialPlottingFinished)
	assert.Contains(t, out.String(), "Initial plotting finished!")
}

func TestWatchPlotting_AlreadyFinished(t *testing.T) {
	out := &syncBuffer{}
	sum := newSummary(t)
	_, err := sum.Update(summary.UpdateFields{PlottingFinished: true})
	require.NoError(t, err)
	tracker := farmer.NewPlottingTracker()
	tracker.MarkFinished()

	require.NoError(t, watchPlotting(context.Background(), tracker, sum, 1, Options{Out: out}))
	assert.Empty(t, out.String())
}

func TestWatchPlotting_FinishedBeforeWatching(t *testing.T) {
	ui.SetColorEnabled(false)
	out := &syncBuffer{}
	sum := newSummary(t)
	tracker := farmer.NewPlottingTracker()
	tracker.HandleLine(process.Stdout, "Initial plotting complete")

	require.NoError(t, watchPlotting(context.Background(), tracker, sum, 1, Options{Out: out}))

	got, err := sum.Parse()
	require.NoError(t, err)
	assert.True(t, got.InitialPlottingFinished)
	assert.Contains(t, out.String(), "Initial plotting finished!")
}

func TestFollowBlocks(t *testing.T) {
	chain := &fakeChain{best: 30, authored: map[node.BlockNumber]bool{4: true, 31: true}}
	sum := newSummary(t)
	s := &Scanner{Chain: chain, Summary: sum, RewardAddress: ours}
	tracker := farmer.NewPlottingTracker()
	tracker.MarkFinished()
	out := &syncBuffer{}

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		errc <- followBlocks(ctx, s, tracker, sum, Options{Out: out, FollowInterval: 10 * time.Millisecond})
	}()

	assert.Eventually(t, func() bool {
		return strings.Contains(out.String(), "You have farmed 1 block(s). This data is derived from the first 30 blocks.")
	}, 5*time.Second, 10*time.Millisecond)

	chain.setBest(31)
	assert.Eventually(t, func() bool {
		return strings.Contains(out.String(), "You have farmed 2 block(s). This data is derived from the first 31 blocks.")
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-errc)
}

func TestFollowBlocks_WaitsForPlotting(t *testing.T) {
	chain := &fakeChain{best: 5}
	sum := newSummary(t)
	s := &Scanner{Chain: chain, Summary: sum, RewardAddress: ours}
	out := &syncBuffer{}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	require.NoError(t, followBlocks(ctx, s, farmer.NewPlottingTracker(), sum, Options{Out: out, FollowInterval: 5 * time.Millisecond}))

	assert.NotContains(t, out.String(), "You have farmed")
	got, err := sum.Parse()
	require.NoError(t, err)
	assert.Equal(t, uint32(5), got.LastProcessedBlockNum, "catch-up scan runs while plotting")
}

func TestFollowBlocks_SummaryAhead(t *testing.T) {
	chain := &fakeChain{best: 1}
	sum := newSummary(t)
	_, err := sum.Update(summary.UpdateFields{NewParsedBlocks: 2})
	require.NoError(t, err)

	s := &Scanner{Chain: chain, Summary: sum, RewardAddress: ours}
	err = followBlocks(context.Background(), s, farmer.NewPlottingTracker(), sum, Options{Out: &syncBuffer{}, FollowInterval: time.Millisecond})
	assert.ErrorIs(t, err, ErrSummaryAhead)
}

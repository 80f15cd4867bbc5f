package farm

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/autonomys/pulsar/internal/config"
	"github.com/autonomys/pulsar/internal/instance"
	"github.com/autonomys/pulsar/internal/node"
	"github.com/autonomys/pulsar/internal/node/nodetest"
	"github.com/autonomys/pulsar/internal/summary"
	"github.com/autonomys/pulsar/internal/ui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	stubEnv           = "PULSAR_FARM_TEST_STUB"
	stubStopLogEnv    = "PULSAR_FARM_TEST_STOP_LOG"
	stubFarmerExitEnv = "PULSAR_FARM_TEST_FARMER_EXIT"
)

// runStub plays the node (args start with "run") or the farmer (args start
// with "farm"). Each appends its role to the stop log when interrupted. The
// farmer reports plotting done and, when asked to, exits right away.
func runStub(args []string) int {
	role := "node"
	if len(args) > 0 && args[0] == "farm" {
		role = "farmer"
	}
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	stopLog := os.Getenv(stubStopLogEnv)
	nodeReady := stopLog + ".node-ready"
	if role == "node" {
		if err := os.WriteFile(nodeReady, nil, 0644); err != nil {
			return 1
		}
	} else {
		// Only act once the node can take an interrupt.
		for deadline := time.Now().Add(10 * time.Second); time.Now().Before(deadline); time.Sleep(10 * time.Millisecond) {
			if _, err := os.Stat(nodeReady); err == nil {
				break
			}
		}
	}

	if role == "farmer" {
		fmt.Println("Plotting sector 0 (50.00% complete)")
		fmt.Println("Initial plotting complete")
		if code := os.Getenv(stubFarmerExitEnv); code != "" {
			n, _ := strconv.Atoi(code)
			return n
		}
	}

	<-sigs
	f, err := os.OpenFile(stopLog, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return 1
	}
	fmt.Fprintln(f, role)
	f.Close()
	return 0
}

// serveChain answers block queries for blocks 1..best. Block 1 pays
// rewardAddress, the others pay someone else.
func serveChain(t *testing.T, fake *nodetest.Server, best uint32) {
	t.Helper()
	alice, err := config.ParseRewardAddress(aliceAddress)
	require.NoError(t, err)

	header := func(n uint32) node.Header {
		h := node.Header{Number: node.BlockNumber(n)}
		reward := theirs
		if n == 1 {
			reward = alice
		}
		h.Digest.Logs = []string{node.EncodePreRuntimeItem(node.PreDigest{Slot: uint64(n), RewardAddress: reward}, nil)}
		return h
	}

	fake.Handle("chain_getBlockHash", func(params []json.RawMessage) (any, *nodetest.Error) {
		var n uint32
		if len(params) == 0 || json.Unmarshal(params[0], &n) != nil {
			return nil, &nodetest.Error{Code: -32602, Message: "invalid params"}
		}
		if n > best {
			return nil, nil
		}
		return fmt.Sprintf("0x%064x", n), nil
	})
	fake.Handle("chain_getHeader", func(params []json.RawMessage) (any, *nodetest.Error) {
		if len(params) == 0 {
			return header(best), nil
		}
		var hash string
		if err := json.Unmarshal(params[0], &hash); err != nil {
			return nil, &nodetest.Error{Code: -32602, Message: "invalid params"}
		}
		n, err := strconv.ParseUint(strings.TrimPrefix(hash, "0x"), 16, 32)
		if err != nil || uint32(n) > best {
			return nil, nil
		}
		return header(uint32(n)), nil
	})
}

// stubOptions runs this test binary as both children against a fake node
// serving two blocks. It returns the options and the stop log path.
func stubOptions(t *testing.T, out *syncBuffer) (Options, string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("children are stopped with an interrupt signal")
	}
	ui.SetColorEnabled(false)

	exe, err := os.Executable()
	require.NoError(t, err)
	stopLog := filepath.Join(t.TempDir(), "stopped")
	t.Setenv(stubEnv, "1")
	t.Setenv(stubStopLogEnv, stopLog)

	fake := nodetest.NewServer(t)
	serveChain(t, fake, 2)

	cfg := testConfig(t)
	cfg.Chain = config.ChainDev
	cfg.Node.RPCPort = fake.Port()

	opts := testOptions(t, cfg, out)
	opts.NodeBinary = exe
	opts.FarmerBinary = exe
	opts.FollowInterval = 20 * time.Millisecond
	opts.StopTimeout = 10 * time.Second
	return opts, stopLog
}

func waitRun(t *testing.T, errc <-chan error) error {
	t.Helper()
	select {
	case err := <-errc:
		return err
	case <-time.After(30 * time.Second):
		t.Fatal("Run did not return")
		return nil
	}
}

func TestRun_FarmsUntilInterrupted(t *testing.T) {
	out := &syncBuffer{}
	opts, stopLog := stubOptions(t, out)
	sigs := make(chan os.Signal, 2)
	opts.Signals = sigs

	errc := make(chan error, 1)
	go func() { errc <- Run(context.Background(), opts) }()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "You have farmed 1 block(s). This data is derived from the first 2 blocks.")
	}, 20*time.Second, 20*time.Millisecond, "output so far:\n%s", out.String())

	sigs <- os.Interrupt
	require.NoError(t, waitRun(t, errc))

	got := out.String()
	for _, line := range []string{
		"Starting node ...",
		"Node started successfully!",
		"Starting farmer ...",
		"Farmer started successfully!",
		"Initial plotting finished!",
		"Will try to gracefully exit the application now.",
	} {
		assert.Contains(t, got, line)
	}
	assert.True(t, strings.HasSuffix(strings.TrimSpace(got), "Gracefully closed the app!"), "output:\n%s", got)

	stopped, err := os.ReadFile(stopLog)
	require.NoError(t, err)
	assert.Equal(t, "farmer\nnode\n", string(stopped), "the farmer stops before the node")

	s, err := summary.Read(opts.SummaryPath)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), s.AuthoredCount)
	assert.Equal(t, uint32(2), s.LastProcessedBlockNum)
	assert.True(t, s.InitialPlottingFinished)

	running, err := instance.IsRunning(opts.LockPath)
	require.NoError(t, err)
	assert.False(t, running)
}

func TestRun_FarmerExitsUnexpectedly(t *testing.T) {
	out := &syncBuffer{}
	opts, stopLog := stubOptions(t, out)
	t.Setenv(stubFarmerExitEnv, "3")

	errc := make(chan error, 1)
	go func() { errc <- Run(context.Background(), opts) }()

	err := waitRun(t, errc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "farmer exited unexpectedly")

	stopped, readErr := os.ReadFile(stopLog)
	require.NoError(t, readErr)
	assert.Equal(t, "node\n", string(stopped), "the node is still stopped gracefully")
}

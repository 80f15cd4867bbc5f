package node

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/autonomys/pulsar/internal/config"
	"github.com/autonomys/pulsar/internal/process"
	"go.uber.org/zap"
)

// BinaryName is the node executable installed by `pulsar install`.
const BinaryName = "subspace-node"

// ErrCorruptedDB is returned when the node is missing blocks it should have.
var ErrCorruptedDB = errors.New("node database is probably corrupted, try wiping the node")

// Options tunes Start.
type Options struct {
	Logger *zap.Logger
	// Output receives the raw node output (verbose mode).
	Output io.Writer
	// Binary overrides the executable lookup.
	Binary string
	// ReadyTimeout bounds the wait for the RPC endpoint.
	ReadyTimeout time.Duration
}

// Node is a running subspace-node with a connected RPC client.
type Node struct {
	*Client

	proc   *process.Process
	logger *zap.Logger
	pruned bool
}

// Args builds the node command line from the settings.
func Args(cfg *config.Config) []string {
	args := []string{"run"}
	if cfg.Chain == config.ChainDev {
		args = append(args, "--dev")
	} else {
		args = append(args, "--chain", cfg.Chain)
	}
	args = append(args,
		"--base-path", cfg.Node.Directory,
		"--name", cfg.Node.Name,
		"--farmer",
		"--rpc-listen-on", fmt.Sprintf("127.0.0.1:%d", cfg.Node.RPCPort),
		"--listen-on", fmt.Sprintf("/ip4/0.0.0.0/tcp/%d", cfg.Node.P2PPort),
	)

	keys := make([]string, 0, len(cfg.Node.Extra))
	for k := range cfg.Node.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		flag := "--" + strings.ReplaceAll(strings.TrimPrefix(k, "--"), "_", "-")
		if v := cfg.Node.Extra[k]; v != "" && v != "true" {
			args = append(args, flag, v)
		} else {
			args = append(args, flag)
		}
	}
	return args
}

// Pruned reports whether the node is configured to discard old blocks, in
// which case missing blocks are expected.
func Pruned(cfg *config.Config) bool {
	for _, key := range []string{"blocks-pruning", "blocks_pruning"} {
		if v, ok := cfg.Node.Extra[key]; ok {
			if _, err := strconv.ParseUint(v, 10, 32); err == nil {
				return true
			}
		}
	}
	return false
}

// Start launches the node and waits until its RPC endpoint accepts
// connections.
func Start(ctx context.Context, cfg *config.Config, opts Options) (*Node, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	bin := opts.Binary
	if bin == "" {
		var err error
		if bin, err = process.LookPath(BinaryName); err != nil {
			return nil, fmt.Errorf("%w; run `pulsar install` first", err)
		}
	}
	if err := os.MkdirAll(cfg.Node.Directory, 0755); err != nil {
		return nil, fmt.Errorf("creating node directory: %w", err)
	}

	proc, err := process.Start(ctx, process.Spec{
		Name:   "node",
		Path:   bin,
		Args:   Args(cfg),
		Logger: logger,
		Output: opts.Output,
	})
	if err != nil {
		return nil, err
	}

	timeout := opts.ReadyTimeout
	if timeout == 0 {
		timeout = 2 * time.Minute
	}
	client, err := waitForRPC(ctx, proc, cfg.Node.RPCURL(), timeout, logger)
	if err != nil {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = proc.Stop(stopCtx)
		return nil, err
	}

	logger.Info("node started", zap.Int("pid", proc.Pid()), zap.String("rpc", cfg.Node.RPCURL()))
	return &Node{Client: client, proc: proc, logger: logger, pruned: Pruned(cfg)}, nil
}

func waitForRPC(ctx context.Context, proc *process.Process, url string, timeout time.Duration, logger *zap.Logger) (*Client, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		attemptCtx, attemptCancel := context.WithTimeout(ctx, 2*time.Second)
		client, err := Dial(attemptCtx, url, logger)
		attemptCancel()
		if err == nil {
			return client, nil
		}
		logger.Debug("node rpc not ready yet", zap.Error(err))

		select {
		case <-proc.Done():
			return nil, fmt.Errorf("node exited before its rpc endpoint came up: %v", proc.Wait())
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for node rpc at %s: %w", url, ctx.Err())
		case <-ticker.C:
		}
	}
}

// Pruned reports whether this node discards old blocks.
func (n *Node) Pruned() bool { return n.pruned }

// Done is closed when the node process exits.
func (n *Node) Done() <-chan struct{} { return n.proc.Done() }

// Wait returns the exit error of the node process.
func (n *Node) Wait() error { return n.proc.Wait() }

// Stop closes the RPC connection and stops the process, killing it when ctx
// ends first.
func (n *Node) Stop(ctx context.Context) error {
	_ = n.Client.Close()
	return n.proc.Stop(ctx)
}

// Kill terminates the node immediately.
func (n *Node) Kill() error {
	_ = n.Client.Close()
	return n.proc.Kill()
}

// Wipe removes the node directory. A missing directory is not an error.
func Wipe(dir string) error {
	if dir == "" {
		return errors.New("node directory is not set")
	}
	if err := os.RemoveAll(dir); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing node directory %s: %w", dir, err)
	}
	return nil
}

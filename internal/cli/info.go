package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/autonomys/pulsar/internal/branding"
	"github.com/autonomys/pulsar/internal/config"
	"github.com/autonomys/pulsar/internal/instance"
	"github.com/autonomys/pulsar/internal/node"
	"github.com/autonomys/pulsar/internal/summary"
	"github.com/autonomys/pulsar/internal/ui"
	"github.com/dustin/go-humanize"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const nodeInfoTimeout = 3 * time.Second

var (
	infoJSON  bool
	infoWatch bool
)

func init() {
	infoCmd.Flags().BoolVar(&infoJSON, "json", false, "Print the report as JSON")
	infoCmd.Flags().BoolVar(&infoWatch, "watch", false, "Print the report again whenever the farming summary changes")
	rootCmd.AddCommand(infoCmd)
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show farming status and the blocks you have farmed",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		summaryPath, err := summary.Path()
		if err != nil {
			return err
		}
		lockPath, err := instance.Path()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		out := cmd.OutOrStdout()
		show := func() error {
			r := buildInfoReport(ctx, cfg, summaryPath, lockPath)
			return printInfo(out, r, infoJSON)
		}
		if err := show(); err != nil {
			return err
		}
		if !infoWatch {
			return nil
		}
		return watchFile(ctx, summaryPath, show)
	},
}

type infoReport struct {
	Farming       bool           `json:"farming"`
	Chain         string         `json:"chain"`
	RewardAddress string         `json:"reward_address"`
	FarmDirectory string         `json:"farm_directory"`
	NodeDirectory string         `json:"node_directory"`
	Summary       *summaryReport `json:"summary,omitempty"`
	Node          *nodeReport    `json:"node,omitempty"`
}

type summaryReport struct {
	InitialPlottingFinished bool    `json:"initial_plotting_finished"`
	UserSpacePledged        uint64  `json:"user_space_pledged"`
	AuthoredCount           uint64  `json:"authored_count"`
	VoteCount               uint64  `json:"vote_count"`
	TotalRewards            string  `json:"total_rewards"`
	TotalRewardsSSC         float64 `json:"total_rewards_ssc"`
	LastProcessedBlockNum   uint32  `json:"last_processed_block_num"`
}

type nodeReport struct {
	Name           string `json:"name"`
	Version        string `json:"version"`
	Chain          string `json:"chain"`
	Peers          int    `json:"peers"`
	Syncing        bool   `json:"syncing"`
	BestBlock      uint32 `json:"best_block"`
	FinalizedBlock uint32 `json:"finalized_block"`
}

func buildInfoReport(ctx context.Context, cfg *config.Config, summaryPath, lockPath string) *infoReport {
	r := &infoReport{
		Chain:         cfg.Chain,
		RewardAddress: cfg.Farmer.RewardAddress,
		FarmDirectory: cfg.Farmer.FarmDirectory,
		NodeDirectory: cfg.Node.Directory,
	}

	running, err := instance.IsRunning(lockPath)
	if err != nil {
		logger.Debug("checking instance lock", zap.Error(err))
	}
	r.Farming = running

	if s, err := summary.Read(summaryPath); err == nil {
		r.Summary = &summaryReport{
			InitialPlottingFinished: s.InitialPlottingFinished,
			UserSpacePledged:        s.UserSpacePledged,
			AuthoredCount:           s.AuthoredCount,
			VoteCount:               s.VoteCount,
			TotalRewards:            s.TotalRewards.String(),
			TotalRewardsSSC:         s.TotalRewards.AsSSC(),
			LastProcessedBlockNum:   s.LastProcessedBlockNum,
		}
	} else if !errors.Is(err, summary.ErrNotFound) {
		logger.Warn("reading summary", zap.Error(err))
	}

	if running {
		r.Node = queryNode(ctx, cfg.Node.RPCURL())
	}
	return r
}

func queryNode(ctx context.Context, url string) *nodeReport {
	ctx, cancel := context.WithTimeout(ctx, nodeInfoTimeout)
	defer cancel()

	client, err := node.Dial(ctx, url, logger.Logger)
	if err != nil {
		logger.Debug("node is not reachable", zap.String("url", url), zap.Error(err))
		return nil
	}
	defer client.Close()

	info, err := client.Info(ctx)
	if err != nil {
		logger.Debug("querying node", zap.Error(err))
		return nil
	}
	return &nodeReport{
		Name:           info.Name,
		Version:        info.Version,
		Chain:          info.Chain,
		Peers:          info.Health.Peers,
		Syncing:        info.Health.IsSyncing,
		BestBlock:      uint32(info.BestBlock.Number),
		FinalizedBlock: uint32(info.FinalizedBlock.Number),
	}
}

func printInfo(w io.Writer, r *infoReport, asJSON bool) error {
	if asJSON {
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling info: %w", err)
		}
		fmt.Fprintln(w, string(data))
		return nil
	}

	status := ui.Yellow("not running")
	if r.Farming {
		status = ui.Green("running")
	}
	fmt.Fprintf(w, "%s %s\n", ui.Bold("Farmer:"), status)
	fmt.Fprintf(w, "  Chain:          %s\n", r.Chain)
	fmt.Fprintf(w, "  Reward address: %s\n", r.RewardAddress)
	fmt.Fprintf(w, "  Farm directory: %s\n", r.FarmDirectory)
	fmt.Fprintf(w, "  Node directory: %s\n", r.NodeDirectory)

	if s := r.Summary; s != nil {
		plotting := ui.Yellow("in progress")
		if s.InitialPlottingFinished {
			plotting = ui.Green("finished")
		}
		fmt.Fprintf(w, "%s\n", ui.Bold("Farming:"))
		fmt.Fprintf(w, "  Initial plotting: %s\n", plotting)
		fmt.Fprintf(w, "  Space pledged:    %s\n", humanize.Bytes(s.UserSpacePledged))
		fmt.Fprintf(w, "  Farmed blocks:    %s (derived from the first %s blocks)\n",
			humanize.Comma(int64(s.AuthoredCount)), humanize.Comma(int64(s.LastProcessedBlockNum)))
		fmt.Fprintf(w, "  Votes:            %s\n", humanize.Comma(int64(s.VoteCount)))
		fmt.Fprintf(w, "  Rewards:          %s SSC\n", humanize.FtoaWithDigits(s.TotalRewardsSSC, 4))
	} else {
		fmt.Fprintf(w, "No farming summary yet. Run `%s farm` to start.\n", branding.CLIName())
	}

	if n := r.Node; n != nil {
		syncing := "synced"
		if n.Syncing {
			syncing = "syncing"
		}
		fmt.Fprintf(w, "%s\n", ui.Bold("Node:"))
		fmt.Fprintf(w, "  %s %s on %s, %d peers, %s\n", n.Name, n.Version, n.Chain, n.Peers, syncing)
		fmt.Fprintf(w, "  Best block #%d, finalized #%d\n", n.BestBlock, n.FinalizedBlock)
	}
	return nil
}

// watchFile calls fn whenever path is written or replaced, until ctx ends.
// The parent directory is watched because the summary is replaced by
// rename.
func watchFile(ctx context.Context, path string, fn func() error) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer w.Close()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("file watcher", zap.Error(err))
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(path) || !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if err := fn(); err != nil {
				return err
			}
		}
	}
}

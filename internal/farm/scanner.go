package farm

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/autonomys/pulsar/internal/node"
	"github.com/autonomys/pulsar/internal/ss58"
	"github.com/autonomys/pulsar/internal/summary"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Batch sizes for the initial catch-up scan.
const (
	BatchBlocks = 1000
	NTasks      = 10
)

// ErrSummaryAhead is returned when the summary has processed more blocks
// than the node knows about, e.g. after the node was wiped but the summary
// was not.
var ErrSummaryAhead = errors.New("summary is ahead of the node, try wiping the summary file and restart")

// Chain is the part of the node RPC the scanner needs.
type Chain interface {
	BestBlockNumber(ctx context.Context) (node.BlockNumber, error)
	BlockHash(ctx context.Context, n node.BlockNumber) (string, bool, error)
	Header(ctx context.Context, hash string) (*node.Header, error)
}

// Scanner walks blocks the summary has not seen yet and counts those whose
// pre-digest pays the reward address.
type Scanner struct {
	Chain         Chain
	Summary       *summary.File
	RewardAddress ss58.PublicKey
	// Pruned tolerates blocks the node no longer has.
	Pruned bool
	Logger *zap.Logger
}

// Scan processes blocks from the summary's last processed block up to the
// node's best block, batchBlocks at a time with up to nTasks concurrent
// header fetches per batch. It re-reads the best block until caught up.
func (s *Scanner) Scan(ctx context.Context, batchBlocks, nTasks int) error {
	logger := s.logger()
	if batchBlocks < 1 {
		batchBlocks = 1
	}
	if nTasks < 1 {
		nTasks = 1
	}

	for {
		sum, err := s.Summary.Parse()
		if err != nil {
			return fmt.Errorf("parsing summary: %w", err)
		}
		last := node.BlockNumber(sum.LastProcessedBlockNum)

		best, err := s.Chain.BestBlockNumber(ctx)
		if err != nil {
			return fmt.Errorf("reading best block from node: %w", err)
		}
		if last > best {
			return fmt.Errorf("%w (summary at %d, node at %d)", ErrSummaryAhead, last, best)
		}
		if last == best {
			return nil
		}

		for from := last + 1; from <= best; {
			to := from + node.BlockNumber(batchBlocks) - 1
			if to > best || to < from {
				to = best
			}
			authored, err := s.scanRange(ctx, from, to, nTasks)
			if err != nil {
				return err
			}
			if _, err := s.Summary.Update(summary.UpdateFields{
				NewAuthoredCount: authored,
				NewParsedBlocks:  uint32(to - from + 1),
			}); err != nil {
				return fmt.Errorf("updating summary: %w", err)
			}
			logger.Debug("processed blocks",
				zap.Uint32("from", uint32(from)),
				zap.Uint32("to", uint32(to)),
				zap.Uint64("authored", authored))
			if to == best {
				break
			}
			from = to + 1
		}
	}
}

func (s *Scanner) scanRange(ctx context.Context, from, to node.BlockNumber, nTasks int) (uint64, error) {
	var authored atomic.Uint64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(nTasks)

	for n := from; n <= to && n >= from; n++ {
		g.Go(func() error {
			ok, err := s.isAuthor(gctx, n)
			if err != nil {
				return err
			}
			if ok {
				authored.Add(1)
			}
			return nil
		})
		if n == to {
			break
		}
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return authored.Load(), nil
}

func (s *Scanner) isAuthor(ctx context.Context, n node.BlockNumber) (bool, error) {
	hash, ok, err := s.Chain.BlockHash(ctx, n)
	if err != nil {
		return false, fmt.Errorf("getting hash of block %d: %w", n, err)
	}
	if !ok {
		if s.Pruned {
			return false, nil
		}
		return false, fmt.Errorf("block %d: %w", n, node.ErrCorruptedDB)
	}

	header, err := s.Chain.Header(ctx, hash)
	if err != nil {
		return false, fmt.Errorf("getting header of block %d: %w", n, err)
	}
	if header == nil {
		if s.Pruned {
			return false, nil
		}
		return false, fmt.Errorf("block %d: %w", n, node.ErrCorruptedDB)
	}

	pd, err := header.PreDigest()
	if err != nil {
		if !errors.Is(err, node.ErrNoPreDigest) {
			s.logger().Warn("skipping block with unreadable pre-digest", zap.Uint32("block", uint32(n)), zap.Error(err))
		}
		return false, nil
	}
	return pd.RewardAddress.Equal(s.RewardAddress), nil
}

func (s *Scanner) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

package node

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Name returns the node implementation name (system_name).
func (c *Client) Name(ctx context.Context) (string, error) {
	var s string
	return s, c.Call(ctx, "system_name", &s)
}

// Version returns the node version (system_version).
func (c *Client) Version(ctx context.Context) (string, error) {
	var s string
	return s, c.Call(ctx, "system_version", &s)
}

// ChainName returns the chain the node runs (system_chain).
func (c *Client) ChainName(ctx context.Context) (string, error) {
	var s string
	return s, c.Call(ctx, "system_chain", &s)
}

// Health returns system_health.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var h Health
	return h, c.Call(ctx, "system_health", &h)
}

// SyncState returns system_syncState.
func (c *Client) SyncState(ctx context.Context) (SyncState, error) {
	var s SyncState
	return s, c.Call(ctx, "system_syncState", &s)
}

// BlockHash returns the hash of block n. ok is false when the node does not
// have the block, which happens for pruned or not yet imported blocks.
func (c *Client) BlockHash(ctx context.Context, n BlockNumber) (hash string, ok bool, err error) {
	var h *string
	if err := c.Call(ctx, "chain_getBlockHash", &h, uint32(n)); err != nil {
		return "", false, err
	}
	if h == nil || *h == "" {
		return "", false, nil
	}
	return *h, true, nil
}

// Header returns the header of the block with the given hash, or nil when
// the node does not have it.
func (c *Client) Header(ctx context.Context, hash string) (*Header, error) {
	var h *Header
	if err := c.Call(ctx, "chain_getHeader", &h, hash); err != nil {
		return nil, err
	}
	return h, nil
}

// BestHeader returns the header of the best block.
func (c *Client) BestHeader(ctx context.Context) (*Header, error) {
	var h *Header
	if err := c.Call(ctx, "chain_getHeader", &h); err != nil {
		return nil, err
	}
	if h == nil {
		return nil, errors.New("node returned no best header")
	}
	return h, nil
}

// BestBlockNumber returns the height of the best block.
func (c *Client) BestBlockNumber(ctx context.Context) (BlockNumber, error) {
	h, err := c.BestHeader(ctx)
	if err != nil {
		return 0, err
	}
	return h.Number, nil
}

// FinalizedHead returns the hash of the last finalized block.
func (c *Client) FinalizedHead(ctx context.Context) (string, error) {
	var s string
	return s, c.Call(ctx, "chain_getFinalizedHead", &s)
}

// Info gathers the values shown by the info command.
func (c *Client) Info(ctx context.Context) (*Info, error) {
	var (
		info Info
		err  error
	)
	if info.Name, err = c.Name(ctx); err != nil {
		return nil, err
	}
	if info.Version, err = c.Version(ctx); err != nil {
		return nil, err
	}
	if info.Chain, err = c.ChainName(ctx); err != nil {
		return nil, err
	}
	if info.Health, err = c.Health(ctx); err != nil {
		return nil, err
	}

	genesis, ok, err := c.BlockHash(ctx, 0)
	if err != nil {
		return nil, err
	}
	if ok {
		info.GenesisHash = genesis
	}

	best, err := c.BestHeader(ctx)
	if err != nil {
		return nil, err
	}
	info.BestBlock.Number = best.Number
	if hash, ok, err := c.BlockHash(ctx, best.Number); err != nil {
		return nil, err
	} else if ok {
		info.BestBlock.Hash = hash
	}

	finalized, err := c.FinalizedHead(ctx)
	if err != nil {
		return nil, err
	}
	info.FinalizedBlock.Hash = finalized
	if h, err := c.Header(ctx, finalized); err != nil {
		return nil, err
	} else if h != nil {
		info.FinalizedBlock.Number = h.Number
	}
	return &info, nil
}

// HeadSubscription delivers new best headers.
type HeadSubscription struct {
	sub *Subscription
	C   <-chan *Header
}

// SubscribeNewHeads subscribes to chain_subscribeNewHeads.
func (c *Client) SubscribeNewHeads(ctx context.Context) (*HeadSubscription, error) {
	sub, err := c.Subscribe(ctx, "chain_subscribeNewHeads", "chain_unsubscribeNewHeads")
	if err != nil {
		return nil, err
	}
	out := make(chan *Header, subscriptionBuffer)
	go func() {
		defer close(out)
		for raw := range sub.C() {
			h, err := decodeHeader(raw)
			if err != nil {
				c.logger.Warn("dropping undecodable header", zap.Error(err))
				continue
			}
			select {
			case out <- h:
			default:
				c.logger.Warn("header consumer is behind, dropping header", zap.Uint32("number", uint32(h.Number)))
			}
		}
	}()
	return &HeadSubscription{sub: sub, C: out}, nil
}

// Err reports why the subscription ended.
func (s *HeadSubscription) Err() error { return s.sub.Err() }

// Unsubscribe ends the subscription; C is closed afterwards.
func (s *HeadSubscription) Unsubscribe(ctx context.Context) error {
	return s.sub.Unsubscribe(ctx)
}

// SyncWatcher reports sync progress until the node is caught up.
type SyncWatcher struct {
	C <-chan SyncingProgress

	done chan struct{}
	err  error
}

// Err returns the error that stopped the watcher. It blocks until C is
// closed.
func (w *SyncWatcher) Err() error {
	<-w.done
	return w.err
}

// SubscribeSyncingProgress polls the node every interval and sends its sync
// position on the returned watcher's channel. The channel is closed once the
// node reports it is synced, or when ctx ends. A node that is already synced
// closes the channel without sending anything.
func (c *Client) SubscribeSyncingProgress(ctx context.Context, interval time.Duration) *SyncWatcher {
	out := make(chan SyncingProgress, 1)
	w := &SyncWatcher{C: out, done: make(chan struct{})}

	go func() {
		defer close(w.done)
		defer close(out)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			p, err := c.syncingProgress(ctx)
			if err != nil {
				if ctx.Err() == nil {
					w.err = fmt.Errorf("reading sync state: %w", err)
				}
				return
			}
			if p.Status == StatusSynced {
				return
			}
			select {
			case out <- p:
			case <-ctx.Done():
				return
			}
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()
	return w
}

func (c *Client) syncingProgress(ctx context.Context) (SyncingProgress, error) {
	health, err := c.Health(ctx)
	if err != nil {
		return SyncingProgress{}, err
	}
	state, err := c.SyncState(ctx)
	if err != nil {
		return SyncingProgress{}, err
	}

	p := SyncingProgress{At: state.CurrentBlock, Target: state.HighestBlock}
	switch {
	case health.ShouldHavePeers && health.Peers == 0:
		p.Status = StatusConnecting
	case health.IsSyncing || state.CurrentBlock < state.HighestBlock:
		p.Status = StatusSyncing
	default:
		p.Status = StatusSynced
	}
	return p, nil
}

// WaitSynced blocks until the node is synced.
func (c *Client) WaitSynced(ctx context.Context, interval time.Duration) error {
	w := c.SubscribeSyncingProgress(ctx, interval)
	for range w.C {
	}
	if err := w.Err(); err != nil {
		return err
	}
	return ctx.Err()
}

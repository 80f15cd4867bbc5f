package node

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// BlockNumber is a block height. The node encodes it as a hex string in
// headers and as a plain number elsewhere; both forms are accepted.
type BlockNumber uint32

// UnmarshalJSON implements json.Unmarshaler.
func (b *BlockNumber) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*b = 0
		return nil
	}
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s = s[2:]
		base = 16
	}
	n, err := strconv.ParseUint(s, base, 32)
	if err != nil {
		return fmt.Errorf("parsing block number %s: %w", data, err)
	}
	*b = BlockNumber(n)
	return nil
}

// MarshalJSON encodes the number the way the node does in headers.
func (b BlockNumber) MarshalJSON() ([]byte, error) {
	return json.Marshal(fmt.Sprintf("0x%x", uint32(b)))
}

// Header is a block header as returned by chain_getHeader.
type Header struct {
	ParentHash     string      `json:"parentHash"`
	Number         BlockNumber `json:"number"`
	StateRoot      string      `json:"stateRoot"`
	ExtrinsicsRoot string      `json:"extrinsicsRoot"`
	Digest         struct {
		Logs []string `json:"logs"`
	} `json:"digest"`
}

func decodeHeader(raw json.RawMessage) (*Header, error) {
	var h Header
	if err := json.Unmarshal(raw, &h); err != nil {
		return nil, fmt.Errorf("decoding header: %w", err)
	}
	return &h, nil
}

// Health is the result of system_health.
type Health struct {
	Peers           int  `json:"peers"`
	IsSyncing       bool `json:"isSyncing"`
	ShouldHavePeers bool `json:"shouldHavePeers"`
}

// SyncState is the result of system_syncState.
type SyncState struct {
	StartingBlock BlockNumber `json:"startingBlock"`
	CurrentBlock  BlockNumber `json:"currentBlock"`
	HighestBlock  BlockNumber `json:"highestBlock"`
}

// BlockRef identifies a block by number and hash.
type BlockRef struct {
	Number BlockNumber `json:"number"`
	Hash   string      `json:"hash"`
}

// Info summarizes the node for the info command.
type Info struct {
	Name           string   `json:"name"`
	Version        string   `json:"version"`
	Chain          string   `json:"chain"`
	GenesisHash    string   `json:"genesis_hash"`
	BestBlock      BlockRef `json:"best_block"`
	FinalizedBlock BlockRef `json:"finalized_block"`
	Health         Health   `json:"health"`
}

// SyncStatus describes what the node is doing while catching up.
type SyncStatus string

const (
	StatusConnecting SyncStatus = "connecting"
	StatusSyncing    SyncStatus = "syncing"
	StatusSynced     SyncStatus = "synced"
)

// SyncingProgress is one sample of the node's sync position.
type SyncingProgress struct {
	At     BlockNumber
	Target BlockNumber
	Status SyncStatus
}

// Percent returns At/Target in [0,1].
func (p SyncingProgress) Percent() float64 {
	if p.Target == 0 || p.At >= p.Target {
		return 1
	}
	return float64(p.At) / float64(p.Target)
}

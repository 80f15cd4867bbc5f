package node

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/autonomys/pulsar/internal/ss58"
)

const (
	digestPreRuntime = 0x06
	preDigestV0      = 0x00
	// Version byte, slot, public key, reward address.
	preDigestMinLen = 1 + 8 + 32 + 32
)

// SubspaceEngineID tags digest items produced by Subspace consensus.
var SubspaceEngineID = [4]byte{'S', 'U', 'B', '_'}

// ErrNoPreDigest is returned when a header has no Subspace pre-runtime digest.
var ErrNoPreDigest = errors.New("header has no subspace pre-digest")

// PreDigest is the part of the Subspace pre-runtime digest pulsar cares
// about: who produced the solution and who gets the reward.
type PreDigest struct {
	Slot          uint64
	PublicKey     ss58.PublicKey
	RewardAddress ss58.PublicKey
}

// PreDigest finds and decodes the Subspace pre-runtime digest of h.
func (h *Header) PreDigest() (*PreDigest, error) {
	for _, item := range h.Digest.Logs {
		raw, err := hex.DecodeString(strings.TrimPrefix(item, "0x"))
		if err != nil {
			return nil, fmt.Errorf("decoding digest item: %w", err)
		}
		engine, payload, ok, err := splitPreRuntime(raw)
		if err != nil {
			return nil, err
		}
		if !ok || engine != SubspaceEngineID {
			continue
		}
		return decodePreDigest(payload)
	}
	return nil, ErrNoPreDigest
}

// splitPreRuntime decodes a SCALE DigestItem and returns the engine id and
// payload when it is a PreRuntime item.
func splitPreRuntime(raw []byte) (engine [4]byte, payload []byte, ok bool, err error) {
	if len(raw) == 0 || raw[0] != digestPreRuntime {
		return engine, nil, false, nil
	}
	if len(raw) < 5 {
		return engine, nil, false, errors.New("truncated pre-runtime digest")
	}
	copy(engine[:], raw[1:5])

	n, size, err := decodeCompact(raw[5:])
	if err != nil {
		return engine, nil, false, fmt.Errorf("decoding digest length: %w", err)
	}
	start := 5 + size
	if uint64(len(raw)-start) < n {
		return engine, nil, false, errors.New("truncated pre-runtime digest payload")
	}
	return engine, raw[start : start+int(n)], true, nil
}

func decodePreDigest(payload []byte) (*PreDigest, error) {
	if len(payload) < preDigestMinLen {
		return nil, fmt.Errorf("pre-digest too short: %d bytes", len(payload))
	}
	if payload[0] != preDigestV0 {
		return nil, fmt.Errorf("unsupported pre-digest version %d", payload[0])
	}
	d := &PreDigest{Slot: binary.LittleEndian.Uint64(payload[1:9])}
	copy(d.PublicKey[:], payload[9:41])
	copy(d.RewardAddress[:], payload[41:73])
	return d, nil
}

// decodeCompact reads a SCALE compact integer and returns it with the number
// of bytes consumed.
func decodeCompact(b []byte) (uint64, int, error) {
	if len(b) == 0 {
		return 0, 0, errors.New("empty compact integer")
	}
	switch b[0] & 0b11 {
	case 0b00:
		return uint64(b[0] >> 2), 1, nil
	case 0b01:
		if len(b) < 2 {
			return 0, 0, errors.New("truncated compact integer")
		}
		return uint64(binary.LittleEndian.Uint16(b) >> 2), 2, nil
	case 0b10:
		if len(b) < 4 {
			return 0, 0, errors.New("truncated compact integer")
		}
		return uint64(binary.LittleEndian.Uint32(b) >> 2), 4, nil
	default:
		n := int(b[0]>>2) + 4
		if n > 8 {
			return 0, 0, fmt.Errorf("compact integer of %d bytes overflows uint64", n)
		}
		if len(b) < 1+n {
			return 0, 0, errors.New("truncated compact integer")
		}
		var v uint64
		for i := n; i >= 1; i-- {
			v = v<<8 | uint64(b[i])
		}
		return v, 1 + n, nil
	}
}

// encodeCompact is the inverse of decodeCompact for values below 2^30.
func encodeCompact(v uint64) []byte {
	switch {
	case v < 1<<6:
		return []byte{byte(v << 2)}
	case v < 1<<14:
		out := make([]byte, 2)
		binary.LittleEndian.PutUint16(out, uint16(v<<2)|0b01)
		return out
	default:
		out := make([]byte, 4)
		binary.LittleEndian.PutUint32(out, uint32(v<<2)|0b10)
		return out
	}
}

// EncodePreRuntimeItem builds the hex digest log for a Subspace pre-digest
// from its leading fields followed by tail.
func EncodePreRuntimeItem(d PreDigest, tail []byte) string {
	payload := make([]byte, 0, preDigestMinLen+len(tail))
	payload = append(payload, preDigestV0)
	payload = binary.LittleEndian.AppendUint64(payload, d.Slot)
	payload = append(payload, d.PublicKey[:]...)
	payload = append(payload, d.RewardAddress[:]...)
	payload = append(payload, tail...)

	item := []byte{digestPreRuntime}
	item = append(item, SubspaceEngineID[:]...)
	item = append(item, encodeCompact(uint64(len(payload)))...)
	item = append(item, payload...)
	return "0x" + hex.EncodeToString(item)
}

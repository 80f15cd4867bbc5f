// Package ss58 decodes and encodes Substrate SS58 account addresses, the
// format farmers use for their reward address.
package ss58

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"
)

// SubspacePrefix is the network identifier of Subspace addresses ("st...").
const SubspacePrefix uint16 = 2254

// GenericPrefix is the generic Substrate identifier ("5...").
const GenericPrefix uint16 = 42

const (
	keyLen      = 32
	checksumLen = 2
	maxPrefix   = 16383
)

var checksumPreimage = []byte("SS58PRE")

var (
	// ErrChecksum is returned when the trailing checksum does not match.
	ErrChecksum = errors.New("ss58: invalid checksum")
	// ErrLength is returned when the payload is not a 32-byte account.
	ErrLength = errors.New("ss58: invalid address length")
	// ErrPrefix is returned for reserved or out of range prefixes.
	ErrPrefix = errors.New("ss58: invalid prefix")
)

// PublicKey is a 32-byte sr25519 account key.
type PublicKey [keyLen]byte

// Equal reports whether both keys are identical.
func (k PublicKey) Equal(other PublicKey) bool {
	return bytes.Equal(k[:], other[:])
}

// String renders the key as a Subspace address.
func (k PublicKey) String() string {
	s, err := Encode(k, SubspacePrefix)
	if err != nil {
		return fmt.Sprintf("%x", k[:])
	}
	return s
}

// Decode parses an SS58 address and returns the account key and the network
// prefix it was encoded with.
func Decode(address string) (PublicKey, uint16, error) {
	var key PublicKey

	data, err := base58.Decode(address)
	if err != nil {
		return key, 0, fmt.Errorf("ss58: decoding base58: %w", err)
	}
	if len(data) < 1 {
		return key, 0, ErrLength
	}

	prefix, prefixLen, err := decodePrefix(data)
	if err != nil {
		return key, 0, err
	}
	if len(data) != prefixLen+keyLen+checksumLen {
		return key, 0, ErrLength
	}

	body := data[:len(data)-checksumLen]
	sum := checksum(body)
	if !bytes.Equal(sum[:checksumLen], data[len(data)-checksumLen:]) {
		return key, 0, ErrChecksum
	}

	copy(key[:], data[prefixLen:prefixLen+keyLen])
	return key, prefix, nil
}

// Encode renders key as an SS58 address with the given network prefix.
func Encode(key PublicKey, prefix uint16) (string, error) {
	var buf []byte
	switch {
	case prefix < 64:
		buf = append(buf, byte(prefix))
	case prefix <= maxPrefix:
		first := byte((prefix&0b0000_0000_1111_1100)>>2) | 0b0100_0000
		second := byte(prefix>>8) | byte((prefix&0b0000_0000_0000_0011)<<6)
		buf = append(buf, first, second)
	default:
		return "", ErrPrefix
	}
	buf = append(buf, key[:]...)
	sum := checksum(buf)
	buf = append(buf, sum[:checksumLen]...)
	return base58.Encode(buf), nil
}

func decodePrefix(data []byte) (uint16, int, error) {
	switch {
	case data[0] < 64:
		return uint16(data[0]), 1, nil
	case data[0] < 128:
		if len(data) < 2 {
			return 0, 0, ErrLength
		}
		lower := (data[0] << 2) | (data[1] >> 6)
		upper := data[1] & 0b0011_1111
		return uint16(lower) | uint16(upper)<<8, 2, nil
	default:
		return 0, 0, ErrPrefix
	}
}

func checksum(body []byte) [blake2b.Size]byte {
	h := make([]byte, 0, len(checksumPreimage)+len(body))
	h = append(h, checksumPreimage...)
	h = append(h, body...)
	return blake2b.Sum512(h)
}

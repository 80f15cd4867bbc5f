package ss58

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Well-known development account "Alice".
const (
	aliceAddress = "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY"
	aliceKeyHex  = "d43593c715fdd31c61141abd04a99fd6822c8558854ccde39a5684e7a56da27d"
)

func aliceKey(t *testing.T) PublicKey {
	t.Helper()
	raw, err := hex.DecodeString(aliceKeyHex)
	require.NoError(t, err)
	var k PublicKey
	copy(k[:], raw)
	return k
}

func TestDecode_KnownAddress(t *testing.T) {
	key, prefix, err := Decode(aliceAddress)
	require.NoError(t, err)
	assert.Equal(t, GenericPrefix, prefix)
	assert.Equal(t, aliceKey(t), key)
}

func TestEncode_KnownAddress(t *testing.T) {
	addr, err := Encode(aliceKey(t), GenericPrefix)
	require.NoError(t, err)
	assert.Equal(t, aliceAddress, addr)
}

func TestRoundTrip_SubspacePrefix(t *testing.T) {
	key := aliceKey(t)
	addr, err := Encode(key, SubspacePrefix)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(addr, "st"), "subspace addresses start with st, got %s", addr)

	decoded, prefix, err := Decode(addr)
	require.NoError(t, err)
	assert.Equal(t, SubspacePrefix, prefix)
	assert.True(t, decoded.Equal(key))
	assert.Equal(t, addr, key.String())
}

func TestDecode_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		address string
	}{
		{"garbage", "sdjhfskjfhdksjhfsfhskjskdjhfdsfjhk"},
		{"not base58", "0OIl"},
		{"empty", ""},
		{"truncated", aliceAddress[:len(aliceAddress)-4]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Decode(tt.address)
			assert.Error(t, err)
		})
	}
}

func TestDecode_BadChecksum(t *testing.T) {
	raw := []byte(aliceAddress)
	raw[10] = swapChar(raw[10])
	_, _, err := Decode(string(raw))
	assert.ErrorIs(t, err, ErrChecksum)
}

func TestEncode_PrefixOutOfRange(t *testing.T) {
	_, err := Encode(aliceKey(t), 20000)
	assert.ErrorIs(t, err, ErrPrefix)
}

func swapChar(c byte) byte {
	if c == 'a' {
		return 'b'
	}
	return 'a'
}

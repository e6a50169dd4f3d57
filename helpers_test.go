package oracles

import (
	"encoding/hex"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

var yellowSubmarine = []byte("yellow submarine")

// Prefix lengths around the block boundaries of AES.
var prefixLens = []int{0, 1, 15, 16, 17, 31, 32}

func decodeHex(t *testing.T, h string) []byte {
	x, err := hex.DecodeString(h)
	require.NoError(t, err)
	return x
}

func seededBytes(r *rand.Rand, n int) []byte {
	b := make([]byte, n)
	r.Read(b)
	return b
}

// newTestECBOracle returns an ECB oracle with a key and prefix drawn from a
// source seeded with prefixLen, so every run sees the same oracle.
func newTestECBOracle(t *testing.T, prefixLen int, suffix []byte) EncryptFunc {
	r := rand.New(rand.NewSource(int64(prefixLen) + 1))
	oracle, err := NewECBOracle(seededBytes(r, 16), seededBytes(r, prefixLen), suffix)
	require.NoError(t, err)
	return oracle
}

func newTestCBCOracle(t *testing.T, prefixLen int, suffix []byte) EncryptFunc {
	r := rand.New(rand.NewSource(int64(prefixLen) + 1))
	oracle, err := NewCBCOracle(seededBytes(r, 16), seededBytes(r, 16), seededBytes(r, prefixLen), suffix)
	require.NoError(t, err)
	return oracle
}

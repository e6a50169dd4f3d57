package oracles

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rollin = `Um9sbGluJyBpbiBteSA1LjAKV2l0aCBteSByYWctdG9wIGRvd24gc28gbXkg
aGFpciBjYW4gYmxvdwpUaGUgZ2lybGllcyBvbiBzdGFuZGJ5IHdhdmluZyBq
dXN0IHRvIHNheSBoaQpEaWQgeW91IHN0b3A/IE5vLCBJIGp1c3QgZHJvdmUg
YnkK`

func rollinSecret(t *testing.T) []byte {
	secret, err := base64.StdEncoding.DecodeString(rollin)
	require.NoError(t, err)
	return secret
}

func TestRecoverSuffixGolden(t *testing.T) {
	oracle, err := NewECBOracle(yellowSubmarine, nil, []byte("hello world"))
	require.NoError(t, err)

	got, err := RecoverSuffix(oracle, 16, 0)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(got))
}

func TestRecoverSuffix(t *testing.T) {
	r := rand.New(rand.NewSource(12))
	suffixes := [][]byte{
		nil,
		[]byte("a"),
		[]byte("fifteen bytes!!"),
		[]byte("sixteen bytes!!!"),
		[]byte("seventeen bytes!!"),
		[]byte("ends in a real pad byte\x01"),
		[]byte("ends in two\x02\x02"),
		seededBytes(r, 40),
	}
	for _, suffix := range suffixes {
		for _, p := range prefixLens {
			t.Run(fmt.Sprintf("%d byte suffix prefix %d", len(suffix), p), func(t *testing.T) {
				got, err := RecoverSuffix(newTestECBOracle(t, p, suffix), 16, p)
				require.NoError(t, err)
				assert.Equal(t, string(suffix), string(got))
			})
		}
	}
}

func TestRecoverSuffixLongSecret(t *testing.T) {
	secret := rollinSecret(t)
	got, err := RecoverSuffix(newTestECBOracle(t, 17, secret), 16, 17)
	require.NoError(t, err)
	assert.Equal(t, string(secret), string(got))
	assert.True(t, bytes.HasPrefix(got, []byte("Rollin' in my 5.0")))
}

func TestFragmentDictRejectsCollisions(t *testing.T) {
	constant := func([]byte) ([]byte, error) {
		return make([]byte, 16), nil
	}
	_, err := fragmentDict(constant, 16, 0, nil)
	require.ErrorIs(t, err, ErrAmbiguous)
}

func TestRecoverSuffixNonDeterministicOracle(t *testing.T) {
	// Every call answers differently, so the target block never matches.
	calls := 0
	counter := func([]byte) ([]byte, error) {
		calls++
		out := make([]byte, 16)
		out[0], out[1] = byte(calls), byte(calls>>8)
		return out, nil
	}
	_, err := RecoverSuffix(counter, 16, 0)
	require.ErrorIs(t, err, ErrAmbiguous)
	assert.Equal(t, PhaseRecover, Phase(err))
}

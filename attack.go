package oracles

import (
	"crypto/aes"
	"io"
	"log"
)

// DefaultMaxQueries is the query budget used when Attack.MaxQueries is zero.
const DefaultMaxQueries = 1 << 24

var discard = log.New(io.Discard, "", 0)

// Attack runs the ECB and CBC oracle attacks end to end. The zero value is
// ready to use. An Attack is not safe for concurrent use.
type Attack struct {
	// MaxQueries caps the oracle calls of a single run. Zero means
	// DefaultMaxQueries.
	MaxQueries int

	// BlockSize is the cipher block size assumed by CBC. Zero means
	// aes.BlockSize. The ECB attack discovers its block size instead.
	BlockSize int

	// Log receives progress messages. Nil discards them.
	Log *log.Logger

	queries int
}

// Queries returns the number of oracle calls made by the last run.
func (a *Attack) Queries() int {
	return a.queries
}

func (a *Attack) logger() *log.Logger {
	if a.Log == nil {
		return discard
	}
	return a.Log
}

func (a *Attack) spend() error {
	limit := a.MaxQueries
	if limit <= 0 {
		limit = DefaultMaxQueries
	}
	if a.queries >= limit {
		return ErrQueryBudget
	}
	a.queries++
	return nil
}

// ECB recovers the hidden suffix of an ECB encryption oracle: it discovers
// the block size, checks the mode is ECB, discovers the prefix length and
// then recovers the suffix byte by byte.
func (a *Attack) ECB(oracle EncryptFunc) ([]byte, error) {
	a.queries = 0
	logger := a.logger()
	limited := func(in []byte) ([]byte, error) {
		if err := a.spend(); err != nil {
			return nil, err
		}
		return oracle(in)
	}

	bs, err := DetectBlockSize(limited)
	if err != nil {
		return nil, err
	}
	logger.Printf("block size: %d", bs)

	ecb, err := IsECB(limited, bs)
	if err != nil {
		return nil, err
	}
	if !ecb {
		return nil, detectionError(PhaseMode).
			With("block_size", bs).
			Wrap(ErrNotECB)
	}

	prefixLen, err := DetectPrefixLen(limited, bs)
	if err != nil {
		return nil, err
	}
	logger.Printf("prefix length: %d", prefixLen)

	suffix, err := RecoverSuffix(limited, bs, prefixLen)
	if err != nil {
		return nil, err
	}
	logger.Printf("recovered %d bytes in %d queries", len(suffix), a.queries)
	return suffix, nil
}

// CBC recovers the plaintext of ciphertext = IV | block1 | ... | blockN from
// a padding oracle. The result keeps its PKCS#7 padding.
func (a *Attack) CBC(oracle PaddingFunc, ciphertext []byte) ([]byte, error) {
	a.queries = 0
	logger := a.logger()
	bs := a.BlockSize
	if bs <= 0 {
		bs = aes.BlockSize
	}
	limited := func(ct []byte) (bool, error) {
		if err := a.spend(); err != nil {
			return false, err
		}
		return oracle(ct)
	}

	plaintext, err := decryptCBC(limited, ciphertext, bs, logger)
	if err != nil {
		return nil, err
	}
	logger.Printf("recovered %d blocks in %d queries", len(plaintext)/bs, a.queries)
	return plaintext, nil
}

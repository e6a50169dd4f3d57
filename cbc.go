package oracles

import (
	"log"

	"github.com/samber/oops"
)

// maxBacktracks bounds how many times a block's search restarts.
const maxBacktracks = 256

// crackState is where a block search stands. While searching it looks for
// the guess that makes the last k bytes decrypt to pad value k. A backtrack
// throws the block's progress away and searches pad value 1 again, starting
// at resumeFrom.
type crackState struct {
	backtrack  bool
	k          int
	resumeFrom int
}

// blockCracker recovers the intermediate state I = D(block) of one
// ciphertext block from a padding oracle; the plaintext is I ^ prev.
type blockCracker struct {
	oracle PaddingFunc
	log    *log.Logger
	index  int
	prev   []byte
	block  []byte
	inter  []byte

	// accepted is the guess taken for pad value 1, the only step that can
	// be fooled (plaintext ending 02 02, 03 03 03, ...).
	accepted   int
	backtracks int
}

func newBlockCracker(oracle PaddingFunc, index int, prev, block []byte, logger *log.Logger) *blockCracker {
	return &blockCracker{
		oracle: oracle,
		log:    logger,
		index:  index,
		prev:   prev,
		block:  block,
		inter:  make([]byte, len(block)),
	}
}

func (c *blockCracker) crack() ([]byte, error) {
	bs := len(c.block)
	state := crackState{k: 1}
	for state.k <= bs {
		if state.backtrack {
			c.backtracks++
			if c.backtracks > maxBacktracks || state.resumeFrom > 0xff {
				return nil, oracleError(PhaseCBC).
					With("block_index", c.index).
					With("backtracks", c.backtracks).
					Wrapf(ErrAmbiguous, "backtracking exhausted")
			}
			c.log.Printf("block %d: backtracking, retrying pad 0x01 from guess %#02x", c.index, state.resumeFrom)
			clear(c.inter)
			state = crackState{k: 1, resumeFrom: state.resumeFrom}
			continue
		}

		valid, err := c.validGuesses(state.k, state.resumeFrom)
		if err != nil {
			return nil, err
		}
		target := bs - state.k

		switch {
		case state.k == 1 && len(valid) == 0:
			return nil, oracleError(PhaseCBC).
				With("block_index", c.index).
				With("resume_from", state.resumeFrom).
				With("backtracks", c.backtracks).
				Wrapf(ErrAmbiguous, "no guess yields pad 0x01")
		case state.k == 1:
			if len(valid) > 1 {
				c.log.Printf("block %d: %d guesses valid for pad 0x01, trying %#02x", c.index, len(valid), valid[0])
			}
			c.accepted = valid[0]
			c.inter[target] = byte(valid[0]) ^ 1
			state = crackState{k: 2}
		case len(valid) == 1:
			// Bytes after target were forced to k, so exactly one guess can
			// complete the pad once the earlier bytes were solved right.
			c.inter[target] = byte(valid[0]) ^ byte(state.k)
			state = crackState{k: state.k + 1}
		default:
			state = crackState{backtrack: true, k: state.k, resumeFrom: c.accepted + 1}
		}
	}
	return xor(c.inter, c.prev), nil
}

// validGuesses returns, in ascending order, every guess in [from,255] for
// byte bs-k of the forged block that makes the oracle accept forged | block.
// Bytes before the target keep prev's values; bytes after it are set so
// they decrypt to k.
func (c *blockCracker) validGuesses(k, from int) ([]int, error) {
	bs := len(c.block)
	target := bs - k

	submission := make([]byte, 2*bs)
	copy(submission, c.prev[:target])
	for j := target + 1; j < bs; j++ {
		submission[j] = c.inter[j] ^ byte(k)
	}
	copy(submission[bs:], c.block)

	var valid []int
	for guess := from; guess <= 0xff; guess++ {
		submission[target] = byte(guess)
		ok, err := c.oracle(submission)
		if err != nil {
			return nil, oracleError(PhaseCBC).
				With("block_index", c.index).
				With("pad", k).
				With("guess", guess).
				Wrapf(err, "oracle failed")
		}
		if ok {
			valid = append(valid, guess)
		}
	}
	return valid, nil
}

// CrackBlock recovers the plaintext of block, the ciphertext block following
// prev (the IV for the first block), using only the padding oracle.
func CrackBlock(oracle PaddingFunc, prev, block []byte) ([]byte, error) {
	if len(block) == 0 || len(prev) != len(block) {
		return nil, oops.
			Code("INVALID_CIPHERTEXT").
			In(PhaseCBC).
			With("prev_length", len(prev)).
			With("block_length", len(block)).
			Wrapf(ErrInvalidCiphertext, "blocks must be non-empty and of equal length")
	}
	return newBlockCracker(oracle, 1, prev, block, discard).crack()
}

// DecryptCBC recovers the plaintext of ciphertext = IV | block1 | ... |
// blockN using only the padding oracle. The result keeps its PKCS#7 padding.
func DecryptCBC(oracle PaddingFunc, ciphertext []byte, blockSize int) ([]byte, error) {
	return decryptCBC(oracle, ciphertext, blockSize, discard)
}

func decryptCBC(oracle PaddingFunc, ciphertext []byte, bs int, logger *log.Logger) ([]byte, error) {
	if bs <= 0 || len(ciphertext) < 2*bs || len(ciphertext)%bs != 0 {
		return nil, oops.
			Code("INVALID_CIPHERTEXT").
			In(PhaseCBC).
			With("length", len(ciphertext)).
			With("block_size", bs).
			Wrapf(ErrInvalidCiphertext, "ciphertext must be an IV followed by at least one block")
	}

	n := len(ciphertext)/bs - 1
	plaintext := make([]byte, 0, n*bs)
	for i := 1; i <= n; i++ {
		prev := ciphertext[(i-1)*bs : i*bs]
		block := ciphertext[i*bs : (i+1)*bs]
		p, err := newBlockCracker(oracle, i, prev, block, logger).crack()
		if err != nil {
			return nil, err
		}
		logger.Printf("block %d of %d: %q", i, n, p)
		plaintext = append(plaintext, p...)
	}
	return plaintext, nil
}

package oracles

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"
	"math/big"

	"github.com/andreburgaud/crypt2go/ecb"
	"github.com/andreburgaud/crypt2go/padding"
	"github.com/samber/oops"
)

// EncryptFunc is an encryption oracle. It returns the encryption of in placed
// between a hidden prefix and a hidden suffix, under a hidden key. Identical
// input must always produce identical output.
type EncryptFunc func(in []byte) ([]byte, error)

// PaddingFunc is a padding oracle. It reports whether ciphertext, laid out as
// IV | block1 | ... | blockN, decrypts to plaintext with valid PKCS#7 padding.
type PaddingFunc func(ciphertext []byte) (bool, error)

// Returns a copy of data padded to the blocksize amount using PKCS7.
func pkcs7Pad(data []byte, blocksize int) ([]byte, error) {
	buf := make([]byte, len(data), len(data)+blocksize)
	copy(buf, data)
	return padding.NewPkcs7Padding(blocksize).Pad(buf)
}

// prefix | in | suffix, without aliasing any of them.
func sandwich(prefix, in, suffix []byte) []byte {
	body := make([]byte, 0, len(prefix)+len(in)+len(suffix))
	body = append(body, prefix...)
	body = append(body, in...)
	return append(body, suffix...)
}

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, fmt.Errorf("ReadFull failed: %w", err)
	}
	return b, nil
}

// NewECBOracle returns an oracle computing AES-ECB(key, prefix | in | suffix)
// with PKCS#7 padding. prefix and suffix are copied.
func NewECBOracle(key, prefix, suffix []byte) (EncryptFunc, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("NewCipher failed: %w", err)
	}
	prefix, suffix = bytes.Clone(prefix), bytes.Clone(suffix)
	mode := ecb.NewECBEncrypter(block)

	return func(in []byte) ([]byte, error) {
		body, err := pkcs7Pad(sandwich(prefix, in, suffix), mode.BlockSize())
		if err != nil {
			return nil, err
		}
		mode.CryptBlocks(body, body)
		return body, nil
	}, nil
}

// NewRandomECBOracle returns an ECB oracle hiding suffix behind a random key
// and a random prefix of 0 to maxPrefix bytes. All randomness is drawn here,
// never per call.
func NewRandomECBOracle(suffix []byte, maxPrefix int) (EncryptFunc, error) {
	if maxPrefix < 0 {
		return nil, oops.With("max_prefix", maxPrefix).Errorf("maximum prefix length cannot be negative")
	}
	key, err := randomBytes(aes.BlockSize)
	if err != nil {
		return nil, err
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(maxPrefix)+1))
	if err != nil {
		return nil, fmt.Errorf("rand.Int failed: %w", err)
	}
	prefix, err := randomBytes(int(n.Int64()))
	if err != nil {
		return nil, err
	}
	return NewECBOracle(key, prefix, suffix)
}

// NewCBCOracle returns an oracle computing AES-CBC(key, iv, prefix | in |
// suffix) with PKCS#7 padding. The IV is fixed so the oracle stays
// deterministic; the IV is not part of the output.
func NewCBCOracle(key, iv, prefix, suffix []byte) (EncryptFunc, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("NewCipher failed: %w", err)
	}
	if len(iv) != block.BlockSize() {
		return nil, oops.With("iv_length", len(iv)).Errorf("IV incorrect length")
	}
	iv, prefix, suffix = bytes.Clone(iv), bytes.Clone(prefix), bytes.Clone(suffix)

	return func(in []byte) ([]byte, error) {
		body, err := pkcs7Pad(sandwich(prefix, in, suffix), block.BlockSize())
		if err != nil {
			return nil, err
		}
		cipher.NewCBCEncrypter(block, iv).CryptBlocks(body, body)
		return body, nil
	}, nil
}

// A PaddingOracle decrypts CBC ciphertexts under a hidden key but only tells
// its caller whether the padding was valid, e.g. a server rejecting a
// tampered cookie with a distinguishable error.
type PaddingOracle struct {
	block cipher.Block
}

// NewPaddingOracle returns a padding oracle for the given AES key.
func NewPaddingOracle(key []byte) (*PaddingOracle, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("NewCipher failed: %w", err)
	}
	return &PaddingOracle{block: block}, nil
}

// NewRandomPaddingOracle returns a padding oracle with a random AES-128 key.
func NewRandomPaddingOracle() (*PaddingOracle, error) {
	key, err := randomBytes(aes.BlockSize)
	if err != nil {
		return nil, err
	}
	return NewPaddingOracle(key)
}

// BlockSize returns the cipher block size.
func (o *PaddingOracle) BlockSize() int {
	return o.block.BlockSize()
}

// Encrypt returns iv | AES-CBC(key, iv, PKCS7(plaintext)).
func (o *PaddingOracle) Encrypt(iv, plaintext []byte) ([]byte, error) {
	bs := o.block.BlockSize()
	if len(iv) != bs {
		return nil, oops.With("iv_length", len(iv)).Errorf("IV incorrect length")
	}
	body, err := pkcs7Pad(plaintext, bs)
	if err != nil {
		return nil, err
	}
	ciphertext := make([]byte, bs+len(body))
	copy(ciphertext, iv)
	cipher.NewCBCEncrypter(o.block, iv).CryptBlocks(ciphertext[bs:], body)
	return ciphertext, nil
}

// EncryptRandomIV is Encrypt with a fresh random IV.
func (o *PaddingOracle) EncryptRandomIV(plaintext []byte) ([]byte, error) {
	iv, err := randomBytes(o.block.BlockSize())
	if err != nil {
		return nil, err
	}
	return o.Encrypt(iv, plaintext)
}

// ValidPadding decrypts ciphertext and reports only whether its padding is
// valid. It satisfies PaddingFunc.
func (o *PaddingOracle) ValidPadding(ciphertext []byte) (bool, error) {
	bs := o.block.BlockSize()
	if len(ciphertext) < 2*bs || len(ciphertext)%bs != 0 {
		return false, oops.
			Code("INVALID_CIPHERTEXT").
			With("length", len(ciphertext)).
			With("block_size", bs).
			Wrapf(ErrInvalidCiphertext, "ciphertext must be an IV followed by at least one block")
	}

	plaintext := make([]byte, len(ciphertext)-bs)
	cipher.NewCBCDecrypter(o.block, ciphertext[:bs]).CryptBlocks(plaintext, ciphertext[bs:])

	// A zero pad byte is never valid PKCS#7.
	if plaintext[len(plaintext)-1] == 0 {
		return false, nil
	}
	if _, err := padding.NewPkcs7Padding(bs).Unpad(plaintext); err != nil {
		return false, nil
	}
	return true, nil
}

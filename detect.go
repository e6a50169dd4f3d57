package oracles

// maxBlockSize is the largest block size DetectBlockSize considers
// plausible. The probe range is four times that.
const maxBlockSize = 64

// query calls the oracle and tags any failure with the phase it happened in.
// The oracle's own error stays reachable through errors.Is and errors.As.
func query(oracle EncryptFunc, phase string, in []byte) ([]byte, error) {
	out, err := oracle(in)
	if err != nil {
		return nil, oracleError(phase).
			With("input_length", len(in)).
			Wrapf(err, "oracle failed")
	}
	return out, nil
}

// queryBlocks is query for callers that know the block size; output that is
// empty or not a whole number of blocks is an oracle error.
func queryBlocks(oracle EncryptFunc, phase string, in []byte, bs int) ([]byte, error) {
	out, err := query(oracle, phase, in)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 || len(out)%bs != 0 {
		return nil, oracleError(phase).
			With("input_length", len(in)).
			With("output_length", len(out)).
			With("block_size", bs).
			Wrapf(ErrOracle, "ciphertext is not a whole number of blocks")
	}
	return out, nil
}

// DetectBlockSize discovers the oracle's block size.
//
// Encrypting n and n+1 filler bytes gives two ciphertexts whose common leading
// run only grows when the filler pushes the first differing plaintext byte
// into the next block; the size of that jump is the block size. The probe is
// repeated with a second filler byte and both must agree, so a filler byte
// that happens to equal the secret's first byte cannot fake a jump.
func DetectBlockSize(oracle EncryptFunc) (int, error) {
	limit := 4 * maxBlockSize
	fromA, fromB := 1, 1
	for fromA <= limit && fromB <= limit {
		bsA, nA, err := blockSizeJump(oracle, fillerA, fromA, limit)
		if err != nil {
			return 0, err
		}
		bsB, nB, err := blockSizeJump(oracle, fillerB, fromB, limit)
		if err != nil {
			return 0, err
		}
		if bsA == 0 || bsB == 0 {
			break
		}
		if bsA == bsB {
			return bsA, nil
		}
		fromA, fromB = nA+1, nB+1
	}
	return 0, detectionError(PhaseBlockSize).
		With("max_probe", limit).
		Wrapf(ErrDetection, "no consistent block size jump")
}

// blockSizeJump scans n = from..limit for the first growth of the common
// leading run of oracle(f^n) and oracle(f^(n+1)). It returns the growth and
// the n it happened at, or zeros if there was none.
func blockSizeJump(oracle EncryptFunc, f byte, from, limit int) (int, int, error) {
	cur, err := query(oracle, PhaseBlockSize, filler(f, from-1))
	if err != nil {
		return 0, 0, err
	}
	next, err := query(oracle, PhaseBlockSize, filler(f, from))
	if err != nil {
		return 0, 0, err
	}
	prev := commonPrefixLen(cur, next)

	for n := from; n <= limit; n++ {
		cur = next
		next, err = query(oracle, PhaseBlockSize, filler(f, n+1))
		if err != nil {
			return 0, 0, err
		}
		common := commonPrefixLen(cur, next)
		if common > prev {
			return common - prev, n, nil
		}
		prev = common
	}
	return 0, 0, nil
}

// IsECB reports whether the oracle encrypts in ECB mode. Three blocks of
// filler always contain two whole aligned blocks whatever the prefix length,
// and under ECB those encrypt to the same ciphertext block.
func IsECB(oracle EncryptFunc, bs int) (bool, error) {
	out, err := queryBlocks(oracle, PhaseMode, filler(fillerA, 3*bs), bs)
	if err != nil {
		return false, err
	}
	return repeatedBlock(out, bs), nil
}

// DetectPrefixLen discovers the length of the oracle's hidden prefix.
//
// With k filler bytes, oracle(f^k) and oracle(f^(k+1)) first differ in the
// block holding plaintext byte prefixLen+k. The smallest k that moves that
// block past the one where empty and one-byte inputs differ fills the
// prefix's last block exactly.
func DetectPrefixLen(oracle EncryptFunc, bs int) (int, error) {
	base, err := divergence(oracle, bs, 0)
	if err != nil {
		return 0, err
	}
	for k := 1; k <= bs; k++ {
		d, err := divergence(oracle, bs, k)
		if err != nil {
			return 0, err
		}
		switch {
		case d == base:
			continue
		case d < base:
			return 0, detectionError(PhasePrefix).
				With("pad_length", k).
				With("baseline", base).
				With("divergence", d).
				Wrapf(ErrDetection, "divergence block moved backwards")
		}
		return (d-1)*bs + (bs - k), nil
	}
	return 0, detectionError(PhasePrefix).
		With("block_size", bs).
		With("baseline", base).
		Wrapf(ErrDetection, "no divergence within one block of filler")
}

// divergence is the first block in which oracle(f^k) and oracle(f^(k+1))
// differ, minimized over two filler bytes. A filler byte equal to the
// secret's first byte can only push the divergence later, and the secret
// cannot start with both fillers.
func divergence(oracle EncryptFunc, bs, k int) (int, error) {
	d := -1
	for _, f := range []byte{fillerA, fillerB} {
		a, err := queryBlocks(oracle, PhasePrefix, filler(f, k), bs)
		if err != nil {
			return 0, err
		}
		b, err := queryBlocks(oracle, PhasePrefix, filler(f, k+1), bs)
		if err != nil {
			return 0, err
		}
		if fd := firstDiffBlock(a, b, bs); d < 0 || fd < d {
			d = fd
		}
	}
	return d, nil
}

package oracles

// RecoverSuffix recovers the oracle's hidden suffix one byte at a time, given
// its block size and prefix length.
//
// Each step pads the input so the next unknown byte is the last byte of a
// block, records that block, and then looks it up among the 256 blocks
// produced by known | c. Once the whole suffix is known the oracle's own pad
// byte 0x01 is read as if it were secret; on the following step the pad turns
// into 0x02 0x02 and no candidate matches, which ends recovery and drops the
// misread byte.
func RecoverSuffix(oracle EncryptFunc, bs, prefixLen int) ([]byte, error) {
	empty, err := queryBlocks(oracle, PhaseRecover, nil, bs)
	if err != nil {
		return nil, err
	}
	maxLen := len(empty) - prefixLen

	var solved []byte
	for {
		if len(solved) > maxLen {
			return nil, oracleError(PhaseRecover).
				With("recovered", len(solved)).
				With("max_length", maxLen).
				Wrapf(ErrOracle, "recovered more bytes than the oracle output holds")
		}

		pos := prefixLen + len(solved)
		pad := filler(fillerA, bs-1-pos%bs)
		idx := pos / bs

		out, err := queryBlocks(oracle, PhaseRecover, pad, bs)
		if err != nil {
			return nil, err
		}
		target := block(out, bs, idx)
		if target == nil {
			return nil, oracleError(PhaseRecover).
				With("block_index", idx).
				With("output_length", len(out)).
				Wrapf(ErrOracle, "target block missing from oracle output")
		}

		dictionary, err := fragmentDict(oracle, bs, idx, append(pad, solved...))
		if err != nil {
			return nil, err
		}
		b, ok := dictionary[string(target)]
		if !ok {
			if n := len(solved); n > 0 && solved[n-1] == 0x01 {
				return solved[:n-1], nil
			}
			return nil, oracleError(PhaseRecover).
				With("recovered", len(solved)).
				With("block_index", idx).
				Wrapf(ErrAmbiguous, "no candidate byte matches the target block")
		}
		solved = append(solved, b)
	}
}

// Builds a dictionary of the block at idx for every input of the form
// known | c, with c taking every value in [0,255]. Two candidates producing
// the same block would make the lookup ambiguous, which no block cipher
// permits.
func fragmentDict(oracle EncryptFunc, bs, idx int, known []byte) (map[string]byte, error) {
	dictionary := make(map[string]byte, 256)
	fragment := make([]byte, len(known)+1)
	copy(fragment, known)
	for i := 0; i <= 255; i++ {
		fragment[len(known)] = byte(i)
		out, err := queryBlocks(oracle, PhaseRecover, fragment, bs)
		if err != nil {
			return nil, err
		}
		fp := block(out, bs, idx)
		if fp == nil {
			return nil, oracleError(PhaseRecover).
				With("block_index", idx).
				With("output_length", len(out)).
				Wrapf(ErrOracle, "candidate block missing from oracle output")
		}
		if prev, dup := dictionary[string(fp)]; dup {
			return nil, oracleError(PhaseRecover).
				With("block_index", idx).
				With("candidates", []byte{prev, byte(i)}).
				Wrapf(ErrAmbiguous, "two candidates encrypt to the same block")
		}
		dictionary[string(fp)] = byte(i)
	}
	return dictionary, nil
}

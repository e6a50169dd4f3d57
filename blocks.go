package oracles

import "bytes"

// Filler bytes for probes. Two distinct values let a detector tell a real
// boundary from a filler byte that happens to equal the secret's next byte.
const (
	fillerA = 'A'
	fillerB = 'B'
)

func filler(b byte, n int) []byte {
	return bytes.Repeat([]byte{b}, n)
}

func xor(a, b []byte) []byte {
	if len(a) != len(b) {
		panic("Unequal length buffers")
	}
	x := make([]byte, len(a))
	for i := range a {
		x[i] = a[i] ^ b[i]
	}
	return x
}

// block returns the i-th bs sized block of data, or nil if data is too short.
func block(data []byte, bs, i int) []byte {
	if (i+1)*bs > len(data) {
		return nil
	}
	return data[i*bs : (i+1)*bs]
}

// repeatedBlock cuts data into bs sized blocks and reports whether any block
// appears more than once. Under ECB equal plaintext blocks encrypt equally.
func repeatedBlock(data []byte, bs int) bool {
	seen := make(map[string]bool)
	for i := 0; i+bs <= len(data); i += bs {
		cand := string(data[i : i+bs])
		if seen[cand] {
			return true
		}
		seen[cand] = true
	}
	return false
}

// commonPrefixLen returns the length of the longest common leading run of a
// and b.
func commonPrefixLen(a, b []byte) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}

// firstDiffBlock returns the index of the first bs sized block in which a and
// b differ. Equal leading blocks up to the shorter input count as a
// difference right after them.
func firstDiffBlock(a, b []byte, bs int) int {
	return commonPrefixLen(a, b) / bs
}

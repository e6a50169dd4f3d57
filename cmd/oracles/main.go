// Command oracles hides a secret behind an encryption or padding oracle and
// recovers it without the key.
//
//	oracles -mode ecb -secret secret.b64
//	oracles -mode cbc -secret lines.b64
//
// In ECB mode the whole base64 file becomes the suffix the oracle appends to
// its input, behind a random key and a random prefix. In CBC mode one random
// line of the file is decoded, encrypted under a random key and IV, and
// decrypted through the padding oracle.
package main

import (
	"bufio"
	"bytes"
	"crypto/aes"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"math/big"
	"os"

	"github.com/andreburgaud/crypt2go/padding"
	"github.com/cryptopals/oracles"
)

func main() {
	mode := flag.String("mode", "ecb", "attack to run: ecb or cbc")
	secretFile := flag.String("secret", "", "base64 secret file")
	maxPrefix := flag.Int("max-prefix", 32, "longest random prefix for the ECB oracle")
	maxQueries := flag.Int("max-queries", oracles.DefaultMaxQueries, "oracle query budget")
	verbose := flag.Bool("v", false, "log attack progress to stderr")
	flag.Parse()

	if *secretFile == "" {
		flag.Usage()
		os.Exit(2)
	}

	a := &oracles.Attack{MaxQueries: *maxQueries}
	if *verbose {
		a.Log = log.New(os.Stderr, "oracles: ", 0)
	}

	var (
		out []byte
		err error
	)
	switch *mode {
	case "ecb":
		out, err = runECB(a, *secretFile, *maxPrefix)
	case "cbc":
		out, err = runCBC(a, *secretFile)
	default:
		err = fmt.Errorf("unknown mode %q", *mode)
	}
	if err != nil {
		if phase := oracles.Phase(err); phase != "" {
			fmt.Fprintf(os.Stderr, "%s phase failed: %v\n", phase, err)
		} else {
			fmt.Fprintf(os.Stderr, "%v\n", err)
		}
		os.Exit(1)
	}
	fmt.Printf("%s\n", out)
}

func runECB(a *oracles.Attack, file string, maxPrefix int) ([]byte, error) {
	text, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	secret, err := base64.StdEncoding.DecodeString(string(text))
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", file, err)
	}
	oracle, err := oracles.NewRandomECBOracle(secret, maxPrefix)
	if err != nil {
		return nil, err
	}
	return a.ECB(oracle)
}

func runCBC(a *oracles.Attack, file string) ([]byte, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	line, err := randomLine(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", file, err)
	}
	plaintext, err := base64.StdEncoding.DecodeString(line)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", file, err)
	}

	oracle, err := oracles.NewRandomPaddingOracle()
	if err != nil {
		return nil, err
	}
	ciphertext, err := oracle.EncryptRandomIV(plaintext)
	if err != nil {
		return nil, err
	}
	padded, err := a.CBC(oracle.ValidPadding, ciphertext)
	if err != nil {
		return nil, err
	}
	return padding.NewPkcs7Padding(aes.BlockSize).Unpad(padded)
}

// randomLine returns a random non-empty line from r.
func randomLine(r io.Reader) (string, error) {
	var lines []string
	input := bufio.NewScanner(r)
	for input.Scan() {
		if line := bytes.TrimSpace(input.Bytes()); len(line) > 0 {
			lines = append(lines, string(line))
		}
	}
	if err := input.Err(); err != nil {
		return "", err
	}
	if len(lines) == 0 {
		return "", errors.New("no lines")
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(lines))))
	if err != nil {
		return "", err
	}
	return lines[n.Int64()], nil
}

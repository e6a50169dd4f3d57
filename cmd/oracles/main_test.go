package main

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cryptopals/oracles"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomLine(t *testing.T) {
	line, err := randomLine(strings.NewReader("\n  only one  \n\n"))
	require.NoError(t, err)
	assert.Equal(t, "only one", line)

	_, err = randomLine(strings.NewReader("\n\n"))
	assert.Error(t, err)

	seen := map[string]bool{}
	for i := 0; i < 64; i++ {
		line, err := randomLine(strings.NewReader("a\nb\n"))
		require.NoError(t, err)
		seen[line] = true
	}
	assert.Subset(t, []string{"a", "b"}, keys(seen))
}

func keys(m map[string]bool) []string {
	var out []string
	for k := range m {
		out = append(out, k)
	}
	return out
}

func writeSecret(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "secret.b64")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRunECB(t *testing.T) {
	secret := "hello world, this is the hidden suffix"
	path := writeSecret(t, base64.StdEncoding.EncodeToString([]byte(secret)))

	out, err := runECB(&oracles.Attack{}, path, 20)
	require.NoError(t, err)
	assert.Equal(t, secret, string(out))
}

func TestRunCBC(t *testing.T) {
	lines := []string{"first secret line", "second one, somewhat longer than a block"}
	var content string
	for _, l := range lines {
		content += base64.StdEncoding.EncodeToString([]byte(l)) + "\n"
	}
	path := writeSecret(t, content)

	out, err := runCBC(&oracles.Attack{}, path)
	require.NoError(t, err)
	assert.Contains(t, lines, string(out))
}

func TestRunMissingFile(t *testing.T) {
	_, err := runECB(&oracles.Attack{}, filepath.Join(t.TempDir(), "missing"), 0)
	assert.Error(t, err)
	_, err = runCBC(&oracles.Attack{}, filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

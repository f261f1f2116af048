package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWritesPDF(t *testing.T) {
	out := filepath.Join(t.TempDir(), "sheet.pdf")
	var stderr bytes.Buffer

	err := run([]string{"--front-url", "https://vote.example.org", "-o", out}, strings.NewReader("A\n\nB\n C \n"), &stderr)
	require.NoError(t, err)

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, []byte("%PDF-")))
	assert.Contains(t, stderr.String(), "3 codes on 1 pages")
}

func TestRunDryRun(t *testing.T) {
	var stderr bytes.Buffer
	keys := strings.Repeat("K\n", 55)

	err := run([]string{"--front-url", "https://vote.example.org", "--dry-run"}, strings.NewReader(keys), &stderr)
	require.NoError(t, err)
	assert.Contains(t, stderr.String(), "55 keys, 54 per page, 2 pages")
	assert.Contains(t, stderr.String(), "page=1 col=0 row=0")
}

func TestRunRejectsBadInput(t *testing.T) {
	var stderr bytes.Buffer
	t.Setenv("FRONT_URL", "")
	assert.Error(t, run(nil, strings.NewReader("A"), &stderr))
	assert.Error(t, run([]string{"--front-url", "x", "--cols", "0"}, strings.NewReader("A"), &stderr))
}

package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docnum/internal/core/numerator"
)

func TestParseArgs(t *testing.T) {
	opts := parseArgs([]string{"--type", "invoice", "--reset", "--count=5", "stray", "--date", "2025-04-01", "--down"})

	assert.Equal(t, "invoice", opts["type"])
	assert.True(t, opts.bool("reset"))
	assert.True(t, opts.bool("down"))
	assert.Equal(t, "5", opts["count"])
	assert.NotContains(t, opts, "stray")

	n, err := opts.int("count", 1)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	n, err = opts.int("parallel", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	d, err := opts.date()
	require.NoError(t, err)
	assert.Equal(t, time.April, d.Month())
}

func TestOptionsKey(t *testing.T) {
	_, err := parseArgs([]string{"--company", "nope"}).key()
	assert.ErrorContains(t, err, "--company")

	key, err := parseArgs([]string{
		"--company", "0190a4c2-0000-7000-8000-000000000001",
		"--branch", "0190a4c2-0000-7000-8000-000000000002",
		"--type", "receipt",
	}).key()
	require.NoError(t, err)
	assert.Equal(t, numerator.DocReceipt, key.DocumentType)
}

func TestReadEdits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "edits.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"document_type": "invoice", "prefix": "TI-", "padding_zeros": 5, "reset_yearly": true, "current_number": 10},
		{"document_type": "expense", "prefix": "EXP-", "padding_zeros": 3}
	]`), 0o600))

	edits, err := readEdits(path)
	require.NoError(t, err)
	require.Len(t, edits, 2)
	require.NotNil(t, edits[0].CurrentNumber)
	assert.Equal(t, int64(10), *edits[0].CurrentNumber)
	assert.Nil(t, edits[1].CurrentNumber)
}

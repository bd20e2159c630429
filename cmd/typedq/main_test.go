package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnykmshr/typedq/pkg/typedq"
)

type job struct {
	ID   int    `msgpack:"id"`
	Kind string `msgpack:"kind"`
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func seedQueue(t *testing.T, n int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "jobs.tdq")
	q, err := typedq.Open[job](path, nil)
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		require.NoError(t, q.Enqueue(job{ID: i, Kind: "email"}))
	}
	require.NoError(t, q.Close())
	return path
}

func TestStats(t *testing.T) {
	path := seedQueue(t, 3)

	out, err := run(t, "stats", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Records:")
	assert.Contains(t, out, path)

	out, err = run(t, "stats", path, "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"count": 3`)
}

func TestPeek(t *testing.T) {
	path := seedQueue(t, 3)

	out, err := run(t, "peek", path, "2")
	require.NoError(t, err)
	assert.Contains(t, out, `{"id":0,"kind":"email"}`)
	assert.Contains(t, out, `{"id":1,"kind":"email"}`)
	assert.NotContains(t, out, `"id":2`)
	assert.Contains(t, out, "2 of 3 record(s) shown")
}

func TestPeek_NonMsgpackRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raw.tdq")
	q, err := typedq.OpenWithCodec(path, typedq.RawCodec(), nil)
	require.NoError(t, err)
	require.NoError(t, q.Enqueue([]byte{0xc1, 0xff}))
	require.NoError(t, q.Close())

	out, err := run(t, "peek", path)
	require.NoError(t, err)
	assert.Contains(t, out, "hex c1ff")
}

func TestDrop(t *testing.T) {
	path := seedQueue(t, 4)

	out, err := run(t, "drop", path, "3")
	require.NoError(t, err)
	assert.Contains(t, out, "Dropped 3 record(s), 1 remaining")

	out, err = run(t, "drop", path, "--all")
	require.NoError(t, err)
	assert.Contains(t, out, "Dropped 1 record(s), 0 remaining")

	q, err := typedq.Open[job](path, nil)
	require.NoError(t, err)
	defer func() { _ = q.Close() }()
	assert.Equal(t, 0, q.Count())
}

func TestCompact(t *testing.T) {
	path := seedQueue(t, 4)

	_, err := run(t, "drop", path, "2")
	require.NoError(t, err)

	out, err := run(t, "compact", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Bytes Freed:")

	out, err = run(t, "stats", path, "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"reclaimable_bytes": 0`)
}

func TestConfigAndLogLevel(t *testing.T) {
	path := seedQueue(t, 1)
	cfg := filepath.Join(t.TempDir(), "typedq.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("compression: snappy\nlog_level: error\n"), 0644))

	_, err := run(t, "--config", cfg, "stats", path)
	require.NoError(t, err)

	_, err = run(t, "--log-level", "loud", "stats", path)
	assert.Error(t, err)

	_, err = run(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "stats", path)
	assert.Error(t, err)
}

func TestLogJSON(t *testing.T) {
	path := seedQueue(t, 2)

	out, err := run(t, "--log-json", "--log-level", "debug", "drop", path, "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Dropped 1 record(s), 1 remaining")
}

func TestMissingQueueFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.tdq")

	for _, args := range [][]string{
		{"stats", path},
		{"peek", path},
		{"drop", path},
		{"compact", path},
	} {
		_, err := run(t, args...)
		assert.Error(t, err, args[0])
	}

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "queue file should not be created")
}

func TestTruncate(t *testing.T) {
	short := strings.Repeat("é", previewLimit)
	assert.Equal(t, short, truncate(short))

	long := strings.Repeat("é", previewLimit+1)
	got := truncate(long)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("é", previewLimit)+"...", got)
}

func TestInvalidArgs(t *testing.T) {
	path := seedQueue(t, 1)

	_, err := run(t, "peek", path, "zero")
	assert.Error(t, err)

	_, err = run(t, "drop", path, "0")
	assert.Error(t, err)

	_, err = run(t, "stats")
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "typedq version "))
}

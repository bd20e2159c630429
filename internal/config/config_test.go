package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnykmshr/typedq/internal/format"
	"github.com/vnykmshr/typedq/internal/logging"
)

func TestParse_Full(t *testing.T) {
	c := Default()
	err := c.Parse([]byte(`
sync_writes: false
sync_interval: 250ms
compression: snappy
min_compression_size: 512
max_record_size: 2K
compact_threshold: 0
min_free_disk_space: 1MB
log_level: debug
`))
	require.NoError(t, err)

	assert.False(t, c.SyncWrites)
	assert.Equal(t, 250*time.Millisecond, c.SyncInterval)
	assert.Equal(t, format.CompressionSnappy, c.Compression)
	assert.Equal(t, 512, c.MinCompressionSize)
	assert.Equal(t, int64(2048), c.MaxRecordSize)
	assert.Equal(t, uint64(0), c.CompactThreshold)
	assert.Equal(t, int64(1048576), c.MinFreeDiskSpace)
	assert.Equal(t, logging.LevelDebug, c.LogLevel)
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in   string
		want uint64
	}{
		{"0", 0},
		{"4096", 4096},
		{"512K", 512 * 1024},
		{"10M", 10 * 1024 * 1024},
		{"1G", 1024 * 1024 * 1024},
	}

	for _, tt := range tests {
		got, err := parseSize(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := parseSize("lots")
	assert.Error(t, err)
}

func TestParse_KeepsDefaults(t *testing.T) {
	c := Default()
	require.NoError(t, c.Parse([]byte("log_level: warn\n")))

	d := Default()
	assert.True(t, c.SyncWrites)
	assert.Equal(t, d.MaxRecordSize, c.MaxRecordSize)
	assert.Equal(t, d.CompactThreshold, c.CompactThreshold)
	assert.Equal(t, logging.LevelWarn, c.LogLevel)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown key", "sync_write: true\n"},
		{"bad compression", "compression: gzip\n"},
		{"bad duration", "sync_interval: soon\n"},
		{"bad level", "log_level: loud\n"},
		{"negative record size", "max_record_size: -1\n"},
		{"bad size unit", "compact_threshold: 4Q\n"},
		{"record size over limit", "max_record_size: 1T\n"},
		{"not yaml", "[unclosed\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, Default().Parse([]byte(tt.doc)))
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "typedq.yaml")
	require.NoError(t, os.WriteFile(path, []byte("compression: snappy\n"), 0644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, format.CompressionSnappy, c.Compression)

	opts := c.QueueOptions(logging.NoopLogger{})
	assert.Equal(t, format.CompressionSnappy, opts.Compression)
	assert.NoError(t, opts.Validate())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

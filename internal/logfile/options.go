package logfile

import (
	"fmt"

	"github.com/vnykmshr/typedq/internal/format"
	"github.com/vnykmshr/typedq/internal/logging"
)

// Options configures log file behavior.
type Options struct {
	// SyncWrites fsyncs record data and the header on every commit.
	// Disabling it trades power-loss durability for throughput; process
	// crashes are still recovered.
	SyncWrites bool

	// Compression applied to record payloads
	Compression format.CompressionType

	// MinCompressionSize is the minimum payload size to compress
	MinCompressionSize int

	// MaxRecordSize rejects payloads larger than this many bytes (0 = unlimited)
	MaxRecordSize int64

	// CompactThreshold triggers compaction after a remove once this many bytes
	// of consumed records precede the head and they outnumber live bytes (0 = disabled)
	CompactThreshold uint64

	// Logger for structured logging
	Logger logging.Logger

	// OnCompact, if set, is called after each automatic compaction attempt
	OnCompact func(result *CompactionResult, err error)
}

// DefaultOptions returns sensible defaults for a log file.
func DefaultOptions() *Options {
	return &Options{
		SyncWrites:         true,
		Compression:        format.CompressionNone,
		MinCompressionSize: 1024,             // 1KB
		MaxRecordSize:      10 * 1024 * 1024, // 10 MB
		CompactThreshold:   4 * 1024 * 1024,  // 4 MB
		Logger:             logging.NoopLogger{},
	}
}

// Validate checks if the options are valid.
func (o *Options) Validate() error {
	if o.Compression != format.CompressionNone && o.Compression != format.CompressionSnappy {
		return fmt.Errorf("invalid compression type: %d", o.Compression)
	}
	if o.MinCompressionSize < 0 {
		return fmt.Errorf("min compression size cannot be negative")
	}
	if o.MaxRecordSize < 0 {
		return fmt.Errorf("max record size cannot be negative")
	}
	if o.MaxRecordSize > format.MaxDecompressedSize {
		return fmt.Errorf("max record size %d exceeds limit %d", o.MaxRecordSize, format.MaxDecompressedSize)
	}
	return nil
}

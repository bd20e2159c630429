package queue

import (
	"fmt"
	"time"

	"github.com/vnykmshr/typedq/internal/format"
	"github.com/vnykmshr/typedq/internal/logfile"
	"github.com/vnykmshr/typedq/internal/logging"
	"github.com/vnykmshr/typedq/internal/metrics"
)

// Options configures queue behavior.
type Options struct {
	// SyncWrites fsyncs every append and remove before returning.
	// Default: true
	SyncWrites bool

	// SyncInterval for periodic syncing when SyncWrites is false (0 = disabled)
	SyncInterval time.Duration

	// Compression applied to encoded records of at least MinCompressionSize bytes
	// Default: CompressionNone
	Compression format.CompressionType

	// MinCompressionSize is the minimum encoded size to compress
	// Default: 1024 bytes (1KB)
	MinCompressionSize int

	// MaxRecordSize is the maximum size in bytes of one encoded value.
	// Set to 0 for unlimited (bounded by the decompression limit).
	// Default: 10 MB
	MaxRecordSize int64

	// CompactThreshold is the number of consumed bytes that must precede the
	// head (and outnumber live bytes) before a remove compacts the file.
	// Set to 0 to compact only on demand.
	// Default: 4 MB
	CompactThreshold uint64

	// MinFreeDiskSpace is the minimum free space in bytes required to enqueue.
	// Set to 0 to disable the check.
	// Default: 0
	MinFreeDiskSpace int64

	// Logger for structured logging (nil = no logging)
	Logger logging.Logger

	// MetricsCollector for collecting queue metrics (nil = no metrics)
	MetricsCollector MetricsCollector
}

// MetricsCollector defines the interface for recording queue metrics.
type MetricsCollector interface {
	RecordEnqueue(recordSize int, duration time.Duration)
	RecordEnqueueBatch(count, totalSize int, duration time.Duration)
	RecordDequeue(recordSize int, duration time.Duration)
	RecordDequeueBatch(count, totalSize int, duration time.Duration)
	RecordAbandon()
	RecordEnqueueError()
	RecordDequeueError()
	RecordCorruption()
	RecordCompaction(bytesFreed int64, duration time.Duration)
	RecordCompactionError()
	UpdateQueueState(pending, fileSize, reclaimable uint64)
}

// DefaultOptions returns sensible defaults for queue configuration.
func DefaultOptions() *Options {
	return &Options{
		SyncWrites:         true,
		SyncInterval:       0,
		Compression:        format.CompressionNone,
		MinCompressionSize: 1024,             // 1KB minimum for compression
		MaxRecordSize:      10 * 1024 * 1024, // 10 MB
		CompactThreshold:   4 * 1024 * 1024,  // 4 MB
		MinFreeDiskSpace:   0,
		Logger:             logging.NoopLogger{},
		MetricsCollector:   metrics.NoopCollector{},
	}
}

// Validate checks if the options are valid and safe to use.
func (o *Options) Validate() error {
	if o.SyncInterval < 0 {
		return fmt.Errorf("sync interval cannot be negative")
	}
	if o.MinFreeDiskSpace < 0 {
		return fmt.Errorf("min free disk space cannot be negative")
	}
	return o.logOptions(nil).Validate()
}

// withDefaults fills nil collaborators so call sites need no nil checks.
func (o *Options) withDefaults() *Options {
	out := *o
	if out.Logger == nil {
		out.Logger = logging.NoopLogger{}
	}
	if out.MetricsCollector == nil {
		out.MetricsCollector = metrics.NoopCollector{}
	}
	return &out
}

func (o *Options) logOptions(onCompact func(*logfile.CompactionResult, error)) *logfile.Options {
	return &logfile.Options{
		SyncWrites:         o.SyncWrites,
		Compression:        o.Compression,
		MinCompressionSize: o.MinCompressionSize,
		MaxRecordSize:      o.MaxRecordSize,
		CompactThreshold:   o.CompactThreshold,
		Logger:             o.Logger,
		OnCompact:          onCompact,
	}
}

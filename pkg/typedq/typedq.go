// Package typedq provides a durable, single-file queue of typed values.
//
// Values are encoded (MessagePack by default), appended to a crash-consistent
// file and returned in FIFO order. A value is removed only when the consumer
// commits to it, so a failed handler never loses data.
//
// Example usage:
//
//	type Person struct {
//	    Name string
//	    Age  int
//	}
//
//	q, err := typedq.Open[Person]("/var/lib/app/people.tdq", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer q.Close()
//
//	_ = q.Enqueue(Person{Name: "John Doe", Age: 43})
//
//	removed, err := q.CancellableDequeue(func(p Person) bool {
//	    return notify(p) == nil
//	})
package typedq

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/vnykmshr/typedq/internal/codec"
	"github.com/vnykmshr/typedq/internal/config"
	"github.com/vnykmshr/typedq/internal/format"
	"github.com/vnykmshr/typedq/internal/logging"
	"github.com/vnykmshr/typedq/internal/metrics"
	"github.com/vnykmshr/typedq/internal/queue"
)

// Version is the current version of typedq.
const Version = "0.3.0"

var (
	// ErrIO indicates the queue file could not be opened, read or written.
	ErrIO = queue.ErrIO

	// ErrCorrupted indicates a stored record does not decode as the queue's
	// type. The record stays at the head until removed by other means.
	ErrCorrupted = queue.ErrCorrupted

	// ErrEncode indicates a value could not be encoded.
	ErrEncode = queue.ErrEncode

	// ErrClosed is returned when operating on a closed queue.
	ErrClosed = queue.ErrClosed

	// ErrRecordTooLarge is returned when an encoded value exceeds MaxRecordSize.
	ErrRecordTooLarge = queue.ErrRecordTooLarge
)

// Codec converts values of type T to and from stored records.
// Decode must report malformed input as an error.
type Codec[T any] interface {
	Encode(v T) ([]byte, error)
	Decode(data []byte) (T, error)
}

// DefaultCodec returns BinaryCodec when *T implements encoding.BinaryMarshaler
// and encoding.BinaryUnmarshaler, and MsgpackCodec otherwise.
func DefaultCodec[T any]() Codec[T] {
	return codec.Default[T]()
}

// MsgpackCodec encodes values structurally with MessagePack.
func MsgpackCodec[T any]() Codec[T] {
	return codec.Msgpack[T]()
}

// BinaryCodec delegates to the type's own MarshalBinary and UnmarshalBinary.
func BinaryCodec[T any, PT codec.BinaryValue[T]]() Codec[T] {
	return codec.Binary[T, PT]()
}

// RawCodec stores byte slices as-is.
func RawCodec() Codec[[]byte] {
	return codec.Raw()
}

// CompressionType selects record compression.
type CompressionType = format.CompressionType

const (
	// CompressionNone stores records as-is (default)
	CompressionNone = format.CompressionNone

	// CompressionSnappy compresses records with snappy when it saves space
	CompressionSnappy = format.CompressionSnappy
)

// Queue is a persistent FIFO queue of values of type T.
// It is safe for concurrent use.
type Queue[T any] struct {
	q *queue.Queue[T]
}

// Options configures queue behavior.
type Options struct {
	// SyncWrites fsyncs every enqueue and dequeue before returning
	// Default: true
	SyncWrites bool

	// SyncInterval for periodic syncing when SyncWrites is false
	// Default: 0 (disabled)
	SyncInterval time.Duration

	// Compression applied to records of at least MinCompressionSize bytes
	// Default: CompressionNone
	Compression CompressionType

	// MinCompressionSize is the minimum encoded size to compress
	// Default: 1024 bytes
	MinCompressionSize int

	// MaxRecordSize is the maximum encoded size of one value
	// Default: 10 MB
	MaxRecordSize int64

	// CompactThreshold is the amount of consumed space that triggers compaction
	// Set to 0 to compact only when Compact is called
	// Default: 4 MB
	CompactThreshold uint64

	// MinFreeDiskSpace is the free space required to enqueue
	// Default: 0 (disabled)
	MinFreeDiskSpace int64

	// Logger for structured logging
	// Default: nil (no logging)
	Logger Logger

	// MetricsCollector for collecting queue metrics
	// Default: nil (no metrics)
	MetricsCollector MetricsCollector
}

// MetricsCollector defines the interface for recording queue metrics.
type MetricsCollector = queue.MetricsCollector

// MetricsSnapshot is a point-in-time view of queue metrics.
type MetricsSnapshot = metrics.Snapshot

// NewMetricsCollector creates a new metrics collector for a queue.
// The collector also implements prometheus.Collector and can be registered
// with a Prometheus registry.
func NewMetricsCollector(queueName string) *metrics.Collector {
	return metrics.NewCollector(queueName)
}

// GetMetricsSnapshot returns a snapshot of current metrics from a collector.
func GetMetricsSnapshot(collector MetricsCollector) *MetricsSnapshot {
	if c, ok := collector.(*metrics.Collector); ok {
		return c.GetSnapshot()
	}
	return nil
}

// Stats contains queue statistics.
type Stats = queue.Stats

// CompactionResult contains the result of a compaction operation.
type CompactionResult = queue.CompactionResult

// DefaultOptions returns sensible defaults for queue configuration.
func DefaultOptions() *Options {
	o := queue.DefaultOptions()
	return &Options{
		SyncWrites:         o.SyncWrites,
		SyncInterval:       o.SyncInterval,
		Compression:        o.Compression,
		MinCompressionSize: o.MinCompressionSize,
		MaxRecordSize:      o.MaxRecordSize,
		CompactThreshold:   o.CompactThreshold,
		MinFreeDiskSpace:   o.MinFreeDiskSpace,
	}
}

// LoadOptions reads options from a YAML file on top of DefaultOptions. The
// file's log_level is returned for building a logger; Logger is left nil.
func LoadOptions(path string) (*Options, Level, error) {
	c, err := config.Load(path)
	if err != nil {
		return nil, LevelInfo, err
	}

	return &Options{
		SyncWrites:         c.SyncWrites,
		SyncInterval:       c.SyncInterval,
		Compression:        c.Compression,
		MinCompressionSize: c.MinCompressionSize,
		MaxRecordSize:      c.MaxRecordSize,
		CompactThreshold:   c.CompactThreshold,
		MinFreeDiskSpace:   c.MinFreeDiskSpace,
	}, c.LogLevel, nil
}

// Open opens or creates the queue file at path using DefaultCodec.
// If opts is nil, default options are used.
func Open[T any](path string, opts *Options) (*Queue[T], error) {
	return OpenWithCodec(path, DefaultCodec[T](), opts)
}

// OpenWithCodec opens or creates the queue file at path using c.
func OpenWithCodec[T any](path string, c Codec[T], opts *Options) (*Queue[T], error) {
	q, err := queue.OpenWithCodec[T](path, c, convertOptions(opts))
	if err != nil {
		return nil, err
	}
	return &Queue[T]{q: q}, nil
}

// Enqueue encodes v and appends it to the queue.
func (q *Queue[T]) Enqueue(v T) error {
	return q.q.Enqueue(v)
}

// EnqueueAll appends vs in order, stopping at the first failure.
// Values appended before the failure stay in the queue.
func (q *Queue[T]) EnqueueAll(vs []T) error {
	return q.q.EnqueueAll(vs)
}

// CancellableDequeue offers the oldest value to decide and removes it only if
// decide returns true. decide is not called on an empty queue.
//
// The queue is locked while decide runs: no other goroutine can take the same
// value, and decide must not call back into this queue.
func (q *Queue[T]) CancellableDequeue(decide func(T) bool) (bool, error) {
	return q.q.CancellableDequeue(decide)
}

// Dequeue removes and returns the oldest value; ok is false when empty.
func (q *Queue[T]) Dequeue() (v T, ok bool, err error) {
	return q.q.Dequeue()
}

// DequeueAll removes and returns every value, oldest first.
func (q *Queue[T]) DequeueAll() ([]T, error) {
	return q.q.DequeueAll()
}

// Clear removes every record without decoding it and returns how many were
// removed.
func (q *Queue[T]) Clear() (int, error) {
	return q.q.Clear()
}

// Peek returns the oldest value without removing it.
func (q *Queue[T]) Peek() (v T, ok bool, err error) {
	return q.q.Peek()
}

// Scan visits up to limit values (0 = all) without removing them.
func (q *Queue[T]) Scan(limit int, fn func(index int, v T) bool) error {
	return q.q.Scan(limit, fn)
}

// Stream delivers values to handler until ctx is done or handler fails.
// A value is removed only after handler returns nil.
//
// Example usage:
//
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//
//	err := q.Stream(ctx, 0, func(p Person) error {
//	    return notify(p)
//	})
func (q *Queue[T]) Stream(ctx context.Context, pollInterval time.Duration, handler func(T) error) error {
	return q.q.Stream(ctx, pollInterval, handler)
}

// Count returns the number of values in the queue.
func (q *Queue[T]) Count() int {
	return q.q.Count()
}

// Path returns the queue file path.
func (q *Queue[T]) Path() string {
	return q.q.Path()
}

// Stats returns current queue statistics.
func (q *Queue[T]) Stats() (*Stats, error) {
	return q.q.Stats()
}

// Compact reclaims the space held by consumed values.
func (q *Queue[T]) Compact() (*CompactionResult, error) {
	return q.q.Compact()
}

// Sync forces pending writes to disk.
func (q *Queue[T]) Sync() error {
	return q.q.Sync()
}

// Close closes the queue. The file stays on disk.
func (q *Queue[T]) Close() error {
	return q.q.Close()
}

func convertOptions(opts *Options) *queue.Options {
	if opts == nil {
		return queue.DefaultOptions()
	}

	qopts := &queue.Options{
		SyncWrites:         opts.SyncWrites,
		SyncInterval:       opts.SyncInterval,
		Compression:        opts.Compression,
		MinCompressionSize: opts.MinCompressionSize,
		MaxRecordSize:      opts.MaxRecordSize,
		CompactThreshold:   opts.CompactThreshold,
		MinFreeDiskSpace:   opts.MinFreeDiskSpace,
		Logger:             convertLogger(opts.Logger),
		MetricsCollector:   opts.MetricsCollector,
	}
	if qopts.MetricsCollector == nil {
		qopts.MetricsCollector = metrics.NoopCollector{}
	}
	return qopts
}

// Level is a logging severity.
type Level = logging.Level

// Logging levels.
const (
	LevelDebug = logging.LevelDebug
	LevelInfo  = logging.LevelInfo
	LevelWarn  = logging.LevelWarn
	LevelError = logging.LevelError
)

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, fields ...LogField)
	Info(msg string, fields ...LogField)
	Warn(msg string, fields ...LogField)
	Error(msg string, fields ...LogField)
}

// LogField represents a structured log field.
type LogField struct {
	Key   string
	Value interface{}
}

// NewZapLogger returns a Logger writing to z.
func NewZapLogger(z *zap.Logger) Logger {
	return &zapLogger{l: logging.NewZapLogger(z)}
}

// NewConsoleLogger returns a human-readable Logger writing to stderr at
// minLevel and above.
func NewConsoleLogger(minLevel Level) (Logger, error) {
	l, err := logging.NewConsoleLogger(minLevel)
	if err != nil {
		return nil, err
	}
	return &zapLogger{l: l}, nil
}

// NewProductionLogger returns a JSON Logger writing to stderr at minLevel
// and above.
func NewProductionLogger(minLevel Level) (Logger, error) {
	l, err := logging.NewProductionLogger(minLevel)
	if err != nil {
		return nil, err
	}
	return &zapLogger{l: l}, nil
}

// ParseLevel parses a level name such as "debug" or "warn".
func ParseLevel(s string) (Level, error) {
	return logging.ParseLevel(s)
}

type zapLogger struct {
	l *logging.ZapLogger
}

func (z *zapLogger) Debug(msg string, fields ...LogField) { z.l.Debug(msg, toInternal(fields)...) }
func (z *zapLogger) Info(msg string, fields ...LogField)  { z.l.Info(msg, toInternal(fields)...) }
func (z *zapLogger) Warn(msg string, fields ...LogField)  { z.l.Warn(msg, toInternal(fields)...) }
func (z *zapLogger) Error(msg string, fields ...LogField) { z.l.Error(msg, toInternal(fields)...) }

func convertLogger(l Logger) logging.Logger {
	switch l := l.(type) {
	case nil:
		return logging.NoopLogger{}
	case *zapLogger:
		return l.l
	default:
		return &loggerAdapter{l: l}
	}
}

// loggerAdapter adapts public Logger to internal logging.Logger
type loggerAdapter struct {
	l Logger
}

func (a *loggerAdapter) Debug(msg string, fields ...logging.Field) {
	a.l.Debug(msg, convertFields(fields)...)
}

func (a *loggerAdapter) Info(msg string, fields ...logging.Field) {
	a.l.Info(msg, convertFields(fields)...)
}

func (a *loggerAdapter) Warn(msg string, fields ...logging.Field) {
	a.l.Warn(msg, convertFields(fields)...)
}

func (a *loggerAdapter) Error(msg string, fields ...logging.Field) {
	a.l.Error(msg, convertFields(fields)...)
}

func convertFields(fields []logging.Field) []LogField {
	result := make([]LogField, len(fields))
	for i, f := range fields {
		result[i] = LogField{Key: f.Key, Value: f.Value}
	}
	return result
}

func toInternal(fields []LogField) []logging.Field {
	result := make([]logging.Field, len(fields))
	for i, f := range fields {
		result[i] = logging.F(f.Key, f.Value)
	}
	return result
}

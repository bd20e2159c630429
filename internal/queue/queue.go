// Package queue provides a durable, single-file queue of typed values.
//
// Values are encoded by a codec, appended to a crash-consistent log file and
// returned in FIFO order. A record leaves the file only once the caller
// commits to consuming it:
//
//	q, err := queue.Open[Job]("/var/lib/app/jobs.tdq", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer q.Close()
//
//	_ = q.Enqueue(Job{ID: 1})
//
//	// Remove the head only if it can be handled now.
//	removed, err := q.CancellableDequeue(func(j Job) bool {
//	    return handle(j) == nil
//	})
//
// Every operation runs under a single mutex, including the caller's decision
// function. The decision must not call back into the same queue.
package queue

import (
	"fmt"
	"sync"
	"time"

	"github.com/vnykmshr/typedq/internal/codec"
	"github.com/vnykmshr/typedq/internal/logfile"
	"github.com/vnykmshr/typedq/internal/logging"
	"github.com/vnykmshr/typedq/internal/metrics"
)

// Queue is a persistent FIFO queue of values of type T.
// It is safe for concurrent use.
type Queue[T any] struct {
	path  string
	opts  *Options
	codec codec.Codec[T]

	mu  sync.Mutex
	log *logfile.File

	syncTimer *time.Timer

	closed bool
}

// Open opens or creates the queue file at path using the default codec for T.
// If opts is nil, default options are used.
func Open[T any](path string, opts *Options) (*Queue[T], error) {
	return OpenWithCodec(path, codec.Default[T](), opts)
}

// OpenWithCodec opens or creates the queue file at path using c.
func OpenWithCodec[T any](path string, c codec.Codec[T], opts *Options) (*Queue[T], error) {
	if c == nil {
		return nil, fmt.Errorf("codec cannot be nil")
	}
	if opts == nil {
		opts = DefaultOptions()
	}
	opts = opts.withDefaults()
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	q := &Queue[T]{
		path:  path,
		opts:  opts,
		codec: c,
	}

	log, err := logfile.Open(path, opts.logOptions(q.onAutoCompact))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open %s: %w", ErrIO, path, err)
	}
	q.log = log

	q.mu.Lock()
	if !opts.SyncWrites && opts.SyncInterval > 0 {
		q.startSyncTimer()
	}
	q.updateStateLocked()
	q.mu.Unlock()

	opts.Logger.Info("queue opened",
		logging.F("path", path),
		logging.F("count", log.Size()),
		logging.F("codec", codec.Name(c)),
	)

	return q, nil
}

// Count returns the number of values in the queue.
// A closed queue reports zero.
func (q *Queue[T]) Count() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closedLocked() {
		return 0
	}
	return q.log.Size()
}

// Path returns the path the queue was opened with.
func (q *Queue[T]) Path() string {
	return q.path
}

// IsClosed returns whether the queue has been closed, either by Close or
// because the log file could not be reopened after compaction.
func (q *Queue[T]) IsClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.closedLocked()
}

// closedLocked reports whether the queue is unusable. Callers hold q.mu.
func (q *Queue[T]) closedLocked() bool {
	return q.closed || q.log.IsClosed()
}

// Close syncs and closes the queue file. The file stays on disk.
func (q *Queue[T]) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	q.closed = true

	if q.syncTimer != nil {
		q.syncTimer.Stop()
	}

	if err := q.log.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}

	q.opts.Logger.Info("queue closed", logging.F("path", q.path))
	return nil
}

// updateStateLocked refreshes the metrics gauges from the log file.
func (q *Queue[T]) updateStateLocked() {
	if _, noop := q.opts.MetricsCollector.(metrics.NoopCollector); noop {
		return
	}

	stats, err := q.log.Stats()
	if err != nil {
		return
	}
	q.opts.MetricsCollector.UpdateQueueState(
		stats.Count,
		uint64(stats.FileSize), //nolint:gosec // G115: file size is non-negative
		stats.ReclaimableBytes,
	)
}

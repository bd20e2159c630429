package queue

import (
	"time"

	"github.com/vnykmshr/typedq/internal/logfile"
	"github.com/vnykmshr/typedq/internal/logging"
)

// Stats contains queue statistics.
type Stats struct {
	// Path of the queue file
	Path string

	// Count is the number of values in the queue
	Count int

	// FileSize is the size of the queue file in bytes
	FileSize int64

	// LiveBytes is the number of bytes held by queued records
	LiveBytes uint64

	// ReclaimableBytes is the number of bytes compaction would free
	ReclaimableBytes uint64

	// Seq is the sequence number of the latest durable commit
	Seq uint64
}

// CompactionResult contains the result of a compaction operation.
type CompactionResult struct {
	// BytesFreed is the number of bytes removed from the file
	BytesFreed int64

	// Duration is how long compaction took
	Duration time.Duration
}

// Stats returns current queue statistics.
func (q *Queue[T]) Stats() (*Stats, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closedLocked() {
		return nil, ErrClosed
	}

	s, err := q.log.Stats()
	if err != nil {
		return nil, wrapLogError("read stats", err)
	}

	return &Stats{
		Path:             q.path,
		Count:            int(s.Count), //nolint:gosec // G115: bounded by file size
		FileSize:         s.FileSize,
		LiveBytes:        s.LiveBytes,
		ReclaimableBytes: s.ReclaimableBytes,
		Seq:              s.Seq,
	}, nil
}

// Sync forces pending writes to stable storage.
func (q *Queue[T]) Sync() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closedLocked() {
		return ErrClosed
	}

	if err := q.log.Sync(); err != nil {
		return wrapLogError("sync", err)
	}
	return nil
}

// Compact rewrites the queue file without the space held by consumed records.
func (q *Queue[T]) Compact() (*CompactionResult, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closedLocked() {
		return nil, ErrClosed
	}

	result, err := q.log.Compact()
	if err != nil {
		q.opts.MetricsCollector.RecordCompactionError()
		q.opts.Logger.Error("compaction failed",
			logging.F("path", q.path),
			logging.F("applied", result != nil),
			logging.F("error", err),
		)
		if result == nil {
			return nil, wrapLogError("compact", err)
		}
		// The compacted file is already in place.
		q.opts.MetricsCollector.RecordCompaction(result.BytesFreed, result.Duration)
		q.updateStateLocked()
		return &CompactionResult{
			BytesFreed: result.BytesFreed,
			Duration:   result.Duration,
		}, wrapLogError("compact", err)
	}

	q.opts.MetricsCollector.RecordCompaction(result.BytesFreed, result.Duration)
	q.updateStateLocked()

	q.opts.Logger.Info("compaction completed",
		logging.F("path", q.path),
		logging.F("bytes_freed", result.BytesFreed),
		logging.F("duration", result.Duration.String()),
	)

	return &CompactionResult{
		BytesFreed: result.BytesFreed,
		Duration:   result.Duration,
	}, nil
}

// onAutoCompact records compactions the log file triggers on its own.
// It runs inside a remove, with q.mu held.
func (q *Queue[T]) onAutoCompact(result *logfile.CompactionResult, err error) {
	if err != nil {
		q.opts.MetricsCollector.RecordCompactionError()
	}
	if result != nil {
		q.opts.MetricsCollector.RecordCompaction(result.BytesFreed, result.Duration)
	}
}

// startSyncTimer starts the periodic sync timer. Callers hold q.mu.
func (q *Queue[T]) startSyncTimer() {
	q.syncTimer = time.AfterFunc(q.opts.SyncInterval, func() {
		q.mu.Lock()
		defer q.mu.Unlock()

		if q.closedLocked() {
			return
		}
		if err := q.log.Sync(); err != nil {
			q.opts.Logger.Warn("periodic sync failed",
				logging.F("path", q.path),
				logging.F("error", err),
			)
		}
		q.syncTimer.Reset(q.opts.SyncInterval)
	})
}

package queue

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/vnykmshr/typedq/internal/logging"
)

// Enqueue encodes v and appends it to the tail of the queue.
// On failure nothing is appended.
func (q *Queue[T]) Enqueue(v T) error {
	start := time.Now()

	data, err := q.codec.Encode(v)
	if err != nil {
		q.opts.MetricsCollector.RecordEnqueueError()
		return fmt.Errorf("%w: %w", ErrEncode, err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closedLocked() {
		q.opts.MetricsCollector.RecordEnqueueError()
		return ErrClosed
	}

	if err := q.appendLocked(data); err != nil {
		q.opts.MetricsCollector.RecordEnqueueError()
		return err
	}

	q.opts.MetricsCollector.RecordEnqueue(len(data), time.Since(start))
	q.updateStateLocked()

	return nil
}

// EnqueueAll appends vs in order. It stops at the first value that fails and
// returns that error; values appended before it stay in the queue.
//
// The batch is appended under one lock acquisition, so values from concurrent
// producers are not interleaved with it.
func (q *Queue[T]) EnqueueAll(vs []T) error {
	if len(vs) == 0 {
		return nil
	}

	start := time.Now()

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closedLocked() {
		q.opts.MetricsCollector.RecordEnqueueError()
		return ErrClosed
	}

	appended, totalSize := 0, 0
	defer func() {
		if appended > 0 {
			q.opts.MetricsCollector.RecordEnqueueBatch(appended, totalSize, time.Since(start))
			q.updateStateLocked()
		}
	}()

	for i, v := range vs {
		data, err := q.codec.Encode(v)
		if err != nil {
			q.opts.MetricsCollector.RecordEnqueueError()
			return fmt.Errorf("value %d: %w: %w", i, ErrEncode, err)
		}

		if err := q.appendLocked(data); err != nil {
			q.opts.MetricsCollector.RecordEnqueueError()
			return fmt.Errorf("value %d: %w", i, err)
		}

		appended++
		totalSize += len(data)
	}

	q.opts.Logger.Debug("batch enqueued",
		logging.F("count", appended),
		logging.F("total_size", totalSize),
	)

	return nil
}

// appendLocked writes one encoded record. Callers hold q.mu.
func (q *Queue[T]) appendLocked(data []byte) error {
	if err := checkDiskSpace(filepath.Dir(q.path), q.opts.MinFreeDiskSpace); err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}

	if err := q.log.Add(data); err != nil {
		q.opts.Logger.Error("enqueue failed",
			logging.F("path", q.path),
			logging.F("size", len(data)),
			logging.F("error", err),
		)
		return wrapLogError("append record", err)
	}

	return nil
}

package queue

import (
	"fmt"
	"time"

	"github.com/vnykmshr/typedq/internal/logging"
)

// CancellableDequeue offers the oldest value to decide and removes it only if
// decide returns true.
//
// On an empty queue decide is not called and (false, nil) is returned. A head
// record that does not decode as T yields ErrCorrupted and stays in place.
// decide runs with the queue locked; it must not use the same queue. If decide
// panics the record is kept and the lock is released.
func (q *Queue[T]) CancellableDequeue(decide func(T) bool) (bool, error) {
	start := time.Now()

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closedLocked() {
		return false, ErrClosed
	}

	_, size, removed, err := q.dequeueLocked(decide)
	if removed {
		q.opts.MetricsCollector.RecordDequeue(size, time.Since(start))
		q.updateStateLocked()
	}
	return removed, err
}

// Dequeue removes and returns the oldest value.
// ok is false when the queue is empty.
func (q *Queue[T]) Dequeue() (v T, ok bool, err error) {
	start := time.Now()

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closedLocked() {
		return v, false, ErrClosed
	}

	v, size, ok, err := q.dequeueLocked(nil)
	if ok {
		q.opts.MetricsCollector.RecordDequeue(size, time.Since(start))
		q.updateStateLocked()
	}
	return v, ok, err
}

// DequeueAll removes every value and returns them oldest first. An empty queue
// yields an empty, non-nil slice.
//
// The queue stays locked for the whole drain. If a record fails part way, the
// values already removed are returned together with the error.
func (q *Queue[T]) DequeueAll() ([]T, error) {
	start := time.Now()

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closedLocked() {
		return nil, ErrClosed
	}

	out := make([]T, 0, q.log.Size())
	totalSize := 0
	defer func() {
		if len(out) > 0 {
			q.opts.MetricsCollector.RecordDequeueBatch(len(out), totalSize, time.Since(start))
			q.updateStateLocked()
		}
	}()

	for {
		v, size, ok, err := q.dequeueLocked(nil)
		if err != nil {
			return out, fmt.Errorf("after %d values: %w", len(out), err)
		}
		if !ok {
			return out, nil
		}
		out = append(out, v)
		totalSize += size
	}
}

// Clear removes every record without decoding it and returns how many were
// removed. Records that no longer decode as T are dropped too.
func (q *Queue[T]) Clear() (int, error) {
	start := time.Now()

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closedLocked() {
		return 0, ErrClosed
	}

	stats, err := q.log.Stats()
	if err != nil {
		return 0, wrapLogError("clear", err)
	}
	if stats.Count == 0 {
		return 0, nil
	}

	if err := q.log.Clear(); err != nil {
		return 0, wrapLogError("clear", err)
	}

	n := int(stats.Count) //nolint:gosec // G115: bounded by file size
	q.opts.MetricsCollector.RecordDequeueBatch(n, int(stats.LiveBytes), time.Since(start)) //nolint:gosec // G115: bounded by file size
	q.updateStateLocked()

	q.opts.Logger.Info("queue cleared",
		logging.F("path", q.path),
		logging.F("removed", n),
	)
	return n, nil
}

// Peek returns the oldest value without removing it.
// ok is false when the queue is empty.
func (q *Queue[T]) Peek() (v T, ok bool, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closedLocked() {
		return v, false, ErrClosed
	}

	v, _, ok, err = q.peekLocked()
	return v, ok, err
}

// Scan calls fn with up to limit values from oldest to newest without removing
// them, stopping early when fn returns false. A limit of 0 visits every value.
func (q *Queue[T]) Scan(limit int, fn func(index int, v T) bool) error {
	if limit < 0 {
		return fmt.Errorf("limit cannot be negative: %d", limit)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closedLocked() {
		return ErrClosed
	}

	var decodeErr error
	err := q.log.ForEach(func(i int, payload []byte) bool {
		if limit > 0 && i >= limit {
			return false
		}
		v, err := q.codec.Decode(payload)
		if err != nil {
			q.opts.MetricsCollector.RecordCorruption()
			decodeErr = fmt.Errorf("%w: value %d: %w", ErrCorrupted, i, err)
			return false
		}
		return fn(i, v)
	})
	if err != nil {
		return wrapLogError("scan records", err)
	}
	return decodeErr
}

// peekLocked reads and decodes the head record. Callers hold q.mu.
func (q *Queue[T]) peekLocked() (v T, size int, ok bool, err error) {
	payload, ok, err := q.log.Peek()
	if err != nil {
		q.opts.MetricsCollector.RecordDequeueError()
		return v, 0, false, wrapLogError("read head record", err)
	}
	if !ok {
		return v, 0, false, nil
	}

	v, err = q.codec.Decode(payload)
	if err != nil {
		q.opts.MetricsCollector.RecordCorruption()
		q.opts.Logger.Warn("head record does not decode",
			logging.F("path", q.path),
			logging.F("size", len(payload)),
			logging.F("error", err),
		)
		return v, 0, false, fmt.Errorf("%w: %w", ErrCorrupted, err)
	}

	return v, len(payload), true, nil
}

// dequeueLocked runs one peek-decide-commit cycle. A nil decide always
// commits. removed reports whether the head record left the log.
// Callers hold q.mu.
func (q *Queue[T]) dequeueLocked(decide func(T) bool) (v T, size int, removed bool, err error) {
	v, size, ok, err := q.peekLocked()
	if err != nil || !ok {
		return v, 0, false, err
	}

	if decide != nil && !decide(v) {
		q.opts.MetricsCollector.RecordAbandon()
		q.opts.Logger.Debug("dequeue abandoned", logging.F("size", size))
		var zero T
		return zero, 0, false, nil
	}

	if err := q.log.Remove(); err != nil {
		q.opts.MetricsCollector.RecordDequeueError()
		q.opts.Logger.Error("remove failed",
			logging.F("path", q.path),
			logging.F("error", err),
		)
		var zero T
		return zero, 0, false, wrapLogError("remove head record", err)
	}

	q.opts.Logger.Debug("record dequeued", logging.F("size", size))
	return v, size, true, nil
}

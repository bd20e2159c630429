package queue

import (
	"context"
	"fmt"
	"time"
)

// DefaultPollInterval is how often Stream checks an empty queue.
const DefaultPollInterval = 100 * time.Millisecond

// StreamHandler processes one value. Returning an error keeps the value in
// the queue and stops the stream.
type StreamHandler[T any] func(v T) error

// Stream delivers values to handler oldest first until ctx is done or the
// handler fails. Each value is removed only after handler returns nil.
//
// handler runs as the decision of a cancellable dequeue, so it holds the
// queue lock and must not use the same queue. An empty queue is polled every
// pollInterval (DefaultPollInterval if zero).
func (q *Queue[T]) Stream(ctx context.Context, pollInterval time.Duration, handler StreamHandler[T]) error {
	if handler == nil {
		return fmt.Errorf("handler cannot be nil")
	}
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		var handlerErr error
		removed, err := q.CancellableDequeue(func(v T) bool {
			handlerErr = handler(v)
			return handlerErr == nil
		})
		if err != nil {
			return fmt.Errorf("stream dequeue error: %w", err)
		}
		if handlerErr != nil {
			return fmt.Errorf("handler error: %w", handlerErr)
		}
		if removed {
			// Drain without waiting while values are available.
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

package queue

import (
	"errors"
	"fmt"

	"github.com/vnykmshr/typedq/internal/logfile"
)

var (
	// ErrIO indicates the backing log could not be opened, read or written.
	ErrIO = errors.New("typedq: storage failure")

	// ErrCorrupted indicates a stored record does not decode as the queue's type.
	// The record is left in place.
	ErrCorrupted = errors.New("typedq: corrupted record")

	// ErrEncode indicates a value could not be encoded. Nothing was appended.
	ErrEncode = errors.New("typedq: encode failed")

	// ErrClosed is returned when operating on a closed queue.
	ErrClosed = errors.New("typedq: queue is closed")

	// ErrRecordTooLarge is returned when an encoded value exceeds MaxRecordSize.
	ErrRecordTooLarge = errors.New("typedq: record too large")
)

// wrapLogError maps a log file error onto the queue's error kinds.
func wrapLogError(op string, err error) error {
	switch {
	case errors.Is(err, logfile.ErrClosed):
		return ErrClosed
	case errors.Is(err, logfile.ErrRecordTooLarge):
		return fmt.Errorf("%w: %w", ErrRecordTooLarge, err)
	default:
		return fmt.Errorf("%w: failed to %s: %w", ErrIO, op, err)
	}
}

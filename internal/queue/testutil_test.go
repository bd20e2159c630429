package queue

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/vnykmshr/typedq/internal/codec"
)

// person is the structured value used across queue tests.
type person struct {
	Name  string `msgpack:"name"`
	Age   int    `msgpack:"age"`
	Email string `msgpack:"email"`
}

var errBoom = errors.New("boom")

// failingCodec encodes ints with msgpack but refuses to encode failOn.
type failingCodec struct {
	failOn int
}

func (c failingCodec) Encode(v int) ([]byte, error) {
	if v == c.failOn {
		return nil, errBoom
	}
	return codec.Msgpack[int]().Encode(v)
}

func (c failingCodec) Decode(data []byte) (int, error) {
	return codec.Msgpack[int]().Decode(data)
}

// queuePath returns a fresh queue file path inside a test temp dir.
func queuePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "queue.tdq")
}

// setupQueue opens a queue of T at a fresh path with optional options.
// The queue is automatically closed when the test completes.
func setupQueue[T any](t *testing.T, opts *Options) *Queue[T] {
	t.Helper()

	q, err := Open[T](queuePath(t), opts)
	if err != nil {
		t.Fatalf("failed to open queue: %v", err)
	}
	t.Cleanup(func() { _ = q.Close() })

	return q
}

// enqueueInts enqueues 0..n-1.
func enqueueInts(t *testing.T, q *Queue[int], n int) {
	t.Helper()

	for i := 0; i < n; i++ {
		if err := q.Enqueue(i); err != nil {
			t.Fatalf("enqueue %d failed: %v", i, err)
		}
	}
}

// assertCount fails the test if the queue does not hold want values.
func assertCount[T any](t *testing.T, q *Queue[T], want int) {
	t.Helper()

	if got := q.Count(); got != want {
		t.Errorf("Count() = %d, want %d", got, want)
	}
}

// assertNoError fails the test if err is not nil.
func assertNoError(t *testing.T, err error) {
	t.Helper()

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

package metrics

import (
	"sync"
	"testing"
	"time"
)

func TestCollector_BasicOperations(t *testing.T) {
	c := NewCollector("test_queue")

	c.RecordEnqueue(100, 500*time.Microsecond)
	c.RecordEnqueue(200, 1*time.Millisecond)
	c.RecordDequeue(100, 2*time.Millisecond)
	c.RecordAbandon()

	snapshot := c.GetSnapshot()

	if snapshot.EnqueueTotal != 2 {
		t.Errorf("EnqueueTotal = %d, want 2", snapshot.EnqueueTotal)
	}
	if snapshot.DequeueTotal != 1 {
		t.Errorf("DequeueTotal = %d, want 1", snapshot.DequeueTotal)
	}
	if snapshot.AbandonTotal != 1 {
		t.Errorf("AbandonTotal = %d, want 1", snapshot.AbandonTotal)
	}
	if snapshot.EnqueueBytes != 300 {
		t.Errorf("EnqueueBytes = %d, want 300", snapshot.EnqueueBytes)
	}
	if snapshot.DequeueBytes != 100 {
		t.Errorf("DequeueBytes = %d, want 100", snapshot.DequeueBytes)
	}
	if snapshot.QueueName != "test_queue" {
		t.Errorf("QueueName = %s, want test_queue", snapshot.QueueName)
	}
}

func TestCollector_BatchOperations(t *testing.T) {
	c := NewCollector("test_queue")

	c.RecordEnqueueBatch(10, 1000, 5*time.Millisecond)
	c.RecordDequeueBatch(5, 500, 3*time.Millisecond)

	snapshot := c.GetSnapshot()

	if snapshot.EnqueueBatch != 1 || snapshot.DequeueBatch != 1 {
		t.Errorf("batches = %d/%d, want 1/1", snapshot.EnqueueBatch, snapshot.DequeueBatch)
	}
	if snapshot.EnqueueTotal != 10 {
		t.Errorf("EnqueueTotal = %d, want 10", snapshot.EnqueueTotal)
	}
	if snapshot.DequeueTotal != 5 {
		t.Errorf("DequeueTotal = %d, want 5", snapshot.DequeueTotal)
	}
	if snapshot.DequeueBytes != 500 {
		t.Errorf("DequeueBytes = %d, want 500", snapshot.DequeueBytes)
	}
}

func TestCollector_Errors(t *testing.T) {
	c := NewCollector("test_queue")

	c.RecordEnqueueError()
	c.RecordDequeueError()
	c.RecordDequeueError()
	c.RecordCorruption()

	snapshot := c.GetSnapshot()
	if snapshot.EnqueueErrors != 1 {
		t.Errorf("EnqueueErrors = %d, want 1", snapshot.EnqueueErrors)
	}
	if snapshot.DequeueErrors != 2 {
		t.Errorf("DequeueErrors = %d, want 2", snapshot.DequeueErrors)
	}
	if snapshot.Corruptions != 1 {
		t.Errorf("Corruptions = %d, want 1", snapshot.Corruptions)
	}
}

func TestCollector_Compaction(t *testing.T) {
	c := NewCollector("test_queue")

	c.RecordCompaction(4096, 10*time.Millisecond)
	c.RecordCompaction(1024, 5*time.Millisecond)
	c.RecordCompactionError()

	snapshot := c.GetSnapshot()
	if snapshot.CompactionsTotal != 2 {
		t.Errorf("CompactionsTotal = %d, want 2", snapshot.CompactionsTotal)
	}
	if snapshot.BytesFreed != 5120 {
		t.Errorf("BytesFreed = %d, want 5120", snapshot.BytesFreed)
	}
	if snapshot.CompactionErrors != 1 {
		t.Errorf("CompactionErrors = %d, want 1", snapshot.CompactionErrors)
	}
	if snapshot.LastCompactionUnixSec == 0 {
		t.Error("LastCompactionUnixSec = 0, want timestamp")
	}
}

func TestCollector_QueueState(t *testing.T) {
	c := NewCollector("test_queue")
	c.UpdateQueueState(42, 8192, 1024)

	snapshot := c.GetSnapshot()
	if snapshot.PendingRecords != 42 {
		t.Errorf("PendingRecords = %d, want 42", snapshot.PendingRecords)
	}
	if snapshot.FileSize != 8192 {
		t.Errorf("FileSize = %d, want 8192", snapshot.FileSize)
	}
	if snapshot.ReclaimableBytes != 1024 {
		t.Errorf("ReclaimableBytes = %d, want 1024", snapshot.ReclaimableBytes)
	}
}

func TestDurationHistogram_Percentiles(t *testing.T) {
	tests := []struct {
		name      string
		durations []time.Duration
		p         float64
		want      time.Duration
	}{
		{"empty", nil, 0.5, 0},
		{"sub-microsecond", []time.Duration{100 * time.Nanosecond}, 0.5, 500 * time.Nanosecond},
		{"milliseconds", []time.Duration{2 * time.Millisecond, 3 * time.Millisecond}, 0.99, 5 * time.Millisecond},
		{"mixed p50", []time.Duration{5 * time.Microsecond, 5 * time.Microsecond, 5 * time.Second}, 0.5, 5 * time.Microsecond},
		{"mixed max", []time.Duration{5 * time.Microsecond, 5 * time.Microsecond, 5 * time.Second}, 1.0, 5 * time.Second},
		{"overflow", []time.Duration{time.Hour}, 0.5, 100 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newDurationHistogram()
			for _, d := range tt.durations {
				h.observe(d)
			}
			if got := h.percentile(tt.p); got != tt.want {
				t.Errorf("percentile(%v) = %v, want %v", tt.p, got, tt.want)
			}
		})
	}
}

func TestCollector_Concurrent(t *testing.T) {
	c := NewCollector("test_queue")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				c.RecordEnqueue(10, time.Microsecond)
				c.RecordDequeue(10, time.Microsecond)
			}
		}()
	}
	wg.Wait()

	snapshot := c.GetSnapshot()
	if snapshot.EnqueueTotal != 8000 || snapshot.DequeueTotal != 8000 {
		t.Errorf("totals = %d/%d, want 8000/8000", snapshot.EnqueueTotal, snapshot.DequeueTotal)
	}
}

// Package metrics collects operation counters and latency histograms for a
// queue. Collectors are lock-free and safe for concurrent use.
//
// Usage:
//
//	collector := metrics.NewCollector("orders")
//	opts := queue.DefaultOptions()
//	opts.MetricsCollector = collector
//
//	// Export to Prometheus (optional)
//	prometheus.MustRegister(collector)
//
//	// or read directly
//	snap := collector.GetSnapshot()
//	fmt.Println(snap.DequeueTotal, snap.AbandonTotal)
package metrics

import (
	"sync/atomic"
	"time"
)

// Collector tracks queue metrics.
type Collector struct {
	queueName string

	// Operation counters
	enqueueTotal  atomic.Uint64
	dequeueTotal  atomic.Uint64
	abandonTotal  atomic.Uint64
	enqueueBatch  atomic.Uint64
	dequeueBatch  atomic.Uint64
	enqueueErrors atomic.Uint64
	dequeueErrors atomic.Uint64
	corruptions   atomic.Uint64

	// Encoded record bytes
	enqueueBytes atomic.Uint64
	dequeueBytes atomic.Uint64

	enqueueDurations *durationHistogram
	dequeueDurations *durationHistogram

	// Queue state, refreshed after mutating operations
	pendingRecords   atomic.Uint64
	fileSize         atomic.Uint64
	reclaimableBytes atomic.Uint64

	// Compaction
	compactionsTotal  atomic.Uint64
	bytesFreed        atomic.Uint64
	compactionErrors  atomic.Uint64
	lastCompactionSec atomic.Int64 // Unix seconds
}

// NewCollector creates a new metrics collector for a queue.
func NewCollector(queueName string) *Collector {
	return &Collector{
		queueName:        queueName,
		enqueueDurations: newDurationHistogram(),
		dequeueDurations: newDurationHistogram(),
	}
}

// RecordEnqueue records a successful enqueue of one encoded record.
func (c *Collector) RecordEnqueue(recordSize int, duration time.Duration) {
	c.enqueueTotal.Add(1)
	c.enqueueBytes.Add(uint64(recordSize)) //nolint:gosec // G115: sizes are non-negative
	c.enqueueDurations.observe(duration)
}

// RecordEnqueueBatch records an EnqueueAll call that appended count records.
func (c *Collector) RecordEnqueueBatch(count, totalSize int, duration time.Duration) {
	c.enqueueBatch.Add(1)
	c.enqueueTotal.Add(uint64(count))    //nolint:gosec // G115: counts are non-negative
	c.enqueueBytes.Add(uint64(totalSize)) //nolint:gosec // G115: sizes are non-negative
	c.enqueueDurations.observe(duration)
}

// RecordDequeue records a committed removal.
func (c *Collector) RecordDequeue(recordSize int, duration time.Duration) {
	c.dequeueTotal.Add(1)
	c.dequeueBytes.Add(uint64(recordSize)) //nolint:gosec // G115: sizes are non-negative
	c.dequeueDurations.observe(duration)
}

// RecordDequeueBatch records a DequeueAll drain of count records.
func (c *Collector) RecordDequeueBatch(count, totalSize int, duration time.Duration) {
	c.dequeueBatch.Add(1)
	c.dequeueTotal.Add(uint64(count))    //nolint:gosec // G115: counts are non-negative
	c.dequeueBytes.Add(uint64(totalSize)) //nolint:gosec // G115: sizes are non-negative
	c.dequeueDurations.observe(duration)
}

// RecordAbandon records a peek whose decision left the record in place.
func (c *Collector) RecordAbandon() {
	c.abandonTotal.Add(1)
}

// RecordEnqueueError records an enqueue failure.
func (c *Collector) RecordEnqueueError() {
	c.enqueueErrors.Add(1)
}

// RecordDequeueError records a dequeue failure.
func (c *Collector) RecordDequeueError() {
	c.dequeueErrors.Add(1)
}

// RecordCorruption records a head record that failed to decode.
func (c *Collector) RecordCorruption() {
	c.corruptions.Add(1)
}

// RecordCompaction records a compaction operation.
func (c *Collector) RecordCompaction(bytesFreed int64, _ time.Duration) {
	c.compactionsTotal.Add(1)
	c.bytesFreed.Add(uint64(bytesFreed)) //nolint:gosec // G115: bytes freed is non-negative
	c.lastCompactionSec.Store(time.Now().Unix())
}

// RecordCompactionError records a compaction failure.
func (c *Collector) RecordCompactionError() {
	c.compactionErrors.Add(1)
}

// UpdateQueueState updates queue state gauges.
func (c *Collector) UpdateQueueState(pending, fileSize, reclaimable uint64) {
	c.pendingRecords.Store(pending)
	c.fileSize.Store(fileSize)
	c.reclaimableBytes.Store(reclaimable)
}

// GetSnapshot returns a snapshot of current metrics.
func (c *Collector) GetSnapshot() *Snapshot {
	return &Snapshot{
		QueueName:             c.queueName,
		EnqueueTotal:          c.enqueueTotal.Load(),
		DequeueTotal:          c.dequeueTotal.Load(),
		AbandonTotal:          c.abandonTotal.Load(),
		EnqueueBatch:          c.enqueueBatch.Load(),
		DequeueBatch:          c.dequeueBatch.Load(),
		EnqueueErrors:         c.enqueueErrors.Load(),
		DequeueErrors:         c.dequeueErrors.Load(),
		Corruptions:           c.corruptions.Load(),
		EnqueueBytes:          c.enqueueBytes.Load(),
		DequeueBytes:          c.dequeueBytes.Load(),
		EnqueueDurationP50:    c.enqueueDurations.percentile(0.50),
		EnqueueDurationP95:    c.enqueueDurations.percentile(0.95),
		EnqueueDurationP99:    c.enqueueDurations.percentile(0.99),
		DequeueDurationP50:    c.dequeueDurations.percentile(0.50),
		DequeueDurationP95:    c.dequeueDurations.percentile(0.95),
		DequeueDurationP99:    c.dequeueDurations.percentile(0.99),
		PendingRecords:        c.pendingRecords.Load(),
		FileSize:              c.fileSize.Load(),
		ReclaimableBytes:      c.reclaimableBytes.Load(),
		CompactionsTotal:      c.compactionsTotal.Load(),
		BytesFreed:            c.bytesFreed.Load(),
		CompactionErrors:      c.compactionErrors.Load(),
		LastCompactionUnixSec: c.lastCompactionSec.Load(),
	}
}

// Snapshot is a point-in-time view of metrics.
type Snapshot struct {
	QueueName string

	// Operation counters
	EnqueueTotal  uint64
	DequeueTotal  uint64
	AbandonTotal  uint64
	EnqueueBatch  uint64
	DequeueBatch  uint64
	EnqueueErrors uint64
	DequeueErrors uint64
	Corruptions   uint64

	// Encoded record bytes
	EnqueueBytes uint64
	DequeueBytes uint64

	// Duration percentiles, as bucket midpoints
	EnqueueDurationP50 time.Duration
	EnqueueDurationP95 time.Duration
	EnqueueDurationP99 time.Duration
	DequeueDurationP50 time.Duration
	DequeueDurationP95 time.Duration
	DequeueDurationP99 time.Duration

	// Queue state
	PendingRecords   uint64
	FileSize         uint64
	ReclaimableBytes uint64

	// Compaction
	CompactionsTotal      uint64
	BytesFreed            uint64
	CompactionErrors      uint64
	LastCompactionUnixSec int64
}

// bucketBounds are the exclusive upper bounds of each histogram bucket; the
// last bucket is unbounded.
var bucketBounds = [...]time.Duration{
	time.Microsecond,
	10 * time.Microsecond,
	100 * time.Microsecond,
	time.Millisecond,
	10 * time.Millisecond,
	100 * time.Millisecond,
	time.Second,
	10 * time.Second,
	100 * time.Second,
}

// bucketValues is the representative duration reported for each bucket.
var bucketValues = [len(bucketBounds) + 1]time.Duration{
	500 * time.Nanosecond,
	5 * time.Microsecond,
	50 * time.Microsecond,
	500 * time.Microsecond,
	5 * time.Millisecond,
	50 * time.Millisecond,
	500 * time.Millisecond,
	5 * time.Second,
	50 * time.Second,
	100 * time.Second,
}

// durationHistogram counts durations in fixed decade buckets.
type durationHistogram struct {
	buckets [len(bucketBounds) + 1]atomic.Uint64
	sum     atomic.Int64 // nanoseconds
}

func newDurationHistogram() *durationHistogram {
	return &durationHistogram{}
}

func (h *durationHistogram) observe(d time.Duration) {
	i := 0
	for i < len(bucketBounds) && d >= bucketBounds[i] {
		i++
	}
	h.buckets[i].Add(1)
	h.sum.Add(int64(d))
}

// percentile approximates a percentile from histogram buckets.
func (h *durationHistogram) percentile(p float64) time.Duration {
	var total uint64
	for i := range h.buckets {
		total += h.buckets[i].Load()
	}
	if total == 0 {
		return 0
	}

	target := uint64(float64(total) * p)
	if target == 0 {
		target = 1
	}
	var count uint64
	for i := range h.buckets {
		count += h.buckets[i].Load()
		if count >= target {
			return bucketValues[i]
		}
	}

	return 0
}

// NoopCollector is a metrics collector that does nothing.
type NoopCollector struct{}

func (NoopCollector) RecordEnqueue(int, time.Duration)           {}
func (NoopCollector) RecordEnqueueBatch(int, int, time.Duration) {}
func (NoopCollector) RecordDequeue(int, time.Duration)           {}
func (NoopCollector) RecordDequeueBatch(int, int, time.Duration) {}
func (NoopCollector) RecordAbandon()                             {}
func (NoopCollector) RecordEnqueueError()                        {}
func (NoopCollector) RecordDequeueError()                        {}
func (NoopCollector) RecordCorruption()                          {}
func (NoopCollector) RecordCompaction(int64, time.Duration)      {}
func (NoopCollector) RecordCompactionError()                     {}
func (NoopCollector) UpdateQueueState(uint64, uint64, uint64)    {}

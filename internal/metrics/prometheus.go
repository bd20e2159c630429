package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "typedq"

var (
	constLabels = []string{"queue"}

	enqueueTotalDesc = prometheus.NewDesc(namespace+"_enqueue_total",
		"Values appended to the queue", constLabels, nil)
	dequeueTotalDesc = prometheus.NewDesc(namespace+"_dequeue_total",
		"Values removed from the queue", constLabels, nil)
	abandonTotalDesc = prometheus.NewDesc(namespace+"_abandon_total",
		"Cancellable dequeues that left the head in place", constLabels, nil)
	errorsTotalDesc = prometheus.NewDesc(namespace+"_errors_total",
		"Failed operations by kind", append(constLabels, "op"), nil)
	corruptionsTotalDesc = prometheus.NewDesc(namespace+"_corrupted_records_total",
		"Head records that failed to decode", constLabels, nil)
	enqueueBytesDesc = prometheus.NewDesc(namespace+"_enqueue_bytes_total",
		"Encoded bytes appended", constLabels, nil)
	dequeueBytesDesc = prometheus.NewDesc(namespace+"_dequeue_bytes_total",
		"Encoded bytes removed", constLabels, nil)
	durationDesc = prometheus.NewDesc(namespace+"_operation_duration_seconds",
		"Enqueue and dequeue latency", append(constLabels, "op"), nil)
	pendingDesc = prometheus.NewDesc(namespace+"_pending_records",
		"Values waiting in the queue", constLabels, nil)
	fileSizeDesc = prometheus.NewDesc(namespace+"_file_size_bytes",
		"Size of the queue file", constLabels, nil)
	reclaimableDesc = prometheus.NewDesc(namespace+"_reclaimable_bytes",
		"Bytes compaction would free", constLabels, nil)
	compactionsDesc = prometheus.NewDesc(namespace+"_compactions_total",
		"Completed compactions", constLabels, nil)
	bytesFreedDesc = prometheus.NewDesc(namespace+"_compaction_freed_bytes_total",
		"Bytes freed by compaction", constLabels, nil)
)

var _ prometheus.Collector = (*Collector)(nil)

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		enqueueTotalDesc, dequeueTotalDesc, abandonTotalDesc, errorsTotalDesc,
		corruptionsTotalDesc, enqueueBytesDesc, dequeueBytesDesc, durationDesc,
		pendingDesc, fileSizeDesc, reclaimableDesc, compactionsDesc, bytesFreedDesc,
	} {
		ch <- d
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	counter := func(d *prometheus.Desc, v uint64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), append([]string{c.queueName}, labels...)...)
	}
	gauge := func(d *prometheus.Desc, v uint64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, float64(v), c.queueName)
	}

	counter(enqueueTotalDesc, c.enqueueTotal.Load())
	counter(dequeueTotalDesc, c.dequeueTotal.Load())
	counter(abandonTotalDesc, c.abandonTotal.Load())
	counter(errorsTotalDesc, c.enqueueErrors.Load(), "enqueue")
	counter(errorsTotalDesc, c.dequeueErrors.Load(), "dequeue")
	counter(errorsTotalDesc, c.compactionErrors.Load(), "compact")
	counter(corruptionsTotalDesc, c.corruptions.Load())
	counter(enqueueBytesDesc, c.enqueueBytes.Load())
	counter(dequeueBytesDesc, c.dequeueBytes.Load())
	counter(compactionsDesc, c.compactionsTotal.Load())
	counter(bytesFreedDesc, c.bytesFreed.Load())

	gauge(pendingDesc, c.pendingRecords.Load())
	gauge(fileSizeDesc, c.fileSize.Load())
	gauge(reclaimableDesc, c.reclaimableBytes.Load())

	ch <- c.enqueueDurations.constHistogram(c.queueName, "enqueue")
	ch <- c.dequeueDurations.constHistogram(c.queueName, "dequeue")
}

// constHistogram exports h with cumulative bucket counts in seconds.
// The unbounded last bucket is implied by the total count.
func (h *durationHistogram) constHistogram(labels ...string) prometheus.Metric {
	buckets := make(map[float64]uint64, len(bucketBounds))
	var cumulative uint64
	for i, bound := range bucketBounds {
		cumulative += h.buckets[i].Load()
		buckets[bound.Seconds()] = cumulative
	}
	total := cumulative + h.buckets[len(bucketBounds)].Load()
	sum := float64(h.sum.Load()) / 1e9

	return prometheus.MustNewConstHistogram(durationDesc, total, sum, buckets, labels...)
}

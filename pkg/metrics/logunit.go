package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	AppendsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "logunit_appends_total",
		Help: "Total number of entries appended to segment files",
	})

	AppendBytesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "logunit_append_bytes_total",
		Help: "Total number of framed bytes written to segment files",
	})

	OverwritesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "logunit_overwrites_total",
		Help: "Rejected appends by overwrite cause",
	}, []string{"cause"})

	ReadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "logunit_reads_total",
		Help: "Reads by result (data, trimmed, empty, cached)",
	}, []string{"result"})

	RecoveryTruncations = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "logunit_recovery_truncations_total",
		Help: "Segment files truncated during recovery because of a partially written record",
	})

	CompactedSegments = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "logunit_compacted_segments_total",
		Help: "Segment files deleted by compaction",
	})

	CompactedBytes = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "logunit_compacted_bytes_total",
		Help: "Bytes freed by compaction",
	})

	OpenSegments = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "logunit_open_segments",
		Help: "Number of segment handles currently open",
	})

	TrimMark = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "logunit_trim_mark",
		Help: "Current starting address; lower addresses are trimmed",
	})

	GlobalTail = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "logunit_global_tail",
		Help: "Highest address written to the log",
	})

	SyncLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "logunit_sync_latency_seconds",
		Help:    "Histogram of forced sync latency",
		Buckets: prometheus.DefBuckets,
	})
)

// ObserveAppend records a successful append of n entries totalling bytes framed bytes.
func ObserveAppend(n int, bytes int) {
	AppendsTotal.Add(float64(n))
	AppendBytesTotal.Add(float64(bytes))
}

func ObserveOverwrite(cause string) {
	OverwritesTotal.WithLabelValues(cause).Inc()
}

func ObserveRead(result string) {
	ReadsTotal.WithLabelValues(result).Inc()
}

// ObserveTails updates the trim mark and global tail gauges.
func ObserveTails(trimMark, globalTail int64) {
	TrimMark.Set(float64(trimMark))
	GlobalTail.Set(float64(globalTail))
}

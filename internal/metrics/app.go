package metrics

import "github.com/prometheus/client_golang/prometheus"

// Chat and note Prometheus metrics.
var (
	ChatRepliesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "chat_replies_total",
			Help:      "Total number of assistant replies by intent",
		},
		[]string{"intent"},
	)

	ChatMatchedNotes = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "chat_matched_notes",
			Help:      "Number of notes matched per chat message",
			Buckets:   []float64{0, 1, 2, 3},
		},
	)

	NoteUploadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "note_uploads_total",
			Help:      "Total note uploads by outcome",
		},
		[]string{"status"}, // "ok" / "error"
	)

	NoteUploadBytes = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "note_upload_bytes",
			Help:      "Size of uploaded note files in bytes",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 8),
		},
	)
)

var appMetricsRegistered bool

// RegisterAppMetrics registers chat and note metrics. Must be called once from main.
func RegisterAppMetrics() {
	if appMetricsRegistered {
		return
	}
	prometheus.MustRegister(ChatRepliesTotal)
	prometheus.MustRegister(ChatMatchedNotes)
	prometheus.MustRegister(NoteUploadsTotal)
	prometheus.MustRegister(NoteUploadBytes)
	appMetricsRegistered = true
}

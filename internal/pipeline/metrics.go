package pipeline

import "github.com/prometheus/client_golang/prometheus"

const (
	OutcomeAssembled  = "assembled"
	OutcomeIncomplete = "incomplete"
	OutcomeFailed     = "failed"
)

// Metrics holds the pipeline's Prometheus collectors.
type Metrics struct {
	Documents         *prometheus.CounterVec
	NeedsReview       prometheus.Counter
	RecognizeDuration prometheus.Histogram
}

func NewMetrics() *Metrics {
	return &Metrics{
		Documents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pnltracker_documents_total",
				Help: "Documents processed, by outcome",
			},
			[]string{"outcome"},
		),
		NeedsReview: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "pnltracker_needs_review_total",
				Help: "Documents missing a critical field or with low overall confidence",
			},
		),
		RecognizeDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pnltracker_recognize_duration_seconds",
				Help:    "Time spent recognizing one image",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
		),
	}
}

// Register adds all collectors to reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.Documents, m.NeedsReview, m.RecognizeDuration} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

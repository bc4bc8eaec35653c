package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	GesturesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aya_gestures_total",
		Help: "Finished gestures, by classified command",
	}, []string{"command"})

	CaptionRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aya_caption_requests_total",
		Help: "Caption requests sent to the vision endpoint, by outcome",
	}, []string{"status"})

	BatchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "aya_batch_duration_seconds",
		Help:    "Time from capture to aggregated caption",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 60},
	}, []string{"kind"})

	FramesSampledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aya_frames_sampled_total",
		Help: "Frames selected for captioning across all batches",
	})

	BatchesInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "aya_batches_in_flight",
		Help: "Analysis batches waiting on caption responses",
	})
)

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ProvisionsTotal counts finished pipeline runs by result code name.
	ProvisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "installer_provisions_total",
			Help: "Total number of tenant provisioning runs by result",
		},
		[]string{"result"},
	)

	// StepDuration tracks how long each pipeline step takes.
	StepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "installer_step_duration_seconds",
			Help:    "Duration of provisioning pipeline steps in seconds",
			Buckets: []float64{0.005, 0.05, 0.25, 1, 5, 15, 60, 300},
		},
		[]string{"step"},
	)

	// BatchesInFlight is the number of provisioning batches currently running.
	BatchesInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "installer_batches_in_flight",
			Help: "Number of provisioning batches currently running",
		},
	)
)

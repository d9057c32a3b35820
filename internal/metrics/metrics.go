// Package metrics holds Prometheus instruments for the form pipeline.  All
// collectors are registered with the global registry, so importing this
// package in main.go is enough to expose them on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Submission results.
const (
	ResultAccepted  = "accepted"
	ResultRejected  = "rejected"
	ResultMalformed = "malformed"
)

// Delivery outcomes.
const (
	OutcomeSent   = "sent"
	OutcomeFailed = "failed"
)

var (
	SubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "form_submissions_total",
			Help: "Form submissions received, by form and validation result.",
		}, []string{"form", "result"})

	DeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "form_deliveries_total",
			Help: "Notification delivery attempts, by form and outcome.",
		}, []string{"form", "outcome"})

	DeliverySeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "form_delivery_seconds",
			Help:    "Time spent in one notification delivery attempt.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"form"})
)

func init() {
	prometheus.MustRegister(
		SubmissionsTotal,
		DeliveriesTotal,
		DeliverySeconds,
	)
}

// ObserveDelivery records one delivery attempt that started at start.
func ObserveDelivery(form string, start time.Time, err error) {
	DeliverySeconds.WithLabelValues(form).Observe(time.Since(start).Seconds())
	outcome := OutcomeSent
	if err != nil {
		outcome = OutcomeFailed
	}
	DeliveriesTotal.WithLabelValues(form, outcome).Inc()
}

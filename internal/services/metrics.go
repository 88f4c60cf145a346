package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	otpRequestsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "yeslocker",
			Name:      "otp_requests_total",
			Help:      "Total number of OTP requests.",
		},
		[]string{"purpose", "status"},
	)

	smsDispatchCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "yeslocker",
			Name:      "sms_dispatch_total",
			Help:      "Total number of SMS dispatch attempts.",
		},
		[]string{"template", "status"},
	)

	applicationsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "yeslocker",
			Name:      "applications_total",
			Help:      "Total number of application lifecycle events.",
		},
		[]string{"event"},
	)

	sweepRunsCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "yeslocker",
			Name:      "reminder_sweep_runs_total",
			Help:      "Total number of reminder sweep runs.",
		},
	)

	sweepCandidatesGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "yeslocker",
			Name:      "reminder_sweep_candidates",
			Help:      "Inactive assignments found by the last sweep.",
		},
	)
)

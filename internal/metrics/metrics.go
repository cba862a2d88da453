// Package metrics holds the Prometheus collectors shared by the service and
// HTTP layers. Collectors register with the default registry, which the
// server exposes on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result label values.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultInvalid = "invalid"
	ResultError   = "error"
)

var (
	// Logins counts login attempts by method (password, github) and result.
	Logins = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "teamboard",
			Name:      "logins_total",
			Help:      "Login attempts by method and result.",
		},
		[]string{"method", "result"},
	)

	// Registrations counts registration submissions by result.
	Registrations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "teamboard",
			Name:      "registrations_total",
			Help:      "Registration submissions by result.",
		},
		[]string{"result"},
	)

	// PrivilegedFieldAttempts counts registrations that carried is_staff or
	// is_superuser. Those fields are always ignored.
	PrivilegedFieldAttempts = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "teamboard",
			Name:      "registration_privileged_fields_total",
			Help:      "Registration requests that tried to set privilege flags.",
		},
	)

	// PasswordResets counts reset requests and confirmations.
	PasswordResets = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "teamboard",
			Name:      "password_resets_total",
			Help:      "Password reset operations by stage (request, confirm) and result.",
		},
		[]string{"stage", "result"},
	)

	// HomeStates counts resolutions of the landing page by state.
	HomeStates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "teamboard",
			Name:      "home_states_total",
			Help:      "Landing page resolutions by home state.",
		},
		[]string{"state"},
	)

	// HTTPRequests counts served requests by route pattern and status.
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "teamboard",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPDuration observes request latency by route pattern.
	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "teamboard",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

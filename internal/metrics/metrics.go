package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ServiceRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signup_service_requests_total",
			Help: "Calls made to the activity service",
		},
		[]string{"endpoint", "status"},
	)

	ServiceRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "signup_service_request_duration_seconds",
			Help:    "Duration of calls made to the activity service",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"endpoint"},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signup_notifications_total",
			Help: "Status messages shown to the user",
		},
		[]string{"kind"},
	)

	RefreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signup_catalog_refreshes_total",
			Help: "Catalog refreshes by outcome",
		},
		[]string{"outcome"}, // applied, failed, discarded
	)

	EventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signup_ui_events_total",
			Help: "UI events dispatched by name",
		},
		[]string{"event"},
	)
)

// TrackServiceCall records one collaborator call. status 0 means no response.
func TrackServiceCall(endpoint string, status int, seconds float64) {
	label := "transport_error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	ServiceRequestsTotal.WithLabelValues(endpoint, label).Inc()
	ServiceRequestDuration.WithLabelValues(endpoint).Observe(seconds)
}

func TrackNotification(kind string) {
	NotificationsTotal.WithLabelValues(kind).Inc()
}

func TrackRefresh(outcome string) {
	RefreshesTotal.WithLabelValues(outcome).Inc()
}

func TrackEvent(name string) {
	EventsTotal.WithLabelValues(name).Inc()
}

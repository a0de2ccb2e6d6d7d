package metrics

import (
	"net/http"

	"github.com/aussiebroadwan/labres/pkg/authsdk"
	"github.com/aussiebroadwan/labres/pkg/reservation"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Session Metrics
var (
	// TokenRefreshesTotal tracks token exchanges by trigger and result
	TokenRefreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labres_token_refreshes_total",
			Help: "Token exchanges by trigger (recovery/timer/unauthorized/manual) and result",
		},
		[]string{"trigger", "result"},
	)

	// RequestRetriesTotal tracks 401-driven refresh-and-replay attempts
	RequestRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labres_request_retries_total",
			Help: "Requests replayed after a 401, by refresh result",
		},
		[]string{"result"},
	)
)

// Reservation Metrics
var (
	// ReservationRejectionsTotal tracks client-side rejections by reason
	ReservationRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labres_reservation_rejections_total",
			Help: "Reservations rejected before reaching the API, by reason",
		},
		[]string{"reason"},
	)

	// ReservationWritesTotal tracks create/update/delete calls by result
	ReservationWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labres_reservation_writes_total",
			Help: "Reservation writes sent to the API, by operation and result",
		},
		[]string{"operation", "result"},
	)
)

// HTTP Client Metrics
var (
	// APIRequestDuration tracks outbound request latency in seconds
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "labres_api_request_duration_seconds",
			Help:    "Outbound HTTP request duration in seconds",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"code", "method"},
	)
)

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// SessionObserver feeds authsdk lifecycle events into the session metrics.
type SessionObserver struct{}

var _ authsdk.Observer = SessionObserver{}

func (SessionObserver) RefreshCompleted(trigger authsdk.Trigger, err error) {
	TokenRefreshesTotal.WithLabelValues(string(trigger), result(err)).Inc()
}

func (SessionObserver) RequestRetried(ok bool) {
	label := "refreshed"
	if !ok {
		label = "refresh_failed"
	}
	RequestRetriesTotal.WithLabelValues(label).Inc()
}

// RecordRejection counts a reservation the client refused to submit.
func RecordRejection(reason reservation.Reason) {
	if reason == reservation.ReasonNone {
		return
	}
	ReservationRejectionsTotal.WithLabelValues(string(reason)).Inc()
}

// RecordWrite counts a reservation write that reached the API.
func RecordWrite(operation string, err error) {
	ReservationWritesTotal.WithLabelValues(operation, result(err)).Inc()
}

// InstrumentTransport wraps base with the request duration histogram.
func InstrumentTransport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return promhttp.InstrumentRoundTripperDuration(APIRequestDuration, base)
}

// WriteFile dumps the default registry in the text exposition format, for
// node_exporter's textfile collector.
func WriteFile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CarrierRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shipwise_carrier_requests_total",
		Help: "Outbound carrier API calls by carrier and outcome.",
	}, []string{"carrier", "outcome"})

	CarrierLatencyMS = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "shipwise_carrier_request_duration_ms",
		Help:    "Outbound carrier API latency in milliseconds.",
		Buckets: []float64{25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 20000},
	}, []string{"carrier"})

	CredentialRefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shipwise_credential_refresh_total",
		Help: "Carrier login calls by carrier and outcome.",
	}, []string{"carrier", "outcome"})

	BookingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shipwise_bookings_total",
		Help: "Booking attempts by carrier and outcome.",
	}, []string{"carrier", "outcome"})

	CancellationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shipwise_cancellations_total",
		Help: "Cancellation attempts by outcome.",
	}, []string{"outcome"})

	WalletTransactionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shipwise_wallet_transactions_total",
		Help: "Wallet ledger entries by kind.",
	}, []string{"kind"})

	WalletFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shipwise_wallet_failures_total",
		Help: "Wallet operations that failed after a carrier action succeeded.",
	}, []string{"operation"})

	QuotesExcludedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shipwise_quotes_excluded_total",
		Help: "Adapters dropped from a rate fan-out by carrier and reason.",
	}, []string{"carrier", "reason"})

	SweepOrdersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shipwise_sweep_orders_total",
		Help: "Orders processed by the tracking sweeper by outcome.",
	}, []string{"outcome"})

	SweepDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "shipwise_sweep_duration_seconds",
		Help:    "Wall time of one tracking sweep.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shipwise_http_requests_total",
		Help: "HTTP requests by route pattern and status code.",
	}, []string{"route", "status"})

	HTTPLatencyMS = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "shipwise_http_request_duration_ms",
		Help:    "HTTP request latency in milliseconds by route pattern.",
		Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
	}, []string{"route"})

	RateLimitedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shipwise_http_rate_limited_total",
		Help: "Inbound requests refused by the per-client rate limiter.",
	})

	OrderEventsConsumedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shipwise_order_events_consumed_total",
		Help: "Order status change events consumed from Kafka by outcome.",
	}, []string{"outcome"})
)

func Handler() http.Handler {
	return promhttp.Handler()
}

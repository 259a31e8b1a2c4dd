/*
Package metrics exposes Prometheus instrumentation for the rentledger server.

PURPOSE:
  Counters and histograms for the money paths: payments recorded, allocation
  fan-out, commission fees, salary payouts, and request handling. Init is
  guarded by sync.Once and every helper tolerates an uninitialized package,
  so domain tests never have to set metrics up.

SEE ALSO:
  - api: calls the helpers around handler work
  - cmd/server: mounts the /metrics endpoint
*/
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// COLLECTORS
// =============================================================================

var (
	initOnce sync.Once

	paymentsRecorded *prometheus.CounterVec
	paymentSplits    prometheus.Histogram
	commissionFees   prometheus.Counter
	salaryPayouts    *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
)

// Init registers all collectors once. Safe to call repeatedly; later calls
// are no-ops.
func Init(reg prometheus.Registerer) {
	initOnce.Do(func() {
		factory := promauto.With(reg)

		paymentsRecorded = factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rentledger_payments_recorded_total",
			Help: "Rent payments recorded, by outcome.",
		}, []string{"outcome"})

		paymentSplits = factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "rentledger_payment_split_months",
			Help:    "Months one lump payment was split across.",
			Buckets: []float64{1, 2, 3, 4, 6, 9, 12, 24},
		})

		commissionFees = factory.NewCounter(prometheus.CounterOpts{
			Name: "rentledger_commission_fees_total",
			Help: "Commission fee expenses written.",
		})

		salaryPayouts = factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rentledger_salary_payouts_total",
			Help: "Salary payout attempts, by outcome.",
		}, []string{"outcome"})

		httpDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rentledger_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"})
	})
}

// =============================================================================
// HELPERS - All nil-safe before Init
// =============================================================================

// RecordPayment counts one payment attempt and, on success, the number of
// months it split across and whether it produced a fee.
func RecordPayment(outcome string, splitMonths int, hadFee bool) {
	if paymentsRecorded == nil {
		return
	}
	paymentsRecorded.WithLabelValues(outcome).Inc()
	if outcome != "ok" {
		return
	}
	paymentSplits.Observe(float64(splitMonths))
	if hadFee {
		commissionFees.Inc()
	}
}

// RecordPayout counts one salary payout attempt.
func RecordPayout(outcome string) {
	if salaryPayouts == nil {
		return
	}
	salaryPayouts.WithLabelValues(outcome).Inc()
}

// ObserveRequest records one handled HTTP request.
func ObserveRequest(route string, status int, elapsed time.Duration) {
	if httpDuration == nil {
		return
	}
	httpDuration.WithLabelValues(route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

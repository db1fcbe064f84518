package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// Total visits recorded through the attribution pipeline
	VisitsRecorded = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "referral_visits_recorded_total",
		Help: "Total number of referral visits recorded",
	})

	// Visits answered from the dedup window without a new row
	VisitsDeduplicated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "referral_visits_deduplicated_total",
		Help: "Total number of deduplicated referral visits",
	})

	// Visits rejected by velocity limits
	VisitsRateLimited = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "referral_visits_rate_limited_total",
		Help: "Total number of rate limited visit attempts",
	})

	// Conversion attempts by outcome (converted, no_attribution, already_converted)
	Conversions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "referral_conversions_total",
		Help: "Total number of conversion attempts by outcome",
	}, []string{"outcome"})

	// Latency of the full fraud scan
	FraudScanDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "referral_fraud_scan_duration_seconds",
		Help:    "Duration of fraud scans",
		Buckets: prometheus.DefBuckets,
	})
)

func Init() {
	prometheus.MustRegister(
		VisitsRecorded,
		VisitsDeduplicated,
		VisitsRateLimited,
		Conversions,
		FraudScanDuration,
	)
}

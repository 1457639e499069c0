package counters

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "evroam"

var publishedCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "dispatch",
	Name:      "events_published_total",
	Help:      "Change events accepted for fan-out.",
}, []string{"variant"})

var deliveredCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "dispatch",
	Name:      "events_delivered_total",
	Help:      "Handler invocations that returned without error.",
}, []string{"variant"})

var failureCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "dispatch",
	Name:      "handler_failures_total",
	Help:      "Handler invocations that returned an error or panicked.",
}, []string{"variant", "handler"})

var handlerDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: namespace,
	Subsystem: "dispatch",
	Name:      "handler_duration_seconds",
	Help:      "Time spent in subscriber handlers.",
	Buckets:   prometheus.DefBuckets,
}, []string{"variant"})

var subscriptionsGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: namespace,
	Subsystem: "dispatch",
	Name:      "subscriptions_active",
	Help:      "Number of live subscriptions.",
}, []string{"variant"})

var queuedGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Subsystem: "dispatch",
	Name:      "events_queued",
	Help:      "Events waiting in subscriber mailboxes.",
})

var rejectedCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "register",
	Name:      "updates_rejected_total",
	Help:      "Writes rejected because their timestamp precedes the stored one.",
}, []string{"kind"})

var noOpCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "register",
	Name:      "updates_suppressed_total",
	Help:      "Writes that did not change the stored value.",
}, []string{"kind"})

var operatorsGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Subsystem: "network",
	Name:      "operators_registered",
	Help:      "Operators currently registered in the roaming network.",
})

var failuresTodayGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: namespace,
	Subsystem: "dispatch",
	Name:      "handler_failures_today",
	Help:      "Handler failures recorded today per operator.",
}, []string{"operator_id", "variant"})

func CountPublished(variant string) {
	publishedCounter.With(prometheus.Labels{"variant": variant}).Inc()
}

func CountDelivered(variant string, seconds float64) {
	deliveredCounter.With(prometheus.Labels{"variant": variant}).Inc()
	handlerDuration.With(prometheus.Labels{"variant": variant}).Observe(seconds)
}

func CountFailure(variant, handler string, seconds float64) {
	if len(handler) == 0 {
		handler = "anonymous"
	}
	failureCounter.With(prometheus.Labels{"variant": variant, "handler": handler}).Inc()
	handlerDuration.With(prometheus.Labels{"variant": variant}).Observe(seconds)
}

func ObserveSubscription(variant string, delta int) {
	subscriptionsGauge.With(prometheus.Labels{"variant": variant}).Add(float64(delta))
}

func ObserveQueued(delta int) {
	queuedGauge.Add(float64(delta))
}

func CountRejected(kind string) {
	rejectedCounter.With(prometheus.Labels{"kind": kind}).Inc()
}

func CountNoOp(kind string) {
	noOpCounter.With(prometheus.Labels{"kind": kind}).Inc()
}

func ObserveOperators(count int) {
	operatorsGauge.Set(float64(count))
}

func FailuresToday(operatorId, variant string, count int) {
	if len(operatorId) == 0 || len(variant) == 0 {
		return
	}
	failuresTodayGauge.With(prometheus.Labels{"operator_id": operatorId, "variant": variant}).Set(float64(count))
}

// Collectors exposed for tests.
var (
	Published = publishedCounter
	Delivered = deliveredCounter
	Failures  = failureCounter
	Rejected  = rejectedCounter
	NoOps     = noOpCounter
	Operators = operatorsGauge
	Today     = failuresTodayGauge
)

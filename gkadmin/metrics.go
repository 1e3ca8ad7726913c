package gkadmin

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Operation label values
const (
	opCreateTopics   = "create_topics"
	opDeleteTopics   = "delete_topics"
	opDescribeTopics = "describe_topics"
	opListTopics     = "list_topics"
)

// Outcome label values
const (
	outcomeSuccess   = "success"
	outcomeFailure   = "failure"
	outcomeCancelled = "cancelled"
)

type metrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// newMetrics registers the operation metrics with reg. Admins sharing a
// registerer share the collectors. A nil reg disables metrics.
func newMetrics(reg prometheus.Registerer) *metrics {
	if reg == nil {
		return nil
	}

	m := &metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: entityTypeId,
			Name:      "operations_total",
			Help:      "Number of topic admin operations, by outcome.",
		}, []string{"operation", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: entityTypeId,
			Name:      "operation_duration_seconds",
			Help:      "Duration of topic admin operations, including time awaiting the broker.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	m.operations = register(reg, m.operations)
	m.duration = register(reg, m.duration)
	return m
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return c
}

func (m *metrics) observe(ctx context.Context, operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, outcome(ctx, err)).Inc()
	m.duration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// outcome counts an error as cancelled only if the caller's ctx is done. A
// request timeout hit on the broker side is a failure.
func outcome(ctx context.Context, err error) string {
	switch {
	case err == nil:
		return outcomeSuccess
	case ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)):
		return outcomeCancelled
	}
	return outcomeFailure
}

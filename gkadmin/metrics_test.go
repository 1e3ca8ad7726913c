package gkadmin

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()

	admin := NewFromClient(NewMockAdminClient("existing"), &Config{Registerer: reg})
	assert.NoError(t, admin.CreateTopic(ctx, TopicSpec{Name: "new"}, CreateTopicsOptions{}))
	assert.Error(t, admin.CreateTopic(ctx, TopicSpec{Name: "existing"}, CreateTopicsOptions{}))

	// A second Admin on the same registerer shares the collectors
	other := NewFromClient(NewMockAdminClient(), &Config{Registerer: reg})
	_, err := other.ListTopics(ctx, ListTopicsOptions{})
	require.NoError(t, err)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = other.ListTopics(cancelled, ListTopicsOptions{})
	require.ErrorIs(t, err, context.Canceled)

	m := admin.metrics
	assert.Same(t, m.operations, other.metrics.operations)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues(opCreateTopics, outcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues(opCreateTopics, outcomeFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues(opListTopics, outcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues(opListTopics, outcomeCancelled)))
	assert.Equal(t, 2, testutil.CollectAndCount(m.duration))
}

func TestMetricsBrokerTimeoutIsFailure(t *testing.T) {
	reg := prometheus.NewRegistry()
	ac := NewMockAdminClient()
	ac.listErr = errors.Wrap(context.DeadlineExceeded, "request timeout")
	admin := NewFromClient(ac, &Config{Registerer: reg})

	_, err := admin.ListTopics(context.Background(), ListTopicsOptions{RequestTimeout: time.Millisecond})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	ops := admin.metrics.operations
	assert.Equal(t, 1.0, testutil.ToFloat64(ops.WithLabelValues(opListTopics, outcomeFailure)))
	assert.Equal(t, 0.0, testutil.ToFloat64(ops.WithLabelValues(opListTopics, outcomeCancelled)))
}

func TestMetricsDisabled(t *testing.T) {
	admin := NewFromClient(NewMockAdminClient(), nil)
	assert.Nil(t, admin.metrics)
	_, err := admin.ListTopics(context.Background(), ListTopicsOptions{})
	assert.NoError(t, err)
}

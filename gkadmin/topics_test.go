package gkadmin

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zpiroux/geist-kafka-admin/gkadmin/spec"
	"github.com/zpiroux/geist/entity"
)

func TestTopicLifecycle(t *testing.T) {
	ctx := context.Background()
	admin := NewFromClient(NewMockAdminClient(), nil)
	defer admin.Close()

	t1 := TopicSpec{Name: "t1", NumPartitions: 1, ReplicationFactor: 1}

	err := admin.CreateTopic(ctx, t1, CreateTopicsOptions{})
	require.NoError(t, err)

	exists, err := admin.TopicExists(ctx, TopicSpec{Name: "t1"}, ListTopicsOptions{})
	require.NoError(t, err)
	assert.True(t, exists)

	err = admin.DeleteTopic(ctx, "t1", DeleteTopicsOptions{})
	require.NoError(t, err)

	exists, err = admin.TopicExists(ctx, TopicSpec{Name: "t1"}, ListTopicsOptions{})
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCreateTopicsDuplicateNames(t *testing.T) {
	ac := NewMockAdminClient()
	admin := NewFromClient(ac, nil)

	err := admin.CreateTopics(context.Background(), []TopicSpec{
		{Name: "t2", NumPartitions: 1, ReplicationFactor: 1},
		{Name: "t2", NumPartitions: 1, ReplicationFactor: 1},
	}, CreateTopicsOptions{})
	assert.ErrorIs(t, err, errTopicExists)

	// No rollback of the one that made it
	_, created := ac.Topic("t2")
	assert.True(t, created)
}

func TestSingleTopicIsBatchOfOne(t *testing.T) {
	ctx := context.Background()
	admin := NewFromClient(NewMockAdminClient("existing"), nil)

	singleErr := admin.CreateTopic(ctx, TopicSpec{Name: "existing"}, CreateTopicsOptions{})
	batchErr := admin.CreateTopics(ctx, []TopicSpec{{Name: "existing"}}, CreateTopicsOptions{})
	assert.ErrorIs(t, singleErr, errTopicExists)
	assert.Equal(t, batchErr, singleErr)

	singleErr = admin.DeleteTopic(ctx, "missing", DeleteTopicsOptions{})
	batchErr = admin.DeleteTopics(ctx, []string{"missing"}, DeleteTopicsOptions{})
	assert.ErrorIs(t, singleErr, errUnknownTopic)
	assert.Equal(t, batchErr, singleErr)

	assert.NoError(t, admin.CreateTopic(ctx, TopicSpec{Name: "new1"}, CreateTopicsOptions{}))
	assert.NoError(t, admin.CreateTopics(ctx, []TopicSpec{{Name: "new2"}}, CreateTopicsOptions{}))
}

func TestEmptyBatches(t *testing.T) {
	ctx := context.Background()
	admin := NewFromClient(NewMockAdminClient(), nil)

	assert.NoError(t, admin.CreateTopics(ctx, nil, CreateTopicsOptions{}))
	assert.NoError(t, admin.DeleteTopics(ctx, nil, DeleteTopicsOptions{}))
	results, err := admin.DescribeTopics(ctx, nil, DescribeTopicsOptions{})
	assert.NoError(t, err)
	assert.Empty(t, results)
}

func TestValidateOnlyCreatesNothing(t *testing.T) {
	ac := NewMockAdminClient()
	admin := NewFromClient(ac, nil)

	err := admin.CreateTopic(context.Background(), TopicSpec{Name: "dry"}, CreateTopicsOptions{ValidateOnly: true})
	assert.NoError(t, err)
	_, created := ac.Topic("dry")
	assert.False(t, created)
}

func TestDescribeTopics(t *testing.T) {
	ctx := context.Background()
	ac := NewMockAdminClient("foo", "secret")
	ac.forbidden["secret"] = true
	admin := NewFromClient(ac, nil)

	results, err := admin.DescribeTopics(ctx, []string{"foo", "secret", "missing"}, DescribeTopicsOptions{})
	require.NoError(t, err)
	require.Len(t, results, 3)

	require.NotNil(t, results["foo"].Description)
	assert.Equal(t, "foo", results["foo"].Description.Name)
	assert.Len(t, results["foo"].Description.Partitions, 1)
	assert.False(t, results["foo"].Absent())

	assert.ErrorIs(t, results["secret"].Err, errAuthorization)
	assert.Nil(t, results["secret"].Description)

	assert.True(t, results["missing"].Absent())
}

func TestDescribeTopic(t *testing.T) {
	ctx := context.Background()
	ac := NewMockAdminClient("foo", "secret")
	ac.forbidden["secret"] = true
	admin := NewFromClient(ac, nil)

	desc, err := admin.DescribeTopic(ctx, "foo", DescribeTopicsOptions{})
	require.NoError(t, err)
	assert.Equal(t, "foo", desc.Name)

	desc, err = admin.DescribeTopic(ctx, "x", DescribeTopicsOptions{})
	assert.NoError(t, err)
	assert.Nil(t, desc)

	_, err = admin.DescribeTopic(ctx, "secret", DescribeTopicsOptions{})
	assert.ErrorIs(t, err, errAuthorization)
}

func TestTopicExistsUsesListingOnly(t *testing.T) {
	ac := NewMockAdminClient("visible")
	ac.forbidden["visible"] = true
	admin := NewFromClient(ac, nil)

	// Present in the listing, even though a describe would fail
	exists, err := admin.TopicExists(context.Background(), TopicSpec{Name: "visible"}, ListTopicsOptions{})
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, int32(1), ac.listCalls.Load())
	assert.Equal(t, int32(0), ac.describeCalls.Load())
}

func TestListTopics(t *testing.T) {
	ctx := context.Background()
	admin := NewFromClient(NewMockAdminClient("b", "a", "__consumer_offsets"), nil)

	names, err := admin.ListTopicNames(ctx, ListTopicsOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)

	listings, err := admin.ListTopics(ctx, ListTopicsOptions{ListInternal: true})
	require.NoError(t, err)
	assert.Len(t, listings, 3)
	assert.True(t, listings["__consumer_offsets"].Internal)
}

func TestOperationsCancelled(t *testing.T) {
	ac := NewMockAdminClient()
	ac.block = true
	admin := NewFromClient(ac, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := admin.CreateTopics(ctx, []TopicSpec{{Name: "a"}, {Name: "b"}}, CreateTopicsOptions{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(2), ac.cancels.Load())

	ctx, cancel = context.WithCancel(context.Background())
	cancel()
	_, err = admin.DescribeTopics(ctx, []string{"a"}, DescribeTopicsOptions{})
	assert.ErrorIs(t, err, context.Canceled)

	_, err = admin.TopicExists(ctx, TopicSpec{Name: "a"}, ListTopicsOptions{})
	assert.ErrorIs(t, err, context.Canceled)

	err = admin.DeleteTopic(ctx, "a", DeleteTopicsOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEnsureTopics(t *testing.T) {
	ctx := context.Background()
	ac := NewMockAdminClient("existing")
	admin := NewFromClient(ac, nil)

	created, err := admin.EnsureTopics(ctx, []TopicSpec{
		{Name: "existing"},
		{Name: "new", NumPartitions: 3},
		{Name: "new", NumPartitions: 3},
	}, CreateTopicsOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"new"}, created)

	topic, ok := ac.Topic("new")
	require.True(t, ok)
	assert.Equal(t, 3, topic.NumPartitions)

	created, err = admin.EnsureTopics(ctx, []TopicSpec{{Name: "existing"}, {Name: "new"}}, CreateTopicsOptions{})
	require.NoError(t, err)
	assert.Empty(t, created)
}

func TestEnsureTopicsCreatedConcurrently(t *testing.T) {
	ac := NewMockAdminClient()
	ac.concurrentCreator = true
	admin := NewFromClient(ac, nil)

	created, err := admin.EnsureTopics(context.Background(), []TopicSpec{{Name: "raced"}}, CreateTopicsOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"raced"}, created)
}

func TestEnsureTopicsFromSpec(t *testing.T) {
	as, err := spec.NewAdminSpec([]byte(`{
		"bootstrapServers": "localhost:9092",
		"topics": [
			{"env": "dev", "topicSpec": {"name": "events.dev", "numPartitions": 1}},
			{"env": "prod", "topicSpec": [{"name": "events", "numPartitions": 12}, {"name": "events.dlq"}]}
		]}`))
	require.NoError(t, err)

	ac := NewMockAdminClient()
	admin := NewFromClient(ac, nil)

	created, err := admin.EnsureTopicsFromSpec(context.Background(), as, string(entity.EnvironmentProd), CreateTopicsOptions{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"events", "events.dlq"}, created)

	topic, ok := ac.Topic("events")
	require.True(t, ok)
	assert.Equal(t, 12, topic.NumPartitions)
	_, ok = ac.Topic("events.dev")
	assert.False(t, ok)
}

package gki

import (
	"sync"
	"testing"

	"github.com/Shopify/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zpiroux/geist-kafka-admin/ikafka"
)

func TestSaramaCreateAndDeleteTopics(t *testing.T) {
	mock := newMockSaramaAdmin("existing")
	ac := newSaramaAdminClient(mock)

	rfs := ac.CreateTopics([]ikafka.TopicSpec{
		{Name: "foo", NumPartitions: 2, Config: map[string]string{"retention.ms": "60000"}},
		{Name: "existing"},
	}, ikafka.CreateTopicsOptions{})
	require.Len(t, rfs, 2)

	_, err := await(t, rfs[0].Future)
	assert.NoError(t, err)
	_, err = await(t, rfs[1].Future)
	assert.ErrorIs(t, err, sarama.ErrTopicAlreadyExists)

	detail := mock.detail("foo")
	require.NotNil(t, detail)
	assert.Equal(t, int32(2), detail.NumPartitions)
	assert.Equal(t, int16(-1), detail.ReplicationFactor)
	assert.Equal(t, "60000", *detail.ConfigEntries["retention.ms"])

	rfs = ac.DeleteTopics([]string{"foo", "never"}, ikafka.DeleteTopicsOptions{})
	_, err = await(t, rfs[0].Future)
	assert.NoError(t, err)
	_, err = await(t, rfs[1].Future)
	assert.ErrorIs(t, err, sarama.ErrUnknownTopicOrPartition)
}

func TestSaramaValidateOnly(t *testing.T) {
	mock := newMockSaramaAdmin()
	ac := newSaramaAdminClient(mock)

	rfs := ac.CreateTopics([]ikafka.TopicSpec{{Name: "foo"}}, ikafka.CreateTopicsOptions{ValidateOnly: true})
	_, err := await(t, rfs[0].Future)
	assert.NoError(t, err)

	listings, err := await(t, ac.ListTopics(ikafka.ListTopicsOptions{}))
	require.NoError(t, err)
	assert.Empty(t, listings)
}

func TestSaramaDescribeTopics(t *testing.T) {
	mock := newMockSaramaAdmin("foo")
	ac := newSaramaAdminClient(mock)

	rfs := ac.DescribeTopics([]string{"foo", "missing"}, ikafka.DescribeTopicsOptions{})
	desc, err := await(t, rfs[0].Future)
	require.NoError(t, err)
	assert.Equal(t, &ikafka.TopicDescription{
		Name:       "foo",
		Partitions: []ikafka.PartitionInfo{{Partition: 0, Leader: 3, Replicas: []int{3}, ISR: []int{3}}},
	}, desc)

	desc, err = await(t, rfs[1].Future)
	assert.NoError(t, err)
	assert.Nil(t, desc)
}

func TestSaramaListTopics(t *testing.T) {
	mock := newMockSaramaAdmin("orders", "__transaction_state", "events")
	ac := newSaramaAdminClient(mock)

	listings, err := await(t, ac.ListTopics(ikafka.ListTopicsOptions{}))
	require.NoError(t, err)
	assert.Equal(t, []string{"events", "orders"}, listingNames(listings))

	listings, err = await(t, ac.ListTopics(ikafka.ListTopicsOptions{ListInternal: true}))
	require.NoError(t, err)
	assert.Equal(t, []string{"__transaction_state", "events", "orders"}, listingNames(listings))

	assert.NoError(t, ac.Close())
	assert.True(t, mock.closed)
}

type MockSaramaAdmin struct {
	mu      sync.Mutex
	topics  map[string]*sarama.TopicDetail
	details map[string]*sarama.TopicDetail
	closed  bool
}

func newMockSaramaAdmin(topics ...string) *MockSaramaAdmin {
	m := &MockSaramaAdmin{
		topics:  make(map[string]*sarama.TopicDetail),
		details: make(map[string]*sarama.TopicDetail),
	}
	for _, t := range topics {
		m.topics[t] = &sarama.TopicDetail{NumPartitions: 1, ReplicationFactor: 1}
	}
	return m
}

func (m *MockSaramaAdmin) detail(topic string) *sarama.TopicDetail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.details[topic]
}

func (m *MockSaramaAdmin) CreateTopic(topic string, detail *sarama.TopicDetail, validateOnly bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.details[topic] = detail
	if _, ok := m.topics[topic]; ok {
		return sarama.ErrTopicAlreadyExists
	}
	if !validateOnly {
		m.topics[topic] = detail
	}
	return nil
}

func (m *MockSaramaAdmin) DeleteTopic(topic string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.topics[topic]; !ok {
		return sarama.ErrUnknownTopicOrPartition
	}
	delete(m.topics, topic)
	return nil
}

func (m *MockSaramaAdmin) DescribeTopics(topics []string) ([]*sarama.TopicMetadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var metadata []*sarama.TopicMetadata
	for _, t := range topics {
		if _, ok := m.topics[t]; !ok {
			metadata = append(metadata, &sarama.TopicMetadata{Name: t, Err: sarama.ErrUnknownTopicOrPartition})
			continue
		}
		metadata = append(metadata, &sarama.TopicMetadata{
			Name:       t,
			Partitions: []*sarama.PartitionMetadata{{ID: 0, Leader: 3, Replicas: []int32{3}, Isr: []int32{3}}},
		})
	}
	return metadata, nil
}

func (m *MockSaramaAdmin) ListTopics() (map[string]sarama.TopicDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]sarama.TopicDetail, len(m.topics))
	for t, d := range m.topics {
		out[t] = *d
	}
	return out, nil
}

func (m *MockSaramaAdmin) Close() error {
	m.closed = true
	return nil
}

package gki

import (
	"github.com/Shopify/sarama"
	"github.com/zpiroux/geist-kafka-admin/gkadmin/internal/promise"
	"github.com/zpiroux/geist-kafka-admin/ikafka"
)

// saramaVersion is the lowest broker version accepting -1 as partition count
// and replication factor on topic creation.
var saramaVersion = sarama.V2_4_0_0

// saramaAdmin is the part of sarama.ClusterAdmin in use.
type saramaAdmin interface {
	CreateTopic(topic string, detail *sarama.TopicDetail, validateOnly bool) error
	DeleteTopic(topic string) error
	DescribeTopics(topics []string) ([]*sarama.TopicMetadata, error)
	ListTopics() (map[string]sarama.TopicDetail, error)
	Close() error
}

// SaramaAdminClient runs admin requests through sarama's ClusterAdmin. Its
// calls take no context, so a cancelled future abandons the request instead
// of aborting it. Request timeouts are taken from the client config.
type SaramaAdminClient struct {
	ac saramaAdmin
}

var _ ikafka.AdminClient = (*SaramaAdminClient)(nil)

func newSaramaAdminClient(ac saramaAdmin) *SaramaAdminClient {
	return &SaramaAdminClient{ac: ac}
}

func (c *SaramaAdminClient) CreateTopics(topics []ikafka.TopicSpec, options ikafka.CreateTopicsOptions) []ikafka.ResourceFuture[struct{}] {
	rfs := make([]ikafka.ResourceFuture[struct{}], 0, len(topics))
	for _, t := range topics {
		p := promise.New[struct{}](nil)
		rfs = append(rfs, ikafka.ResourceFuture[struct{}]{Name: t.Name, Future: p})

		detail := &sarama.TopicDetail{
			NumPartitions:     int32(orBrokerDefault(t.NumPartitions)),
			ReplicationFactor: int16(orBrokerDefault(t.ReplicationFactor)),
			ConfigEntries:     configPtrs(t.Config),
		}
		go func(name string) {
			settle(p, c.ac.CreateTopic(name, detail, options.ValidateOnly))
		}(t.Name)
	}
	return rfs
}

func (c *SaramaAdminClient) DeleteTopics(topics []string, options ikafka.DeleteTopicsOptions) []ikafka.ResourceFuture[struct{}] {
	rfs := make([]ikafka.ResourceFuture[struct{}], 0, len(topics))
	for _, name := range topics {
		p := promise.New[struct{}](nil)
		rfs = append(rfs, ikafka.ResourceFuture[struct{}]{Name: name, Future: p})
		go func(name string) {
			settle(p, c.ac.DeleteTopic(name))
		}(name)
	}
	return rfs
}

func (c *SaramaAdminClient) DescribeTopics(topics []string, options ikafka.DescribeTopicsOptions) []ikafka.ResourceFuture[*ikafka.TopicDescription] {
	if len(topics) == 0 {
		return nil
	}

	promises := make([]*promise.Promise[*ikafka.TopicDescription], 0, len(topics))
	rfs := make([]ikafka.ResourceFuture[*ikafka.TopicDescription], 0, len(topics))
	for _, name := range topics {
		p := promise.New[*ikafka.TopicDescription](nil)
		promises = append(promises, p)
		rfs = append(rfs, ikafka.ResourceFuture[*ikafka.TopicDescription]{Name: name, Future: p})
	}

	go func() {
		metadata, err := c.ac.DescribeTopics(topics)
		if err != nil {
			failAll(promises, err)
			return
		}

		byName := make(map[string]*sarama.TopicMetadata)
		for _, tm := range metadata {
			if tm != nil {
				byName[tm.Name] = tm
			}
		}
		for i, name := range topics {
			tm, found := byName[name]
			switch {
			case !found, tm.Err == sarama.ErrUnknownTopicOrPartition:
				promises[i].Complete(nil)
			case tm.Err != sarama.ErrNoError:
				promises[i].Fail(tm.Err)
			default:
				promises[i].Complete(saramaDescription(tm))
			}
		}
	}()
	return rfs
}

func (c *SaramaAdminClient) ListTopics(options ikafka.ListTopicsOptions) ikafka.Future[[]ikafka.TopicListing] {
	p := promise.New[[]ikafka.TopicListing](nil)

	go func() {
		details, err := c.ac.ListTopics()
		if err != nil {
			p.Fail(err)
			return
		}

		var listings []ikafka.TopicListing
		for name := range details {
			internal := ikafka.IsInternalTopic(name)
			if internal && !options.ListInternal {
				continue
			}
			listings = append(listings, ikafka.TopicListing{Name: name, Internal: internal})
		}
		sortListings(listings)
		p.Complete(listings)
	}()
	return p
}

func (c *SaramaAdminClient) Close() error {
	return c.ac.Close()
}

func saramaDescription(tm *sarama.TopicMetadata) *ikafka.TopicDescription {
	d := &ikafka.TopicDescription{
		Name:     tm.Name,
		Internal: tm.IsInternal,
	}
	for _, pm := range tm.Partitions {
		if pm == nil {
			continue
		}
		d.Partitions = append(d.Partitions, ikafka.PartitionInfo{
			Partition: int(pm.ID),
			Leader:    int(pm.Leader),
			Replicas:  int32sToInts(pm.Replicas),
			ISR:       int32sToInts(pm.Isr),
		})
	}
	return d
}

func settle(p *promise.Promise[struct{}], err error) {
	if err != nil {
		p.Fail(err)
		return
	}
	p.Complete(struct{}{})
}

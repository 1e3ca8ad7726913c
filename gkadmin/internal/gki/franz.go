package gki

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/zpiroux/geist-kafka-admin/gkadmin/internal/promise"
	"github.com/zpiroux/geist-kafka-admin/ikafka"
)

// franzAdmin is the part of *kadm.Client in use.
type franzAdmin interface {
	CreateTopics(ctx context.Context, partitions int32, replicationFactor int16, configs map[string]*string, topics ...string) (kadm.CreateTopicResponses, error)
	ValidateCreateTopics(ctx context.Context, partitions int32, replicationFactor int16, configs map[string]*string, topics ...string) (kadm.CreateTopicResponses, error)
	DeleteTopics(ctx context.Context, topics ...string) (kadm.DeleteTopicResponses, error)
	ListTopics(ctx context.Context, topics ...string) (kadm.TopicDetails, error)
	ListTopicsWithInternal(ctx context.Context, topics ...string) (kadm.TopicDetails, error)
	Close()
}

// FranzAdminClient runs admin requests through franz-go. Topics of a create
// request are issued one per request, since kadm applies a single partition
// and replication setting to all topics of a request.
type FranzAdminClient struct {
	ac franzAdmin
}

var _ ikafka.AdminClient = (*FranzAdminClient)(nil)

func newFranzAdminClient(ac franzAdmin) *FranzAdminClient {
	return &FranzAdminClient{ac: ac}
}

func (c *FranzAdminClient) CreateTopics(topics []ikafka.TopicSpec, options ikafka.CreateTopicsOptions) []ikafka.ResourceFuture[struct{}] {
	if len(topics) == 0 {
		return nil
	}

	batch := promise.NewBatch(len(topics))
	rfs, promises := newBatchFutures[struct{}](batch, topicNames(topics))

	create := c.ac.CreateTopics
	if options.ValidateOnly {
		create = c.ac.ValidateCreateTopics
	}

	pending := make(chan struct{}, len(topics))
	for i, t := range topics {
		go func(p *promise.Promise[struct{}], t ikafka.TopicSpec) {
			defer func() { pending <- struct{}{} }()
			ctx, cancel := withRequestTimeout(batch.Context(), options.RequestTimeout)
			defer cancel()

			resps, err := create(ctx, int32(orBrokerDefault(t.NumPartitions)), int16(orBrokerDefault(t.ReplicationFactor)), configPtrs(t.Config), t.Name)
			if err != nil {
				p.Fail(err)
				return
			}
			resp, found := resps[t.Name]
			switch {
			case !found:
				p.Fail(errors.Wrapf(ikafka.ErrNoResult, "topic %s", t.Name))
			case resp.Err != nil:
				p.Fail(resp.Err)
			default:
				p.Complete(struct{}{})
			}
		}(promises[i], t)
	}

	go func() {
		for range topics {
			<-pending
		}
		batch.Release()
	}()
	return rfs
}

func (c *FranzAdminClient) DeleteTopics(topics []string, options ikafka.DeleteTopicsOptions) []ikafka.ResourceFuture[struct{}] {
	if len(topics) == 0 {
		return nil
	}

	batch := promise.NewBatch(len(topics))
	rfs, promises := newBatchFutures[struct{}](batch, topics)

	go func() {
		defer batch.Release()
		ctx, cancel := withRequestTimeout(batch.Context(), options.RequestTimeout)
		defer cancel()

		resps, err := c.ac.DeleteTopics(ctx, topics...)
		if err != nil {
			failAll(promises, err)
			return
		}
		for i, name := range topics {
			resp, found := resps[name]
			switch {
			case !found:
				promises[i].Fail(errors.Wrapf(ikafka.ErrNoResult, "topic %s", name))
			case resp.Err != nil:
				promises[i].Fail(resp.Err)
			default:
				promises[i].Complete(struct{}{})
			}
		}
	}()
	return rfs
}

// DescribeTopics is served by a metadata request. kadm does not expose the
// authorized operations of a topic.
func (c *FranzAdminClient) DescribeTopics(topics []string, options ikafka.DescribeTopicsOptions) []ikafka.ResourceFuture[*ikafka.TopicDescription] {
	if len(topics) == 0 {
		return nil
	}

	batch := promise.NewBatch(len(topics))
	rfs, promises := newBatchFutures[*ikafka.TopicDescription](batch, topics)

	go func() {
		defer batch.Release()
		ctx, cancel := withRequestTimeout(batch.Context(), options.RequestTimeout)
		defer cancel()

		details, err := c.ac.ListTopicsWithInternal(ctx, lo.Uniq(topics)...)
		if err != nil {
			failAll(promises, err)
			return
		}
		for i, name := range topics {
			td, found := details[name]
			switch {
			case !found, errors.Is(td.Err, kerr.UnknownTopicOrPartition):
				promises[i].Complete(nil)
			case td.Err != nil:
				promises[i].Fail(td.Err)
			default:
				promises[i].Complete(franzDescription(td))
			}
		}
	}()
	return rfs
}

func (c *FranzAdminClient) ListTopics(options ikafka.ListTopicsOptions) ikafka.Future[[]ikafka.TopicListing] {
	batch := promise.NewBatch(1)
	p := promise.NewPromise[[]ikafka.TopicListing](batch)

	list := c.ac.ListTopics
	if options.ListInternal {
		list = c.ac.ListTopicsWithInternal
	}

	go func() {
		defer batch.Release()
		ctx, cancel := withRequestTimeout(batch.Context(), options.RequestTimeout)
		defer cancel()

		details, err := list(ctx)
		if err != nil {
			p.Fail(err)
			return
		}

		var listings []ikafka.TopicListing
		for _, td := range details {
			if td.Err != nil {
				continue
			}
			listings = append(listings, ikafka.TopicListing{
				Name:     td.Topic,
				TopicID:  td.ID.String(),
				Internal: td.IsInternal,
			})
		}
		sortListings(listings)
		p.Complete(listings)
	}()
	return p
}

func (c *FranzAdminClient) Close() error {
	c.ac.Close()
	return nil
}

func franzDescription(td kadm.TopicDetail) *ikafka.TopicDescription {
	d := &ikafka.TopicDescription{
		Name:     td.Topic,
		TopicID:  td.ID.String(),
		Internal: td.IsInternal,
	}
	for _, pd := range td.Partitions.Sorted() {
		d.Partitions = append(d.Partitions, ikafka.PartitionInfo{
			Partition: int(pd.Partition),
			Leader:    int(pd.Leader),
			Replicas:  int32sToInts(pd.Replicas),
			ISR:       int32sToInts(pd.ISR),
		})
	}
	return d
}

func configPtrs(conf map[string]string) map[string]*string {
	if len(conf) == 0 {
		return nil
	}
	out := make(map[string]*string, len(conf))
	for k, v := range conf {
		out[k] = lo.ToPtr(v)
	}
	return out
}

func withRequestTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func topicNames(topics []ikafka.TopicSpec) []string {
	return lo.Map(topics, func(t ikafka.TopicSpec, _ int) string { return t.Name })
}

func int32sToInts(in []int32) []int {
	return lo.Map(in, func(v int32, _ int) int { return int(v) })
}

package gki

import (
	"context"
	"sort"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/pkg/errors"
	"github.com/zpiroux/geist-kafka-admin/gkadmin/internal/promise"
	"github.com/zpiroux/geist-kafka-admin/ikafka"
)

const defaultMetadataTimeout = 5 * time.Second

// confluentAdmin is the part of *kafka.AdminClient in use, mockable in tests.
type confluentAdmin interface {
	CreateTopics(ctx context.Context, topics []kafka.TopicSpecification, options ...kafka.CreateTopicsAdminOption) ([]kafka.TopicResult, error)
	DeleteTopics(ctx context.Context, topics []string, options ...kafka.DeleteTopicsAdminOption) ([]kafka.TopicResult, error)
	DescribeTopics(ctx context.Context, topics kafka.TopicCollection, options ...kafka.DescribeTopicsAdminOption) (kafka.DescribeTopicsResult, error)
	GetMetadata(topic *string, allTopics bool, timeoutMs int) (*kafka.Metadata, error)
	Close()
}

// ConfluentAdminClient adapts librdkafka's context-based admin API to
// per-resource futures. Cancelling every future of a request cancels the
// request context.
type ConfluentAdminClient struct {
	ac confluentAdmin
}

var _ ikafka.AdminClient = (*ConfluentAdminClient)(nil)

func newConfluentAdminClient(ac confluentAdmin) *ConfluentAdminClient {
	return &ConfluentAdminClient{ac: ac}
}

func (c *ConfluentAdminClient) CreateTopics(topics []ikafka.TopicSpec, options ikafka.CreateTopicsOptions) []ikafka.ResourceFuture[struct{}] {
	if len(topics) == 0 {
		return nil
	}

	names := make([]string, 0, len(topics))
	specs := make([]kafka.TopicSpecification, 0, len(topics))
	for _, t := range topics {
		names = append(names, t.Name)
		specs = append(specs, kafka.TopicSpecification{
			Topic:             t.Name,
			NumPartitions:     orBrokerDefault(t.NumPartitions),
			ReplicationFactor: orBrokerDefault(t.ReplicationFactor),
			Config:            t.Config,
		})
	}

	batch := promise.NewBatch(len(names))
	rfs, promises := newBatchFutures[struct{}](batch, names)

	go func() {
		defer batch.Release()
		res, err := c.ac.CreateTopics(batch.Context(), specs, createTopicsOptions(options)...)
		completeTopicResults(promises, names, res, err)
	}()
	return rfs
}

func (c *ConfluentAdminClient) DeleteTopics(topics []string, options ikafka.DeleteTopicsOptions) []ikafka.ResourceFuture[struct{}] {
	if len(topics) == 0 {
		return nil
	}

	batch := promise.NewBatch(len(topics))
	rfs, promises := newBatchFutures[struct{}](batch, topics)

	go func() {
		defer batch.Release()
		res, err := c.ac.DeleteTopics(batch.Context(), topics, deleteTopicsOptions(options)...)
		completeTopicResults(promises, topics, res, err)
	}()
	return rfs
}

func (c *ConfluentAdminClient) DescribeTopics(topics []string, options ikafka.DescribeTopicsOptions) []ikafka.ResourceFuture[*ikafka.TopicDescription] {
	if len(topics) == 0 {
		return nil
	}

	batch := promise.NewBatch(len(topics))
	rfs, promises := newBatchFutures[*ikafka.TopicDescription](batch, topics)

	go func() {
		defer batch.Release()
		ctx, cancel := withRequestTimeout(batch.Context(), options.RequestTimeout)
		defer cancel()

		res, err := c.ac.DescribeTopics(ctx, kafka.NewTopicCollectionOfTopicNames(topics), describeTopicsOptions(options)...)
		if err != nil {
			failAll(promises, err)
			return
		}

		byName := make(map[string]kafka.TopicDescription)
		for _, td := range res.TopicDescriptions {
			byName[td.Name] = td
		}
		for i, name := range topics {
			td, found := byName[name]
			switch {
			case !found, td.Error.Code() == kafka.ErrUnknownTopicOrPart:
				promises[i].Complete(nil)
			case td.Error.Code() != kafka.ErrNoError:
				promises[i].Fail(td.Error)
			default:
				promises[i].Complete(confluentDescription(td))
			}
		}
	}()
	return rfs
}

// ListTopics uses a metadata request, which librdkafka cannot abort.
// Cancelling the future abandons the request.
func (c *ConfluentAdminClient) ListTopics(options ikafka.ListTopicsOptions) ikafka.Future[[]ikafka.TopicListing] {
	p := promise.New[[]ikafka.TopicListing](nil)
	timeout := defaultMetadataTimeout
	if options.RequestTimeout > 0 {
		timeout = options.RequestTimeout
	}

	go func() {
		md, err := c.ac.GetMetadata(nil, true, int(timeout.Milliseconds()))
		if err != nil {
			p.Fail(err)
			return
		}

		var listings []ikafka.TopicListing
		for _, tm := range md.Topics {
			internal := ikafka.IsInternalTopic(tm.Topic)
			if internal && !options.ListInternal {
				continue
			}
			listings = append(listings, ikafka.TopicListing{Name: tm.Topic, Internal: internal})
		}
		sortListings(listings)
		p.Complete(listings)
	}()
	return p
}

func (c *ConfluentAdminClient) Close() error {
	c.ac.Close()
	return nil
}

func completeTopicResults(promises []*promise.Promise[struct{}], names []string, res []kafka.TopicResult, err error) {
	if err != nil {
		failAll(promises, err)
		return
	}

	// Results are matched by name; a name requested twice consumes two results
	byName := make(map[string][]kafka.TopicResult)
	for _, r := range res {
		byName[r.Topic] = append(byName[r.Topic], r)
	}
	for i, name := range names {
		rs := byName[name]
		if len(rs) == 0 {
			promises[i].Fail(errors.Wrapf(ikafka.ErrNoResult, "topic %s", name))
			continue
		}
		byName[name] = rs[1:]
		if rs[0].Error.Code() != kafka.ErrNoError {
			promises[i].Fail(rs[0].Error)
			continue
		}
		promises[i].Complete(struct{}{})
	}
}

func confluentDescription(td kafka.TopicDescription) *ikafka.TopicDescription {
	d := &ikafka.TopicDescription{
		Name:     td.Name,
		TopicID:  td.TopicID.String(),
		Internal: td.IsInternal,
	}
	for _, p := range td.Partitions {
		leader := -1
		if p.Leader != nil {
			leader = p.Leader.ID
		}
		d.Partitions = append(d.Partitions, ikafka.PartitionInfo{
			Partition: p.Partition,
			Leader:    leader,
			Replicas:  nodeIDs(p.Replicas),
			ISR:       nodeIDs(p.Isr),
		})
	}
	for _, op := range td.AuthorizedOperations {
		d.AuthorizedOperations = append(d.AuthorizedOperations, op.String())
	}
	return d
}

func nodeIDs(nodes []kafka.Node) []int {
	ids := make([]int, 0, len(nodes))
	for _, n := range nodes {
		ids = append(ids, n.ID)
	}
	return ids
}

func createTopicsOptions(o ikafka.CreateTopicsOptions) []kafka.CreateTopicsAdminOption {
	var opts []kafka.CreateTopicsAdminOption
	if o.ValidateOnly {
		opts = append(opts, kafka.SetAdminValidateOnly(true))
	}
	if o.OperationTimeout > 0 {
		opts = append(opts, kafka.SetAdminOperationTimeout(o.OperationTimeout))
	}
	if o.RequestTimeout > 0 {
		opts = append(opts, kafka.SetAdminRequestTimeout(o.RequestTimeout))
	}
	return opts
}

func deleteTopicsOptions(o ikafka.DeleteTopicsOptions) []kafka.DeleteTopicsAdminOption {
	var opts []kafka.DeleteTopicsAdminOption
	if o.OperationTimeout > 0 {
		opts = append(opts, kafka.SetAdminOperationTimeout(o.OperationTimeout))
	}
	if o.RequestTimeout > 0 {
		opts = append(opts, kafka.SetAdminRequestTimeout(o.RequestTimeout))
	}
	return opts
}

// The request timeout of a describe is applied through its context.
func describeTopicsOptions(o ikafka.DescribeTopicsOptions) []kafka.DescribeTopicsAdminOption {
	var opts []kafka.DescribeTopicsAdminOption
	if o.IncludeAuthorizedOperations {
		opts = append(opts, kafka.SetAdminOptionIncludeAuthorizedOperations(true))
	}
	return opts
}

// newBatchFutures creates one promise per name, all tied to the batch.
func newBatchFutures[T any](batch *promise.Batch, names []string) ([]ikafka.ResourceFuture[T], []*promise.Promise[T]) {
	rfs := make([]ikafka.ResourceFuture[T], 0, len(names))
	promises := make([]*promise.Promise[T], 0, len(names))
	for _, name := range names {
		p := promise.NewPromise[T](batch)
		promises = append(promises, p)
		rfs = append(rfs, ikafka.ResourceFuture[T]{Name: name, Future: p})
	}
	return rfs, promises
}

func failAll[T any](promises []*promise.Promise[T], err error) {
	for _, p := range promises {
		p.Fail(err)
	}
}

func sortListings(listings []ikafka.TopicListing) {
	sort.Slice(listings, func(i, j int) bool { return listings[i].Name < listings[j].Name })
}

// orBrokerDefault maps an unset count to -1, which brokers >= 2.4 replace
// with their configured default.
func orBrokerDefault(n int) int {
	if n <= 0 {
		return -1
	}
	return n
}

package gkadmin

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/zpiroux/geist-kafka-admin/gkadmin/internal/bridge"
	"github.com/zpiroux/geist-kafka-admin/gkadmin/spec"
	"github.com/zpiroux/geist-kafka-admin/ikafka"
	"github.com/zpiroux/geist/entity"
	"golang.org/x/sync/errgroup"
)

type (
	TopicSpec             = ikafka.TopicSpec
	TopicDescription      = ikafka.TopicDescription
	PartitionInfo         = ikafka.PartitionInfo
	TopicListing          = ikafka.TopicListing
	CreateTopicsOptions   = ikafka.CreateTopicsOptions
	DeleteTopicsOptions   = ikafka.DeleteTopicsOptions
	DescribeTopicsOptions = ikafka.DescribeTopicsOptions
	ListTopicsOptions     = ikafka.ListTopicsOptions
)

// TopicDescriptionResult is the outcome of describing one topic. A result with
// neither Description nor Err means the topic does not exist.
type TopicDescriptionResult struct {
	Description *TopicDescription
	Err         error
}

// Absent reports if the topic was not found.
func (r TopicDescriptionResult) Absent() bool {
	return r.Description == nil && r.Err == nil
}

// CreateTopic creates a single topic. It is the same as CreateTopics with one spec.
func (a *Admin) CreateTopic(ctx context.Context, topic TopicSpec, options CreateTopicsOptions) error {
	return a.CreateTopics(ctx, []TopicSpec{topic}, options)
}

// CreateTopics succeeds if all topics were created. Otherwise the first failure
// reported by the broker is returned, while creation of the other topics may
// still be in progress. Topics already created are not rolled back.
func (a *Admin) CreateTopics(ctx context.Context, topics []TopicSpec, options CreateTopicsOptions) (err error) {
	defer func(start time.Time) { a.metrics.observe(ctx, opCreateTopics, start, err) }(time.Now())

	if err = bridge.AwaitAll(ctx, a.ac.CreateTopics(topics, options)); err != nil {
		a.notify(entity.NotifyLevelWarn, "Could not create topics %v, err: %v", topicNames(topics), err)
	}
	return err
}

// DeleteTopic deletes a single topic. It is the same as DeleteTopics with one name.
func (a *Admin) DeleteTopic(ctx context.Context, topic string, options DeleteTopicsOptions) error {
	return a.DeleteTopics(ctx, []string{topic}, options)
}

// DeleteTopics succeeds if all topics were deleted, with the same failure
// semantics as CreateTopics.
func (a *Admin) DeleteTopics(ctx context.Context, topics []string, options DeleteTopicsOptions) (err error) {
	defer func(start time.Time) { a.metrics.observe(ctx, opDeleteTopics, start, err) }(time.Now())

	if err = bridge.AwaitAll(ctx, a.ac.DeleteTopics(topics, options)); err != nil {
		a.notify(entity.NotifyLevelWarn, "Could not delete topics %v, err: %v", topics, err)
	}
	return err
}

// DescribeTopics awaits the description of each topic independently. A failure
// to describe one topic is reported in its result only. The returned error is
// only set if ctx is done before all descriptions are in.
func (a *Admin) DescribeTopics(ctx context.Context, topics []string, options DescribeTopicsOptions) (results map[string]TopicDescriptionResult, err error) {
	defer func(start time.Time) { a.metrics.observe(ctx, opDescribeTopics, start, err) }(time.Now())

	rfs := a.ac.DescribeTopics(topics, options)
	results = make(map[string]TopicDescriptionResult, len(rfs))
	var mu sync.Mutex

	var g errgroup.Group
	for _, rf := range rfs {
		rf := rf
		g.Go(func() error {
			desc, err := bridge.Await(ctx, rf.Future)
			if err != nil && ctx.Err() != nil {
				return err
			}
			mu.Lock()
			results[rf.Name] = TopicDescriptionResult{Description: desc, Err: err}
			mu.Unlock()
			return nil
		})
	}
	if err = g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// DescribeTopic returns nil, and no error, if the topic does not exist.
func (a *Admin) DescribeTopic(ctx context.Context, topic string, options DescribeTopicsOptions) (*TopicDescription, error) {
	results, err := a.DescribeTopics(ctx, []string{topic}, options)
	if err != nil {
		return nil, err
	}
	res, found := results[topic]
	if !found {
		return nil, nil
	}
	return res.Description, res.Err
}

// ListTopics returns the listings of all topics, by name.
func (a *Admin) ListTopics(ctx context.Context, options ListTopicsOptions) (listings map[string]TopicListing, err error) {
	defer func(start time.Time) { a.metrics.observe(ctx, opListTopics, start, err) }(time.Now())

	ls, err := bridge.Await(ctx, a.ac.ListTopics(options))
	if err != nil {
		return nil, err
	}
	return lo.KeyBy(ls, func(l TopicListing) string { return l.Name }), nil
}

// ListTopicNames returns the sorted names of all topics.
func (a *Admin) ListTopicNames(ctx context.Context, options ListTopicsOptions) ([]string, error) {
	listings, err := a.ListTopics(ctx, options)
	if err != nil {
		return nil, err
	}
	names := lo.Keys(listings)
	sort.Strings(names)
	return names, nil
}

// TopicExists checks if the topic is present in the topic listing. The topic is
// not described, so its existence says nothing about access to it.
func (a *Admin) TopicExists(ctx context.Context, topic TopicSpec, options ListTopicsOptions) (bool, error) {
	names, err := a.ListTopicNames(ctx, options)
	if err != nil {
		return false, err
	}
	return lo.Contains(names, topic.Name), nil
}

// EnsureTopics creates the topics not already present and returns the names of
// those that were missing. A topic created concurrently by someone else is not
// regarded as a failure.
func (a *Admin) EnsureTopics(ctx context.Context, topics []TopicSpec, options CreateTopicsOptions) ([]string, error) {
	listOpts := ListTopicsOptions{ListInternal: true, RequestTimeout: options.RequestTimeout}
	existing, err := a.ListTopics(ctx, listOpts)
	if err != nil {
		return nil, err
	}

	missing := lo.UniqBy(lo.Filter(topics, func(t TopicSpec, _ int) bool {
		_, found := existing[t.Name]
		return !found
	}), func(t TopicSpec) string { return t.Name })
	if len(missing) == 0 {
		return nil, nil
	}

	created := topicNames(missing)
	if err = a.CreateTopics(ctx, missing, options); err == nil {
		a.notify(entity.NotifyLevelInfo, "Topics created: %v", created)
		return created, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}

	// The failure might be from a concurrent creation, in which case all
	// topics are there now.
	existing, lerr := a.ListTopics(ctx, listOpts)
	if lerr != nil {
		return nil, err
	}
	for _, name := range created {
		if _, found := existing[name]; !found {
			return nil, err
		}
	}
	a.notify(entity.NotifyLevelInfo, "Topics %v already exist, ignoring create failure: %v", created, err)
	return created, nil
}

// EnsureTopicsFromSpec ensures the topics of the spec applicable to env.
func (a *Admin) EnsureTopicsFromSpec(ctx context.Context, s spec.AdminSpec, env string, options CreateTopicsOptions) ([]string, error) {
	specs := lo.Map(s.TopicsForEnv(env), func(t spec.TopicSpecification, _ int) TopicSpec {
		return TopicSpec{
			Name:              t.Name,
			NumPartitions:     t.NumPartitions,
			ReplicationFactor: t.ReplicationFactor,
			Config:            t.Config,
		}
	})
	return a.EnsureTopics(ctx, specs, options)
}

func topicNames(topics []TopicSpec) []string {
	return lo.Map(topics, func(t TopicSpec, _ int) string { return t.Name })
}

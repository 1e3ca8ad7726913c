package ikafka

import "time"

// ConfigMap holds broker client properties, e.g. "bootstrap.servers".
type ConfigMap map[string]any

// AdminClient is the broker client session used for topic administration.
// Submission methods never block on the broker; each returns one future per
// affected resource. Implementations must be safe for concurrent use.
type AdminClient interface {
	CreateTopics(topics []TopicSpec, options CreateTopicsOptions) []ResourceFuture[struct{}]
	DeleteTopics(topics []string, options DeleteTopicsOptions) []ResourceFuture[struct{}]

	// DescribeTopics resolves a topic's future with a nil description if the
	// broker reports the topic as unknown.
	DescribeTopics(topics []string, options DescribeTopicsOptions) []ResourceFuture[*TopicDescription]

	ListTopics(options ListTopicsOptions) Future[[]TopicListing]

	// Close synchronously shuts down the client. Futures still pending are
	// failed or abandoned by the implementation.
	Close() error
}

// AdminClientFactory opens an AdminClient from a materialised config map.
type AdminClientFactory interface {
	NewAdminClient(conf ConfigMap) (AdminClient, error)
}

// TopicSpec describes a topic to be created. Zero NumPartitions or
// ReplicationFactor leaves the choice to the broker default, where the client
// supports it.
type TopicSpec struct {
	Name              string
	NumPartitions     int
	ReplicationFactor int
	Config            map[string]string
}

type TopicDescription struct {
	Name                 string
	TopicID              string
	Internal             bool
	Partitions           []PartitionInfo
	AuthorizedOperations []string
}

type PartitionInfo struct {
	Partition int
	Leader    int
	Replicas  []int
	ISR       []int
}

type TopicListing struct {
	Name     string
	TopicID  string
	Internal bool
}

type CreateTopicsOptions struct {
	// ValidateOnly asks the broker to validate the request without creating
	// the topics.
	ValidateOnly     bool
	OperationTimeout time.Duration
	RequestTimeout   time.Duration
}

type DeleteTopicsOptions struct {
	OperationTimeout time.Duration
	RequestTimeout   time.Duration
}

type DescribeTopicsOptions struct {
	IncludeAuthorizedOperations bool
	RequestTimeout              time.Duration
}

type ListTopicsOptions struct {
	ListInternal   bool
	RequestTimeout time.Duration
}

// Kafka's own internal topics, hidden from listings unless asked for.
var internalTopics = map[string]bool{
	"__consumer_offsets":  true,
	"__transaction_state": true,
}

// IsInternalTopic reports if name is one of Kafka's internal topics.
func IsInternalTopic(name string) bool {
	return internalTopics[name]
}

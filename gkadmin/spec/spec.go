package spec

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/zpiroux/geist/entity"
)

// Errors
var (
	ErrMissingBootstrapServers = errors.New("bootstrapServers is missing in admin spec")
	ErrMissingTopicName        = errors.New("topic name is missing in admin spec")
)

// AdminSpec specifies the schema of a JSON document describing how to connect to a
// Kafka cluster for administration, and optionally which topics the cluster should have.
//
// Example:
//
//	{
//	    "bootstrapServers": "localhost:9092",
//	    "properties": [{"key": "client.id", "value": "topic-admin"}],
//	    "topics": [
//	        {"env": "all", "topicSpec": {"name": "events", "numPartitions": 6, "replicationFactor": 3}}
//	    ]
//	}
type AdminSpec struct {
	// BootstrapServers (required) is the comma-separated broker list. It always takes
	// precedence over a "bootstrap.servers" entry in Properties.
	BootstrapServers string `json:"bootstrapServers"`

	// Properties (optional) can be used to provide standard Kafka properties.
	Properties []Property `json:"properties,omitempty"`

	// Topics (optional) lists the topics to manage, per environment.
	Topics []EnvTopics `json:"topics,omitempty"`
}

type Property struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type EnvTopics struct {
	// Env specifies for which environment/stage the topic specs should be used.
	// Allowed values are "all" or any string matching the env provided by the
	// caller. For example "dev", "staging", "prod" etc.
	Env string `json:"env,omitempty"`

	// TopicSpec accepts either a single topic spec object or an array of them.
	TopicSpec TopicSpecs `json:"topicSpec,omitempty"`
}

// TopicSpecification describes a topic to create. Zero NumPartitions or
// ReplicationFactor leaves the value to the broker default.
type TopicSpecification struct {
	Name              string            `json:"name"`
	NumPartitions     int               `json:"numPartitions,omitempty"`
	ReplicationFactor int               `json:"replicationFactor,omitempty"`
	Config            map[string]string `json:"config,omitempty"`
}

type TopicSpecs []TopicSpecification

func (ts *TopicSpecs) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var single TopicSpecification
		if err := json.Unmarshal(data, &single); err != nil {
			return err
		}
		*ts = TopicSpecs{single}
		return nil
	}

	var many []TopicSpecification
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*ts = many
	return nil
}

// NewAdminSpec parses and validates an admin spec JSON document.
func NewAdminSpec(data []byte) (s AdminSpec, err error) {
	if err = json.Unmarshal(data, &s); err != nil {
		return s, errors.Wrap(err, "invalid admin spec")
	}
	return s, s.Validate()
}

func (s AdminSpec) Validate() error {
	if s.BootstrapServers == "" {
		return ErrMissingBootstrapServers
	}
	for _, et := range s.Topics {
		for _, t := range et.TopicSpec {
			if t.Name == "" {
				return errors.Wrapf(ErrMissingTopicName, "env %q", et.Env)
			}
		}
	}
	return nil
}

// PropertyMap returns the properties as a config map, later keys overriding
// earlier ones.
func (s AdminSpec) PropertyMap() map[string]any {
	props := make(map[string]any, len(s.Properties))
	for _, p := range s.Properties {
		props[p.Key] = p.Value
	}
	return props
}

// TopicsForEnv returns the topic specs to use in env. An entry for "all" takes
// precedence over env specific ones.
func (s AdminSpec) TopicsForEnv(env string) []TopicSpecification {
	var specs TopicSpecs
	for _, et := range s.Topics {
		if et.Env == string(entity.EnvironmentAll) {
			specs = et.TopicSpec
			break
		}
		if et.Env == env {
			specs = et.TopicSpec
		}
	}
	return specs
}

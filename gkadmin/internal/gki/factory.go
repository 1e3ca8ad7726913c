package gki

import (
	"reflect"

	"github.com/Shopify/sarama"
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/pkg/errors"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/zpiroux/geist-kafka-admin/ikafka"
)

var ErrNoBootstrapServers = errors.New("no bootstrap servers in config")

// ConfluentAdminClientFactory opens librdkafka based admin clients. All
// properties are passed through as is.
type ConfluentAdminClientFactory struct{}

func (f ConfluentAdminClientFactory) NewAdminClient(conf ikafka.ConfigMap) (ikafka.AdminClient, error) {
	kconf := make(kafka.ConfigMap, len(conf))
	for k, v := range conf {
		kconf[k] = v
	}
	ac, err := kafka.NewAdminClient(&kconf)
	if err != nil {
		return nil, err
	}
	return newConfluentAdminClient(ac), nil
}

// FranzAdminClientFactory opens franz-go based admin clients. Only the
// bootstrap servers and client id are taken from the config.
type FranzAdminClientFactory struct{}

func (f FranzAdminClientFactory) NewAdminClient(conf ikafka.ConfigMap) (ikafka.AdminClient, error) {
	servers := BootstrapServers(conf)
	if len(servers) == 0 {
		return nil, ErrNoBootstrapServers
	}

	opts := []kgo.Opt{kgo.SeedBrokers(servers...)}
	if id := ClientID(conf); id != "" {
		opts = append(opts, kgo.ClientID(id))
	}
	cl, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, err
	}
	return newFranzAdminClient(kadm.NewClient(cl)), nil
}

// SaramaAdminClientFactory opens sarama ClusterAdmin based clients. Only the
// bootstrap servers and client id are taken from the config.
type SaramaAdminClientFactory struct{}

func (f SaramaAdminClientFactory) NewAdminClient(conf ikafka.ConfigMap) (ikafka.AdminClient, error) {
	servers := BootstrapServers(conf)
	if len(servers) == 0 {
		return nil, ErrNoBootstrapServers
	}

	cfg := sarama.NewConfig()
	cfg.Version = saramaVersion
	if id := ClientID(conf); id != "" {
		cfg.ClientID = id
	}
	ca, err := sarama.NewClusterAdmin(servers, cfg)
	if err != nil {
		return nil, err
	}
	return newSaramaAdminClient(ca), nil
}

// MappedProps lists the properties translated by the franz-go and sarama
// factories.
var MappedProps = []string{PropBootstrapServers, PropClientID}

func IsNil(v any) bool {
	return v == nil || (reflect.ValueOf(v).Kind() == reflect.Ptr && reflect.ValueOf(v).IsNil())
}

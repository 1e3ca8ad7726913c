// Package gkadmin provides blocking, context-aware Kafka topic administration on
// top of the completion handles returned by a broker admin client.
package gkadmin

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/teltech/logger"
	"github.com/zpiroux/geist-kafka-admin/gkadmin/internal/gki"
	"github.com/zpiroux/geist-kafka-admin/ikafka"
	"github.com/zpiroux/geist/entity"
	"github.com/zpiroux/geist/pkg/notify"
)

// Errors
var (
	// ErrMissingBootstrapServers is returned from New() if the settings have no bootstrap servers
	ErrMissingBootstrapServers = errors.New("bootstrap servers are missing in settings")

	// ErrUnknownProvider is returned from New() if Config.Provider is not one of the Provider constants
	ErrUnknownProvider = errors.New("unknown admin client provider")
)

// Kafka properties commonly used in admin settings.
// See https://docs.confluent.io/platform/current/clients/librdkafka/html/md_CONFIGURATION.html
// for all properties that can be used with the default provider.
const (
	PropBootstrapServers = gki.PropBootstrapServers
	PropClientID         = gki.PropClientID
	PropSecurityProtocol = "security.protocol"
	PropSASLMechanism    = "sasl.mechanism"
	PropSASLUsername     = "sasl.username"
	PropSASLPassword     = "sasl.password"
)

// Provider selects the Kafka client library backing an Admin.
type Provider string

const (
	// ProviderConfluent uses confluent-kafka-go (librdkafka). All properties are
	// passed through to librdkafka. This is the default.
	ProviderConfluent Provider = "confluent"

	// ProviderFranz uses franz-go. Only bootstrap.servers and client.id are used.
	ProviderFranz Provider = "franz"

	// ProviderSarama uses sarama's ClusterAdmin. Only bootstrap.servers and
	// client.id are used.
	ProviderSarama Provider = "sarama"
)

// Internal constants
const (
	entityTypeId = "gkadmin"
	streamId     = "topic-admin"
)

// Config is the optional external config for creating an Admin.
type Config struct {

	// Provider selects which client library to use if Factory is nil. If empty,
	// ProviderConfluent is used.
	Provider Provider

	// Factory can be set to use a custom admin client factory, typically in tests.
	// It takes precedence over Provider.
	Factory ikafka.AdminClientFactory

	// NotifyChan receives notification events about the admin client life cycle
	// and failed operations. No notifications are sent if nil.
	NotifyChan entity.NotifyChan

	// Log specifies if notifications should also be logged to stdout.
	Log bool

	// Instance identifies this Admin in notifications.
	Instance string

	// Registerer, if set, is used to register operation metrics.
	Registerer prometheus.Registerer
}

// Admin is the handle to a Kafka admin client session. It is safe for concurrent
// use. The underlying client is only closed by Close.
type Admin struct {
	ac       ikafka.AdminClient
	notifier *notify.Notifier
	metrics  *metrics
}

// New opens an admin client session with the materialised settings.
func New(settings Settings, config *Config) (*Admin, error) {
	if config == nil {
		config = &Config{}
	}
	if strings.TrimSpace(settings.BootstrapServers()) == "" {
		return nil, ErrMissingBootstrapServers
	}

	factory := config.Factory
	if gki.IsNil(factory) {
		var err error
		if factory, err = providerFactory(config.Provider); err != nil {
			return nil, err
		}
	}

	a := newAdmin(config)
	conf := settings.Properties()
	if gki.IsNil(config.Factory) && config.Provider != "" && config.Provider != ProviderConfluent {
		if unmapped := gki.UnmappedProps(conf, gki.MappedProps...); len(unmapped) > 0 {
			a.notify(entity.NotifyLevelWarn, "Properties not supported by provider %s are ignored: %v", config.Provider, unmapped)
		}
	}

	ac, err := factory.NewAdminClient(conf)
	if err != nil {
		a.notify(entity.NotifyLevelError, "Could not create admin client with config: %s, err: %v", settings, err)
		return nil, errors.Wrap(err, "creating admin client")
	}
	a.ac = ac
	a.notify(entity.NotifyLevelInfo, "Admin client created with config: %s", settings)
	return a, nil
}

// NewFromClient wraps an already opened admin client. Closing the Admin closes ac.
func NewFromClient(ac ikafka.AdminClient, config *Config) *Admin {
	if config == nil {
		config = &Config{}
	}
	a := newAdmin(config)
	a.ac = ac
	return a
}

func newAdmin(config *Config) *Admin {
	a := &Admin{metrics: newMetrics(config.Registerer)}
	if config.NotifyChan != nil {
		var log *logger.Log
		if config.Log {
			log = logger.New()
		}
		a.notifier = notify.New(config.NotifyChan, log, 3, entityTypeId, config.Instance, streamId)
	}
	return a
}

func providerFactory(p Provider) (ikafka.AdminClientFactory, error) {
	switch p {
	case "", ProviderConfluent:
		return gki.ConfluentAdminClientFactory{}, nil
	case ProviderFranz:
		return gki.FranzAdminClientFactory{}, nil
	case ProviderSarama:
		return gki.SaramaAdminClientFactory{}, nil
	}
	return nil, errors.Wrapf(ErrUnknownProvider, "%q", p)
}

// Client returns the underlying admin client.
func (a *Admin) Client() ikafka.AdminClient {
	return a.ac
}

// Close synchronously closes the admin client session.
func (a *Admin) Close() error {
	err := a.ac.Close()
	if err != nil {
		a.notify(entity.NotifyLevelError, "Error closing admin client, err: %v", err)
		return err
	}
	a.notify(entity.NotifyLevelInfo, "Admin client closed")
	return nil
}

func (a *Admin) notify(level int, format string, args ...any) {
	if a.notifier != nil {
		a.notifier.Notify(level, format, args...)
	}
}

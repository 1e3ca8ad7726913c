package gkadmin

import (
	"github.com/zpiroux/geist-kafka-admin/gkadmin/internal/gki"
	"github.com/zpiroux/geist-kafka-admin/gkadmin/spec"
	"github.com/zpiroux/geist-kafka-admin/ikafka"
)

// Settings are the bootstrap servers and client properties of an admin client
// session. The value is immutable.
type Settings struct {
	bootstrapServers string
	props            ikafka.ConfigMap
}

// NewSettings copies props, so later changes to the caller's map have no effect.
// bootstrapServers is kept as given.
func NewSettings(bootstrapServers string, props map[string]any) Settings {
	return Settings{
		bootstrapServers: bootstrapServers,
		props:            gki.MergeConfig(props),
	}
}

// SettingsFromSpec creates settings from an admin spec document.
func SettingsFromSpec(s spec.AdminSpec) Settings {
	return NewSettings(s.BootstrapServers, s.PropertyMap())
}

func (s Settings) BootstrapServers() string {
	return s.bootstrapServers
}

// Properties returns the config map to open a client with: a copy of the
// property overlay with "bootstrap.servers" set from the settings, replacing
// any overlay value.
func (s Settings) Properties() ikafka.ConfigMap {
	return gki.MergeConfig(s.props, ikafka.ConfigMap{PropBootstrapServers: s.bootstrapServers})
}

// String renders the materialised properties as JSON, with secrets redacted.
func (s Settings) String() string {
	return gki.RenderConfig(s.Properties())
}

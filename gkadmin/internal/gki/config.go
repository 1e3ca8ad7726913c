package gki

import (
	"sort"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cast"
	"github.com/tidwall/sjson"
	"github.com/zpiroux/geist-kafka-admin/ikafka"
)

// Kafka properties understood by all adapters
const (
	PropBootstrapServers = "bootstrap.servers"
	PropClientID         = "client.id"
)

const redacted = "[redacted]"

// Credentials never to be shown in notifications
var secretProps = map[string]bool{
	"sasl.password":                  true,
	"sasl.oauthbearer.client.secret": true,
	"ssl.key.password":               true,
	"ssl.keystore.password":          true,
	"ssl.truststore.password":        true,
}

// MergeConfig copies the layers into a new map, later layers overriding
// earlier ones.
func MergeConfig(layers ...ikafka.ConfigMap) ikafka.ConfigMap {
	out := make(ikafka.ConfigMap)
	for _, layer := range layers {
		for k, v := range layer {
			out[k] = v
		}
	}
	return out
}

func displayConfig(in ikafka.ConfigMap) ikafka.ConfigMap {
	out := make(ikafka.ConfigMap)
	for k, v := range in {
		if secretProps[k] {
			v = redacted
		}
		out[k] = v
	}
	return out
}

// RenderConfig returns the config map as a JSON object with sorted keys and
// secrets redacted.
func RenderConfig(conf ikafka.ConfigMap) string {
	display := displayConfig(conf)
	keys := lo.Keys(display)
	sort.Strings(keys)

	out := "{}"
	for _, k := range keys {
		// Kafka property names are dotted, which sjson would treat as nesting
		s, err := sjson.Set(out, strings.ReplaceAll(k, ".", `\.`), display[k])
		if err != nil {
			s, _ = sjson.Set(out, strings.ReplaceAll(k, ".", `\.`), cast.ToString(display[k]))
		}
		out = s
	}
	return out
}

// BootstrapServers returns the comma-separated broker list of the config.
func BootstrapServers(conf ikafka.ConfigMap) []string {
	var servers []string
	switch v := conf[PropBootstrapServers].(type) {
	case []string:
		servers = v
	default:
		servers = strings.Split(cast.ToString(v), ",")
	}
	servers = lo.Map(servers, func(s string, _ int) string { return strings.TrimSpace(s) })
	return lo.Compact(servers)
}

func ClientID(conf ikafka.ConfigMap) string {
	return cast.ToString(conf[PropClientID])
}

// UnmappedProps returns the sorted keys of conf not in the mapped set, for
// adapters only translating a subset of the librdkafka properties.
func UnmappedProps(conf ikafka.ConfigMap, mapped ...string) []string {
	keys := lo.Without(lo.Keys(conf), mapped...)
	sort.Strings(keys)
	return keys
}

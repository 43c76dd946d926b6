package config

import "context"

// remotePrefix namespaces keys that stand in for remotely delivered settings.
const remotePrefix = "remote."

// remoteDefaults mirrors the defaults shipped with the remote config template.
var remoteDefaults = map[string]string{
	"notification_keep_at_top":              "false",
	"notification_limit":                    "10",
	"notification_unlock_at_top_timeout_ms": "300000",
	"notification_unlock_at_top_limit":      "3",
	"is_notification_grouping_active":       "true",
	"notification_version":                  "1",
	"is_cricket_notification_active":        "false",
	"cricket_notification_interval":         "30000",
	"is_comment_notification_active":        "true",
	"comment_notification_grouping":         "true",
	"is_sticky_notification_active":         "false",
	"sticky_notification_time_interval":     "3600000",
	"notification_max_cancel_count":         "5",
	"notification_ui_version":               "1",
	"is_unified_feed_active":                "false",
}

func setRemoteDefaults() {
	for k, v := range remoteDefaults {
		setDefault(remotePrefix+k, v)
	}
}

func registerRemoteValidators() {
	boolValidator := BoolValidator()
	for _, key := range []string{
		"notification_keep_at_top",
		"is_notification_grouping_active",
		"is_cricket_notification_active",
		"is_comment_notification_active",
		"comment_notification_grouping",
		"is_sticky_notification_active",
		"is_unified_feed_active",
	} {
		RegisterValidator(remotePrefix+key, boolValidator)
	}
	for _, key := range []string{
		"notification_limit",
		"notification_unlock_at_top_timeout_ms",
		"notification_unlock_at_top_limit",
		"cricket_notification_interval",
		"sticky_notification_time_interval",
		"notification_max_cancel_count",
	} {
		RegisterValidator(remotePrefix+key, NonNegativeIntValidator())
	}
	RegisterValidator(remotePrefix+"notification_version", PositiveIntValidator())
}

// Provider serves remote config keys from the loaded configuration.
// It satisfies ports.ConfigProvider for hosts without a remote config service.
type Provider struct{}

// NewProvider returns a Provider reading the process configuration.
func NewProvider() *Provider {
	return &Provider{}
}

// GetBool returns the boolean value for a remote key.
func (Provider) GetBool(_ context.Context, key string, defaultValue bool) bool {
	return GetBool(remotePrefix+key, defaultValue)
}

// GetNumber returns the numeric value for a remote key.
func (Provider) GetNumber(_ context.Context, key string, defaultValue float64) float64 {
	return GetFloat(remotePrefix+key, defaultValue)
}

// GetString returns the string value for a remote key.
func (Provider) GetString(_ context.Context, key, defaultValue string) string {
	return Get(remotePrefix+key, defaultValue)
}

// IsRemoteSet reports whether a remote key has a loaded value that differs from its
// shipped default.
func IsRemoteSet(key string) bool {
	if !Has(remotePrefix + key) {
		return false
	}
	return Get(remotePrefix+key, "") != remoteDefaults[key]
}

// RemoteSnapshot returns every remote key with its current value, used by the CLI to print
// effective settings.
func RemoteSnapshot() map[string]string {
	mu.RLock()
	defer mu.RUnlock()
	out := make(map[string]string, len(remoteDefaults))
	for k, def := range remoteDefaults {
		if v, ok := config[remotePrefix+k]; ok {
			out[k] = v
			continue
		}
		out[k] = def
	}
	return out
}


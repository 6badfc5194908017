/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package notify

import (
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/acronis/go-uikit/config"
)

const cfgDefaultKeyPrefix = "notify"

const (
	cfgKeyDefaultDuration = "defaultDuration"
	cfgKeyKindDurations   = "kindDurations"
)

// Config represents a set of configuration parameters for the notification
// center. Configuration can be loaded in different formats (YAML, JSON) using
// config.Loader, viper, or with json.Unmarshal/yaml.Unmarshal functions directly.
type Config struct {
	// DefaultDuration is how long notifications stay up when neither a Notify
	// call nor a per-kind override specifies a duration.
	// Unlike Options.DefaultDuration, zero is honored as configured:
	// notifications become sticky by default.
	DefaultDuration config.TimeDuration `mapstructure:"defaultDuration" yaml:"defaultDuration" json:"defaultDuration"`

	// KindDurations overrides the default duration per notification kind.
	// Keys must parse as notification kinds, zero values mean sticky.
	KindDurations map[string]config.TimeDuration `mapstructure:"kindDurations" yaml:"kindDurations" json:"kindDurations"`

	keyPrefix string
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// ConfigOption is a type for functional options for the Config.
type ConfigOption func(*configOptions)

type configOptions struct {
	keyPrefix string
}

// WithKeyPrefix returns a ConfigOption that sets a key prefix for parsing configuration parameters.
// This prefix will be used by config.Loader.
func WithKeyPrefix(keyPrefix string) ConfigOption {
	return func(o *configOptions) {
		o.keyPrefix = keyPrefix
	}
}

// NewConfig creates a new instance of the Config.
func NewConfig(options ...ConfigOption) *Config {
	opts := configOptions{keyPrefix: cfgDefaultKeyPrefix}
	for _, opt := range options {
		opt(&opts)
	}
	return &Config{keyPrefix: opts.keyPrefix}
}

// NewDefaultConfig creates a new instance of the Config with default values.
func NewDefaultConfig(options ...ConfigOption) *Config {
	opts := configOptions{keyPrefix: cfgDefaultKeyPrefix}
	for _, opt := range options {
		opt(&opts)
	}
	return &Config{
		keyPrefix:       opts.keyPrefix,
		DefaultDuration: config.TimeDuration(DefaultDuration),
	}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
// Implements config.KeyPrefixProvider interface.
func (c *Config) KeyPrefix() string {
	if c.keyPrefix == "" {
		return cfgDefaultKeyPrefix
	}
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values in config.DataProvider.
// Implements config.Config interface.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyDefaultDuration, DefaultDuration.String())
}

// Set sets notification center configuration values from config.DataProvider.
// Implements config.Config interface.
func (c *Config) Set(dp config.DataProvider) error {
	defaultDuration, err := dp.GetDuration(cfgKeyDefaultDuration)
	if err != nil {
		return err
	}
	if defaultDuration < 0 {
		return dp.WrapKeyErr(cfgKeyDefaultDuration, fmt.Errorf("must not be negative, got %s", defaultDuration))
	}
	c.DefaultDuration = config.TimeDuration(defaultDuration)

	var kindDurations map[string]config.TimeDuration
	if err = dp.UnmarshalKey(cfgKeyKindDurations, &kindDurations, func(dc *mapstructure.DecoderConfig) {
		dc.DecodeHook = MapstructureDecodeHook()
	}); err != nil {
		return err
	}
	for kindStr, d := range kindDurations {
		if _, parseErr := ParseKind(kindStr); parseErr != nil {
			return dp.WrapKeyErr(cfgKeyKindDurations, parseErr)
		}
		if d < 0 {
			return dp.WrapKeyErr(cfgKeyKindDurations,
				fmt.Errorf("duration for kind %q must not be negative, got %s", kindStr, d))
		}
	}
	c.KindDurations = kindDurations
	return nil
}

// Validate validates configuration.
func (c *Config) Validate() error {
	if c.DefaultDuration < 0 {
		return fmt.Errorf("default duration must not be negative, got %s", c.DefaultDuration)
	}
	for kindStr, d := range c.KindDurations {
		if _, err := ParseKind(kindStr); err != nil {
			return err
		}
		if d < 0 {
			return fmt.Errorf("duration for kind %q must not be negative, got %s", kindStr, d)
		}
	}
	return nil
}

// MapstructureDecodeHook returns a DecodeHookFunc for mapstructure to handle custom types.
func MapstructureDecodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.TextUnmarshallerHookFunc(),
	)
}

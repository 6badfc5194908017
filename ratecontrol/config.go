/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratecontrol

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
	"github.com/vasayxtx/go-glob"

	"github.com/acronis/go-uikit/config"
)

const cfgDefaultKeyPrefix = "ratecontrol"

const cfgKeyRules = "rules"

// Config represents a set of declarative rate control rules.
// Configuration can be loaded in different formats (YAML, JSON) using config.Loader, viper,
// or with json.Unmarshal/yaml.Unmarshal functions directly.
type Config struct {
	// Rules contains rate control rules. Rule order matters:
	// RuleSet.Match returns the first rule whose event patterns match.
	Rules []RuleConfig `mapstructure:"rules" yaml:"rules" json:"rules"`

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
func (c *Config) SetProviderDefaults(_ config.DataProvider) {
}

// Set sets rate control configuration values from config.DataProvider.
// Implements config.Config interface.
func (c *Config) Set(dp config.DataProvider) error {
	var rules []RuleConfig
	if err := dp.UnmarshalKey(cfgKeyRules, &rules, func(dc *mapstructure.DecoderConfig) {
		dc.DecodeHook = MapstructureDecodeHook()
	}); err != nil {
		return err
	}
	c.Rules = rules
	if err := c.Validate(); err != nil {
		return dp.WrapKeyErr(cfgKeyRules, err)
	}
	return nil
}

// Validate validates configuration.
func (c *Config) Validate() error {
	names := make(map[string]struct{}, len(c.Rules))
	for i := range c.Rules {
		rule := &c.Rules[i]
		if err := rule.Validate(); err != nil {
			return fmt.Errorf("validate rule %q: %w", rule.Name, err)
		}
		if _, ok := names[rule.Name]; ok {
			return fmt.Errorf("duplicated rule name %q", rule.Name)
		}
		names[rule.Name] = struct{}{}
	}
	return nil
}

// RuleConfig represents configuration for a single rate control rule.
type RuleConfig struct {
	// Name is a unique name of the rule. Required.
	Name string `mapstructure:"name" yaml:"name" json:"name"`

	// Events contains glob patterns ("search.*", "scroll") over event names
	// to which the rule applies. Required.
	Events []string `mapstructure:"events" yaml:"events" json:"events"`

	// Mode is a rate control strategy, "debounce" or "throttle" in config text.
	Mode Mode `mapstructure:"mode" yaml:"mode" json:"mode"`

	// Window is a suppression window. Must be positive.
	Window config.TimeDuration `mapstructure:"window" yaml:"window" json:"window"`

	// Leading additionally fires on the first call of a burst. Debounce mode only.
	Leading bool `mapstructure:"leading" yaml:"leading" json:"leading"`
}

// Validate validates rule configuration.
func (c *RuleConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("name is missing")
	}
	if len(c.Events) == 0 {
		return fmt.Errorf("events is missing")
	}
	switch c.Mode {
	case ModeDebounce, ModeThrottle:
	default:
		return fmt.Errorf("unknown mode %d", int(c.Mode))
	}
	if c.Window.Duration() <= 0 {
		return fmt.Errorf("window must be positive, got %s", c.Window)
	}
	if c.Leading && c.Mode != ModeDebounce {
		return fmt.Errorf("leading option is not applicable to %s mode", c.Mode)
	}
	return nil
}

type compiledRule struct {
	rule     RuleConfig
	matchers []func(s string) bool
}

// RuleSet matches event names against the configured rules.
// Event patterns are compiled once at construction time.
type RuleSet struct {
	compiled []compiledRule
}

// NewRuleSet creates a new RuleSet from the validated configuration.
func NewRuleSet(cfg *Config) (*RuleSet, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	compiled := make([]compiledRule, 0, len(cfg.Rules))
	for _, rule := range cfg.Rules {
		matchers := make([]func(s string) bool, 0, len(rule.Events))
		for _, pattern := range rule.Events {
			matchers = append(matchers, glob.Compile(pattern))
		}
		compiled = append(compiled, compiledRule{rule: rule, matchers: matchers})
	}
	return &RuleSet{compiled: compiled}, nil
}

// Match returns the first rule whose event patterns match the given event name.
func (rs *RuleSet) Match(event string) (RuleConfig, bool) {
	for i := range rs.compiled {
		for _, match := range rs.compiled[i].matchers {
			if match(event) {
				return rs.compiled[i].rule, true
			}
		}
	}
	return RuleConfig{}, false
}

// Rules returns the rules in the order they were configured.
func (rs *RuleSet) Rules() []RuleConfig {
	rules := make([]RuleConfig, len(rs.compiled))
	for i := range rs.compiled {
		rules[i] = rs.compiled[i].rule
	}
	return rules
}

// NewFromRule creates a new controller for the given rule,
// typically one returned by RuleSet.Match.
// The rule's mode, window and leading flag override the corresponding options.
func NewFromRule[T any](rule RuleConfig, cb Callback[T], opts Options) (Controller[T], error) {
	opts.Leading = rule.Leading
	return New(rule.Mode, rule.Window.Duration(), cb, opts)
}

// MapstructureDecodeHook returns a DecodeHookFunc for mapstructure to handle custom types.
func MapstructureDecodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.TextUnmarshallerHookFunc(),
	)
}

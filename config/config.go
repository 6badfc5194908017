/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package config provides a small toolkit for loading configuration
// from YAML/JSON files and environment variables into typed objects.
//
// Configuration objects implement the Config interface and are filled by Loader.
// Values are read through the DataProvider abstraction, whose main implementation
// (ViperAdapter) is backed by the viper library.
package config

// Config is a common interface for configuration objects that may be used by Loader.
type Config interface {
	// SetProviderDefaults writes the object's default values into the data provider.
	SetProviderDefaults(dp DataProvider)

	// Set fills the object with values from the data provider and validates them.
	Set(dp DataProvider) error
}

// KeyPrefixProvider is an interface for configuration objects that read their
// parameters under a key prefix (e.g. "notify.defaultDuration" for prefix "notify").
type KeyPrefixProvider interface {
	KeyPrefix() string
}

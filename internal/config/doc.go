// Package config loads and validates the slidecast TOML configuration.
package config

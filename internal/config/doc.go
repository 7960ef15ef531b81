// Package config loads, validates, and normalizes framecast's TOML
// configuration for both the CLI and the encoder daemon.
package config

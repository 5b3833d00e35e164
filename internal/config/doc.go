// Package config loads, defaults, and validates the aggregator's YAML
// configuration. ${VAR} references in the file are expanded from the
// environment before parsing.
package config

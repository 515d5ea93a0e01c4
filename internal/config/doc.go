// Package config loads cimedic configuration from multiple sources.
//
// Precedence (highest to lowest):
//  1. CLI flags
//  2. Environment variables (CIMEDIC_SECTION_FIELD, e.g. CIMEDIC_ADVISORY_MODELS)
//  3. Config file ($XDG_CONFIG_HOME/cimedic/config.yaml, or --config, YAML or TOML)
//  4. Built-in defaults
//
// Use [Load] to obtain a validated [Config], [Save] to write one back, and
// [SetField] to update a single key.
package config

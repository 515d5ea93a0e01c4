package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Save writes cfg to path, as TOML for a .toml path and YAML otherwise.
func Save(cfg Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := Marshal(cfg, path)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// Marshal encodes cfg in the format implied by path.
func Marshal(cfg Config, path string) ([]byte, error) {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return nil, fmt.Errorf("marshaling config: %w", err)
		}
		return buf.Bytes(), nil
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	return buf.Bytes(), nil
}

// Keys lists the keys SetField accepts. Table entries are set as
// commands.typos.<command> and commands.tools.<command>.
func Keys() []string {
	return []string{
		"logging.level", "logging.format",
		"dependencies.manifest", "dependencies.allow_list",
		"walker.extensions", "walker.exclude", "walker.max_file_bytes", "walker.workers",
		"advisory.enabled", "advisory.models", "advisory.timeout", "advisory.max_log_bytes", "advisory.redact_secrets",
		"plan.enabled", "plan.model", "plan.timeout",
		"cache.enabled", "cache.dir", "cache.ttl_seconds",
		"publish.author_name", "publish.author_email", "publish.remote",
		"history.path", "metrics.textfile",
	}
}

// SetField sets a single config field by key name. Lists are comma
// separated. Returns an error if the key is unknown or the value malformed.
func SetField(cfg *Config, key, value string) error {
	if cmd, ok := strings.CutPrefix(key, "commands.typos."); ok && cmd != "" {
		cfg.Commands.Typos = setEntry(cfg.Commands.Typos, cmd, value)
		return nil
	}
	if cmd, ok := strings.CutPrefix(key, "commands.tools."); ok && cmd != "" {
		cfg.Commands.Tools = setEntry(cfg.Commands.Tools, cmd, value)
		return nil
	}

	var err error
	switch key {
	case "logging.level":
		cfg.Logging.Level = value
	case "logging.format":
		cfg.Logging.Format = value
	case "dependencies.manifest":
		cfg.Dependencies.Manifest = value
	case "dependencies.allow_list":
		cfg.Dependencies.AllowList = splitList(value)
	case "walker.extensions":
		cfg.Walker.Extensions = splitList(value)
	case "walker.exclude":
		cfg.Walker.Exclude = splitList(value)
	case "walker.max_file_bytes":
		cfg.Walker.MaxFileBytes, err = strconv.ParseInt(value, 10, 64)
	case "walker.workers":
		cfg.Walker.Workers, err = strconv.Atoi(value)
	case "advisory.enabled":
		cfg.Advisory.Enabled, err = strconv.ParseBool(value)
	case "advisory.models":
		cfg.Advisory.Models = splitList(value)
	case "advisory.timeout":
		cfg.Advisory.Timeout, err = time.ParseDuration(value)
	case "advisory.max_log_bytes":
		cfg.Advisory.MaxLogBytes, err = strconv.Atoi(value)
	case "advisory.redact_secrets":
		cfg.Advisory.RedactSecrets, err = strconv.ParseBool(value)
	case "plan.enabled":
		cfg.Plan.Enabled, err = strconv.ParseBool(value)
	case "plan.model":
		cfg.Plan.Model = value
	case "plan.timeout":
		cfg.Plan.Timeout, err = time.ParseDuration(value)
	case "cache.enabled":
		cfg.Cache.Enabled, err = strconv.ParseBool(value)
	case "cache.dir":
		cfg.Cache.Dir = value
	case "cache.ttl_seconds":
		cfg.Cache.TTLSeconds, err = strconv.Atoi(value)
	case "publish.author_name":
		cfg.Publish.AuthorName = value
	case "publish.author_email":
		cfg.Publish.AuthorEmail = value
	case "publish.remote":
		cfg.Publish.Remote = value
	case "history.path":
		cfg.History.Path = value
	case "metrics.textfile":
		cfg.Metrics.Textfile = value
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	if err != nil {
		return fmt.Errorf("%s: invalid value %q: %w", key, value, err)
	}
	return nil
}

func setEntry(m map[string]string, k, v string) map[string]string {
	if m == nil {
		m = make(map[string]string)
	}
	if v == "" {
		delete(m, k)
		return m
	}
	m[k] = v
	return m
}

func splitList(value string) []string {
	return trimAll(strings.Split(value, ","))
}

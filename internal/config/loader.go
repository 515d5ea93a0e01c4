package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CIMEDIC_"

// maxConfigFileSize bounds the config file read.
const maxConfigFileSize = 1 << 20

// tomlParser adapts BurntSushi/toml to koanf.Parser.
type tomlParser struct{}

func (tomlParser) Unmarshal(b []byte) (map[string]interface{}, error) {
	var out map[string]interface{}
	if err := toml.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (tomlParser) Marshal(m map[string]interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func parserFor(path string) koanf.Parser {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return tomlParser{}
	}
	return yaml.Parser()
}

// Load builds the effective config: defaults <- file <- environment. An
// empty path means the default config file, which may be absent; an explicit
// path must exist. The result is validated.
func Load(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := ConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = p
	}
	return load(path, explicit, true)
}

// LoadFile reads the config file at path without environment overrides, for
// editing it in place. A missing file yields the defaults. The result is
// validated.
func LoadFile(path string) (Config, error) {
	return load(path, false, false)
}

func load(path string, mustExist, withEnv bool) (Config, error) {

	k := koanf.New(".")
	content, err := readConfigFile(path)
	switch {
	case err == nil:
		if err := k.Load(rawbytes.Provider(content), parserFor(path)); err != nil {
			return Config{}, fmt.Errorf("%w: parsing %s: %v", ErrInvalid, path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !mustExist:
	default:
		return Config{}, err
	}

	if withEnv {
		if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
			return Config{}, fmt.Errorf("loading environment variables: %w", err)
		}
	}

	var cfg Config
	err = k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
				mapstructure.TextUnmarshallerHookFunc(),
			),
			Metadata:         nil,
			Result:           &cfg,
			WeaklyTypedInput: true,
			TagName:          "koanf",
		},
	})
	if err != nil {
		return Config{}, fmt.Errorf("%w: decoding config: %v", ErrInvalid, err)
	}

	applyDefaults(k, &cfg)
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// envKey maps CIMEDIC_SECTION_FIELD_NAME to section.field_name.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, field, ok := strings.Cut(lower, "_")
	if !ok {
		return lower
	}
	return section + "." + field
}

func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config file %s: %w", path, os.ErrNotExist)
		}
		return nil, fmt.Errorf("opening config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("%w: config file too large: %d bytes (max %d)", ErrInvalid, info.Size(), maxConfigFileSize)
	}
	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return content, nil
}

// applyDefaults fills values the sources left unset. Booleans, lists and
// tables are only defaulted when their key is absent, so an explicit false or
// empty list survives.
func applyDefaults(k *koanf.Koanf, cfg *Config) {
	def := Default()

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = def.Logging.Level
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = def.Logging.Format
	}

	if cfg.Dependencies.Manifest == "" {
		cfg.Dependencies.Manifest = def.Dependencies.Manifest
	}
	if !k.Exists("dependencies.allow_list") {
		cfg.Dependencies.AllowList = def.Dependencies.AllowList
	}

	if !k.Exists("commands.typos") {
		cfg.Commands.Typos = def.Commands.Typos
	}
	if !k.Exists("commands.tools") {
		cfg.Commands.Tools = def.Commands.Tools
	}

	if !k.Exists("walker.extensions") {
		cfg.Walker.Extensions = def.Walker.Extensions
	}
	if !k.Exists("walker.exclude") {
		cfg.Walker.Exclude = def.Walker.Exclude
	}
	if !k.Exists("walker.max_file_bytes") {
		cfg.Walker.MaxFileBytes = def.Walker.MaxFileBytes
	}

	if !k.Exists("advisory.models") {
		cfg.Advisory.Models = def.Advisory.Models
	}
	if cfg.Advisory.Timeout == 0 {
		cfg.Advisory.Timeout = def.Advisory.Timeout
	}
	if !k.Exists("advisory.max_log_bytes") {
		cfg.Advisory.MaxLogBytes = def.Advisory.MaxLogBytes
	}
	if !k.Exists("advisory.redact_secrets") {
		cfg.Advisory.RedactSecrets = def.Advisory.RedactSecrets
	}

	if cfg.Plan.Model == "" {
		cfg.Plan.Model = def.Plan.Model
	}
	if cfg.Plan.Timeout == 0 {
		cfg.Plan.Timeout = def.Plan.Timeout
	}

	if !k.Exists("cache.enabled") {
		cfg.Cache.Enabled = def.Cache.Enabled
	}
	if !k.Exists("cache.ttl_seconds") {
		cfg.Cache.TTLSeconds = def.Cache.TTLSeconds
	}

	if cfg.Publish.AuthorName == "" {
		cfg.Publish.AuthorName = def.Publish.AuthorName
	}
	if cfg.Publish.AuthorEmail == "" {
		cfg.Publish.AuthorEmail = def.Publish.AuthorEmail
	}
	if cfg.Publish.Remote == "" {
		cfg.Publish.Remote = def.Publish.Remote
	}
}

// normalize trims list entries so "a, b" from the environment reads as two
// clean names.
func (c *Config) normalize() {
	c.Dependencies.AllowList = trimAll(c.Dependencies.AllowList)
	c.Advisory.Models = trimAll(c.Advisory.Models)
	c.Walker.Extensions = trimAll(c.Walker.Extensions)
	c.Walker.Exclude = trimAll(c.Walker.Exclude)
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

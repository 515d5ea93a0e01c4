package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/dshills/cimedic/internal/walker"
)

// Config is the complete cimedic configuration.
type Config struct {
	Logging      LoggingConfig      `koanf:"logging" yaml:"logging" toml:"logging" json:"logging"`
	Dependencies DependenciesConfig `koanf:"dependencies" yaml:"dependencies" toml:"dependencies" json:"dependencies"`
	Commands     CommandsConfig     `koanf:"commands" yaml:"commands" toml:"commands" json:"commands"`
	Walker       WalkerConfig       `koanf:"walker" yaml:"walker" toml:"walker" json:"walker"`
	Advisory     AdvisoryConfig     `koanf:"advisory" yaml:"advisory" toml:"advisory" json:"advisory"`
	Plan         PlanConfig         `koanf:"plan" yaml:"plan" toml:"plan" json:"plan"`
	Cache        CacheConfig        `koanf:"cache" yaml:"cache" toml:"cache" json:"cache"`
	Publish      PublishConfig      `koanf:"publish" yaml:"publish" toml:"publish" json:"publish"`
	History      HistoryConfig      `koanf:"history" yaml:"history" toml:"history" json:"history"`
	Metrics      MetricsConfig      `koanf:"metrics" yaml:"metrics" toml:"metrics" json:"metrics"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level  string `koanf:"level" yaml:"level" toml:"level" json:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" yaml:"format" toml:"format" json:"format" validate:"oneof=console json"`
}

// DependenciesConfig holds the dependency manifest and the packages trusted
// for automatic insertion into it.
type DependenciesConfig struct {
	Manifest  string   `koanf:"manifest" yaml:"manifest" toml:"manifest" json:"manifest" validate:"required"`
	AllowList []string `koanf:"allow_list" yaml:"allow_list" toml:"allow_list" json:"allowList" validate:"min=1,dive,required"`
}

// CommandsConfig holds the tables behind command-not-found advice.
type CommandsConfig struct {
	// Typos maps a mistyped command to the intended one.
	Typos map[string]string `koanf:"typos" yaml:"typos" toml:"typos" json:"typos"`
	// Tools maps a command to an installation hint.
	Tools map[string]string `koanf:"tools" yaml:"tools" toml:"tools" json:"tools"`
}

// WalkerConfig selects the candidate files strategies scan.
type WalkerConfig struct {
	Extensions   []string `koanf:"extensions" yaml:"extensions" toml:"extensions" json:"extensions"`
	Exclude      []string `koanf:"exclude" yaml:"exclude" toml:"exclude" json:"exclude"`
	MaxFileBytes int64    `koanf:"max_file_bytes" yaml:"max_file_bytes" toml:"max_file_bytes" json:"maxFileBytes" validate:"gte=0"`
	Workers      int      `koanf:"workers" yaml:"workers" toml:"workers" json:"workers" validate:"gte=0"`
}

// AdvisoryConfig controls the model fallback run after a no_match.
type AdvisoryConfig struct {
	Enabled       bool          `koanf:"enabled" yaml:"enabled" toml:"enabled" json:"enabled"`
	Models        []string      `koanf:"models" yaml:"models" toml:"models" json:"models" validate:"dive,modelspec"`
	Timeout       time.Duration `koanf:"timeout" yaml:"timeout" toml:"timeout" json:"timeout" validate:"gte=0"`
	MaxLogBytes   int           `koanf:"max_log_bytes" yaml:"max_log_bytes" toml:"max_log_bytes" json:"maxLogBytes" validate:"gte=0"`
	RedactSecrets bool          `koanf:"redact_secrets" yaml:"redact_secrets" toml:"redact_secrets" json:"redactSecrets"`
}

// PlanConfig controls the model-backed strategy for unrecognized failures.
type PlanConfig struct {
	Enabled bool          `koanf:"enabled" yaml:"enabled" toml:"enabled" json:"enabled"`
	Model   string        `koanf:"model" yaml:"model" toml:"model" json:"model" validate:"omitempty,modelspec"`
	Timeout time.Duration `koanf:"timeout" yaml:"timeout" toml:"timeout" json:"timeout" validate:"gte=0"`
}

// CacheConfig controls caching of model answers.
type CacheConfig struct {
	Enabled    bool   `koanf:"enabled" yaml:"enabled" toml:"enabled" json:"enabled"`
	Dir        string `koanf:"dir" yaml:"dir,omitempty" toml:"dir,omitempty" json:"dir,omitempty"`
	TTLSeconds int    `koanf:"ttl_seconds" yaml:"ttl_seconds" toml:"ttl_seconds" json:"ttlSeconds" validate:"gte=0"`
}

// PublishConfig controls the commit and push of a fix.
type PublishConfig struct {
	AuthorName  string `koanf:"author_name" yaml:"author_name" toml:"author_name" json:"authorName" validate:"required"`
	AuthorEmail string `koanf:"author_email" yaml:"author_email" toml:"author_email" json:"authorEmail" validate:"required,email"`
	Remote      string `koanf:"remote" yaml:"remote" toml:"remote" json:"remote" validate:"required"`
}

// HistoryConfig locates the optional run ledger. An empty path disables it.
type HistoryConfig struct {
	Path string `koanf:"path" yaml:"path,omitempty" toml:"path,omitempty" json:"path,omitempty"`
}

// MetricsConfig locates the optional Prometheus textfile.
type MetricsConfig struct {
	Textfile string `koanf:"textfile" yaml:"textfile,omitempty" toml:"textfile,omitempty" json:"textfile,omitempty"`
}

// DefaultModel is the model of the default advisory chain and plan strategy.
const DefaultModel = "groq:llama-3.1-8b-instant"

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Logging: LoggingConfig{Level: "info", Format: "console"},
		Dependencies: DependenciesConfig{
			Manifest:  "requirements.txt",
			AllowList: []string{"requests", "numpy", "pandas", "flask", "django", "yaml", "pytest", "sqlalchemy"},
		},
		Commands: CommandsConfig{
			Typos: map[string]string{
				"npn":    "npm",
				"nmp":    "npm",
				"pyhton": "python",
				"pytohn": "python",
				"gti":    "git",
				"dokcer": "docker",
			},
			Tools: map[string]string{
				"jq":     "install it with apt-get install -y jq or use a runner image that ships it.",
				"make":   "install build-essential (apt-get install -y build-essential).",
				"node":   "add an actions/setup-node step before this command.",
				"npm":    "add an actions/setup-node step before this command.",
				"yarn":   "run corepack enable or npm install -g yarn first.",
				"poetry": "run pip install poetry before this step.",
				"pytest": "add pytest to requirements.txt or run pip install pytest first.",
				"docker": "use a runner with Docker available or add a docker setup step.",
			},
		},
		Walker: WalkerConfig{
			Extensions:   []string{".py"},
			Exclude:      append([]string(nil), walker.DefaultExcludes...),
			MaxFileBytes: 1 << 20,
		},
		Advisory: AdvisoryConfig{
			Models:        []string{DefaultModel},
			Timeout:       60 * time.Second,
			MaxLogBytes:   32 << 10,
			RedactSecrets: true,
		},
		Plan: PlanConfig{
			Model:   DefaultModel,
			Timeout: 60 * time.Second,
		},
		Cache: CacheConfig{
			Enabled:    true,
			TTLSeconds: 86400,
		},
		Publish: PublishConfig{
			AuthorName:  "ci-bot-agent",
			AuthorEmail: "ci-bot-agent@github.com",
			Remote:      "origin",
		},
	}
}

// ConfigDir returns the platform-appropriate config directory for cimedic.
func ConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "cimedic"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "cimedic"), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "cimedic"), nil
		}
		return filepath.Join(home, "AppData", "Roaming", "cimedic"), nil
	default:
		return filepath.Join(home, ".config", "cimedic"), nil
	}
}

// ConfigPath returns the full path to the default config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

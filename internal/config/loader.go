package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader handles configuration loading from multiple sources.
type Loader struct {
	v          *viper.Viper
	configFile string
	envPrefix  string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		v:         viper.New(),
		envPrefix: "CURA",
	}
}

// NewLoaderWithViper creates a loader using an existing viper instance.
// This allows integration with CLI flag bindings.
func NewLoaderWithViper(v *viper.Viper) *Loader {
	return &Loader{
		v:         v,
		envPrefix: "CURA",
	}
}

// WithConfigFile sets an explicit config file path.
func (l *Loader) WithConfigFile(path string) *Loader {
	l.configFile = path
	return l
}

// Viper returns the underlying viper instance for flag binding.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// Load loads configuration from all sources.
// Precedence (highest to lowest):
// 1. CLI flags (set via viper.BindPFlag)
// 2. Environment variables (CURA_*)
// 3. Project config (.cura.yaml in current directory)
// 4. User config (~/.config/cura/config.yaml)
// 5. Defaults
func (l *Loader) Load() (*Config, error) {
	l.setDefaults()

	l.v.SetEnvPrefix(l.envPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	if l.configFile != "" {
		l.v.SetConfigFile(l.configFile)
	} else {
		l.v.SetConfigName(".cura")
		l.v.SetConfigType("yaml")

		// Project config takes precedence over user config.
		l.v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			l.v.AddConfigPath(filepath.Join(home, ".config", "cura"))
		}
	}

	if err := l.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values.
func (l *Loader) setDefaults() {
	l.v.SetDefault("log.level", "info")
	l.v.SetDefault("log.format", "auto")

	l.v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	// Registered so CURA_LLM_API_KEY is visible to Unmarshal.
	l.v.SetDefault("llm.api_key", "")
	l.v.SetDefault("llm.model", "gpt-4o-mini")
	l.v.SetDefault("llm.timeout", "2m")
	l.v.SetDefault("llm.max_retries", 3)
	l.v.SetDefault("llm.temperature", 0.0)

	l.v.SetDefault("store.backend", "sqlite")
	l.v.SetDefault("store.path", defaultStorePath())

	l.v.SetDefault("server.host", "127.0.0.1")
	l.v.SetDefault("server.port", 8080)
	l.v.SetDefault("server.request_timeout", "5m")
	l.v.SetDefault("server.shutdown_timeout", "10s")
	l.v.SetDefault("server.allowed_origins", []string{"*"})

	l.v.SetDefault("engine.auto_select", true)
	l.v.SetDefault("engine.default_specialists", []string{})
}

func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".cura/cura.db"
	}
	return filepath.Join(home, ".cura", "cura.db")
}

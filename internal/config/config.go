// Package config loads citeview settings from citeview.yaml, CITEVIEW_*
// environment variables and command-line flags.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// CITEVIEW_BACKEND_URL.
const EnvPrefix = "CITEVIEW"

// Config is the resolved application configuration.
type Config struct {
	Backend     BackendConfig `mapstructure:"backend"`
	Viewer      ViewerConfig  `mapstructure:"viewer"`
	History     HistoryConfig `mapstructure:"history"`
	Cache       CacheConfig   `mapstructure:"cache"`
	LogFile     string        `mapstructure:"log_file"`
	NoAltScreen bool          `mapstructure:"no_alt_screen"`
}

// BackendConfig locates the document-processing service.
type BackendConfig struct {
	URL      string        `mapstructure:"url"`
	Timeout  time.Duration `mapstructure:"timeout"`
	ThreadID string        `mapstructure:"thread_id"`
}

// ViewerConfig tunes the document pane.
type ViewerConfig struct {
	BaseWidth     float64 `mapstructure:"base_width"`
	ReferenceMode string  `mapstructure:"reference_mode"`
}

// HistoryConfig locates the transcript database.
type HistoryConfig struct {
	Path  string `mapstructure:"path"`
	Limit int    `mapstructure:"limit"`
}

// CacheConfig locates downloaded documents.
type CacheConfig struct {
	Dir string `mapstructure:"dir"`
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	base := dataDir()
	v.SetDefault("backend.url", "http://localhost:5000")
	v.SetDefault("backend.timeout", 2*time.Minute)
	v.SetDefault("backend.thread_id", "1")
	v.SetDefault("viewer.base_width", 600.0)
	v.SetDefault("viewer.reference_mode", "page")
	v.SetDefault("history.path", filepath.Join(base, "history.db"))
	v.SetDefault("history.limit", 10)
	v.SetDefault("cache.dir", filepath.Join(base, "downloads"))
	v.SetDefault("log_file", filepath.Join(base, "citeview.log"))
	v.SetDefault("no_alt_screen", false)
}

// Setup points v at the config file and environment. An explicit file wins
// over the search path ./citeview.yaml, ~/.config/citeview/citeview.yaml.
func Setup(v *viper.Viper, file string) {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("citeview")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "citeview"))
		}
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
}

// Load reads the config file if there is one and decodes v. A missing file
// is not an error; a malformed one is.
func Load(v *viper.Viper) (Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, errors.Wrap(err, "reading config")
		}
	}
	return Decode(v)
}

// Decode converts the values already held by v into a Config.
func Decode(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "decoding config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the viewer cannot work with.
func (c Config) Validate() error {
	switch c.Viewer.ReferenceMode {
	case "page", "fixed":
	default:
		return errors.Errorf("viewer.reference_mode must be page or fixed, got %q", c.Viewer.ReferenceMode)
	}
	if c.Viewer.BaseWidth <= 0 {
		return errors.Errorf("viewer.base_width must be positive, got %v", c.Viewer.BaseWidth)
	}
	if c.History.Limit < 0 {
		return errors.Errorf("history.limit must not be negative, got %d", c.History.Limit)
	}
	return nil
}

func dataDir() string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, "citeview")
}

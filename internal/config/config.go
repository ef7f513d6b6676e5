// Package config loads repoadd settings from flags, environment and config file
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/ralt/repoadd/internal/api"
	"github.com/ralt/repoadd/internal/form"
	"github.com/ralt/repoadd/internal/models"
)

// EnvPrefix prefixes every environment variable, e.g. REPOADD_TOKEN
const EnvPrefix = "REPOADD"

// Keys
const (
	KeyBaseURL                 = "base_url"
	KeyToken                   = "token"
	KeyTimeout                 = "timeout"
	KeyDebounce                = "debounce"
	KeyHidePackageVerification = "hide_package_verification"
	KeyMaxRows                 = "max_rows"
)

// Config holds the effective settings
type Config struct {
	BaseURL                 string        `mapstructure:"base_url"`
	Token                   string        `mapstructure:"token"`
	Timeout                 time.Duration `mapstructure:"timeout"`
	Debounce                time.Duration `mapstructure:"debounce"`
	HidePackageVerification bool          `mapstructure:"hide_package_verification"`
	MaxRows                 int           `mapstructure:"max_rows"`
}

// SetDefaults registers the default value of every key
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyBaseURL, api.DefaultBaseURL)
	v.SetDefault(KeyToken, "")
	v.SetDefault(KeyTimeout, api.DefaultTimeout)
	v.SetDefault(KeyDebounce, form.DefaultDebounce)
	v.SetDefault(KeyHidePackageVerification, false)
	v.SetDefault(KeyMaxRows, form.DefaultMaxRows)
}

// Init prepares v: defaults, environment binding and the config file.
// cfgFile overrides the search path; a missing default file is not an error.
func Init(v *viper.Viper, cfgFile string) error {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if userConfigDir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(userConfigDir, "repoadd"))
		}
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			logrus.Debug("No config file found, using flags and environment")
			return nil
		}
		return &models.ContentError{
			Type: models.ErrInvalidConfig,
			Err:  fmt.Errorf("failed to read config file: %w", err),
		}
	}

	logrus.Debugf("Using config file: %s", v.ConfigFileUsed())
	return nil
}

// Load decodes and validates the settings held by v
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &models.ContentError{
			Type: models.ErrInvalidConfig,
			Err:  fmt.Errorf("unable to decode config: %w", err),
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return &models.ContentError{
			Type: models.ErrInvalidConfig,
			Err:  fmt.Errorf(format, args...),
		}
	}

	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return invalid("base_url must be an http or https URL: %q", c.BaseURL)
	}
	if c.Timeout < 0 {
		return invalid("timeout must not be negative")
	}
	if c.Debounce < 0 {
		return invalid("debounce must not be negative")
	}
	if c.MaxRows < 1 || c.MaxRows > form.DefaultMaxRows {
		return invalid("max_rows must be between 1 and %d", form.DefaultMaxRows)
	}
	return nil
}

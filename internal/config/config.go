// Package config loads application configuration from a config file and
// NEEDLE_-prefixed environment variables, with defaults matching the hosted
// service's limits.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type APIConfig struct {
	BaseURL string
	Timeout time.Duration
}

type IdentityConfig struct {
	SignInURL   string
	RefreshURL  string
	APIKey      string
	RefreshLead time.Duration
}

type FetchConfig struct {
	PageLimit      int
	HardCeiling    int
	ChunkSize      int
	ChunkThreshold int
}

type DisplayConfig struct {
	Ceiling        int
	RecordsPerPage int
}

type SettingsConfig struct {
	Path string
}

type AppConfig struct {
	Environment string
	API         APIConfig
	Identity    IdentityConfig
	Fetch       FetchConfig
	Display     DisplayConfig
	Settings    SettingsConfig
}

// Load reads config.yaml from the working directory or the user config
// directory, then applies NEEDLE_-prefixed environment overrides.
func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, "dh-importer"))
	}

	v.SetEnvPrefix("NEEDLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *AppConfig) validate() error {
	if c.Fetch.PageLimit <= 0 {
		return fmt.Errorf("fetch.pagelimit must be positive, got %d", c.Fetch.PageLimit)
	}
	if c.Fetch.HardCeiling < c.Fetch.PageLimit {
		return fmt.Errorf("fetch.hardceiling %d is below fetch.pagelimit %d", c.Fetch.HardCeiling, c.Fetch.PageLimit)
	}
	if c.Display.RecordsPerPage <= 0 {
		return fmt.Errorf("display.recordsperpage must be positive, got %d", c.Display.RecordsPerPage)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "production")

	v.SetDefault("api.baseurl", "https://api.needle-digital.com")
	v.SetDefault("api.timeout", "5m")

	v.SetDefault("identity.signinurl", "https://identitytoolkit.googleapis.com/v1/accounts:signInWithPassword")
	v.SetDefault("identity.refreshurl", "https://securetoken.googleapis.com/v1/token")
	v.SetDefault("identity.apikey", "")
	v.SetDefault("identity.refreshlead", "60s")

	v.SetDefault("fetch.pagelimit", 50_000)
	v.SetDefault("fetch.hardceiling", 1_000_000)
	v.SetDefault("fetch.chunksize", 10_000)
	v.SetDefault("fetch.chunkthreshold", 5_000)

	v.SetDefault("display.ceiling", 1_000)
	v.SetDefault("display.recordsperpage", 100)

	v.SetDefault("settings.path", defaultSettingsPath())
}

func defaultSettingsPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "dh-importer.settings"
	}
	return filepath.Join(dir, "dh-importer", "settings.bin")
}

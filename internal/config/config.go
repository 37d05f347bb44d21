// Package config handles the XDG configuration directory and settings loaded with Viper.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"aide/internal/logging"
)

const (
	// AppName is the application directory name.
	AppName = "aide"

	// SettingsFile holds KEY=VALUE settings read by Load.
	SettingsFile = "config.env"

	// TokenFile is the stored access token filename.
	TokenFile = "token.json"

	// EnvPrefix prefixes environment overrides (AIDE_BASE_URL, ...).
	EnvPrefix = "AIDE"

	// DefaultBaseURL is the production API root.
	DefaultBaseURL = "https://api.eliteaide.tech/"
)

// Settings are the user-tunable values read from config.env and the environment.
type Settings struct {
	// BaseURL is the API root every endpoint path is joined to.
	BaseURL string `mapstructure:"BASE_URL"`
	// Latitude and Longitude pin a fixed position for new tasks. Both or neither.
	Latitude  string `mapstructure:"LATITUDE"`
	Longitude string `mapstructure:"LONGITUDE"`
	// GeoURL is an optional IP geolocation endpoint returning {latitude, longitude}.
	GeoURL string `mapstructure:"GEO_URL"`
	// LogFormat is "text" or "json".
	LogFormat string `mapstructure:"LOG_FORMAT"`
}

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string

	// Debug enables debug logging.
	Debug bool

	// Quiet suppresses informational output.
	Quiet bool

	Settings Settings

	// Log is the logger commands and the backend write to. Nil means discard.
	Log logrus.FieldLogger
}

// New creates a new Config with the default or specified config directory.
// If configDir is empty, uses XDG_CONFIG_HOME/aide or $HOME/.config/aide.
// Settings start at their defaults; call Load to read config.env and the environment.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	return &Config{
		Dir:      dir,
		Settings: Settings{BaseURL: DefaultBaseURL, LogFormat: "text"},
	}, nil
}

// Load reads <Dir>/config.env (if present), then AIDE_* environment variables, into Settings.
// Env vars override the file. Returns an error if a value is invalid.
func (c *Config) Load() error {
	v := viper.New()

	v.SetConfigFile(c.SettingsPath())
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil && !settingsMissing(err) {
		return fmt.Errorf("config: reading %s: %w", c.SettingsPath(), err)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	v.SetDefault("BASE_URL", DefaultBaseURL)
	v.SetDefault("LATITUDE", "")
	v.SetDefault("LONGITUDE", "")
	v.SetDefault("GEO_URL", "")
	v.SetDefault("LOG_FORMAT", "text")

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := s.validate(); err != nil {
		return err
	}
	c.Settings = s
	return nil
}

// settingsMissing reports whether err only means there is no config.env.
func settingsMissing(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.Is(err, fs.ErrNotExist) || errors.As(err, &notFound)
}

func (s Settings) validate() error {
	u, err := url.Parse(s.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("config: BASE_URL must be an absolute http(s) URL: %q", s.BaseURL)
	}
	if (s.Latitude == "") != (s.Longitude == "") {
		return errors.New("config: LATITUDE and LONGITUDE must be set together")
	}
	if _, _, ok, err := s.Position(); ok && err != nil {
		return err
	}
	switch strings.ToLower(s.LogFormat) {
	case "", "text", "json":
	default:
		return fmt.Errorf("config: LOG_FORMAT must be text or json: %q", s.LogFormat)
	}
	return nil
}

// Position returns the configured fixed coordinates.
// ok is false when none are configured.
func (s Settings) Position() (lat, lon float64, ok bool, err error) {
	if s.Latitude == "" && s.Longitude == "" {
		return 0, 0, false, nil
	}
	lat, err = strconv.ParseFloat(strings.TrimSpace(s.Latitude), 64)
	if err != nil || lat < -90 || lat > 90 {
		return 0, 0, true, fmt.Errorf("config: invalid LATITUDE: %q", s.Latitude)
	}
	lon, err = strconv.ParseFloat(strings.TrimSpace(s.Longitude), 64)
	if err != nil || lon < -180 || lon > 180 {
		return 0, 0, true, fmt.Errorf("config: invalid LONGITUDE: %q", s.Longitude)
	}
	return lat, lon, true, nil
}

// Logger returns c.Log, or a logger that discards everything.
func (c *Config) Logger() logrus.FieldLogger {
	if c == nil || c.Log == nil {
		return logging.Discard()
	}
	return c.Log
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home can't be determined
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// SettingsPath returns the path to config.env.
func (c *Config) SettingsPath() string {
	return filepath.Join(c.Dir, SettingsFile)
}

// TokenPath returns the path to the stored access token file.
func (c *Config) TokenPath() string {
	return filepath.Join(c.Dir, TokenFile)
}

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}

// HasToken checks if the token file exists.
func (c *Config) HasToken() bool {
	_, err := os.Stat(c.TokenPath())
	return err == nil
}

// RemoveToken deletes the token file.
func (c *Config) RemoveToken() error {
	return os.Remove(c.TokenPath())
}

// Package config loads lineage settings from lineage.yaml, LINEAGE_*
// environment variables and built-in defaults, in that order of
// precedence from last to first.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides: storage.backend is read from
// LINEAGE_STORAGE_BACKEND.
const EnvPrefix = "LINEAGE"

// Config holds every runtime setting of the lineage service and CLI.
type Config struct {
	Storage  StorageConfig  `mapstructure:"storage" yaml:"storage"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Impact   ImpactConfig   `mapstructure:"impact" yaml:"impact"`
	Versions VersionsConfig `mapstructure:"versions" yaml:"versions"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Metrics  MetricsConfig  `mapstructure:"metrics" yaml:"metrics"`
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	Backend string `mapstructure:"backend" yaml:"backend" validate:"oneof=memory badger sqlite postgres kuzu"`
	Path    string `mapstructure:"path" yaml:"path,omitempty" validate:"required_if=Backend sqlite"`
	DSN     string `mapstructure:"dsn" yaml:"dsn,omitempty" validate:"required_if=Backend postgres"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"oneof=text json"`
}

// ImpactConfig holds the defaults applied to impact requests that leave a
// field unset.
type ImpactConfig struct {
	Depth       int  `mapstructure:"depth" yaml:"depth" validate:"gte=0"`
	Dedupe      bool `mapstructure:"dedupe" yaml:"dedupe"`
	SkipVisited bool `mapstructure:"skipVisited" yaml:"skipVisited"`
}

type VersionsConfig struct {
	Limit int `mapstructure:"limit" yaml:"limit" validate:"gt=0"`
}

type ServerConfig struct {
	Transport string `mapstructure:"transport" yaml:"transport" validate:"oneof=stdio http"`
	Addr      string `mapstructure:"addr" yaml:"addr"`
}

// MetricsConfig enables the Prometheus endpoint when Addr is set.
type MetricsConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Storage:  StorageConfig{Backend: "memory"},
		Log:      LogConfig{Level: "info", Format: "text"},
		Impact:   ImpactConfig{Depth: 1},
		Versions: VersionsConfig{Limit: 10},
		Server:   ServerConfig{Transport: "stdio", Addr: ":8090"},
	}
}

// Load reads lineage.yml or lineage.yaml from dir, if present, and applies
// environment overrides. A missing config file is not an error.
func Load(dir string) (*Config, error) {
	v := newViper()
	v.SetConfigName("lineage")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading lineage config in %s: %w", dir, err)
		}
	}
	return decode(v)
}

// LoadFile reads the config file at path, which must exist.
func LoadFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	d := Default()
	v.SetDefault("storage.backend", d.Storage.Backend)
	v.SetDefault("storage.path", d.Storage.Path)
	v.SetDefault("storage.dsn", d.Storage.DSN)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("impact.depth", d.Impact.Depth)
	v.SetDefault("impact.dedupe", d.Impact.Dedupe)
	v.SetDefault("impact.skipVisited", d.Impact.SkipVisited)
	v.SetDefault("versions.limit", d.Versions.Limit)
	v.SetDefault("server.transport", d.Server.Transport)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("metrics.addr", d.Metrics.Addr)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding lineage config: %w", err)
	}
	cfg.Storage.Backend = strings.ToLower(cfg.Storage.Backend)
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	cfg.Log.Format = strings.ToLower(cfg.Log.Format)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return fmt.Errorf("invalid config %s: %q fails %s %s", configKey(fe.Namespace()), fmt.Sprint(fe.Value()), fe.Tag(), fe.Param())
	}
	return fmt.Errorf("invalid config: %w", err)
}

// configKey turns "Config.Storage.Backend" into "storage.backend".
func configKey(namespace string) string {
	_, rest, _ := strings.Cut(namespace, ".")
	return strings.ToLower(rest)
}

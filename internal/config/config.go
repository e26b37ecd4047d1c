// Package config loads linkshelf settings from config.yaml, .env files, and
// LINKSHELF_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/linkshelf/internal/paths"
	"github.com/mesh-intelligence/linkshelf/pkg/types"
)

// EnvPrefix prefixes every environment override; dots in keys become
// underscores, so backup.retention is LINKSHELF_BACKUP_RETENTION.
const EnvPrefix = "LINKSHELF"

// Log formats.
const (
	LogFormatConsole = "console"
	LogFormatJSON    = "json"
)

// ErrLogFormat is returned for a log_format other than console or json.
var ErrLogFormat = errors.New("log_format must be console or json")

// Config is the full set of linkshelf settings.
type Config struct {
	Listen            string            `mapstructure:"listen" yaml:"listen"`
	DataDir           string            `mapstructure:"data_dir" yaml:"data_dir"`
	AdminPassword     string            `mapstructure:"admin_password" yaml:"admin_password"`
	AdminPasswordHash string            `mapstructure:"admin_password_hash" yaml:"admin_password_hash"`
	SerializeWrites   bool              `mapstructure:"serialize_writes" yaml:"serialize_writes"`
	LogLevel          string            `mapstructure:"log_level" yaml:"log_level"`
	LogFormat         string            `mapstructure:"log_format" yaml:"log_format"`
	Auth              AuthConfig        `mapstructure:"auth" yaml:"auth"`
	Store             types.StoreConfig `mapstructure:"store" yaml:"store"`
	Backup            BackupConfig      `mapstructure:"backup" yaml:"backup"`
}

// AuthConfig controls request-level password enforcement.
type AuthConfig struct {
	Enforce bool `mapstructure:"enforce" yaml:"enforce"`
}

// BackupConfig controls snapshot naming, retention, and scheduling.
type BackupConfig struct {
	Retention        int           `mapstructure:"retention" yaml:"retention"`
	Timezone         string        `mapstructure:"timezone" yaml:"timezone"`
	TimestampLayout  string        `mapstructure:"timestamp_layout" yaml:"timestamp_layout"`
	ScheduleInterval time.Duration `mapstructure:"schedule_interval" yaml:"schedule_interval"`
	Window           WindowConfig  `mapstructure:"window" yaml:"window"`
}

// WindowConfig is the scheduled-backup window: days of month and hour.
type WindowConfig struct {
	Days []int `mapstructure:"days" yaml:"days,flow"`
	Hour int   `mapstructure:"hour" yaml:"hour"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Listen:    ":8787",
		LogLevel:  "info",
		LogFormat: LogFormatConsole,
		Store: types.StoreConfig{
			Driver: types.DriverSQLite,
			S3:     types.S3Config{Region: "us-east-1"},
		},
		Backup: BackupConfig{
			Retention:       5,
			Timezone:        "Asia/Shanghai",
			TimestampLayout: "2006/01/02 15:04:05",
			Window:          WindowConfig{Days: []int{1, 20}, Hour: 3},
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("listen", d.Listen)
	v.SetDefault("data_dir", d.DataDir)
	v.SetDefault("admin_password", d.AdminPassword)
	v.SetDefault("admin_password_hash", d.AdminPasswordHash)
	v.SetDefault("serialize_writes", d.SerializeWrites)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)
	v.SetDefault("auth.enforce", d.Auth.Enforce)
	v.SetDefault("store.driver", d.Store.Driver)
	v.SetDefault("store.path", d.Store.Path)
	v.SetDefault("store.dsn", d.Store.DSN)
	v.SetDefault("store.s3.bucket", d.Store.S3.Bucket)
	v.SetDefault("store.s3.region", d.Store.S3.Region)
	v.SetDefault("store.s3.endpoint", d.Store.S3.Endpoint)
	v.SetDefault("store.s3.prefix", d.Store.S3.Prefix)
	v.SetDefault("store.s3.path_style", d.Store.S3.PathStyle)
	v.SetDefault("backup.retention", d.Backup.Retention)
	v.SetDefault("backup.timezone", d.Backup.Timezone)
	v.SetDefault("backup.timestamp_layout", d.Backup.TimestampLayout)
	v.SetDefault("backup.schedule_interval", d.Backup.ScheduleInterval)
	v.SetDefault("backup.window.days", d.Backup.Window.Days)
	v.SetDefault("backup.window.hour", d.Backup.Window.Hour)
}

// Load reads config.yaml from configDir, overlaying .env files and
// LINKSHELF_* environment variables. A missing config.yaml is not an error.
func Load(configDir string) (*Config, error) {
	if files := paths.EnvFiles(configDir); len(files) > 0 {
		if err := godotenv.Load(files...); err != nil {
			return nil, fmt.Errorf("load env files: %w", err)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the settings that can be checked without touching the
// store or the network.
func (c *Config) Validate() error {
	if err := c.StoreConfig().Validate(); err != nil {
		return err
	}
	if c.Backup.Retention < 1 {
		return fmt.Errorf("%w: %d", types.ErrRetentionInvalid, c.Backup.Retention)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	switch c.LogFormat {
	case LogFormatConsole, LogFormatJSON:
	default:
		return fmt.Errorf("%w: %q", ErrLogFormat, c.LogFormat)
	}
	return nil
}

// StoreConfig returns the store section with DataDir filled from the
// top-level data_dir.
func (c *Config) StoreConfig() types.StoreConfig {
	s := c.Store
	if s.DataDir == "" {
		s.DataDir = c.DataDir
	}
	return s
}

// WriteFile writes c as YAML to path, creating or truncating it.
func (c *Config) WriteFile(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

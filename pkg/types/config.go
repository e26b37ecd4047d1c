package types

import "errors"

// Supported store drivers.
const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverBolt     = "bolt"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverS3       = "s3"
)

// S3Config holds the parameters of the s3 driver.
type S3Config struct {
	Bucket    string `json:"bucket" yaml:"bucket" mapstructure:"bucket"`
	Region    string `json:"region" yaml:"region" mapstructure:"region"`
	Endpoint  string `json:"endpoint" yaml:"endpoint" mapstructure:"endpoint"`
	Prefix    string `json:"prefix" yaml:"prefix" mapstructure:"prefix"`
	PathStyle bool   `json:"path_style" yaml:"path_style" mapstructure:"path_style"`
}

// StoreConfig selects and parameterizes a key-value driver.
type StoreConfig struct {
	Driver  string   `json:"driver" yaml:"driver" mapstructure:"driver"`
	DataDir string   `json:"data_dir" yaml:"data_dir" mapstructure:"data_dir"`
	Path    string   `json:"path" yaml:"path" mapstructure:"path"`
	DSN     string   `json:"dsn" yaml:"dsn" mapstructure:"dsn"`
	S3      S3Config `json:"s3" yaml:"s3" mapstructure:"s3"`
}

// Config validation errors.
var (
	ErrDriverEmpty      = errors.New("store driver must not be empty")
	ErrDriverUnknown    = errors.New("unknown store driver")
	ErrBucketRequired   = errors.New("s3 bucket must not be empty")
	ErrRetentionInvalid = errors.New("backup retention must be positive")
	ErrWindowInvalid    = errors.New("invalid backup window")
)

// knownDrivers lists the drivers that Validate accepts.
var knownDrivers = map[string]bool{
	DriverMemory:   true,
	DriverFile:     true,
	DriverBolt:     true,
	DriverSQLite:   true,
	DriverPostgres: true,
	DriverS3:       true,
}

// Validate checks that the StoreConfig is well-formed. It returns a sentinel
// error from this package on failure.
func (c StoreConfig) Validate() error {
	if c.Driver == "" {
		return ErrDriverEmpty
	}
	if !knownDrivers[c.Driver] {
		return ErrDriverUnknown
	}
	if c.Driver == DriverS3 && c.S3.Bucket == "" {
		return ErrBucketRequired
	}
	return nil
}

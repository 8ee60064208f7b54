// Package config loads cheeseshop settings from an optional YAML file, then
// CHEESESHOP_* environment overrides, then defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"cheeseshop/internal/blob"
	"cheeseshop/internal/core"
	"cheeseshop/internal/infra/logger"
)

const envPrefix = "CHEESESHOP_"

// ErrorKind classifies configuration failures.
type ErrorKind string

const (
	KindNotFound      ErrorKind = "not_found"
	KindInvalidConfig ErrorKind = "invalid_config"
)

// OpError wraps a configuration failure with the operation and file path.
type OpError struct {
	Op   string
	Kind ErrorKind
	Path string
	Err  error
}

func (e *OpError) Error() string {
	base := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.Path != "" {
		base += fmt.Sprintf(" (path=%s)", e.Path)
	}
	if e.Err != nil {
		base += fmt.Sprintf(": %v", e.Err)
	}
	return base
}

func (e *OpError) Unwrap() error { return e.Err }

// IsKind reports whether err is an OpError of kind.
func IsKind(err error, kind ErrorKind) bool {
	var oe *OpError
	return errors.As(err, &oe) && oe.Kind == kind
}

// Config is the full service configuration.
type Config struct {
	HTTP    HTTP    `yaml:"http"`
	Storage Storage `yaml:"storage"`
	Blob    Blob    `yaml:"blob"`
	Log     Log     `yaml:"log"`
}

// HTTP configures the listener.
type HTTP struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	CORSOrigins  []string      `yaml:"cors_origins"`
}

// Storage selects the catalog store.
type Storage struct {
	Driver      string `yaml:"driver"`
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

// Blob selects where export artifacts go.
type Blob struct {
	Driver string `yaml:"driver"`
	FSRoot string `yaml:"fs_root"`
	S3     S3     `yaml:"s3"`
}

// S3 describes the export bucket.
type S3 struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"path_style"`
}

// Log configures the process logger.
type Log struct {
	Level string `yaml:"level"`
	Path  string `yaml:"path"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		HTTP: HTTP{
			Addr:         ":5555",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			CORSOrigins:  []string{"*"},
		},
		Storage: Storage{Driver: string(core.StorageSQLite), SQLitePath: "cheeseshop.db"},
		Blob:    Blob{Driver: string(blob.DriverFilesystem), FSRoot: "./blobdata"},
		Log:     Log{Level: "info"},
	}
}

// Load reads path (skipped when empty), applies environment overrides and
// validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, &OpError{Op: "config.load", Kind: KindNotFound, Path: path, Err: err}
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, &OpError{Op: "config.load", Kind: KindInvalidConfig, Path: path, Err: err}
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, &OpError{Op: "config.env", Kind: KindInvalidConfig, Err: err}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, &OpError{Op: "config.validate", Kind: KindInvalidConfig, Path: path, Err: err}
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(envPrefix + name); ok {
			*dst = v
		}
	}
	dur := func(name string, dst *time.Duration) error {
		v, ok := lookup(envPrefix + name)
		if !ok {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, name, err)
		}
		*dst = d
		return nil
	}
	str("HTTP_ADDR", &c.HTTP.Addr)
	if err := dur("HTTP_READ_TIMEOUT", &c.HTTP.ReadTimeout); err != nil {
		return err
	}
	if err := dur("HTTP_WRITE_TIMEOUT", &c.HTTP.WriteTimeout); err != nil {
		return err
	}
	if v, ok := lookup(envPrefix + "HTTP_CORS_ORIGINS"); ok {
		c.HTTP.CORSOrigins = splitList(v)
	}
	str("STORAGE_DRIVER", &c.Storage.Driver)
	str("SQLITE_PATH", &c.Storage.SQLitePath)
	str("POSTGRES_DSN", &c.Storage.PostgresDSN)
	str("BLOB_DRIVER", &c.Blob.Driver)
	str("BLOB_FS_ROOT", &c.Blob.FSRoot)
	str("BLOB_S3_BUCKET", &c.Blob.S3.Bucket)
	str("BLOB_S3_REGION", &c.Blob.S3.Region)
	str("BLOB_S3_ENDPOINT", &c.Blob.S3.Endpoint)
	if v, ok := lookup(envPrefix + "BLOB_S3_PATH_STYLE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sBLOB_S3_PATH_STYLE: %w", envPrefix, err)
		}
		c.Blob.S3.PathStyle = b
	}
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_PATH", &c.Log.Path)
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate rejects unknown drivers and settings a driver cannot run without.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.HTTP.Addr) == "" {
		errs = append(errs, errors.New("http.addr is required"))
	}
	if c.HTTP.ReadTimeout < 0 || c.HTTP.WriteTimeout < 0 {
		errs = append(errs, errors.New("http timeouts must not be negative"))
	}
	switch core.StorageDriver(c.Storage.Driver) {
	case core.StorageMemory, core.StorageSQLite:
	case core.StoragePostgres:
		if c.Storage.PostgresDSN == "" {
			errs = append(errs, errors.New("storage.postgres_dsn is required for postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage.driver %q", c.Storage.Driver))
	}
	switch blob.Driver(c.Blob.Driver) {
	case blob.DriverFilesystem, blob.DriverMemory:
	case blob.DriverS3:
		if c.Blob.S3.Bucket == "" {
			errs = append(errs, errors.New("blob.s3.bucket is required for s3"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown blob.driver %q", c.Blob.Driver))
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// StorageOptions converts the storage section for core.OpenPersistentStore.
func (c Config) StorageOptions() core.StorageOptions {
	return core.StorageOptions{
		Driver:      core.StorageDriver(c.Storage.Driver),
		SQLitePath:  c.Storage.SQLitePath,
		PostgresDSN: c.Storage.PostgresDSN,
	}
}

// BlobConfig converts the blob section for blob.Open.
func (c Config) BlobConfig() blob.Config {
	return blob.Config{
		Driver: blob.Driver(c.Blob.Driver),
		FSRoot: c.Blob.FSRoot,
		S3: blob.S3Config{
			Bucket:    c.Blob.S3.Bucket,
			Region:    c.Blob.S3.Region,
			Endpoint:  c.Blob.S3.Endpoint,
			PathStyle: c.Blob.S3.PathStyle,
		},
	}
}

// LoggerConfig converts the log section for logger.Setup.
func (c Config) LoggerConfig(debug bool) logger.Config {
	return logger.Config{Level: c.Log.Level, Path: c.Log.Path, Debug: debug}
}

// Copyright © 2018 One Concern

// Package config loads the eris configuration from a file, the environment and flags
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/docker/go-units"
	"github.com/oneconcern/eris/internal/tracing"
	"github.com/oneconcern/eris/pkg/dlogger"
	"github.com/oneconcern/eris/pkg/errors"
	"github.com/oneconcern/eris/pkg/eris"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

// EnvPrefix prefixes environment variables overriding the configuration, e.g. ERIS_STORE_TYPE
const EnvPrefix = "ERIS"

// ErrInvalid is returned when the configuration does not validate
var ErrInvalid = errors.New("invalid configuration")

// Store types
const (
	StoreMemory   = "memory"
	StoreLocal    = "local"
	StoreS3       = "s3"
	StoreGCS      = "gcs"
	StoreAzure    = "azure"
	StoreBadger   = "badger"
	StorePostgres = "postgres"
	StoreIPFS     = "ipfs"
	StoreHTTP     = "http"
)

// Config of the eris tools
type Config struct {
	Log      LogConfig      `json:"log" yaml:"log" mapstructure:"log"`
	Encoding EncodingConfig `json:"encoding" yaml:"encoding" mapstructure:"encoding"`
	Store    StoreConfig    `json:"store" yaml:"store" mapstructure:"store"`
	Mirrors  []StoreConfig  `json:"mirrors,omitempty" yaml:"mirrors,omitempty" mapstructure:"mirrors"`
	Dedup    DedupConfig    `json:"dedup" yaml:"dedup" mapstructure:"dedup"`
	Trace    bool           `json:"trace" yaml:"trace" mapstructure:"trace"`
	// TraceAgent is the host:port of the jaeger agent receiving spans when tracing
	TraceAgent string        `json:"traceAgent,omitempty" yaml:"traceAgent,omitempty" mapstructure:"traceAgent"`
	Gateway    GatewayConfig `json:"gateway" yaml:"gateway" mapstructure:"gateway"`
}

// LogConfig sets up logging
type LogConfig struct {
	Level  string `json:"level" yaml:"level" mapstructure:"level"`
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// EncodingConfig holds the encoding parameters
type EncodingConfig struct {
	// BlockSize in human units, e.g. 1KiB or 32KiB
	BlockSize string `json:"blockSize" yaml:"blockSize" mapstructure:"blockSize"`
	// Secret is the base32 convergence secret. Empty means the null secret.
	Secret string `json:"secret,omitempty" yaml:"secret,omitempty" mapstructure:"secret"`
}

// StoreConfig describes a block store backend
type StoreConfig struct {
	Type string `json:"type" yaml:"type" mapstructure:"type"`
	// Prefix of object names in key/value stores
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty" mapstructure:"prefix"`
	// TolerateFailure lets a mirror fail without failing writes
	TolerateFailure bool `json:"tolerateFailure,omitempty" yaml:"tolerateFailure,omitempty" mapstructure:"tolerateFailure"`

	Local    LocalConfig    `json:"local,omitempty" yaml:"local,omitempty" mapstructure:"local"`
	S3       S3Config       `json:"s3,omitempty" yaml:"s3,omitempty" mapstructure:"s3"`
	GCS      GCSConfig      `json:"gcs,omitempty" yaml:"gcs,omitempty" mapstructure:"gcs"`
	Azure    AzureConfig    `json:"azure,omitempty" yaml:"azure,omitempty" mapstructure:"azure"`
	Badger   BadgerConfig   `json:"badger,omitempty" yaml:"badger,omitempty" mapstructure:"badger"`
	Postgres PostgresConfig `json:"postgres,omitempty" yaml:"postgres,omitempty" mapstructure:"postgres"`
	IPFS     IPFSConfig     `json:"ipfs,omitempty" yaml:"ipfs,omitempty" mapstructure:"ipfs"`
	HTTP     HTTPConfig     `json:"http,omitempty" yaml:"http,omitempty" mapstructure:"http"`
}

// LocalConfig for blocks stored as files
type LocalConfig struct {
	Path string `json:"path,omitempty" yaml:"path,omitempty" mapstructure:"path"`
}

// S3Config for blocks stored in an S3 bucket
type S3Config struct {
	Bucket   string `json:"bucket,omitempty" yaml:"bucket,omitempty" mapstructure:"bucket"`
	Region   string `json:"region,omitempty" yaml:"region,omitempty" mapstructure:"region"`
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty" mapstructure:"endpoint"`
}

// GCSConfig for blocks stored in a google cloud storage bucket
type GCSConfig struct {
	Bucket      string `json:"bucket,omitempty" yaml:"bucket,omitempty" mapstructure:"bucket"`
	Credentials string `json:"credentials,omitempty" yaml:"credentials,omitempty" mapstructure:"credentials"`
}

// AzureConfig for blocks stored in an azure blob container
type AzureConfig struct {
	ConnectionString string `json:"connectionString,omitempty" yaml:"connectionString,omitempty" mapstructure:"connectionString"`
	Container        string `json:"container,omitempty" yaml:"container,omitempty" mapstructure:"container"`
}

// BadgerConfig for blocks stored in an embedded database
type BadgerConfig struct {
	Path string `json:"path,omitempty" yaml:"path,omitempty" mapstructure:"path"`
}

// PostgresConfig for blocks stored in a postgres table
type PostgresConfig struct {
	URL            string `json:"url,omitempty" yaml:"url,omitempty" mapstructure:"url"`
	MaxConnections int32  `json:"maxConnections,omitempty" yaml:"maxConnections,omitempty" mapstructure:"maxConnections"`
}

// IPFSConfig for blocks stored on an IPFS node
type IPFSConfig struct {
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty" mapstructure:"endpoint"`
	Offline  bool   `json:"offline,omitempty" yaml:"offline,omitempty" mapstructure:"offline"`
}

// HTTPConfig for blocks served by a remote gateway
type HTTPConfig struct {
	URL string `json:"url,omitempty" yaml:"url,omitempty" mapstructure:"url"`
}

// DedupConfig enables the bloom filter skipping writes of known blocks
type DedupConfig struct {
	Enabled           bool    `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Expected          uint    `json:"expected,omitempty" yaml:"expected,omitempty" mapstructure:"expected"`
	FalsePositiveRate float64 `json:"falsePositiveRate,omitempty" yaml:"falsePositiveRate,omitempty" mapstructure:"falsePositiveRate"`
}

// GatewayConfig for the HTTP block gateway
type GatewayConfig struct {
	Host         string        `json:"host" yaml:"host" mapstructure:"host"`
	Port         int           `json:"port" yaml:"port" mapstructure:"port"`
	ListenLimit  int           `json:"listenLimit,omitempty" yaml:"listenLimit,omitempty" mapstructure:"listenLimit"`
	RateLimit    float64       `json:"rateLimit,omitempty" yaml:"rateLimit,omitempty" mapstructure:"rateLimit"`
	Burst        int           `json:"burst,omitempty" yaml:"burst,omitempty" mapstructure:"burst"`
	ReadOnly     bool          `json:"readOnly,omitempty" yaml:"readOnly,omitempty" mapstructure:"readOnly"`
	ReadTimeout  time.Duration `json:"readTimeout" yaml:"readTimeout" mapstructure:"readTimeout"`
	WriteTimeout time.Duration `json:"writeTimeout" yaml:"writeTimeout" mapstructure:"writeTimeout"`
}

// Default configuration: blocks are stored as files in the current directory
func Default() Config {
	return Config{
		Log:      LogConfig{Level: dlogger.LogLevelInfo, Format: dlogger.FormatConsole},
		Encoding: EncodingConfig{BlockSize: "32KiB"},
		Store: StoreConfig{
			Type:   StoreLocal,
			Local:  LocalConfig{Path: ".eris"},
			Badger: BadgerConfig{Path: ".eris/badger"},
			IPFS:   IPFSConfig{Endpoint: "/ip4/127.0.0.1/tcp/5001"},
			S3:     S3Config{Region: "us-west-2"},
		},
		Dedup:      DedupConfig{Expected: 1 << 16, FalsePositiveRate: 0.01},
		TraceAgent: tracing.DefaultAgent,
		Gateway: GatewayConfig{
			Host:         "localhost",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
	}
}

// SetDefaults registers defaults on viper, so that every key may be overridden from the environment
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("encoding.blockSize", d.Encoding.BlockSize)
	v.SetDefault("encoding.secret", d.Encoding.Secret)
	v.SetDefault("trace", d.Trace)
	v.SetDefault("traceAgent", d.TraceAgent)

	v.SetDefault("store.type", d.Store.Type)
	v.SetDefault("store.prefix", d.Store.Prefix)
	v.SetDefault("store.local.path", d.Store.Local.Path)
	v.SetDefault("store.s3.bucket", "")
	v.SetDefault("store.s3.region", d.Store.S3.Region)
	v.SetDefault("store.s3.endpoint", "")
	v.SetDefault("store.gcs.bucket", "")
	v.SetDefault("store.gcs.credentials", "")
	v.SetDefault("store.azure.connectionString", "")
	v.SetDefault("store.azure.container", "")
	v.SetDefault("store.badger.path", d.Store.Badger.Path)
	v.SetDefault("store.postgres.url", "")
	v.SetDefault("store.postgres.maxConnections", 0)
	v.SetDefault("store.ipfs.endpoint", d.Store.IPFS.Endpoint)
	v.SetDefault("store.ipfs.offline", false)
	v.SetDefault("store.http.url", "")

	v.SetDefault("dedup.enabled", d.Dedup.Enabled)
	v.SetDefault("dedup.expected", d.Dedup.Expected)
	v.SetDefault("dedup.falsePositiveRate", d.Dedup.FalsePositiveRate)

	v.SetDefault("gateway.host", d.Gateway.Host)
	v.SetDefault("gateway.port", d.Gateway.Port)
	v.SetDefault("gateway.listenLimit", 0)
	v.SetDefault("gateway.rateLimit", 0)
	v.SetDefault("gateway.burst", 0)
	v.SetDefault("gateway.readOnly", false)
	v.SetDefault("gateway.readTimeout", d.Gateway.ReadTimeout)
	v.SetDefault("gateway.writeTimeout", d.Gateway.WriteTimeout)
}

// Load the configuration.
//
// The file is taken from the argument, then from ERIS_CONFIG, then searched as .eris.yaml in the
// current directory and in $HOME. A missing file is not an error. Environment variables override
// the file, e.g. ERIS_STORE_TYPE=memory.
func Load(v *viper.Viper, file string) (Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file == "" {
		file = os.Getenv(EnvPrefix + "_CONFIG")
	}
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(".eris")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return Config{}, ErrInvalid.Wrap(err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, ErrInvalid.Wrap(err)
	}
	return cfg, nil
}

// BlockSize parses the configured block size
func (c Config) BlockSize() (int, error) {
	size, err := units.RAMInBytes(c.Encoding.BlockSize)
	if err != nil {
		return 0, ErrInvalid.Wrap(err)
	}
	if size != eris.BlockSize1KiB && size != eris.BlockSize32KiB {
		return 0, ErrInvalid.WrapMessage("block size must be 1KiB or 32KiB, got " + c.Encoding.BlockSize)
	}
	return int(size), nil
}

// Secret parses the configured convergence secret
func (c Config) Secret() (eris.Secret, error) {
	if c.Encoding.Secret == "" {
		return eris.Secret{}, nil
	}
	secret, err := eris.ParseSecret(c.Encoding.Secret)
	if err != nil {
		return eris.Secret{}, ErrInvalid.Wrap(err)
	}
	return secret, nil
}

// EncodeOptions returns the encoder options for this configuration
func (c Config) EncodeOptions(l *zap.Logger, m *eris.Metrics) ([]eris.Option, error) {
	size, err := c.BlockSize()
	if err != nil {
		return nil, err
	}
	secret, err := c.Secret()
	if err != nil {
		return nil, err
	}
	return []eris.Option{
		eris.WithBlockSize(size),
		eris.WithConvergenceSecret(secret),
		eris.WithLogger(l),
		eris.WithMetrics(m),
	}, nil
}

// Logger builds the configured logger
func (c Config) Logger() (*zap.Logger, error) {
	return dlogger.New(c.Log.Level, c.Log.Format)
}

// Validate the configuration. All problems are reported at once.
func (c Config) Validate() error {
	var merr error
	if _, err := c.BlockSize(); err != nil {
		merr = multierr.Append(merr, err)
	}
	if _, err := c.Secret(); err != nil {
		merr = multierr.Append(merr, err)
	}
	if _, err := c.Logger(); err != nil {
		merr = multierr.Append(merr, ErrInvalid.Wrap(err))
	}
	merr = multierr.Append(merr, c.Store.Validate())
	for i, mirror := range c.Mirrors {
		if err := mirror.Validate(); err != nil {
			merr = multierr.Append(merr, ErrInvalid.WrapMessage("mirror "+strconv.Itoa(i)+": "+err.Error()))
		}
	}
	if c.Dedup.FalsePositiveRate < 0 || c.Dedup.FalsePositiveRate >= 1 {
		merr = multierr.Append(merr, ErrInvalid.WrapMessage("dedup false positive rate must be in [0,1)"))
	}
	return merr
}

func required(value, name string) error {
	if value == "" {
		return ErrInvalid.WrapMessage(name + " is required")
	}
	return nil
}

// Validate the settings of a store backend
func (s StoreConfig) Validate() error {
	switch s.Type {
	case StoreMemory:
		return nil
	case StoreLocal:
		return required(s.Local.Path, "store.local.path")
	case StoreS3:
		return required(s.S3.Bucket, "store.s3.bucket")
	case StoreGCS:
		return required(s.GCS.Bucket, "store.gcs.bucket")
	case StoreAzure:
		return multierr.Combine(
			required(s.Azure.ConnectionString, "store.azure.connectionString"),
			required(s.Azure.Container, "store.azure.container"),
		)
	case StoreBadger:
		return required(s.Badger.Path, "store.badger.path")
	case StorePostgres:
		return required(s.Postgres.URL, "store.postgres.url")
	case StoreIPFS:
		return required(s.IPFS.Endpoint, "store.ipfs.endpoint")
	case StoreHTTP:
		return required(s.HTTP.URL, "store.http.url")
	default:
		return ErrInvalid.WrapMessage("unknown store type " + s.Type)
	}
}

// YAML representation of the configuration
func (c Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// Write the configuration as a YAML file
func (c Config) Write(path string) error {
	data, err := c.YAML()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

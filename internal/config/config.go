// Package config loads the configuration of the pipeline tooling from a YAML
// file, environment variables prefixed with MLPIPE and command line flags.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes the environment variables overriding the configuration,
// e.g. MLPIPE_LOGGING_LEVEL.
const EnvPrefix = "MLPIPE"

// Artifact store kinds.
const (
	ArtifactLocal = "local"
	ArtifactS3    = "s3"
)

// Config is the complete configuration.
type Config struct {
	Logging      LoggingConfig  `mapstructure:"logging"`
	Artifacts    ArtifactConfig `mapstructure:"artifacts"`
	Registry     RegistryConfig `mapstructure:"registry"`
	Serving      ServingConfig  `mapstructure:"serving"`
	Pipeline     PipelineConfig `mapstructure:"pipeline"`
	Integrations []string       `mapstructure:"integrations"`
}

type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `mapstructure:"level"`
	// Format is json or text.
	Format string `mapstructure:"format"`
	// File is the log file. Empty logs to stderr.
	File string `mapstructure:"file"`
}

// ArtifactConfig selects where step artifacts are stored.
type ArtifactConfig struct {
	Kind string   `mapstructure:"kind"`
	Path string   `mapstructure:"path"`
	S3   S3Config `mapstructure:"s3"`
}

type S3Config struct {
	Endpoint  string `mapstructure:"endpoint"`
	Bucket    string `mapstructure:"bucket"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Region    string `mapstructure:"region"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// RegistryConfig locates the model registry file. An empty path keeps the
// registry in memory.
type RegistryConfig struct {
	Path string `mapstructure:"path"`
}

// ServingConfig is the address of the local prediction server.
type ServingConfig struct {
	Addr string `mapstructure:"addr"`
}

type PipelineConfig struct {
	// GraphFile receives a DOT drawing of the pipeline when set.
	GraphFile string `mapstructure:"graph_file"`
	// Measure prints step timings after the run.
	Measure bool `mapstructure:"measure"`
}

// Dir returns the directory holding the configuration and the local state.
func Dir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "mlpipeline")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mlpipeline"
	}

	return filepath.Join(home, ".config", "mlpipeline")
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	dir := Dir()

	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Artifacts: ArtifactConfig{
			Kind: ArtifactLocal,
			Path: filepath.Join(dir, "artifacts"),
			S3: S3Config{
				Bucket: "mlpipeline",
				Region: "us-east-1",
			},
		},
		Registry: RegistryConfig{
			Path: filepath.Join(dir, "registry.yaml"),
		},
		Serving: ServingConfig{
			Addr: "127.0.0.1:0",
		},
		Integrations: []string{"sklearn"},
	}
}

// SetDefaults registers the defaults on v.
func SetDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.format", defaults.Logging.Format)
	v.SetDefault("logging.file", defaults.Logging.File)

	v.SetDefault("artifacts.kind", defaults.Artifacts.Kind)
	v.SetDefault("artifacts.path", defaults.Artifacts.Path)
	v.SetDefault("artifacts.s3.endpoint", defaults.Artifacts.S3.Endpoint)
	v.SetDefault("artifacts.s3.bucket", defaults.Artifacts.S3.Bucket)
	v.SetDefault("artifacts.s3.access_key", defaults.Artifacts.S3.AccessKey)
	v.SetDefault("artifacts.s3.secret_key", defaults.Artifacts.S3.SecretKey)
	v.SetDefault("artifacts.s3.region", defaults.Artifacts.S3.Region)
	v.SetDefault("artifacts.s3.use_ssl", defaults.Artifacts.S3.UseSSL)

	v.SetDefault("registry.path", defaults.Registry.Path)
	v.SetDefault("serving.addr", defaults.Serving.Addr)

	v.SetDefault("pipeline.graph_file", defaults.Pipeline.GraphFile)
	v.SetDefault("pipeline.measure", defaults.Pipeline.Measure)

	v.SetDefault("integrations", defaults.Integrations)
}

// NewViper returns a viper instance with the defaults set, reading the
// environment and, when cfgFile is set, that file. Without cfgFile, a
// config.yaml in Dir() or the working directory is read if present.
func NewViper(cfgFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		err := v.ReadInConfig()
		if err != nil {
			return nil, errors.Wrapf(err, "unable to read config file %s", cfgFile)
		}

		return v, nil
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(Dir())
	v.AddConfigPath(".")

	err := v.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "unable to read config file")
		}
	}

	return v, nil
}

// Load unmarshals v into a Config and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	err := v.Unmarshal(&cfg)
	if err != nil {
		return nil, errors.Wrap(err, "unable to decode config")
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

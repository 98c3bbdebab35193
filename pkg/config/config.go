package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Artifacts ArtifactsConfig `mapstructure:"artifacts"`
	Model     ModelConfig     `mapstructure:"model"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type ServerConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	ReadTimeout   int    `mapstructure:"readTimeout"`
	WriteTimeout  int    `mapstructure:"writeTimeout"`
	BodyLimit     int    `mapstructure:"bodyLimit"`
	MaxTextLength int    `mapstructure:"maxTextLength"`
	IsDevelopment bool   `mapstructure:"isDevelopment"`
}

type ArtifactsConfig struct {
	VocabPath  string `mapstructure:"vocabPath"`
	LabelsPath string `mapstructure:"labelsPath"`
	ModelPath  string `mapstructure:"modelPath"`
}

// ModelConfig selects how the classifier network is reached.
type ModelConfig struct {
	Backend        string `mapstructure:"backend"` // "onnx" or "remote"
	Device         string `mapstructure:"device"`  // "auto", "cuda", "coreml", "cpu"
	ORTLibraryPath string `mapstructure:"ortLibraryPath"`
	IntraOpThreads int    `mapstructure:"intraOpThreads"`
	RemoteURL      string `mapstructure:"remoteURL"`
	RemoteName     string `mapstructure:"remoteName"`
	TimeoutSec     int    `mapstructure:"timeoutSec"`
}

type DatabaseConfig struct {
	Driver   string         `mapstructure:"driver"` // "sqlite" or "postgres"
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	TTLSec   int    `mapstructure:"ttlSec"`
}

type RateLimitConfig struct {
	Enabled              bool `mapstructure:"enabled"`
	MaxRequestsPerMinute int  `mapstructure:"maxRequestsPerMinute"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"outputPath"`
}

// Load reads config.yaml (or the file at path when non-empty), overlays
// INTENT_API_* environment variables and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/intent-api")
	}

	v.SetEnvPrefix("INTENT_API")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate rejects settings that would only fail later at startup.
func (c *Config) Validate() error {
	switch c.Model.Backend {
	case "onnx":
		if c.Artifacts.ModelPath == "" {
			return fmt.Errorf("config: artifacts.modelPath is required for the onnx backend")
		}
	case "remote":
		if c.Model.RemoteURL == "" {
			return fmt.Errorf("config: model.remoteURL is required for the remote backend")
		}
	default:
		return fmt.Errorf("config: unknown model backend %q", c.Model.Backend)
	}

	switch c.Model.Device {
	case "auto", "cuda", "coreml", "cpu":
	default:
		return fmt.Errorf("config: unknown model device %q", c.Model.Device)
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.SQLite.Path == "" {
			return fmt.Errorf("config: database.sqlite.path is required")
		}
	case "postgres":
		pg := c.Database.Postgres
		if pg.Host == "" || pg.User == "" || pg.DBName == "" {
			return fmt.Errorf("config: database.postgres host, user and dbname are required")
		}
	default:
		return fmt.Errorf("config: unknown database driver %q", c.Database.Driver)
	}

	if c.Artifacts.VocabPath == "" || c.Artifacts.LabelsPath == "" {
		return fmt.Errorf("config: artifacts.vocabPath and artifacts.labelsPath are required")
	}

	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 30)
	v.SetDefault("server.bodyLimit", 1048576)
	v.SetDefault("server.maxTextLength", 5000)
	v.SetDefault("server.isDevelopment", false)

	v.SetDefault("artifacts.vocabPath", "./data/vocab.json")
	v.SetDefault("artifacts.labelsPath", "./data/labels.json")
	v.SetDefault("artifacts.modelPath", "./models/classifier.onnx")

	v.SetDefault("model.backend", "onnx")
	v.SetDefault("model.device", "auto")
	v.SetDefault("model.ortLibraryPath", "./models/libonnxruntime.so")
	v.SetDefault("model.intraOpThreads", 4)
	v.SetDefault("model.remoteURL", "")
	v.SetDefault("model.remoteName", "classifier")
	v.SetDefault("model.timeoutSec", 10)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.sqlite.path", "./data/intent.db")
	v.SetDefault("database.postgres.host", "")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.dbname", "")
	v.SetDefault("database.postgres.sslmode", "disable")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttlSec", 3600)

	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.maxRequestsPerMinute", 120)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.outputPath", "stdout")
}

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/OFFIS-RIT/nafstore/internal/util"
	"github.com/go-playground/validator"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, NAFSTORE_STORE_BACKEND
// sets store.backend.
const EnvPrefix = "NAFSTORE"

type Config struct {
	Debug     bool   `mapstructure:"debug" yaml:"debug"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format" validate:"oneof=text json logfmt"`

	Store    StoreConfig    `mapstructure:"store" yaml:"store"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	RabbitMQ RabbitMQConfig `mapstructure:"rabbitmq" yaml:"rabbitmq"`
	Worker   WorkerConfig   `mapstructure:"worker" yaml:"worker"`
	S3       S3Config       `mapstructure:"s3" yaml:"s3"`
	NAF      NAFConfig      `mapstructure:"naf" yaml:"naf"`
}

type StoreConfig struct {
	Backend     string `mapstructure:"backend" yaml:"backend" validate:"oneof=postgres bolt memory"`
	DatabaseURL string `mapstructure:"database_url" yaml:"database_url"`
	TablePrefix string `mapstructure:"table_prefix" yaml:"table_prefix"`
	BoltPath    string `mapstructure:"bolt_path" yaml:"bolt_path"`
	AppendOnly  bool   `mapstructure:"append_only" yaml:"append_only"`
	Metrics     bool   `mapstructure:"metrics" yaml:"metrics"`
}

type ServerConfig struct {
	Port      string `mapstructure:"port" yaml:"port" validate:"required"`
	BodyLimit string `mapstructure:"body_limit" yaml:"body_limit"`
	// Queue enables ?async=true writes published to RabbitMQ.
	Queue     bool   `mapstructure:"queue" yaml:"queue"`
}

type RabbitMQConfig struct {
	User     string `mapstructure:"user" yaml:"user"`
	Password string `mapstructure:"password" yaml:"-"`
	Host     string `mapstructure:"host" yaml:"host"`
	Port     string `mapstructure:"port" yaml:"port"`
}

// URL returns the AMQP connection URL.
func (r RabbitMQConfig) URL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/", r.User, r.Password, r.Host, r.Port)
}

type WorkerConfig struct {
	MaxRetries int           `mapstructure:"max_retries" yaml:"max_retries" validate:"min=0"`
	FetchTries int           `mapstructure:"fetch_tries" yaml:"fetch_tries" validate:"min=1"`
	LockTTL    time.Duration `mapstructure:"lock_ttl" yaml:"lock_ttl"`
}

type S3Config struct {
	Region    string `mapstructure:"region" yaml:"region"`
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint"`
	AccessKey string `mapstructure:"access_key" yaml:"-"`
	SecretKey string `mapstructure:"secret_key" yaml:"-"`
	Bucket    string `mapstructure:"bucket" yaml:"bucket"`
}

type NAFConfig struct {
	Lang    string `mapstructure:"lang" yaml:"lang" validate:"required"`
	Version string `mapstructure:"version" yaml:"version" validate:"required"`
}

// SetDefaults registers the default of every key on v. Keys without a
// default are invisible to environment overrides.
func SetDefaults(v *viper.Viper) {
	home, _ := os.UserHomeDir()

	v.SetDefault("debug", false)
	v.SetDefault("log_format", "text")

	v.SetDefault("store.backend", "bolt")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.table_prefix", "naf_")
	v.SetDefault("store.bolt_path", filepath.Join(home, ".nafstore", "naf.db"))
	v.SetDefault("store.append_only", false)
	v.SetDefault("store.metrics", true)

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.body_limit", "64M")
	v.SetDefault("server.queue", false)

	v.SetDefault("rabbitmq.user", "guest")
	v.SetDefault("rabbitmq.password", "guest")
	v.SetDefault("rabbitmq.host", "localhost")
	v.SetDefault("rabbitmq.port", "5672")

	v.SetDefault("worker.max_retries", 10)
	v.SetDefault("worker.fetch_tries", 3)
	v.SetDefault("worker.lock_ttl", 5*time.Minute)

	v.SetDefault("s3.region", "")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.access_key", "")
	v.SetDefault("s3.secret_key", "")
	v.SetDefault("s3.bucket", "")

	v.SetDefault("naf.lang", "en")
	v.SetDefault("naf.version", "v3")
}

// Bind prepares v for Load: defaults, environment variables and the config
// file. An empty file searches $HOME/.nafstore/config.yaml.
func Bind(v *viper.Viper, file string) {
	SetDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".nafstore"))
		v.SetConfigType("yaml")
		v.SetConfigName("config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads the configuration with increasing priority from defaults, the
// config file, a .env file, the environment and flags bound to v.
func Load(v *viper.Viper, file string) (*Config, error) {
	util.LoadEnv()
	Bind(v, file)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := new(Config)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Store.Backend == "postgres" && c.Store.DatabaseURL == "" {
		return errors.New("invalid config: store.database_url is required for the postgres backend")
	}
	if c.Store.Backend == "bolt" && c.Store.BoltPath == "" {
		return errors.New("invalid config: store.bolt_path is required for the bolt backend")
	}
	return nil
}

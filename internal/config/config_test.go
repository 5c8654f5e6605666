package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)
	cfg, err := Load(viper.New(), "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.Backend != "bolt" || cfg.Server.Port != "8080" || cfg.NAF.Lang != "en" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.Worker.LockTTL != 5*time.Minute || cfg.Worker.MaxRetries != 10 {
		t.Fatalf("unexpected worker defaults %+v", cfg.Worker)
	}
	if !strings.HasSuffix(cfg.Store.BoltPath, filepath.Join(".nafstore", "naf.db")) {
		t.Fatalf("unexpected bolt path %q", cfg.Store.BoltPath)
	}
}

func TestLoadPriority(t *testing.T) {
	isolate(t)
	file := filepath.Join(t.TempDir(), "config.yaml")
	data := "store:\n  backend: postgres\n  database_url: postgres://file\nserver:\n  port: \"9000\"\nworker:\n  lock_ttl: 30s\n"
	if err := os.WriteFile(file, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("NAFSTORE_STORE_DATABASE_URL", "postgres://env")

	cfg, err := Load(viper.New(), file)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.Backend != "postgres" {
		t.Fatalf("file value not applied: %q", cfg.Store.Backend)
	}
	if cfg.Store.DatabaseURL != "postgres://env" {
		t.Fatalf("env value does not win over file: %q", cfg.Store.DatabaseURL)
	}
	if cfg.Server.Port != "9000" || cfg.Worker.LockTTL != 30*time.Second {
		t.Fatalf("unexpected values %+v %+v", cfg.Server, cfg.Worker)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"valid", func(*Config) {}, true},
		{"unknown backend", func(c *Config) { c.Store.Backend = "mongo" }, false},
		{"postgres without url", func(c *Config) { c.Store.Backend = "postgres" }, false},
		{"bolt without path", func(c *Config) { c.Store.Backend = "bolt"; c.Store.BoltPath = "" }, false},
		{"unknown log format", func(c *Config) { c.LogFormat = "xml" }, false},
		{"empty lang", func(c *Config) { c.NAF.Lang = "" }, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := &Config{
				LogFormat: "text",
				Store:     StoreConfig{Backend: "memory", BoltPath: "/tmp/naf.db"},
				Server:    ServerConfig{Port: "8080"},
				Worker:    WorkerConfig{MaxRetries: 1, FetchTries: 1},
				NAF:       NAFConfig{Lang: "en", Version: "v3"},
			}
			tc.mutate(c)
			if err := c.Validate(); (err == nil) != tc.ok {
				t.Fatalf("Validate() = %v, want ok=%v", err, tc.ok)
			}
		})
	}
}

func TestRabbitMQURL(t *testing.T) {
	r := RabbitMQConfig{User: "u", Password: "p", Host: "mq", Port: "5672"}
	if got := r.URL(); got != "amqp://u:p@mq:5672/" {
		t.Fatalf("unexpected url %q", got)
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 9100\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 9100 {
		t.Errorf("server.port = %d, want 9100", cfg.Server.Port)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("database.driver = %q, want sqlite", cfg.Database.Driver)
	}
	if cfg.Queue.Driver != "asynq" || cfg.Queue.Name != "analysis" {
		t.Errorf("unexpected queue defaults: %+v", cfg.Queue)
	}
	if cfg.Queue.Retention != 24*time.Hour {
		t.Errorf("queue.retention = %v, want 24h", cfg.Queue.Retention)
	}
	if cfg.LLM.Model != "gpt-4o-mini" {
		t.Errorf("llm.model = %q, want gpt-4o-mini", cfg.LLM.Model)
	}
	if cfg.LLM.Temperature != 0.2 {
		t.Errorf("llm.temperature = %v, want 0.2", cfg.LLM.Temperature)
	}
	if cfg.Upload.Dir != "data" {
		t.Errorf("upload.dir = %q, want data", cfg.Upload.Dir)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("QUEUE_DRIVER", "memory")

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("llm:\n  model: gpt-4.1-mini\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.APIKey != "sk-test" {
		t.Errorf("llm.api_key = %q, want sk-test", cfg.LLM.APIKey)
	}
	if cfg.Queue.Driver != "memory" {
		t.Errorf("queue.driver = %q, want memory", cfg.Queue.Driver)
	}
	if err := cfg.ValidateLLM(); err != nil {
		t.Errorf("ValidateLLM: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "unknown driver", mutate: func(c *Config) { c.Queue.Driver = "kafka" }, wantErr: true},
		{name: "zero concurrency", mutate: func(c *Config) { c.Queue.Concurrency = 0 }, wantErr: true},
		{name: "no upload dir", mutate: func(c *Config) { c.Upload.Dir = "" }, wantErr: true},
		{name: "memory keeps results forever", mutate: func(c *Config) { c.Queue.Retention = 0 }},
		{name: "negative retention", mutate: func(c *Config) { c.Queue.Retention = -time.Minute }, wantErr: true},
		{name: "asynq without retention", mutate: func(c *Config) { c.Queue.Driver = "asynq"; c.Queue.Retention = 0 }, wantErr: true},
		{name: "asynq with retention", mutate: func(c *Config) { c.Queue.Driver = "asynq"; c.Queue.Retention = time.Hour }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Queue:  QueueConfig{Driver: "memory", Concurrency: 2},
				Upload: UploadConfig{Dir: "data"},
			}
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDatabaseDSN(t *testing.T) {
	sqlite := DatabaseConfig{Driver: "sqlite", Path: "./data/a.db"}
	if got := sqlite.DSN(); got != "./data/a.db" {
		t.Errorf("sqlite DSN = %q", got)
	}

	pg := DatabaseConfig{Driver: "postgres", Host: "db", Port: 5432, User: "u", Password: "p", Name: "fin", SSLMode: "disable"}
	want := "host=db port=5432 user=u password=p dbname=fin sslmode=disable"
	if got := pg.DSN(); got != want {
		t.Errorf("postgres DSN = %q, want %q", got, want)
	}

	pg.URL = "postgres://x"
	if got := pg.DSN(); got != "postgres://x" {
		t.Errorf("URL should win, got %q", got)
	}
}

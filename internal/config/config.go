package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Upload   UploadConfig   `mapstructure:"upload"`
	Storage  StorageConfig  `mapstructure:"storage"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Agent    AgentConfig    `mapstructure:"agent"`
	Extract  ExtractConfig  `mapstructure:"extract"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORS            CORSConfig    `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

// DatabaseConfig selects the GORM driver. Path is used by sqlite, the
// remaining connection fields by postgres.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	URL             string        `mapstructure:"url"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN returns the connection string for the configured driver.
// An explicit URL always wins.
func (c *DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	if c.Driver == "postgres" {
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
	}
	return c.Path
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	URL      string `mapstructure:"url"`
}

// QueueConfig controls job dispatch. Driver "asynq" uses Redis as broker and
// result backend; "memory" runs jobs inside the API process.
type QueueConfig struct {
	Driver      string        `mapstructure:"driver"`
	Name        string        `mapstructure:"name"`
	Concurrency int           `mapstructure:"concurrency"`
	Retention   time.Duration `mapstructure:"retention"`
	TaskTimeout time.Duration `mapstructure:"task_timeout"`
}

type UploadConfig struct {
	Dir                    string   `mapstructure:"dir"`
	MaxSizeMB              int64    `mapstructure:"max_size_mb"`
	AllowedExtensions      []string `mapstructure:"allowed_extensions"`
	CleanupAfterProcessing bool     `mapstructure:"cleanup_after_processing"`
}

// StorageConfig describes the optional S3-compatible archive for uploads.
type StorageConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Type      string `mapstructure:"type"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	PublicURL string `mapstructure:"public_url"`
	Prefix    string `mapstructure:"prefix"`
}

type LLMConfig struct {
	Provider    string        `mapstructure:"provider"`
	Model       string        `mapstructure:"model"`
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type AgentConfig struct {
	MaxDocumentChars int `mapstructure:"max_document_chars"`
}

type ExtractConfig struct {
	MaxPages int `mapstructure:"max_pages"`
}

// Load reads configuration from file, environment and defaults.
// Parameters:
//   - configPath: explicit config file; empty searches ./configs and the working dir.
//
// Returns:
//   - *Config: merged configuration.
//   - error: non-nil if a present config file cannot be parsed.
func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind environment variables explicitly for sensitive data
	v.BindEnv("llm.api_key", "OPENAI_API_KEY")
	v.BindEnv("llm.base_url", "OPENAI_BASE_URL")
	v.BindEnv("llm.model", "LLM_MODEL")
	v.BindEnv("redis.url", "REDIS_URL")
	v.BindEnv("database.url", "DATABASE_URL")
	v.BindEnv("storage.access_key", "S3_ACCESS_KEY")
	v.BindEnv("storage.secret_key", "S3_SECRET_KEY")
	v.BindEnv("storage.endpoint", "S3_ENDPOINT")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/analysis.db")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("queue.driver", "asynq")
	v.SetDefault("queue.name", "analysis")
	v.SetDefault("queue.concurrency", 4)
	v.SetDefault("queue.retention", 24*time.Hour)
	v.SetDefault("queue.task_timeout", time.Duration(0))

	v.SetDefault("upload.dir", "data")
	v.SetDefault("upload.max_size_mb", 32)
	v.SetDefault("upload.allowed_extensions", []string{})
	v.SetDefault("upload.cleanup_after_processing", false)

	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.use_ssl", true)
	v.SetDefault("storage.bucket", "financial-documents")
	v.SetDefault("storage.prefix", "uploads")

	v.SetDefault("llm.provider", "openai-compatible")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.max_tokens", 2000)
	v.SetDefault("llm.timeout", 120*time.Second)

	v.SetDefault("agent.max_document_chars", 120000)
	v.SetDefault("extract.max_pages", 0)
}

// Validate checks settings that every binary relies on.
func (c *Config) Validate() error {
	switch c.Queue.Driver {
	case "asynq", "memory":
	default:
		return fmt.Errorf("queue: unknown driver %q", c.Queue.Driver)
	}
	if c.Queue.Concurrency <= 0 {
		return fmt.Errorf("queue: concurrency must be positive")
	}
	if c.Queue.Retention < 0 {
		return fmt.Errorf("queue: retention must not be negative")
	}
	// asynq drops completed tasks and their results when retention is zero.
	if c.Queue.Driver == "asynq" && c.Queue.Retention == 0 {
		return fmt.Errorf("queue: retention must be positive for the asynq driver")
	}
	if c.Upload.Dir == "" {
		return fmt.Errorf("upload: dir is required")
	}
	return nil
}

// ValidateLLM fails fast when the pipeline cannot reach a model.
func (c *Config) ValidateLLM() error {
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		return fmt.Errorf("llm: OPENAI_API_KEY not found in environment")
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm: model is required")
	}
	return nil
}

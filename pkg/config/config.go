package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is used when LEX_CONFIG is unset.
const DefaultPath = "config.yaml"

// Config is the full runtime configuration.
type Config struct {
	Port   string `yaml:"port"`
	AppEnv string `yaml:"appEnv"`
	// NodeID seeds the snowflake generator used for blob keys (0-1023).
	NodeID    int64           `yaml:"nodeID"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Log       LogConfig       `yaml:"log"`
	Identity  IdentityConfig  `yaml:"identity"`
	Storage   StorageConfig   `yaml:"storage"`
	Assistant AssistantConfig `yaml:"assistant"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	Dev   bool   `yaml:"dev"`
	// File enables a rotating log file in addition to stdout.
	File string `yaml:"file"`
}

// IdentityConfig selects the identity provider: "local" or "supabase".
type IdentityConfig struct {
	Provider    string        `yaml:"provider"`
	JWTSecret   string        `yaml:"jwtSecret"`
	SessionTTL  time.Duration `yaml:"sessionTTL"`
	SupabaseURL string        `yaml:"supabaseURL"`
	AnonKey     string        `yaml:"anonKey"`
	// ProfileWait is how long admin user creation waits for the profile trigger.
	ProfileWait time.Duration `yaml:"profileWait"`
}

// StorageConfig selects the blob store: "supabase" or "minio".
type StorageConfig struct {
	Driver         string `yaml:"driver"`
	Bucket         string `yaml:"bucket"`
	SupabaseURL    string `yaml:"supabaseURL"`
	ServiceKey     string `yaml:"serviceKey"`
	MinioEndpoint  string `yaml:"minioEndpoint"`
	MinioAccessKey string `yaml:"minioAccessKey"`
	MinioSecretKey string `yaml:"minioSecretKey"`
	MinioUseSSL    bool   `yaml:"minioUseSSL"`
	// Private makes the supabase driver hand out signed links instead of public ones.
	Private bool `yaml:"private"`
	// URLExpiry only applies to presigned and signed URLs.
	URLExpiry   time.Duration `yaml:"urlExpiry"`
	MaxFileSize int64         `yaml:"maxFileSize"`
}

type AssistantConfig struct {
	GeminiAPIKey string        `yaml:"geminiAPIKey"`
	Model        string        `yaml:"model"`
	Temperature  float64       `yaml:"temperature"`
	RateLimit    int           `yaml:"rateLimit"`
	RateWindow   time.Duration `yaml:"rateWindow"`
}

// Load reads .env (if any), then the YAML file, then applies env overrides and defaults.
// A missing YAML file is not an error: environment-only deployments are supported.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	if path == "" {
		path = os.Getenv("LEX_CONFIG")
	}
	if path == "" {
		path = DefaultPath
	}

	cfg := Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return cfg, fmt.Errorf("read config: %w", err)
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&cfg.Port, "PORT")
	set(&cfg.AppEnv, "APP_ENV")
	set(&cfg.Database.URL, "DATABASE_URL")
	set(&cfg.Redis.Addr, "REDIS_ADDR")
	set(&cfg.Redis.Password, "REDIS_PASSWORD")
	set(&cfg.Log.Level, "LOG_LEVEL")
	set(&cfg.Log.File, "LOG_FILE")
	if os.Getenv("LOG_DEV") == "1" {
		cfg.Log.Dev = true
	}
	set(&cfg.Identity.Provider, "IDENTITY_PROVIDER")
	set(&cfg.Identity.JWTSecret, "JWT_SECRET")
	set(&cfg.Identity.SupabaseURL, "SUPABASE_URL")
	set(&cfg.Identity.AnonKey, "SUPABASE_ANON_KEY")
	set(&cfg.Storage.Driver, "STORAGE_DRIVER")
	set(&cfg.Storage.Bucket, "SUPABASE_BUCKET")
	set(&cfg.Storage.SupabaseURL, "SUPABASE_URL")
	set(&cfg.Storage.ServiceKey, "SUPABASE_SERVICE_KEY")
	set(&cfg.Storage.MinioEndpoint, "MINIO_ENDPOINT")
	set(&cfg.Storage.MinioAccessKey, "MINIO_ACCESS_KEY")
	set(&cfg.Storage.MinioSecretKey, "MINIO_SECRET_KEY")
	set(&cfg.Assistant.GeminiAPIKey, "GEMINI_API_KEY")
	if v := os.Getenv("SNOWFLAKE_NODE"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.NodeID = n
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Port == "" {
		cfg.Port = "3000"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
		if cfg.Log.Dev {
			cfg.Log.Level = "debug"
		}
	}
	if cfg.Identity.Provider == "" {
		cfg.Identity.Provider = "local"
	}
	if cfg.Identity.SessionTTL <= 0 {
		cfg.Identity.SessionTTL = 7 * 24 * time.Hour
	}
	if cfg.Identity.ProfileWait <= 0 {
		cfg.Identity.ProfileWait = 500 * time.Millisecond
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "supabase"
	}
	if cfg.Storage.Bucket == "" {
		cfg.Storage.Bucket = "documents"
	}
	if cfg.Storage.URLExpiry <= 0 {
		cfg.Storage.URLExpiry = 7 * 24 * time.Hour
	}
	if cfg.Storage.MaxFileSize <= 0 {
		cfg.Storage.MaxFileSize = 10 * 1024 * 1024
	}
	if cfg.Assistant.Model == "" {
		cfg.Assistant.Model = "gemini-2.5-flash"
	}
	if cfg.Assistant.Temperature == 0 {
		cfg.Assistant.Temperature = 0.3
	}
	if cfg.Assistant.RateLimit <= 0 {
		cfg.Assistant.RateLimit = 20
	}
	if cfg.Assistant.RateWindow <= 0 {
		cfg.Assistant.RateWindow = time.Minute
	}
}

// Validate reports the first missing or inconsistent setting.
func (c Config) Validate() error {
	if c.NodeID < 0 || c.NodeID > 1023 {
		return fmt.Errorf("config: nodeID %d out of range 0-1023", c.NodeID)
	}
	if c.Database.URL == "" {
		return errors.New("config: database.url is required (or DATABASE_URL)")
	}
	if c.Redis.Addr == "" {
		return errors.New("config: redis.addr is required (or REDIS_ADDR)")
	}
	switch c.Identity.Provider {
	case "local":
		if c.Identity.JWTSecret == "" {
			return errors.New("config: identity.jwtSecret is required for the local provider (or JWT_SECRET)")
		}
	case "supabase":
		if c.Identity.SupabaseURL == "" || c.Identity.AnonKey == "" {
			return errors.New("config: identity.supabaseURL and identity.anonKey are required for the supabase provider")
		}
	default:
		return fmt.Errorf("config: unknown identity provider %q", c.Identity.Provider)
	}
	switch c.Storage.Driver {
	case "supabase":
		if c.Storage.SupabaseURL == "" || c.Storage.ServiceKey == "" {
			return errors.New("config: storage.supabaseURL and storage.serviceKey are required (or SUPABASE_URL / SUPABASE_SERVICE_KEY)")
		}
	case "minio":
		if c.Storage.MinioEndpoint == "" {
			return errors.New("config: storage.minioEndpoint is required for the minio driver")
		}
	default:
		return fmt.Errorf("config: unknown storage driver %q", c.Storage.Driver)
	}
	if c.Assistant.GeminiAPIKey == "" {
		return errors.New("config: assistant.geminiAPIKey is required (or GEMINI_API_KEY)")
	}
	return nil
}

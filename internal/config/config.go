// Package config resolves daemon settings: defaults, then an optional YAML
// file, then the environment (including a .env file when present).
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Storage backends.
const (
	StorageFile     = "file"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

// Config is the resolved runtime configuration of canvasd.
type Config struct {
	DataDir     string
	Storage     string
	DatabaseURL string
	// QuotaBytes caps the total size of stored records; 0 means unlimited.
	QuotaBytes int64

	Port       string
	HTTPPort   string
	DisableTLS bool

	Sync    SyncConfig
	Sticker StickerConfig

	VaultKey    string
	LogLevel    string
	CORSOrigins string
}

// SyncConfig selects the cross-observer transport.
type SyncConfig struct {
	Mode      string
	Namespace string
	Redis     RedisConfig
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type StickerConfig struct {
	Endpoint string
	Timeout  time.Duration
}

// configFile mirrors the optional YAML file.
type configFile struct {
	Storage struct {
		DataDir     string `yaml:"data_dir"`
		Backend     string `yaml:"backend"`
		DatabaseURL string `yaml:"database_url"`
		QuotaBytes  int64  `yaml:"quota_bytes"`
	} `yaml:"storage"`
	Server struct {
		Port       string `yaml:"port"`
		HTTPPort   string `yaml:"http_port"`
		DisableTLS *bool  `yaml:"disable_tls"`
	} `yaml:"server"`
	Sync struct {
		Mode      string `yaml:"mode"`
		Namespace string `yaml:"namespace"`
		Redis     struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"sync"`
	Sticker struct {
		Endpoint string `yaml:"endpoint"`
		Timeout  string `yaml:"timeout"`
	} `yaml:"sticker"`
	LogLevel string `yaml:"log_level"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		DataDir:  "./data",
		Storage:  StorageFile,
		Port:     "7001",
		HTTPPort: "7002",
		Sync: SyncConfig{
			Mode:      "local",
			Namespace: "default",
			Redis:     RedisConfig{Addr: "localhost:6379"},
		},
		LogLevel:    "info",
		CORSOrigins: "*",
	}
}

// Load resolves configuration. path may be empty; a missing file is not an
// error, a malformed one is.
func Load(path string) (Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := Default()
	if path == "" {
		path = os.Getenv("CANVAS_CONFIG")
	}
	if path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}
	applyEnv(&cfg)

	return cfg, cfg.Validate()
}

func applyFile(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var f configFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	if f.Storage.DataDir != "" {
		cfg.DataDir = f.Storage.DataDir
	}
	if f.Storage.Backend != "" {
		cfg.Storage = f.Storage.Backend
	}
	if f.Storage.DatabaseURL != "" {
		cfg.DatabaseURL = f.Storage.DatabaseURL
	}
	if f.Storage.QuotaBytes > 0 {
		cfg.QuotaBytes = f.Storage.QuotaBytes
	}
	if f.Server.Port != "" {
		cfg.Port = f.Server.Port
	}
	if f.Server.HTTPPort != "" {
		cfg.HTTPPort = f.Server.HTTPPort
	}
	if f.Server.DisableTLS != nil {
		cfg.DisableTLS = *f.Server.DisableTLS
	}
	if f.Sync.Mode != "" {
		cfg.Sync.Mode = f.Sync.Mode
	}
	if f.Sync.Namespace != "" {
		cfg.Sync.Namespace = f.Sync.Namespace
	}
	if f.Sync.Redis.Addr != "" {
		cfg.Sync.Redis.Addr = f.Sync.Redis.Addr
	}
	if f.Sync.Redis.Password != "" {
		cfg.Sync.Redis.Password = f.Sync.Redis.Password
	}
	if f.Sync.Redis.DB > 0 {
		cfg.Sync.Redis.DB = f.Sync.Redis.DB
	}
	if f.Sticker.Endpoint != "" {
		cfg.Sticker.Endpoint = f.Sticker.Endpoint
	}
	if f.Sticker.Timeout != "" {
		d, err := parseDuration(f.Sticker.Timeout)
		if err != nil {
			return fmt.Errorf("parse sticker timeout: %w", err)
		}
		cfg.Sticker.Timeout = d
	}
	if f.LogLevel != "" {
		cfg.LogLevel = f.LogLevel
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.DataDir = getEnv("CANVAS_DATA_DIR", cfg.DataDir)
	cfg.Storage = strings.ToLower(getEnv("CANVAS_STORAGE", cfg.Storage))
	cfg.DatabaseURL = getEnv("CANVAS_DATABASE_URL", cfg.DatabaseURL)
	cfg.QuotaBytes = int64(getInt("CANVAS_QUOTA_BYTES", int(cfg.QuotaBytes)))

	cfg.Port = getEnv("CANVAS_PORT", cfg.Port)
	cfg.HTTPPort = getEnv("CANVAS_HTTP_PORT", cfg.HTTPPort)
	cfg.DisableTLS = getBool("CANVAS_DISABLE_TLS", cfg.DisableTLS)

	cfg.Sync.Mode = strings.ToLower(getEnv("CANVAS_SYNC", cfg.Sync.Mode))
	cfg.Sync.Namespace = getEnv("CANVAS_SYNC_NAMESPACE", cfg.Sync.Namespace)
	cfg.Sync.Redis.Addr = getEnv("REDIS_ADDR", cfg.Sync.Redis.Addr)
	cfg.Sync.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Sync.Redis.Password)
	cfg.Sync.Redis.DB = getInt("REDIS_DB", cfg.Sync.Redis.DB)

	cfg.Sticker.Endpoint = getEnv("STICKER_ENDPOINT", cfg.Sticker.Endpoint)
	cfg.Sticker.Timeout = getDuration("STICKER_TIMEOUT", cfg.Sticker.Timeout)

	cfg.VaultKey = getEnv("CANVAS_VAULT_KEY", cfg.VaultKey)
	cfg.LogLevel = getEnv("CANVAS_LOG_LEVEL", cfg.LogLevel)
	cfg.CORSOrigins = getEnv("CORS_ALLOW_ORIGINS", cfg.CORSOrigins)
}

// Validate rejects combinations the daemon cannot start with.
func (c Config) Validate() error {
	switch c.Storage {
	case StorageFile:
		if c.DataDir == "" {
			return fmt.Errorf("file storage needs CANVAS_DATA_DIR")
		}
	case StorageSQLite:
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("postgres storage needs CANVAS_DATABASE_URL")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage)
	}
	if c.QuotaBytes < 0 {
		return fmt.Errorf("quota must not be negative")
	}
	return nil
}

// SQLiteDSN is the database path used by sqlite storage when no URL is set.
func (c Config) SQLiteDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return strings.TrimSuffix(c.DataDir, "/") + "/canvas.db"
}

// SlogLevel maps LogLevel onto slog; unknown values mean info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// AllowedOrigins splits CORSOrigins. A nil result means any origin.
func (c Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		o = strings.TrimSpace(o)
		if o == "*" {
			return nil
		}
		if o != "" {
			out = append(out, o)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

// getDuration accepts Go durations or a bare number of seconds.
func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := parseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func parseDuration(value string) (time.Duration, error) {
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(value)
}

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Database   DatabaseConfig   `yaml:"database"`
	LocalStore LocalStoreConfig `yaml:"local_store"`
	JWT        JWTConfig        `yaml:"jwt"`
	Kiosk      KioskConfig      `yaml:"kiosk"`
	Redis      RedisConfig      `yaml:"redis"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
	Mode string `yaml:"mode"` // debug, release, test
}

type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// DatabaseConfig points at the managed backend holding users, groups and meal records.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite, mysql, postgres
	DSN    string `yaml:"dsn"`
}

// LocalStoreConfig selects the kiosk-local key-value store that survives
// backend outages (offline queue, user cache, admin session).
type LocalStoreConfig struct {
	Driver string `yaml:"driver"` // sqlite, redis, memory
	Path   string `yaml:"path"`   // sqlite file
	Prefix string `yaml:"prefix"` // redis key prefix
}

type JWTConfig struct {
	Secret     string `yaml:"secret"`
	ExpireHour int    `yaml:"expire_hour"`
}

type KioskConfig struct {
	Timezone         string  `yaml:"timezone"`
	SyncInterval     string  `yaml:"sync_interval"`      // e.g. 30s
	UserCacheTTL     string  `yaml:"user_cache_ttl"`     // e.g. 24h
	SessionTTL       string  `yaml:"session_ttl"`        // e.g. 24h
	DailySummaryTime string  `yaml:"daily_summary_time"` // HH:MM
	HolidayCountry   string  `yaml:"holiday_country"`    // ISO code, CN, or NONE
	LogRetentionDays int     `yaml:"log_retention_days"`
	RegisterRPS      float64 `yaml:"register_rps"`
	RegisterBurst    int     `yaml:"register_burst"`
}

// RedisConfig for the optional redis local store and async summary queue
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

var GlobalConfig *Config

func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); err == nil {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	cfg.overrideFromEnv()
	GlobalConfig = cfg
	return cfg, nil
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: "8080",
			Mode: "debug",
		},
		Log: LogConfig{
			Level: "info",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "mealkiosk.db",
		},
		LocalStore: LocalStoreConfig{
			Driver: "sqlite",
			Path:   "kiosk-local.db",
			Prefix: "mealkiosk:",
		},
		JWT: JWTConfig{
			Secret:     "mealkiosk-secret-key-change-in-production",
			ExpireHour: 24,
		},
		Kiosk: KioskConfig{
			Timezone:         "Local",
			SyncInterval:     "30s",
			UserCacheTTL:     "24h",
			SessionTTL:       "24h",
			DailySummaryTime: "21:00",
			HolidayCountry:   "NONE",
			LogRetentionDays: 30,
			RegisterRPS:      5,
			RegisterBurst:    10,
		},
		Redis: RedisConfig{
			Enabled: false,
			Addr:    "localhost:6379",
			DB:      0,
		},
	}
}

func (c *Config) overrideFromEnv() {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		c.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		c.Server.Port = port
	}
	if mode := os.Getenv("SERVER_MODE"); mode != "" {
		c.Server.Mode = mode
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if driver := os.Getenv("DB_DRIVER"); driver != "" {
		c.Database.Driver = driver
	}
	if dsn := os.Getenv("DB_DSN"); dsn != "" {
		c.Database.DSN = dsn
	}
	if driver := os.Getenv("LOCAL_STORE_DRIVER"); driver != "" {
		c.LocalStore.Driver = driver
	}
	if path := os.Getenv("LOCAL_STORE_PATH"); path != "" {
		c.LocalStore.Path = path
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		c.JWT.Secret = secret
	}
	if tz := os.Getenv("KIOSK_TIMEZONE"); tz != "" {
		c.Kiosk.Timezone = tz
	}
	if country := os.Getenv("KIOSK_HOLIDAY_COUNTRY"); country != "" {
		c.Kiosk.HolidayCountry = country
	}
	// Redis URL override (format: redis://:password@host:port/db)
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		c.Redis.Enabled = true
		c.parseRedisURL(redisURL)
	}
}

// parseRedisURL parses a Redis URL and sets config values
// Format: redis://:password@host:port/db
func (c *Config) parseRedisURL(redisURL string) {
	url := strings.TrimPrefix(redisURL, "redis://")

	if atIdx := strings.Index(url, "@"); atIdx != -1 {
		authPart := url[:atIdx]
		url = url[atIdx+1:]
		// Password format: :password or user:password
		if colonIdx := strings.Index(authPart, ":"); colonIdx != -1 {
			c.Redis.Password = authPart[colonIdx+1:]
		}
	}

	if slashIdx := strings.LastIndex(url, "/"); slashIdx != -1 {
		dbStr := url[slashIdx+1:]
		url = url[:slashIdx]
		if db, err := strconv.Atoi(dbStr); err == nil {
			c.Redis.DB = db
		}
	}

	c.Redis.Addr = url
}

// Location resolves the kiosk timezone, falling back to the host's local zone.
func (k KioskConfig) Location() *time.Location {
	if k.Timezone == "" || k.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(k.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func (k KioskConfig) SyncEvery() time.Duration {
	return parseDuration(k.SyncInterval, 30*time.Second)
}

func (k KioskConfig) CacheTTL() time.Duration {
	return parseDuration(k.UserCacheTTL, 24*time.Hour)
}

func (k KioskConfig) SessionMaxAge() time.Duration {
	return parseDuration(k.SessionTTL, 24*time.Hour)
}

func parseDuration(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

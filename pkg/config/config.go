package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Grid     GridConfig
	Cache    CacheConfig
	Exports  ExportsConfig
	Series   SeriesConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// GridConfig holds the slot geometry of the daily and weekly views.
type GridConfig struct {
	DayStartHour   int
	DaySlotCount   int
	WeekStartHour  int
	WeekSlotCount  int
	SlotHeightPx   float64
	HeaderOffsetPx float64
	Timezone       string
}

// Location resolves Timezone; empty or "Local" means the process zone.
func (g GridConfig) Location() (*time.Location, error) {
	if g.Timezone == "" || strings.EqualFold(g.Timezone, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(g.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load grid timezone %q: %w", g.Timezone, err)
	}
	return loc, nil
}

// CacheConfig governs the Redis-backed read cache.
type CacheConfig struct {
	Enabled     bool
	ResourceTTL time.Duration
	GridTTL     time.Duration
}

// ExportsConfig configures asynchronous schedule exports.
type ExportsConfig struct {
	Enabled           bool
	StorageDir        string
	SignedURLSecret   string
	SignedURLTTL      time.Duration
	CleanupSchedule   string
	WorkerConcurrency int
	WorkerRetries     int
}

// SeriesConfig bounds recurring appointment expansion.
type SeriesConfig struct {
	MaxOccurrences int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Grid = GridConfig{
		DayStartHour:   v.GetInt("GRID_DAY_START_HOUR"),
		DaySlotCount:   v.GetInt("GRID_DAY_SLOT_COUNT"),
		WeekStartHour:  v.GetInt("GRID_WEEK_START_HOUR"),
		WeekSlotCount:  v.GetInt("GRID_WEEK_SLOT_COUNT"),
		SlotHeightPx:   v.GetFloat64("GRID_SLOT_HEIGHT_PX"),
		HeaderOffsetPx: v.GetFloat64("GRID_HEADER_OFFSET_PX"),
		Timezone:       v.GetString("GRID_TIMEZONE"),
	}
	if err := cfg.Grid.validate(); err != nil {
		return nil, err
	}

	cfg.Cache = CacheConfig{
		Enabled:     v.GetBool("ENABLE_CACHE"),
		ResourceTTL: parseDuration(v.GetString("RESOURCE_CACHE_TTL"), 5*time.Minute),
		GridTTL:     parseDuration(v.GetString("GRID_CACHE_TTL"), 30*time.Second),
	}

	cfg.Exports = ExportsConfig{
		Enabled:           v.GetBool("ENABLE_EXPORTS"),
		StorageDir:        v.GetString("EXPORTS_STORAGE_DIR"),
		SignedURLSecret:   v.GetString("EXPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:      parseDuration(v.GetString("EXPORTS_SIGNED_URL_TTL"), 24*time.Hour),
		CleanupSchedule:   v.GetString("EXPORTS_CLEANUP_SCHEDULE"),
		WorkerConcurrency: v.GetInt("EXPORTS_WORKER_CONCURRENCY"),
		WorkerRetries:     v.GetInt("EXPORTS_WORKER_RETRIES"),
	}

	cfg.Series = SeriesConfig{MaxOccurrences: v.GetInt("SERIES_MAX_OCCURRENCES")}

	return cfg, nil
}

func (g GridConfig) validate() error {
	if g.DayStartHour < 0 || g.DaySlotCount <= 0 || g.DayStartHour+g.DaySlotCount > 24 {
		return fmt.Errorf("invalid day grid: start %d, slots %d", g.DayStartHour, g.DaySlotCount)
	}
	if g.WeekStartHour < 0 || g.WeekSlotCount <= 0 || g.WeekStartHour+g.WeekSlotCount > 24 {
		return fmt.Errorf("invalid week grid: start %d, slots %d", g.WeekStartHour, g.WeekSlotCount)
	}
	if g.SlotHeightPx <= 0 {
		return fmt.Errorf("GRID_SLOT_HEIGHT_PX must be positive")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "agenda")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("GRID_DAY_START_HOUR", 8)
	v.SetDefault("GRID_DAY_SLOT_COUNT", 10)
	v.SetDefault("GRID_WEEK_START_HOUR", 9)
	v.SetDefault("GRID_WEEK_SLOT_COUNT", 8)
	v.SetDefault("GRID_SLOT_HEIGHT_PX", 62)
	v.SetDefault("GRID_HEADER_OFFSET_PX", 0)
	v.SetDefault("GRID_TIMEZONE", "Local")

	v.SetDefault("ENABLE_CACHE", true)
	v.SetDefault("RESOURCE_CACHE_TTL", "5m")
	v.SetDefault("GRID_CACHE_TTL", "30s")

	v.SetDefault("ENABLE_EXPORTS", true)
	v.SetDefault("EXPORTS_STORAGE_DIR", "./exports")
	v.SetDefault("EXPORTS_SIGNED_URL_SECRET", "dev_exports_secret")
	v.SetDefault("EXPORTS_SIGNED_URL_TTL", "24h")
	v.SetDefault("EXPORTS_CLEANUP_SCHEDULE", "@every 1h")
	v.SetDefault("EXPORTS_WORKER_CONCURRENCY", 1)
	v.SetDefault("EXPORTS_WORKER_RETRIES", 3)

	v.SetDefault("SERIES_MAX_OCCURRENCES", 52)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

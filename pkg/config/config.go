package config

import (
	"errors"
	"os"
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

	Database    DatabaseConfig
	Redis       RedisConfig
	Log         LogConfig
	Cache       CacheConfig
	StatsAPI    StatsAPIConfig
	CoursePages CoursePagesConfig
	Sync        SyncConfig
	Worker      WorkerConfig
	Migrations  MigrationsConfig
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

type LogConfig struct {
	Level  string
	Format string
}

// CacheConfig governs the Redis backed snapshot and run report cache.
type CacheConfig struct {
	Enabled     bool
	SnapshotTTL time.Duration
	MissTTL     time.Duration
	RunTTL      time.Duration
}

// StatsAPIConfig describes the tabular statistics API.
type StatsAPIConfig struct {
	BaseURL       string
	InstitutionID int
	Timeout       time.Duration
	MaxRetries    int
	RetryWaitMin  time.Duration
	RetryWaitMax  time.Duration
	RatePerSecond float64
}

// CoursePagesConfig describes the course description pages.
type CoursePagesConfig struct {
	NorwegianBaseURL string
	EnglishBaseURL   string
	Timeout          time.Duration
	MaxRetries       int
	RetryWaitMin     time.Duration
	RetryWaitMax     time.Duration
	RatePerSecond    float64
}

// SyncConfig holds the reconciliation policy constants.
type SyncConfig struct {
	LegacyCutoffYear    int
	MaxPageAttempts     int
	FallbackFloorYear   int
	FallbackWindowYears int
}

// WorkerConfig configures the background sync queue.
type WorkerConfig struct {
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
}

// MigrationsConfig points at the SQL migration sources.
type MigrationsConfig struct {
	Dir string
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
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
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

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Cache = CacheConfig{
		Enabled:     v.GetBool("ENABLE_CACHE"),
		SnapshotTTL: parseDuration(v.GetString("SNAPSHOT_CACHE_TTL"), 24*time.Hour),
		MissTTL:     parseDuration(v.GetString("SNAPSHOT_MISS_CACHE_TTL"), 6*time.Hour),
		RunTTL:      parseDuration(v.GetString("SYNC_RUN_CACHE_TTL"), 7*24*time.Hour),
	}

	cfg.StatsAPI = StatsAPIConfig{
		BaseURL:       strings.TrimRight(v.GetString("STATS_API_BASE_URL"), "/"),
		InstitutionID: v.GetInt("STATS_API_INSTITUTION_ID"),
		Timeout:       parseDuration(v.GetString("STATS_API_TIMEOUT"), 60*time.Second),
		MaxRetries:    v.GetInt("STATS_API_MAX_RETRIES"),
		RetryWaitMin:  parseDuration(v.GetString("STATS_API_RETRY_WAIT_MIN"), 300*time.Millisecond),
		RetryWaitMax:  parseDuration(v.GetString("STATS_API_RETRY_WAIT_MAX"), 5*time.Second),
		RatePerSecond: v.GetFloat64("STATS_API_RATE_PER_SECOND"),
	}

	cfg.CoursePages = CoursePagesConfig{
		NorwegianBaseURL: strings.TrimRight(v.GetString("COURSE_PAGES_NO_BASE_URL"), "/"),
		EnglishBaseURL:   strings.TrimRight(v.GetString("COURSE_PAGES_EN_BASE_URL"), "/"),
		Timeout:          parseDuration(v.GetString("COURSE_PAGES_TIMEOUT"), 20*time.Second),
		MaxRetries:       v.GetInt("COURSE_PAGES_MAX_RETRIES"),
		RetryWaitMin:     parseDuration(v.GetString("COURSE_PAGES_RETRY_WAIT_MIN"), 300*time.Millisecond),
		RetryWaitMax:     parseDuration(v.GetString("COURSE_PAGES_RETRY_WAIT_MAX"), 5*time.Second),
		RatePerSecond:    v.GetFloat64("COURSE_PAGES_RATE_PER_SECOND"),
	}

	cfg.Sync = SyncConfig{
		LegacyCutoffYear:    v.GetInt("SYNC_LEGACY_CUTOFF_YEAR"),
		MaxPageAttempts:     v.GetInt("SYNC_MAX_PAGE_ATTEMPTS"),
		FallbackFloorYear:   v.GetInt("SYNC_FALLBACK_FLOOR_YEAR"),
		FallbackWindowYears: v.GetInt("SYNC_FALLBACK_WINDOW_YEARS"),
	}

	cfg.Worker = WorkerConfig{
		BufferSize: v.GetInt("SYNC_WORKER_BUFFER"),
		MaxRetries: v.GetInt("SYNC_WORKER_RETRIES"),
		RetryDelay: parseDuration(v.GetString("SYNC_WORKER_RETRY_DELAY"), 30*time.Second),
	}

	cfg.Migrations = MigrationsConfig{Dir: v.GetString("MIGRATIONS_DIR")}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "gradestats")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_CACHE", false)
	v.SetDefault("SNAPSHOT_CACHE_TTL", "24h")
	v.SetDefault("SNAPSHOT_MISS_CACHE_TTL", "6h")
	v.SetDefault("SYNC_RUN_CACHE_TTL", "168h")

	v.SetDefault("STATS_API_BASE_URL", "https://dbh.hkdir.no")
	v.SetDefault("STATS_API_INSTITUTION_ID", 1150)
	v.SetDefault("STATS_API_TIMEOUT", "60s")
	v.SetDefault("STATS_API_MAX_RETRIES", 3)
	v.SetDefault("STATS_API_RETRY_WAIT_MIN", "300ms")
	v.SetDefault("STATS_API_RETRY_WAIT_MAX", "5s")
	v.SetDefault("STATS_API_RATE_PER_SECOND", 2)

	v.SetDefault("COURSE_PAGES_NO_BASE_URL", "https://www.ntnu.no/studier/emner")
	v.SetDefault("COURSE_PAGES_EN_BASE_URL", "https://www.ntnu.edu/studies/courses")
	v.SetDefault("COURSE_PAGES_TIMEOUT", "20s")
	v.SetDefault("COURSE_PAGES_MAX_RETRIES", 3)
	v.SetDefault("COURSE_PAGES_RETRY_WAIT_MIN", "300ms")
	v.SetDefault("COURSE_PAGES_RETRY_WAIT_MAX", "5s")
	v.SetDefault("COURSE_PAGES_RATE_PER_SECOND", 5)

	v.SetDefault("SYNC_LEGACY_CUTOFF_YEAR", 2019)
	v.SetDefault("SYNC_MAX_PAGE_ATTEMPTS", 8)
	v.SetDefault("SYNC_FALLBACK_FLOOR_YEAR", 2000)
	v.SetDefault("SYNC_FALLBACK_WINDOW_YEARS", 5)

	v.SetDefault("SYNC_WORKER_BUFFER", 16)
	v.SetDefault("SYNC_WORKER_RETRIES", 1)
	v.SetDefault("SYNC_WORKER_RETRY_DELAY", "30s")

	v.SetDefault("MIGRATIONS_DIR", "migrations")
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

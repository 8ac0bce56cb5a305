package config

import (
	"errors"
	"io/fs"
	"net/url"
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

	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	CORS       CORSConfig
	Log        LogConfig
	Cache      CacheConfig
	Photos     PhotosConfig
	Thumbnails ThumbnailConfig
	RateLimit  RateLimitConfig
	Client     ClientConfig
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
	Enabled    bool
	Secret     string
	Expiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// CacheConfig toggles Redis caching of event listings.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

// PhotosConfig controls where photo binaries live and what uploads are accepted.
type PhotosConfig struct {
	StorageDir       string
	PublicPath       string
	MaxFileSizeBytes int64
	MaxFilesPerEvent int
	AllowedMIMEs     []string
	SweepSchedule    string
}

// ThumbnailConfig sizes the thumbnail worker pool.
type ThumbnailConfig struct {
	Enabled    bool
	Width      int
	Height     int
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
}

// RateLimitConfig bounds mutation throughput per client IP.
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
	Burst             int
}

// ClientConfig configures the gallery API client used by eventsctl.
type ClientConfig struct {
	BaseURL      string
	MediaBaseURL string
	Timeout      time.Duration
	Token        string
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

	authEnabled := v.GetBool("AUTH_ENABLED")
	if cfg.Env == EnvProduction && !v.IsSet("AUTH_ENABLED") {
		authEnabled = true
	}
	cfg.JWT = JWTConfig{
		Enabled:    authEnabled,
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Cache = CacheConfig{
		Enabled: v.GetBool("CACHE_ENABLED"),
		TTL:     parseDuration(v.GetString("CACHE_TTL"), 5*time.Minute),
	}

	maxPhotoSize := v.GetInt64("PHOTOS_MAX_FILE_SIZE")
	if maxPhotoSize <= 0 {
		maxPhotoSize = 15 * 1024 * 1024
	}
	cfg.Photos = PhotosConfig{
		StorageDir:       v.GetString("PHOTOS_STORAGE_DIR"),
		PublicPath:       v.GetString("PHOTOS_PUBLIC_PATH"),
		MaxFileSizeBytes: maxPhotoSize,
		MaxFilesPerEvent: v.GetInt("PHOTOS_MAX_PER_EVENT"),
		AllowedMIMEs:     splitAndTrim(v.GetString("PHOTOS_ALLOWED_MIME_TYPES")),
		SweepSchedule:    v.GetString("PHOTOS_SWEEP_SCHEDULE"),
	}

	cfg.Thumbnails = ThumbnailConfig{
		Enabled:    v.GetBool("THUMBNAILS_ENABLED"),
		Width:      v.GetInt("THUMBNAIL_WIDTH"),
		Height:     v.GetInt("THUMBNAIL_HEIGHT"),
		Workers:    v.GetInt("THUMBNAIL_WORKERS"),
		MaxRetries: v.GetInt("THUMBNAIL_RETRIES"),
		RetryDelay: parseDuration(v.GetString("THUMBNAIL_RETRY_DELAY"), 2*time.Second),
	}

	cfg.RateLimit = RateLimitConfig{
		Enabled:           v.GetBool("RATE_LIMIT_ENABLED"),
		RequestsPerMinute: v.GetInt("RATE_LIMIT_PER_MINUTE"),
		Burst:             v.GetInt("RATE_LIMIT_BURST"),
	}

	cfg.Client = ClientConfig{
		BaseURL:      v.GetString("API_BASE_URL"),
		MediaBaseURL: v.GetString("MEDIA_BASE_URL"),
		Timeout:      parseDuration(v.GetString("API_TIMEOUT"), 5*time.Minute),
		Token:        v.GetString("API_TOKEN"),
	}
	if cfg.Client.MediaBaseURL == "" {
		cfg.Client.MediaBaseURL = originOf(cfg.Client.BaseURL)
	}

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
	v.SetDefault("DB_NAME", "event_gallery")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("CACHE_ENABLED", false)
	v.SetDefault("CACHE_TTL", "5m")

	v.SetDefault("PHOTOS_STORAGE_DIR", "./uploads")
	v.SetDefault("PHOTOS_PUBLIC_PATH", "/media")
	v.SetDefault("PHOTOS_MAX_FILE_SIZE", 15*1024*1024)
	v.SetDefault("PHOTOS_MAX_PER_EVENT", 200)
	v.SetDefault("PHOTOS_ALLOWED_MIME_TYPES", "image/jpeg,image/png,image/webp,image/gif")
	v.SetDefault("PHOTOS_SWEEP_SCHEDULE", "@every 6h")

	v.SetDefault("THUMBNAILS_ENABLED", true)
	v.SetDefault("THUMBNAIL_WIDTH", 600)
	v.SetDefault("THUMBNAIL_HEIGHT", 400)
	v.SetDefault("THUMBNAIL_WORKERS", 2)
	v.SetDefault("THUMBNAIL_RETRIES", 3)
	v.SetDefault("THUMBNAIL_RETRY_DELAY", "2s")

	v.SetDefault("RATE_LIMIT_ENABLED", true)
	v.SetDefault("RATE_LIMIT_PER_MINUTE", 30)
	v.SetDefault("RATE_LIMIT_BURST", 10)

	v.SetDefault("API_BASE_URL", "http://localhost:8080/api/v1")
	v.SetDefault("MEDIA_BASE_URL", "")
	v.SetDefault("API_TIMEOUT", "5m")
	v.SetDefault("API_TOKEN", "")
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

// originOf strips the path from raw so root-relative media paths resolve against
// the API host rather than the API prefix.
func originOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return raw
	}
	return u.Scheme + "://" + u.Host
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

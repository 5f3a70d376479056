package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// ErrMissingRefreshSecret is returned when no refresh-token secret is configured.
// The refresh secret has no fallback on purpose: a well-known default would let
// anyone mint valid refresh tokens.
var ErrMissingRefreshSecret = errors.New("REFRESH_TOKEN_SECRET is required")

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Uploads  UploadsConfig
	Cache    CacheConfig
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

// JWTConfig holds token signing material. AccessSecret signs short-lived
// access tokens; RefreshSecret is a distinct key used only for refresh tokens.
type JWTConfig struct {
	AccessSecret      string
	RefreshSecret     string
	Expiration        time.Duration
	RefreshExpiration time.Duration
	Issuer            string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// UploadsConfig controls avatar/thumbnail storage and validation.
type UploadsConfig struct {
	Dir              string
	MaxFileSizeBytes int64
	AllowedExts      []string
}

// CacheConfig governs Redis read caching for list endpoints.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
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
		if !errors.As(err, &notFound) {
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
		AccessSecret:      v.GetString("JWT_SECRET"),
		RefreshSecret:     v.GetString("REFRESH_TOKEN_SECRET"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 552*time.Hour),
		Issuer:            v.GetString("JWT_ISSUER"),
	}
	if cfg.JWT.RefreshSecret == "" {
		return nil, ErrMissingRefreshSecret
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	maxUploadSize := v.GetInt64("UPLOADS_MAX_FILE_SIZE")
	if maxUploadSize <= 0 {
		maxUploadSize = 5 * 1024 * 1024
	}
	cfg.Uploads = UploadsConfig{
		Dir:              v.GetString("UPLOADS_DIR"),
		MaxFileSizeBytes: maxUploadSize,
		AllowedExts:      splitAndTrim(v.GetString("UPLOADS_ALLOWED_EXTS")),
	}

	cfg.Cache = CacheConfig{
		Enabled: v.GetBool("ENABLE_CACHE"),
		TTL:     parseDuration(v.GetString("CACHE_TTL"), 5*time.Minute),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "blog")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "1h")
	// REFRESH_TOKEN_SECRET has no default by design.
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "552h")
	v.SetDefault("JWT_ISSUER", "blog-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("UPLOADS_DIR", "./uploads")
	v.SetDefault("UPLOADS_MAX_FILE_SIZE", 5*1024*1024)
	v.SetDefault("UPLOADS_ALLOWED_EXTS", ".jpg,.jpeg,.png")

	v.SetDefault("ENABLE_CACHE", false)
	v.SetDefault("CACHE_TTL", "5m")
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

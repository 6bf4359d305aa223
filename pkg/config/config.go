package config

import (
	"errors"
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

// Local store backends.
const (
	LocalStoreRedis      = "redis"
	LocalStoreFilesystem = "filesystem"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	// TrustedProxies lists the proxy addresses or CIDRs whose forwarding headers are
	// believed when resolving the caller address. Empty trusts none.
	TrustedProxies []string

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	RateLimit RateLimitConfig
	Editor    EditorConfig
	Public    PublicConfig
	Share     ShareConfig
	Metrics   MetricsConfig
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// RateLimitConfig sizes the two fixed-window limiters.
type RateLimitConfig struct {
	PublicMax     int
	PublicWindow  time.Duration
	StrictMax     int
	StrictWindow  time.Duration
	SweepInterval time.Duration
}

// EditorConfig governs the save workflow and per-client local state.
type EditorConfig struct {
	SaveTimeout        time.Duration
	SaveRetries        int
	RetryBaseDelay     time.Duration
	CallTimeout        time.Duration
	LocalStoreBackend  string
	LocalStoreDir      string
	DefaultTerminology string
}

// PublicConfig tunes the unauthenticated bulletin lookup.
type PublicConfig struct {
	ReadTimeout  time.Duration
	CacheEnabled bool
	CacheTTL     time.Duration
}

// ShareConfig configures signed share links.
type ShareConfig struct {
	SigningSecret string
	LinkTTL       time.Duration
	BaseURL       string
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool
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
	cfg.TrustedProxies = splitAndTrim(v.GetString("TRUSTED_PROXIES"))

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),

		ConnMaxLifetime: parseDuration(v.GetString("DB_CONN_MAX_LIFETIME"), time.Hour),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.RateLimit = RateLimitConfig{
		PublicMax:     v.GetInt("RATE_LIMIT_PUBLIC_MAX"),
		PublicWindow:  parseDuration(v.GetString("RATE_LIMIT_PUBLIC_WINDOW"), 15*time.Minute),
		StrictMax:     v.GetInt("RATE_LIMIT_STRICT_MAX"),
		StrictWindow:  parseDuration(v.GetString("RATE_LIMIT_STRICT_WINDOW"), time.Minute),
		SweepInterval: parseDuration(v.GetString("RATE_LIMIT_SWEEP_INTERVAL"), time.Minute),
	}

	cfg.Editor = EditorConfig{
		SaveTimeout:        parseDuration(v.GetString("EDITOR_SAVE_TIMEOUT"), 10*time.Second),
		SaveRetries:        v.GetInt("EDITOR_SAVE_RETRIES"),
		RetryBaseDelay:     parseDuration(v.GetString("EDITOR_RETRY_BASE_DELAY"), 500*time.Millisecond),
		CallTimeout:        parseDuration(v.GetString("EDITOR_CALL_TIMEOUT"), 10*time.Second),
		LocalStoreBackend:  strings.ToLower(v.GetString("LOCAL_STORE_BACKEND")),
		LocalStoreDir:      v.GetString("LOCAL_STORE_DIR"),
		DefaultTerminology: v.GetString("DEFAULT_TERMINOLOGY"),
	}

	cfg.Public = PublicConfig{
		ReadTimeout:  parseDuration(v.GetString("PUBLIC_READ_TIMEOUT"), 10*time.Second),
		CacheEnabled: v.GetBool("PUBLIC_CACHE_ENABLED"),
		CacheTTL:     parseDuration(v.GetString("PUBLIC_CACHE_TTL"), time.Minute),
	}

	cfg.Share = ShareConfig{
		SigningSecret: v.GetString("SHARE_SIGNING_SECRET"),
		LinkTTL:       parseDuration(v.GetString("SHARE_LINK_TTL"), 30*24*time.Hour),
		BaseURL:       strings.TrimRight(v.GetString("SHARE_BASE_URL"), "/"),
	}

	cfg.Metrics = MetricsConfig{Enabled: v.GetBool("ENABLE_METRICS")}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")
	v.SetDefault("TRUSTED_PROXIES", "")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "ward_bulletin")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "1h")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("JWT_ISSUER", "bulletin-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("RATE_LIMIT_PUBLIC_MAX", 100)
	v.SetDefault("RATE_LIMIT_PUBLIC_WINDOW", "15m")
	v.SetDefault("RATE_LIMIT_STRICT_MAX", 10)
	v.SetDefault("RATE_LIMIT_STRICT_WINDOW", "1m")
	v.SetDefault("RATE_LIMIT_SWEEP_INTERVAL", "1m")

	v.SetDefault("EDITOR_SAVE_TIMEOUT", "10s")
	v.SetDefault("EDITOR_SAVE_RETRIES", 3)
	v.SetDefault("EDITOR_RETRY_BASE_DELAY", "500ms")
	v.SetDefault("EDITOR_CALL_TIMEOUT", "10s")
	v.SetDefault("LOCAL_STORE_BACKEND", LocalStoreRedis)
	v.SetDefault("LOCAL_STORE_DIR", "./local-state")
	v.SetDefault("DEFAULT_TERMINOLOGY", "ward")

	v.SetDefault("PUBLIC_READ_TIMEOUT", "10s")
	v.SetDefault("PUBLIC_CACHE_ENABLED", true)
	v.SetDefault("PUBLIC_CACHE_TTL", "1m")

	v.SetDefault("SHARE_SIGNING_SECRET", "dev_share_secret")
	v.SetDefault("SHARE_LINK_TTL", "720h")
	v.SetDefault("SHARE_BASE_URL", "http://localhost:8080")

	v.SetDefault("ENABLE_METRICS", true)
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

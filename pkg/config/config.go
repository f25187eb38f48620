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

// Media storage drivers.
const (
	MediaDriverLocal = "local"
	MediaDriverS3    = "s3"
)

type Config struct {
	Env        string
	Port       int
	APIPrefix  string
	AppBaseURL string
	PagesDir   string

	Database  DatabaseConfig
	Redis     RedisConfig
	Session   SessionConfig
	Account   AccountConfig
	CORS      CORSConfig
	Log       LogConfig
	Cache     CacheConfig
	Mail      MailConfig
	RateLimit RateLimitConfig
	Media     MediaConfig
}

type DatabaseConfig struct {
	Host           string
	Port           int
	User           string
	Password       string
	Name           string
	SSLMode        string
	MaxOpenConns   int
	MaxIdleConns   int
	MigrateOnStart bool
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// SessionConfig controls the signed session cookie.
type SessionConfig struct {
	Secret     string
	TTL        time.Duration
	CookieName string
	Secure     bool
}

// AccountConfig holds token lifetimes for the account lifecycle flows.
type AccountConfig struct {
	VerificationTTL time.Duration
	ResetTokenTTL   time.Duration
	BcryptCost      int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// CacheConfig tunes Redis caching of public archive reads.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

// MailConfig configures the SMTP relay and the background mail queue.
type MailConfig struct {
	Host               string
	Port               int
	Username           string
	Password           string
	FromName           string
	FromAddress        string
	ContributeReceiver string
	WorkerConcurrency  int
	WorkerRetries      int
	WorkerRetryDelay   time.Duration
}

// RateLimitConfig throttles the unauthenticated auth endpoints.
type RateLimitConfig struct {
	Enabled bool
	Limit   int
	Window  time.Duration
}

// MediaConfig controls staff uploads and where they are stored.
type MediaConfig struct {
	Driver           string
	StorageDir       string
	MaxFileSizeBytes int64
	AllowedMIMEs     []string
	S3Bucket         string
	S3Region         string
	S3Endpoint       string
	S3AccessKey      string
	S3SecretKey      string
	PresignTTL       time.Duration
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
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")
	cfg.AppBaseURL = strings.TrimRight(v.GetString("APP_BASE_URL"), "/")
	cfg.PagesDir = v.GetString("PAGES_DIR")

	cfg.Database = DatabaseConfig{
		Host:           v.GetString("DB_HOST"),
		Port:           v.GetInt("DB_PORT"),
		User:           v.GetString("DB_USER"),
		Password:       v.GetString("DB_PASSWORD"),
		Name:           v.GetString("DB_NAME"),
		SSLMode:        v.GetString("DB_SSL_MODE"),
		MaxOpenConns:   v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns:   v.GetInt("DB_MAX_IDLE_CONNS"),
		MigrateOnStart: v.GetBool("DB_MIGRATE_ON_START"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Session = SessionConfig{
		Secret:     v.GetString("JWT_SECRET"),
		TTL:        parseDuration(v.GetString("SESSION_TTL"), 24*time.Hour),
		CookieName: v.GetString("SESSION_COOKIE_NAME"),
		Secure:     cfg.Env == EnvProduction,
	}

	cfg.Account = AccountConfig{
		VerificationTTL: parseDuration(v.GetString("VERIFICATION_TTL"), time.Hour),
		ResetTokenTTL:   parseDuration(v.GetString("RESET_TOKEN_TTL"), time.Hour),
		BcryptCost:      v.GetInt("BCRYPT_COST"),
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

	cfg.Mail = MailConfig{
		Host:               v.GetString("MAIL_HOST"),
		Port:               v.GetInt("MAIL_PORT"),
		Username:           v.GetString("MAIL_USER"),
		Password:           v.GetString("MAIL_PASSWORD"),
		FromName:           v.GetString("MAIL_FROM_NAME"),
		FromAddress:        v.GetString("MAIL_FROM_ADDRESS"),
		ContributeReceiver: v.GetString("CONTRIBUTE_RECEIVER_EMAIL"),
		WorkerConcurrency:  v.GetInt("MAIL_WORKER_CONCURRENCY"),
		WorkerRetries:      v.GetInt("MAIL_WORKER_RETRIES"),
		WorkerRetryDelay:   parseDuration(v.GetString("MAIL_WORKER_RETRY_DELAY"), 5*time.Second),
	}
	if cfg.Mail.FromAddress == "" {
		cfg.Mail.FromAddress = cfg.Mail.Username
	}
	if cfg.Mail.ContributeReceiver == "" {
		cfg.Mail.ContributeReceiver = cfg.Mail.Username
	}

	cfg.RateLimit = RateLimitConfig{
		Enabled: v.GetBool("RATE_LIMIT_ENABLED"),
		Limit:   v.GetInt("RATE_LIMIT_REQUESTS"),
		Window:  parseDuration(v.GetString("RATE_LIMIT_WINDOW"), 15*time.Minute),
	}

	maxMediaSize := v.GetInt64("MEDIA_MAX_FILE_SIZE")
	if maxMediaSize <= 0 {
		maxMediaSize = 10 * 1024 * 1024
	}
	cfg.Media = MediaConfig{
		Driver:           strings.ToLower(v.GetString("MEDIA_DRIVER")),
		StorageDir:       v.GetString("MEDIA_STORAGE_DIR"),
		MaxFileSizeBytes: maxMediaSize,
		AllowedMIMEs:     splitAndTrim(v.GetString("MEDIA_ALLOWED_MIME_TYPES")),
		S3Bucket:         v.GetString("MEDIA_S3_BUCKET"),
		S3Region:         v.GetString("MEDIA_S3_REGION"),
		S3Endpoint:       v.GetString("MEDIA_S3_ENDPOINT"),
		S3AccessKey:      v.GetString("MEDIA_S3_ACCESS_KEY"),
		S3SecretKey:      v.GetString("MEDIA_S3_SECRET_KEY"),
		PresignTTL:       parseDuration(v.GetString("MEDIA_PRESIGN_TTL"), 15*time.Minute),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api")
	v.SetDefault("APP_BASE_URL", "http://localhost:8080")
	v.SetDefault("PAGES_DIR", "")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "chilahati_archive")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_MIGRATE_ON_START", true)

	v.SetDefault("REDIS_ENABLED", true)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("SESSION_TTL", "24h")
	v.SetDefault("SESSION_COOKIE_NAME", "session-token")

	v.SetDefault("VERIFICATION_TTL", "1h")
	v.SetDefault("RESET_TOKEN_TTL", "1h")
	v.SetDefault("BCRYPT_COST", 10)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("CACHE_ENABLED", true)
	v.SetDefault("CACHE_TTL", "5m")

	v.SetDefault("MAIL_HOST", "smtp.gmail.com")
	v.SetDefault("MAIL_PORT", 587)
	v.SetDefault("MAIL_USER", "")
	v.SetDefault("MAIL_PASSWORD", "")
	v.SetDefault("MAIL_FROM_NAME", "Chilahati Archive")
	v.SetDefault("MAIL_FROM_ADDRESS", "")
	v.SetDefault("CONTRIBUTE_RECEIVER_EMAIL", "")
	v.SetDefault("MAIL_WORKER_CONCURRENCY", 2)
	v.SetDefault("MAIL_WORKER_RETRIES", 3)
	v.SetDefault("MAIL_WORKER_RETRY_DELAY", "5s")

	v.SetDefault("RATE_LIMIT_ENABLED", true)
	v.SetDefault("RATE_LIMIT_REQUESTS", 10)
	v.SetDefault("RATE_LIMIT_WINDOW", "15m")

	v.SetDefault("MEDIA_DRIVER", MediaDriverLocal)
	v.SetDefault("MEDIA_STORAGE_DIR", "./media")
	v.SetDefault("MEDIA_MAX_FILE_SIZE", 10*1024*1024)
	v.SetDefault("MEDIA_ALLOWED_MIME_TYPES", "image/jpeg,image/png,image/gif,image/webp,application/pdf")
	v.SetDefault("MEDIA_S3_BUCKET", "")
	v.SetDefault("MEDIA_S3_REGION", "us-east-1")
	v.SetDefault("MEDIA_S3_ENDPOINT", "")
	v.SetDefault("MEDIA_S3_ACCESS_KEY", "")
	v.SetDefault("MEDIA_S3_SECRET_KEY", "")
	v.SetDefault("MEDIA_PRESIGN_TTL", "15m")
}

func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
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

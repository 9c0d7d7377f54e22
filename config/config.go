package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ekaty/ekaty-backend/pkg/places"
	"github.com/joho/godotenv"
)

type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	JWT          JWTConfig
	CORS         CORSConfig
	Admin        AdminConfig
	GooglePlaces GooglePlacesConfig
	Sync         SyncConfig
	Redis        RedisConfig
	S3           S3Config
	SMTP         SMTPConfig
}

type ServerConfig struct {
	Port        string
	GinMode     string
	Environment string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type JWTConfig struct {
	Secret             string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

// AdminConfig holds the single dashboard operator account.
type AdminConfig struct {
	Email        string
	PasswordHash string // bcrypt
}

type GooglePlacesConfig struct {
	APIKey         string
	BaseURL        string
	DailyLimit     int
	SearchRadius   int // meters, per search point
	PageTokenDelay time.Duration
	DetailDelay    time.Duration
	PointDelay     time.Duration
	RefreshDelay   time.Duration
	Timeout        time.Duration
}

type SyncConfig struct {
	SchedulerEnabled bool
	StaleAfter       time.Duration
	StaleBatchLimit  int
	RefreshCron      string
	StaleCron        string
	CleanupCron      string
	HealthCron       string
	MaxSyncAge       time.Duration
	LockTTL          time.Duration
}

// RedisConfig is optional; an empty Host disables the distributed sync lock.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// S3Config is optional; an empty Bucket disables sync report uploads.
type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	BaseURL         string
}

// SMTPConfig is optional; an empty Host disables alert mail.
type SMTPConfig struct {
	Host       string
	Port       string
	From       string
	Password   string
	Recipients []string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8080"),
			GinMode:     getEnv("GIN_MODE", "debug"),
			Environment: getEnv("ENVIRONMENT", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "ekaty"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "ekaty"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		JWT: JWTConfig{
			Secret:             getEnv("JWT_SECRET", "your-secret-key"),
			AccessTokenExpiry:  parseDuration(getEnv("JWT_ACCESS_TOKEN_EXPIRY", "15m"), 15*time.Minute),
			RefreshTokenExpiry: parseDuration(getEnv("JWT_REFRESH_TOKEN_EXPIRY", "168h"), 168*time.Hour),
		},
		CORS: CORSConfig{
			AllowedOrigins: parseSlice(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		},
		Admin: AdminConfig{
			Email:        getEnv("ADMIN_EMAIL", ""),
			PasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),
		},
		GooglePlaces: GooglePlacesConfig{
			APIKey:         getEnv("GOOGLE_PLACES_API_KEY", ""),
			BaseURL:        getEnv("GOOGLE_PLACES_BASE_URL", "https://maps.googleapis.com/maps/api/place"),
			DailyLimit:     parseInt(getEnv("GOOGLE_PLACES_DAILY_LIMIT", "45000"), 45000),
			SearchRadius:   parseInt(getEnv("GOOGLE_PLACES_SEARCH_RADIUS", "5000"), 5000),
			PageTokenDelay: parseDuration(getEnv("GOOGLE_PLACES_PAGE_TOKEN_DELAY", "2s"), 2*time.Second),
			DetailDelay:    parseDuration(getEnv("GOOGLE_PLACES_DETAIL_DELAY", "100ms"), 100*time.Millisecond),
			PointDelay:     parseDuration(getEnv("GOOGLE_PLACES_POINT_DELAY", "1s"), time.Second),
			RefreshDelay:   parseDuration(getEnv("GOOGLE_PLACES_REFRESH_DELAY", "200ms"), 200*time.Millisecond),
			Timeout:        parseDuration(getEnv("GOOGLE_PLACES_TIMEOUT", "15s"), 15*time.Second),
		},
		Sync: SyncConfig{
			SchedulerEnabled: parseBool(getEnv("SYNC_SCHEDULER_ENABLED", "true"), true),
			StaleAfter:       parseDuration(getEnv("SYNC_STALE_AFTER", "720h"), 30*24*time.Hour),
			StaleBatchLimit:  parseInt(getEnv("SYNC_STALE_BATCH_LIMIT", "50"), 50),
			RefreshCron:      getEnv("SYNC_REFRESH_CRON", "0 3 * * *"),
			StaleCron:        getEnv("SYNC_STALE_CRON", "0 4 * * *"),
			CleanupCron:      getEnv("SYNC_CLEANUP_CRON", "30 0 * * *"),
			HealthCron:       getEnv("SYNC_HEALTH_CRON", "0 * * * *"),
			MaxSyncAge:       parseDuration(getEnv("SYNC_MAX_AGE", "48h"), 48*time.Hour),
			LockTTL:          parseDuration(getEnv("SYNC_LOCK_TTL", "2h"), 2*time.Hour),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", ""),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       parseInt(getEnv("REDIS_DB", "0"), 0),
		},
		S3: S3Config{
			Region:          getEnv("AWS_REGION", "us-east-1"),
			Bucket:          getEnv("AWS_S3_BUCKET", ""),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			BaseURL:         getEnv("AWS_S3_BASE_URL", ""),
		},
		SMTP: SMTPConfig{
			Host:       getEnv("SMTP_HOST", ""),
			Port:       getEnv("SMTP_PORT", "587"),
			From:       getEnv("SMTP_EMAIL", ""),
			Password:   getEnv("SMTP_PASSWORD", ""),
			Recipients: parseSlice(getEnv("ALERT_RECIPIENTS", "")),
		},
	}

	return config, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// Validate returns places.ErrMissingAPIKey when no key is configured.
func (c *GooglePlacesConfig) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return places.ErrMissingAPIKey
	}
	return nil
}

// Enabled reports whether a Redis host is configured.
func (c *RedisConfig) Enabled() bool {
	return c.Host != ""
}

func (c *S3Config) Enabled() bool {
	return c.Bucket != ""
}

func (c *SMTPConfig) Enabled() bool {
	return c.Host != "" && c.From != "" && len(c.Recipients) > 0
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	duration, err := time.ParseDuration(s)
	if err != nil {
		log.Printf("Invalid duration %s, using default %s", s, fallback)
		return fallback
	}
	return duration
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		log.Printf("Invalid integer %s, using default %d", s, fallback)
		return fallback
	}
	return n
}

func parseBool(s string, fallback bool) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		log.Printf("Invalid boolean %s, using default %t", s, fallback)
		return fallback
	}
	return b
}

func parseSlice(s string) []string {
	if s == "" {
		return []string{}
	}
	var result []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}

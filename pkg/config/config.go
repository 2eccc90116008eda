package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"

	"github.com/garagelink/drivescan/pkg/logx"
)

// Config is the process-wide configuration. It is built once at startup and
// never mutated afterwards; everything downstream receives it by value or
// through constructor injection.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Storage  StorageConfig
	Email    EmailConfig
	Analysis AnalysisConfig
	Billing  BillingConfig
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port        string
	CORSOrigins string
	BodyLimit   int
}

// DatabaseConfig configures the Postgres connection pool.
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

// DSN builds the lib/pq connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// RedisConfig configures the Redis client used for quota counters and
// login throttling.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Address returns host:port for the Redis client.
func (r RedisConfig) Address() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// AuthConfig configures token issuance and login throttling. Access and
// refresh lifetimes are independently tunable.
type AuthConfig struct {
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	Issuer          string
	LoginMaxTries   int
	LoginWindow     time.Duration
}

// StorageConfig configures scan file storage ("local" or "s3").
type StorageConfig struct {
	Mode      string
	LocalDir  string
	S3Bucket  string
	S3Region  string
	KeyPrefix string
}

// EmailConfig configures the notification provider ("console" or "ses").
type EmailConfig struct {
	Provider    string
	FromAddress string
	FromName    string
	AWSRegion   string
}

// AnalysisConfig configures the remote diagnostic analysis service.
type AnalysisConfig struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

// BillingConfig configures credit behavior.
type BillingConfig struct {
	LowCreditThreshold int64
	SignupCredits      int64
}

// Load builds the configuration from the environment. A .env file is loaded
// first when present so local development matches deployed behavior.
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		logx.Debug("Loaded environment from .env")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			CORSOrigins: getEnv("CORS_ORIGINS", "*"),
			BodyLimit:   getEnvInt("BODY_LIMIT_MB", 10) * 1024 * 1024,
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "drivescan"),
			Password:        getEnv("DB_PASSWORD", ""),
			Name:            getEnv("DB_NAME", "drivescan"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Auth: AuthConfig{
			JWTSecret:       getEnv("JWT_SECRET", ""),
			AccessTokenTTL:  getEnvDuration("JWT_ACCESS_TTL", 15*time.Minute),
			RefreshTokenTTL: getEnvDuration("JWT_REFRESH_TTL", 7*24*time.Hour),
			Issuer:          getEnv("JWT_ISSUER", "drivescan"),
			LoginMaxTries:   getEnvInt("LOGIN_MAX_ATTEMPTS", 10),
			LoginWindow:     getEnvDuration("LOGIN_ATTEMPT_WINDOW", 15*time.Minute),
		},
		Storage: StorageConfig{
			Mode:      getEnv("STORAGE_MODE", "local"),
			LocalDir:  getEnv("UPLOAD_DIR", "./uploads"),
			S3Bucket:  getEnv("AWS_BUCKET", "drivescan-uploads"),
			S3Region:  getEnv("AWS_REGION", "us-east-1"),
			KeyPrefix: getEnv("STORAGE_KEY_PREFIX", ""),
		},
		Email: EmailConfig{
			Provider:    getEnv("EMAIL_PROVIDER", "console"),
			FromAddress: getEnv("EMAIL_FROM_ADDRESS", "noreply@drivescan.io"),
			FromName:    getEnv("EMAIL_FROM_NAME", "DriveScan"),
			AWSRegion:   getEnv("EMAIL_AWS_REGION", getEnv("AWS_REGION", "us-east-1")),
		},
		Analysis: AnalysisConfig{
			Endpoint: getEnv("ANALYSIS_ENDPOINT", ""),
			APIKey:   getEnv("ANALYSIS_API_KEY", ""),
			Timeout:  getEnvDuration("ANALYSIS_TIMEOUT", 60*time.Second),
		},
		Billing: BillingConfig{
			LowCreditThreshold: int64(getEnvInt("BILLING_LOW_CREDIT_THRESHOLD", 3)),
			SignupCredits:      int64(getEnvInt("BILLING_SIGNUP_CREDITS", 5)),
		},
	}

	if cfg.Auth.JWTSecret == "" {
		logx.Fatal("JWT_SECRET must be set")
	}

	return cfg
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"fastpayment/internal/cache"
	"fastpayment/internal/database"
	"fastpayment/internal/external"
	"fastpayment/internal/mailer"
	"fastpayment/internal/messaging"

	"github.com/joho/godotenv"
)

// Config содержит конфигурацию приложения
type Config struct {
	Port           string
	GinMode        string
	LogLevel       string
	LogFormat      string
	RequestTimeout time.Duration
	CORSOrigin     string

	// Performance monitoring
	PprofEnabled bool
	PprofPort    string

	Database      database.Config
	NATS          messaging.Config
	Valkey        cache.Config
	Elasticsearch ElasticsearchConfig
	MercadoPago   external.MercadoPagoConfig
	Mail          mailer.Config
	Auth          AuthConfig
	Schedules     SchedulePolicy
	OTP           OTPPolicy

	SweepCron string
}

// ElasticsearchConfig describes the optional history search index.
type ElasticsearchConfig struct {
	Enabled    bool
	URL        string
	Index      string
	Username   string
	Password   string
	MaxRetries int
	Timeout    time.Duration
}

// AuthConfig holds bearer token settings.
type AuthConfig struct {
	JWTSecret string
	ClientTTL time.Duration
	AdminTTL  time.Duration
}

// SchedulePolicy controls the lifecycle rules of bookable schedules.
type SchedulePolicy struct {
	MinLeadTime time.Duration
	// ReopenOnCapacity lets an unavailable schedule become available again when
	// an admin raises its vacancies and it starts after ReopenMargin.
	ReopenOnCapacity bool
	ReopenMargin     time.Duration
}

// OTPPolicy controls one-time code issuance.
type OTPPolicy struct {
	TTL        time.Duration
	RateLimit  int
	RateWindow time.Duration
}

// DevJWTSecret подписывает токены только в локальной разработке
const DevJWTSecret = "change-me"

const minJWTSecretLen = 32

// Load загружает конфигурацию из переменных окружения
func Load() *Config {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	return &Config{
		Port:           getEnv("PORT", "8081"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT_SEC", 30)) * time.Second,
		CORSOrigin:     getEnv("CORS_ORIGIN", "http://localhost:5173"),

		PprofEnabled: getEnvBool("PPROF_ENABLED", false),
		PprofPort:    getEnv("PPROF_PORT", "6060"),

		Database: database.Config{
			Host:               getEnv("DB_HOST", "localhost"),
			Port:               getEnvInt("DB_PORT", 5432),
			User:               getEnv("DB_USER", "fastpayment"),
			Password:           getEnv("DB_PASSWORD", "fastpayment"),
			DBName:             getEnv("DB_NAME", "fastpayment"),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 50),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetimeMin: getEnvInt("DB_CONN_MAX_LIFETIME_MIN", 5),
			ConnMaxIdleTimeMin: getEnvInt("DB_CONN_MAX_IDLE_TIME_MIN", 1),
		},

		NATS: messaging.Config{
			URL:       getEnv("NATS_URL", "nats://localhost:4222"),
			ClusterID: getEnv("NATS_CLUSTER_ID", "fastpayment"),
			ClientID:  getEnv("NATS_CLIENT_ID", "fastpayment-api"),
		},

		Valkey: cache.Config{
			Addr:     getEnv("VALKEY_ADDR", "localhost:6379"),
			Password: os.Getenv("VALKEY_PASSWORD"),
		},

		Elasticsearch: ElasticsearchConfig{
			Enabled:    getEnvBool("ELASTICSEARCH_ENABLED", true),
			URL:        getEnv("ELASTICSEARCH_URL", "http://localhost:9200"),
			Index:      getEnv("ELASTICSEARCH_INDEX", "history_logs"),
			Username:   os.Getenv("ELASTICSEARCH_USERNAME"),
			Password:   os.Getenv("ELASTICSEARCH_PASSWORD"),
			MaxRetries: getEnvInt("ELASTICSEARCH_MAX_RETRIES", 3),
			Timeout:    getEnvDuration("ELASTICSEARCH_TIMEOUT", 30*time.Second),
		},

		MercadoPago: external.MercadoPagoConfig{
			BaseURL:         getEnv("MP_BASE_URL", "https://api.mercadopago.com"),
			AccessToken:     strings.TrimSpace(os.Getenv("MP_ACCESS_TOKEN")),
			Timeout:         time.Duration(getEnvInt("MP_TIMEOUT_SEC", 10)) * time.Second,
			MaxRetries:      getEnvInt("MP_MAX_RETRIES", 2),
			NotificationURL: os.Getenv("MP_NOTIFICATION_URL"),
			SuccessURL:      os.Getenv("MP_SUCCESS_URL"),
			FailureURL:      os.Getenv("MP_FAILURE_URL"),
			Currency:        getEnv("CHECKOUT_CURRENCY", "BRL"),
		},

		Mail: mailer.Config{
			Host:     getEnv("SMTP_HOST", "localhost"),
			Port:     getEnvInt("SMTP_PORT", 587),
			User:     os.Getenv("SMTP_USER"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     getEnv("MAIL_FROM", "no-reply@fastpayment.local"),
			FromName: getEnv("MAIL_FROM_NAME", "FastPayment"),
		},

		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", DevJWTSecret),
			ClientTTL: time.Duration(getEnvInt("JWT_CLIENT_TTL_MIN", 60)) * time.Minute,
			AdminTTL:  time.Duration(getEnvInt("JWT_ADMIN_TTL_MIN", 480)) * time.Minute,
		},

		Schedules: SchedulePolicy{
			MinLeadTime:      time.Duration(getEnvInt("SCHEDULE_MIN_LEAD_MIN", 60)) * time.Minute,
			ReopenOnCapacity: getEnvBool("SCHEDULE_REOPEN_ON_CAPACITY", false),
			ReopenMargin:     time.Duration(getEnvInt("SCHEDULE_REOPEN_MARGIN_MIN", 60)) * time.Minute,
		},

		OTP: OTPPolicy{
			TTL:        time.Duration(getEnvInt("OTP_TTL_MIN", 5)) * time.Minute,
			RateLimit:  getEnvInt("OTP_RATE_LIMIT", 5),
			RateWindow: time.Duration(getEnvInt("OTP_RATE_WINDOW_MIN", 15)) * time.Minute,
		},

		SweepCron: getEnv("SWEEP_CRON", "@every 1m"),
	}
}

// Validate rejects settings that are unsafe outside debug and test modes.
func (c *Config) Validate() error {
	if c.GinMode != "release" {
		return nil
	}
	secret := strings.TrimSpace(c.Auth.JWTSecret)
	if secret == "" || secret == DevJWTSecret {
		return fmt.Errorf("JWT_SECRET must be set in release mode")
	}
	if len(secret) < minJWTSecretLen {
		return fmt.Errorf("JWT_SECRET must be at least %d characters in release mode", minJWTSecretLen)
	}
	return nil
}

// getEnv получает значение переменной окружения или возвращает значение по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt получает целочисленное значение переменной окружения
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go duration strings such as "30s" or "2m".
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN renders the GORM/pgx connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// KafkaConfig holds Kafka connection settings.
type KafkaConfig struct {
	Brokers     []string
	GroupPrefix string
}

// ServiceConfig holds all configuration for the availability service.
type ServiceConfig struct {
	Port        string
	AppEnv      string
	JWTSecret   string
	LockWait    time.Duration
	RateLimit   int
	DBConfig    DatabaseConfig
	KafkaConfig KafkaConfig
}

// Load reads configuration from AVAIL_-prefixed environment variables with
// sensible development defaults.
func Load() (*ServiceConfig, error) {
	v := viper.New()
	v.SetEnvPrefix("AVAIL")
	v.AutomaticEnv()

	v.SetDefault("SERVICE_PORT", "8083")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("BOOKING_LOCK_WAIT", "3s")
	v.SetDefault("RATE_LIMIT_PER_MIN", 120)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "availability")
	v.SetDefault("DB_SSLMODE", "disable")

	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("KAFKA_GROUP_PREFIX", "homestay.")

	lockWait, err := time.ParseDuration(v.GetString("BOOKING_LOCK_WAIT"))
	if err != nil {
		return nil, fmt.Errorf("invalid AVAIL_BOOKING_LOCK_WAIT: %w", err)
	}

	cfg := &ServiceConfig{
		Port:      ":" + strings.TrimPrefix(v.GetString("SERVICE_PORT"), ":"),
		AppEnv:    v.GetString("APP_ENV"),
		JWTSecret: v.GetString("JWT_SECRET"),
		LockWait:  lockWait,
		RateLimit: v.GetInt("RATE_LIMIT_PER_MIN"),
		DBConfig: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetInt("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		KafkaConfig: KafkaConfig{
			Brokers:     strings.Split(v.GetString("KAFKA_BROKERS"), ","),
			GroupPrefix: v.GetString("KAFKA_GROUP_PREFIX"),
		},
	}

	if cfg.AppEnv != "development" && cfg.JWTSecret == "" {
		return nil, fmt.Errorf("AVAIL_JWT_SECRET is required outside development")
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "dev-only-insecure-secret"
	}

	return cfg, nil
}

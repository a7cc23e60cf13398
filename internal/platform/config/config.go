package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Addr                 string
	DatabaseURL          string
	JWTSecret            string
	DataEncryptionKey    string
	Environment          string
	LogLevel             string
	LogFormat            string
	TaxTableFile         string
	EmailFrom            string
	EmailEnabled         bool
	SMTPHost             string
	SMTPPort             int
	SMTPUser             string
	SMTPPassword         string
	SMTPUseTLS           bool
	RunMigrations        bool
	RunSeed              bool
	SeedTutorID          string
	SeedTutorEmail       string
	SeedTutorRate        string
	MaxBodyBytes         int64
	RateLimitPerMinute   int
	MetricsEnabled       bool
	RedisAddr            string
	RedisPassword        string
	RedisDB              int
	// LockTTL is the Redis lock lease. Holders renew it, so it only bounds how long a
	// crashed process keeps other writers for that tutor waiting.
	LockTTL              time.Duration
	KafkaBrokers         []string
	KafkaLessonsTopic    string
	KafkaGroupID         string
	LessonDescription    string
	RecalculateLaterJobs bool
}

func Load() Config {
	return Config{
		Addr:                 getEnv("APP_ADDR", ":8080"),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		JWTSecret:            getEnv("JWT_SECRET", ""),
		DataEncryptionKey:    getEnv("DATA_ENCRYPTION_KEY", ""),
		Environment:          getEnv("APP_ENV", "development"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		LogFormat:            getEnv("LOG_FORMAT", "json"),
		TaxTableFile:         getEnv("TAX_TABLE_FILE", ""),
		EmailFrom:            getEnv("EMAIL_FROM", "payroll@tutordesk.local"),
		EmailEnabled:         getEnvBool("EMAIL_ENABLED", false),
		SMTPHost:             getEnv("SMTP_HOST", ""),
		SMTPPort:             getEnvInt("SMTP_PORT", 587),
		SMTPUser:             getEnv("SMTP_USER", ""),
		SMTPPassword:         getEnv("SMTP_PASSWORD", ""),
		SMTPUseTLS:           getEnvBool("SMTP_USE_TLS", true),
		RunMigrations:        getEnvBool("RUN_MIGRATIONS", true),
		RunSeed:              getEnvBool("RUN_SEED", false),
		SeedTutorID:          getEnv("SEED_TUTOR_ID", "demo-tutor"),
		SeedTutorEmail:       getEnv("SEED_TUTOR_EMAIL", ""),
		SeedTutorRate:        getEnv("SEED_TUTOR_RATE", "250"),
		MaxBodyBytes:         int64(getEnvInt("MAX_BODY_BYTES", 1048576)),
		RateLimitPerMinute:   getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
		MetricsEnabled:       getEnvBool("METRICS_ENABLED", true),
		RedisAddr:            getEnv("REDIS_ADDR", ""),
		RedisPassword:        getEnv("REDIS_PASSWORD", ""),
		RedisDB:              getEnvInt("REDIS_DB", 0),
		LockTTL:              getEnvDuration("PAYROLL_LOCK_TTL", 30*time.Second),
		KafkaBrokers:         getEnvList("KAFKA_BROKERS"),
		KafkaLessonsTopic:    getEnv("KAFKA_LESSONS_TOPIC", "lessons.completed"),
		KafkaGroupID:         getEnv("KAFKA_GROUP_ID", "tutordesk-payroll"),
		LessonDescription:    getEnv("LESSON_DESCRIPTION_FORMAT", "Lesson with %s"),
		RecalculateLaterJobs: getEnvBool("PAYROLL_RECALCULATE_LATER_DRAFTS", true),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

// getEnvList splits a comma separated value, dropping blanks.
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Environment == "production" {
		if strings.TrimSpace(c.JWTSecret) == "" {
			return fmt.Errorf("JWT_SECRET must be set to a strong value in production")
		}
		if strings.TrimSpace(c.DataEncryptionKey) == "" {
			return fmt.Errorf("DATA_ENCRYPTION_KEY must be set in production for encryption at rest")
		}
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if c.EmailEnabled && c.SMTPHost == "" {
		return fmt.Errorf("SMTP_HOST must be set when EMAIL_ENABLED is true")
	}
	if c.LockTTL < time.Second {
		return fmt.Errorf("PAYROLL_LOCK_TTL must be at least 1s")
	}
	if c.KafkaEnabled() && strings.TrimSpace(c.KafkaLessonsTopic) == "" {
		return fmt.Errorf("KAFKA_LESSONS_TOPIC must be set when KAFKA_BROKERS is set")
	}
	if strings.Count(c.LessonDescription, "%s") != 1 {
		return fmt.Errorf("LESSON_DESCRIPTION_FORMAT must contain exactly one %%s")
	}
	switch strings.ToLower(c.LogFormat) {
	case "json", "text":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or text")
	}
	return nil
}

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultJWTSecret = "change-me-in-production"

// Config holds application configuration loaded from environment.
type Config struct {
	Server    ServerConfig
	Mongo     MongoConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Scheduler SchedulerConfig
	Delivery  DeliveryConfig
	Invoice   InvoiceConfig
	Uploads   UploadConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	CORSAllowedOrigins []string
}

// MongoConfig holds the document store connection.
type MongoConfig struct {
	URI      string
	Database string
}

// RedisConfig holds Redis connection settings. An empty Addr disables Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig holds JWT signing and validation settings.
type JWTConfig struct {
	Secret      string
	ExpireHours int
}

// DefaultSecret reports whether the signing secret was left at its development value.
func (c JWTConfig) DefaultSecret() bool {
	return c.Secret == defaultJWTSecret
}

// SchedulerConfig holds background job timing.
type SchedulerConfig struct {
	AutoAssignInterval time.Duration
	AutoAssignDelay    time.Duration
	ReminderInterval   time.Duration
	ReminderWindow     time.Duration
}

// DeliveryConfig gates outbound e-mail and SMS. Disabled channels only log.
type DeliveryConfig struct {
	EmailEnabled bool
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPass     string
	SMTPFrom     string

	SMSEnabled       bool
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFrom       string
}

// InvoiceConfig holds the company and bank details printed on invoices.
type InvoiceConfig struct {
	CompanyName    string
	CompanyAddress string
	CompanyPhone   string
	CompanyEmail   string
	GSTTaxID       string
	BankName       string
	AccountName    string
	AccountNumber  string
	IFSCSwift      string
	PaymentDays    int
}

// UploadConfig holds the local directory for profile pictures.
type UploadConfig struct {
	Dir string
}

// RateLimitConfig holds the per-client token bucket.
type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	port := getEnv("PORT", "8080")
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:               port,
			CORSAllowedOrigins: splitTrim(getEnv("CORS_ALLOWED_ORIGINS", "*"), ","),
		},
		Mongo: MongoConfig{
			URI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
			Database: getEnv("MONGO_DB", "movment"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", defaultJWTSecret),
			ExpireHours: getEnvInt("JWT_EXPIRE_HOURS", 24*7),
		},
		Scheduler: SchedulerConfig{
			AutoAssignInterval: getEnvDuration("AUTO_ASSIGN_INTERVAL", time.Minute),
			AutoAssignDelay:    getEnvDuration("AUTO_ASSIGN_DELAY", 15*time.Minute),
			ReminderInterval:   getEnvDuration("REMINDER_INTERVAL", 6*time.Hour),
			ReminderWindow:     getEnvDuration("REMINDER_WINDOW", 24*time.Hour),
		},
		Delivery: DeliveryConfig{
			EmailEnabled:     getEnvBool("EMAIL_ENABLED", false),
			SMTPHost:         getEnv("SMTP_HOST", ""),
			SMTPPort:         getEnvInt("SMTP_PORT", 587),
			SMTPUser:         getEnv("SMTP_USER", ""),
			SMTPPass:         getEnv("SMTP_PASS", ""),
			SMTPFrom:         getEnv("SMTP_FROM", ""),
			SMSEnabled:       getEnvBool("SMS_ENABLED", false),
			TwilioAccountSID: getEnv("TWILIO_ACCOUNT_SID", ""),
			TwilioAuthToken:  getEnv("TWILIO_AUTH_TOKEN", ""),
			TwilioFrom:       getEnv("TWILIO_FROM", ""),
		},
		Invoice: InvoiceConfig{
			CompanyName:    getEnv("INVOICE_COMPANY_NAME", "Mov-Ment"),
			CompanyAddress: getEnv("INVOICE_COMPANY_ADDRESS", "Event Management Office"),
			CompanyPhone:   getEnv("INVOICE_COMPANY_PHONE", ""),
			CompanyEmail:   getEnv("INVOICE_COMPANY_EMAIL", "contact@mov-ment.com"),
			GSTTaxID:       getEnv("INVOICE_GST_TAX_ID", ""),
			BankName:       getEnv("INVOICE_BANK_NAME", ""),
			AccountName:    getEnv("INVOICE_ACCOUNT_NAME", ""),
			AccountNumber:  getEnv("INVOICE_ACCOUNT_NUMBER", ""),
			IFSCSwift:      getEnv("INVOICE_IFSC_SWIFT", ""),
			PaymentDays:    getEnvInt("INVOICE_PAYMENT_DAYS", 7),
		},
		Uploads: UploadConfig{
			Dir: getEnv("UPLOAD_DIR", "static/uploads"),
		},
		RateLimit: RateLimitConfig{
			RPS:   getEnvFloat("RATE_LIMIT_RPS", 5),
			Burst: getEnvInt("RATE_LIMIT_BURST", 10),
		},
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration accepts Go durations ("90s") or a bare number of seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return fallback
}

func splitTrim(s, sep string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, v := range strings.Split(s, sep) {
		if t := strings.TrimSpace(v); t != "" {
			out = append(out, t)
		}
	}
	return out
}

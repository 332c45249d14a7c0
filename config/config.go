package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig       `envPrefix:"APP_"`
	Server    ServerConfig    `envPrefix:"SERVER_"`
	Log       LogConfig       `envPrefix:"LOG_"`
	Database  DatabaseConfig  `envPrefix:"DATABASE_"`
	Redis     RedisConfig     `envPrefix:"REDIS_"`
	Mail      MailConfig      `envPrefix:"MAIL_"`
	SMS       SMSConfig       `envPrefix:"SMS_"`
	OTP       OTPConfig       `envPrefix:"OTP_"`
	JWT       JWTConfig       `envPrefix:"JWT_"`
	RateLimit RateLimitConfig `envPrefix:"RATE_LIMIT_"`
}

type AppConfig struct {
	Name string `env:"NAME" envDefault:"otpgate"`
	URL  string `env:"URL" envDefault:"http://localhost:8080"`
}

type ServerConfig struct {
	Port string `env:"PORT" envDefault:"8080"`
	Host string `env:"HOST" envDefault:"localhost"`
	// TrustedProxies lists IPs or CIDRs whose X-Forwarded-For is honoured.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`
}

type LogConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"json"`
	Output string `env:"OUTPUT" envDefault:"stdout"`
	// Rotation settings only apply when Output is a file path.
	MaxSizeMB  int  `env:"MAX_SIZE_MB" envDefault:"100"`
	MaxBackups int  `env:"MAX_BACKUPS" envDefault:"5"`
	MaxAgeDays int  `env:"MAX_AGE_DAYS" envDefault:"30"`
	Compress   bool `env:"COMPRESS" envDefault:"true"`
}

type DatabaseConfig struct {
	Driver      string `env:"DRIVER" envDefault:"sqlite"`
	DSN         string `env:"DSN" envDefault:"otpgate.db"`
	AutoMigrate bool   `env:"AUTO_MIGRATE" envDefault:"true"`
}

type RedisConfig struct {
	Addr     string `env:"ADDR" envDefault:"localhost:6379"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
	Prefix   string `env:"PREFIX" envDefault:"otp:"`
}

type MailConfig struct {
	Host         string `env:"HOST" envDefault:"localhost"`
	Port         int    `env:"PORT" envDefault:"587"`
	Username     string `env:"USERNAME"`
	Password     string `env:"PASSWORD"`
	Encryption   string `env:"ENCRYPTION" envDefault:"tls"`
	FromAddress  string `env:"FROM_ADDRESS"`
	FromName     string `env:"FROM_NAME"`
	TemplatesDir string `env:"TEMPLATES_DIR"`
}

type SMSConfig struct {
	BaseURL string        `env:"BASE_URL"`
	APIKey  string        `env:"API_KEY"`
	Sender  string        `env:"SENDER"`
	Timeout time.Duration `env:"TIMEOUT" envDefault:"15s"`
}

// OTPStore values.
const (
	OTPStoreDatabase = "database"
	OTPStoreRedis    = "redis"
)

type OTPConfig struct {
	Store                     string        `env:"STORE" envDefault:"database"`
	Expiry                    time.Duration `env:"EXPIRY" envDefault:"10m"`
	DiscloseOnDeliveryFailure bool          `env:"DISCLOSE_ON_DELIVERY_FAILURE" envDefault:"false"`
	EmailTemplate             string        `env:"EMAIL_TEMPLATE" envDefault:"otp_code"`
	ReceiptsEnabled           bool          `env:"RECEIPTS_ENABLED" envDefault:"true"`
}

type JWTConfig struct {
	SecretKey     string        `env:"SECRET_KEY"`
	Issuer        string        `env:"ISSUER" envDefault:"otpgate"`
	ReceiptExpiry time.Duration `env:"RECEIPT_EXPIRY" envDefault:"5m"`
}

type CountingMode string

const (
	CountAll      CountingMode = "all"
	CountFailures CountingMode = "failures"
	CountSuccess  CountingMode = "success"
)

type RateLimitConfig struct {
	Store        string        `env:"STORE" envDefault:"memory"`
	IssueRate    int           `env:"ISSUE_RATE" envDefault:"5"`
	IssuePeriod  time.Duration `env:"ISSUE_PERIOD" envDefault:"10m"`
	VerifyRate   int           `env:"VERIFY_RATE" envDefault:"10"`
	VerifyPeriod time.Duration `env:"VERIFY_PERIOD" envDefault:"10m"`
}

func LoadConfig(cfg any) error {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	if err := env.Parse(cfg); err != nil {
		return err
	}

	if c, ok := cfg.(*Config); ok {
		return c.Validate()
	}

	return nil
}

func (c *Config) Validate() error {
	if err := validateOTPConfig(&c.OTP); err != nil {
		return err
	}

	if c.OTP.ReceiptsEnabled {
		if err := validateJWTConfig(&c.JWT); err != nil {
			return err
		}
	}

	return nil
}

func validateOTPConfig(cfg *OTPConfig) error {
	switch cfg.Store {
	case OTPStoreDatabase, OTPStoreRedis:
	default:
		return fmt.Errorf("OTP store must be: %s or %s", OTPStoreDatabase, OTPStoreRedis)
	}

	if cfg.Expiry <= 0 {
		return fmt.Errorf("OTP expiry must be positive")
	}

	return nil
}

func validateJWTConfig(cfg *JWTConfig) error {
	if cfg.SecretKey == "" {
		return fmt.Errorf("JWT secret key is required when verification receipts are enabled")
	}

	if len(cfg.SecretKey) < 32 {
		return fmt.Errorf("JWT secret key must be at least 32 characters long")
	}

	lower := strings.ToLower(cfg.SecretKey)
	for _, pattern := range []string{"password", "secret", "example", "default", "change"} {
		if strings.Contains(lower, pattern) {
			return fmt.Errorf("JWT secret key contains weak patterns")
		}
	}

	if cfg.ReceiptExpiry <= 0 {
		return fmt.Errorf("JWT receipt expiry must be positive")
	}

	return nil
}

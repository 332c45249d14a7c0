package testutils

import (
	"time"

	"github.com/tech-arch1tect/otpgate/config"
)

const TestJWTSecret = "k9x2m7q4v8r1t6y3u5w0z2a8c4e6g1j3"

func GetTestConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Name: "OTP Gate",
			URL:  "http://localhost:8080",
		},
		Server: config.ServerConfig{
			Host: "localhost",
			Port: "8080",
		},
		Log: config.LogConfig{
			Level:  "debug",
			Format: "console",
			Output: "stdout",
		},
		Database: config.DatabaseConfig{
			Driver:      "sqlite",
			DSN:         ":memory:",
			AutoMigrate: true,
		},
		Redis: config.RedisConfig{
			Addr:   "localhost:6379",
			Prefix: "otptest:",
		},
		Mail: config.MailConfig{
			Host:        "localhost",
			Port:        1025,
			Encryption:  "none",
			FromAddress: "noreply@example.com",
			FromName:    "OTP Gate",
		},
		OTP: config.OTPConfig{
			Store:           config.OTPStoreDatabase,
			Expiry:          10 * time.Minute,
			EmailTemplate:   "otp_code",
			ReceiptsEnabled: true,
		},
		JWT: config.JWTConfig{
			SecretKey:     TestJWTSecret,
			Issuer:        "otpgate-test",
			ReceiptExpiry: 5 * time.Minute,
		},
		RateLimit: config.RateLimitConfig{
			Store:        "memory",
			IssueRate:    5,
			IssuePeriod:  10 * time.Minute,
			VerifyRate:   10,
			VerifyPeriod: 10 * time.Minute,
		},
	}
}

// TestChallenges are fixed inputs for issuing challenges in tests.
var TestChallenges = struct {
	Email struct {
		Destination   string
		RecipientName string
	}
	SMS struct {
		Destination   string
		RecipientName string
	}
}{
	Email: struct {
		Destination   string
		RecipientName string
	}{
		Destination:   "ada@example.com",
		RecipientName: "Ada",
	},
	SMS: struct {
		Destination   string
		RecipientName string
	}{
		Destination:   "+15551234567",
		RecipientName: "Grace",
	},
}

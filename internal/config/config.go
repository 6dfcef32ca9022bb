package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

type Config struct {
	// HTTP server
	Port string

	// Database
	DBPath string

	// AMQP event publishing (optional; empty URL disables it)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Background jobs
	JobInterval time.Duration

	// Sessions and credentials
	SessionWindow time.Duration
	ResetTokenTTL time.Duration
	BcryptCost    int
	// PasswordSalt seeds the stored salt on first boot only. Once the
	// metadata table holds a salt, this value is ignored.
	PasswordSalt string

	// Password-reset email
	SMTPHost string
	SMTPPort string
	SMTPUser string
	SMTPPass string
	SMTPFrom string
	BaseURL  string
}

func Load() *Config {
	return &Config{
		Port:   getEnv("PORT", "8080"),
		DBPath: getEnv("TALLY_DB_PATH", "./data/tally.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "tally"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_events"),

		JobInterval: getEnvDuration("TALLY_JOB_INTERVAL", time.Hour),

		SessionWindow: getEnvDuration("TALLY_SESSION_WINDOW", 14*24*time.Hour),
		ResetTokenTTL: getEnvDuration("TALLY_RESET_TOKEN_TTL", 30*time.Minute),
		BcryptCost:    getEnvInt("TALLY_BCRYPT_COST", 10),
		PasswordSalt:  getEnv("TALLY_PW_SALT", ""),

		SMTPHost: getEnv("TALLY_SMTP_HOST", ""),
		SMTPPort: getEnv("TALLY_SMTP_PORT", "587"),
		SMTPUser: getEnv("TALLY_SMTP_USER", ""),
		SMTPPass: getEnv("TALLY_SMTP_PASS", ""),
		SMTPFrom: getEnv("TALLY_SMTP_FROM", ""),
		BaseURL:  getEnv("TALLY_BASE_URL", "http://localhost:8080"),
	}
}

// Validate checks the configuration and returns every problem at once.
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.DBPath == "" {
		errs = append(errs, "database path cannot be empty")
	} else if dir := filepath.Dir(c.DBPath); dir != "." && dir != "" {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0755); err != nil {
				errs = append(errs, fmt.Sprintf("cannot create database directory '%s': %v", dir, err))
			}
		}
	}

	if c.AMQPURL != "" {
		if parsed, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsed.Scheme != "amqp" && parsed.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsed.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.JobInterval < time.Second {
		errs = append(errs, fmt.Sprintf("invalid job interval %v: must be at least 1 second", c.JobInterval))
	} else if c.JobInterval > 24*time.Hour {
		errs = append(errs, fmt.Sprintf("invalid job interval %v: must be at most 24 hours", c.JobInterval))
	}

	if c.SessionWindow < time.Minute {
		errs = append(errs, fmt.Sprintf("invalid session window %v: must be at least 1 minute", c.SessionWindow))
	}
	if c.ResetTokenTTL < time.Minute {
		errs = append(errs, fmt.Sprintf("invalid reset token TTL %v: must be at least 1 minute", c.ResetTokenTTL))
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Sprintf("invalid bcrypt cost %d: must be between %d and %d", c.BcryptCost, bcrypt.MinCost, bcrypt.MaxCost))
	}

	if c.SMTPHost != "" {
		if c.SMTPFrom == "" {
			errs = append(errs, "SMTP from address cannot be empty when SMTP host is provided")
		}
		if _, err := strconv.Atoi(c.SMTPPort); err != nil {
			errs = append(errs, fmt.Sprintf("invalid SMTP port '%s': must be a number", c.SMTPPort))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

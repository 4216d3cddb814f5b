/*
Package config loads server settings from the environment.

PURPOSE:
  An optional .env file is read first (variables already set in the process
  win), then every key falls back to its default. Values are parsed once
  here so the rest of the server works with typed settings.

KEYS:
  PORT                 HTTP port (8080)
  DATABASE_PATH        SQLite file, ":memory:" allowed (allowance.db)
  JWT_SECRET           HMAC key for bearer tokens
  WEEKEND_RATE         Amount per weekend day (3500)
  HOLIDAY_RATE         Amount per public holiday (15000)
  UNKNOWN_DATE_POLICY  reject | ordinary (reject)
  LOG_LEVEL            logrus level (info)
  LOG_FORMAT           text | json (text)
  ALLOWED_ORIGINS      Comma separated CORS origins
  NOTIFY_BUFFER        Notification queue size (64)
  CALENDAR_FILE        JSON calendar imported on start

SEE ALSO:
  - cmd/server/main.go: Flags that override these values
*/
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/sarahuu/EGBIN-SSP/allowance"
	"github.com/sarahuu/EGBIN-SSP/generic"
)

type Config struct {
	Port              int
	DatabasePath      string
	JWTSecret         string
	Rates             generic.Rates
	UnknownDatePolicy allowance.UnknownDatePolicy
	LogLevel          logrus.Level
	LogFormat         string
	AllowedOrigins    []string
	NotifyBuffer      int
	CalendarFile      string
}

// Load reads files (default ".env") into the environment and builds the
// configuration. Missing files are skipped.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	cfg := &Config{
		DatabasePath:   getEnv("DATABASE_PATH", "allowance.db"),
		JWTSecret:      getEnv("JWT_SECRET", ""),
		LogFormat:      strings.ToLower(getEnv("LOG_FORMAT", "text")),
		AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
		CalendarFile:   getEnv("CALENDAR_FILE", ""),
	}

	var err error
	if cfg.Port, err = getEnvAsInt("PORT", 8080); err != nil {
		return nil, err
	}
	if cfg.NotifyBuffer, err = getEnvAsInt("NOTIFY_BUFFER", 64); err != nil {
		return nil, err
	}
	defaults := generic.DefaultRates()
	if cfg.Rates.Weekend, err = getEnvAsAmount("WEEKEND_RATE", defaults.Weekend); err != nil {
		return nil, err
	}
	if cfg.Rates.Holiday, err = getEnvAsAmount("HOLIDAY_RATE", defaults.Holiday); err != nil {
		return nil, err
	}
	if cfg.UnknownDatePolicy, err = allowance.ParseUnknownDatePolicy(getEnv("UNKNOWN_DATE_POLICY", string(allowance.RejectUnknownDates))); err != nil {
		return nil, fmt.Errorf("UNKNOWN_DATE_POLICY: %w", err)
	}
	if cfg.LogLevel, err = logrus.ParseLevel(getEnv("LOG_LEVEL", "info")); err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, fmt.Errorf("LOG_FORMAT: must be text or json, got %q", cfg.LogFormat)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("PORT: %d is out of range", cfg.Port)
	}
	if cfg.NotifyBuffer < 0 {
		return nil, fmt.Errorf("NOTIFY_BUFFER: must not be negative")
	}
	return cfg, nil
}

// Logger builds the logger described by LOG_LEVEL and LOG_FORMAT.
func (c *Config) Logger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(c.LogLevel)
	if c.LogFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log
}

func getEnv(key string, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return defaultVal
}

func getEnvAsInt(name string, defaultVal int) (int, error) {
	raw := getEnv(name, "")
	if raw == "" {
		return defaultVal, nil
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", name, raw)
	}
	return val, nil
}

func getEnvAsList(name string, defaultVal []string) []string {
	raw := getEnv(name, "")
	if raw == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvAsAmount(name string, defaultVal generic.Amount) (generic.Amount, error) {
	raw := getEnv(name, "")
	if raw == "" {
		return defaultVal, nil
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return generic.Amount{}, fmt.Errorf("%s: invalid amount %q", name, raw)
	}
	if v.IsNegative() {
		return generic.Amount{}, fmt.Errorf("%s: must not be negative", name)
	}
	return generic.NewAmount(v, defaultVal.Currency), nil
}

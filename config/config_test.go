package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sarahuu/EGBIN-SSP/allowance"
	"github.com/sarahuu/EGBIN-SSP/generic"
)

var keys = []string{
	"PORT", "DATABASE_PATH", "JWT_SECRET", "WEEKEND_RATE", "HOLIDAY_RATE",
	"UNKNOWN_DATE_POLICY", "LOG_LEVEL", "LOG_FORMAT", "ALLOWED_ORIGINS",
	"NOTIFY_BUFFER", "CALENDAR_FILE",
}

// clearEnv blanks every key for the test; empty values fall back to defaults.
func clearEnv(t *testing.T) {
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func missingFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(missingFile(t))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "allowance.db", cfg.DatabasePath)
	assert.Empty(t, cfg.JWTSecret)
	assert.True(t, cfg.Rates.Weekend.Equal(generic.NewAmountFromInt(3500, generic.CurrencyNGN)))
	assert.True(t, cfg.Rates.Holiday.Equal(generic.NewAmountFromInt(15000, generic.CurrencyNGN)))
	assert.Equal(t, allowance.RejectUnknownDates, cfg.UnknownDatePolicy)
	assert.Equal(t, logrus.InfoLevel, cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.AllowedOrigins)
	assert.Equal(t, 64, cfg.NotifyBuffer)
	assert.Empty(t, cfg.CalendarFile)
}

func TestLoad_FromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_PATH", ":memory:")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("WEEKEND_RATE", "4000.50")
	t.Setenv("UNKNOWN_DATE_POLICY", "ordinary")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "JSON")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("NOTIFY_BUFFER", "8")

	cfg, err := Load(missingFile(t))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, ":memory:", cfg.DatabasePath)
	assert.Equal(t, "s3cret", cfg.JWTSecret)
	assert.Equal(t, "4000.50", cfg.Rates.Weekend.String())
	assert.Equal(t, "15000.00", cfg.Rates.Holiday.String())
	assert.Equal(t, allowance.OrdinaryUnknownDates, cfg.UnknownDatePolicy)
	assert.Equal(t, logrus.DebugLevel, cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, 8, cfg.NotifyBuffer)

	_, isJSON := cfg.Logger().Formatter.(*logrus.JSONFormatter)
	assert.True(t, isJSON)
}

func TestLoad_DotEnvDoesNotOverrideProcess(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "from-process")
	// Unset so the file can provide it; t.Setenv restores it afterwards.
	t.Setenv("CALENDAR_FILE", "")
	require.NoError(t, os.Unsetenv("CALENDAR_FILE"))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("JWT_SECRET=from-file\nCALENDAR_FILE=calendar.json\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-process", cfg.JWTSecret)
	assert.Equal(t, "calendar.json", cfg.CalendarFile)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"WEEKEND_RATE", "abc"},
		{"HOLIDAY_RATE", "-1"},
		{"UNKNOWN_DATE_POLICY", "ignore"},
		{"LOG_LEVEL", "loud"},
		{"LOG_FORMAT", "xml"},
		{"PORT", "70000"},
		{"PORT", "80a"},
		{"NOTIFY_BUFFER", "lots"},
		{"NOTIFY_BUFFER", "-1"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			cfg, err := Load(missingFile(t))
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

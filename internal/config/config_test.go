package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoicing/internal/apperr"
)

const secret = "0123456789abcdef0123456789abcdef"

var allKeys = []string{
	"ENV", "HTTP_ADDR", "DB_DRIVER", "SQLITE_PATH", "DATABASE_URL",
	"PG_HOST", "PG_PORT", "PG_USER", "PG_PASSWORD", "PG_DATABASE", "PG_SSLMODE",
	"JWT_SECRET", "JWT_ISSUER", "RATE_LIMIT_INTERVAL", "UPLOAD_DIR", "MAX_IMAGE_BYTES",
	"EXCHANGE_URL", "BASE_CURRENCY", "EXCHANGE_TIMEOUT", "HELP_BASE_URL", "HEALTH_CRON",
	"LOG_CONSOLE_LEVEL", "LOG_FILE_LEVEL", "LOG_FILE",
}

func setEnv(t *testing.T, kv map[string]string) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
	}
	t.Setenv("JWT_SECRET", secret)
	for k, v := range kv {
		t.Setenv(k, v)
	}
}

func TestLoadDefaults(t *testing.T) {
	setEnv(t, nil)

	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "prod", c.Env)
	assert.False(t, c.Development())
	assert.Equal(t, ":8080", c.HTTP.Addr)
	assert.Equal(t, DriverSQLite, c.DB.Driver)
	assert.Equal(t, "data/invoicing.db", c.DB.SQLitePath)
	assert.Empty(t, c.DB.URL)
	assert.Equal(t, int64(5<<20), c.Uploads.MaxBytes)
	assert.Equal(t, "USD", c.Exchange.BaseCurrency)
	assert.Equal(t, 5*time.Second, c.Exchange.Timeout)
	assert.Equal(t, "@every 1m", c.HealthCron)
	assert.Equal(t, "info", c.Log.ConsoleLevel)
}

func TestLoadPostgres(t *testing.T) {
	setEnv(t, map[string]string{
		"DB_DRIVER":   "postgres",
		"PG_HOST":     "db",
		"PG_USER":     "app",
		"PG_DATABASE": "invoicing",
		"ENV":         "DEV",
	})

	c, err := Load()
	require.NoError(t, err)
	assert.True(t, c.Development())
	assert.Equal(t, "postgres://app@db:5432/invoicing?application_name=invoicing&sslmode=disable", c.DB.URL)

	t.Setenv("DATABASE_URL", "postgres://u:p@h/db")
	c, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@h/db", c.DB.URL)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantKey string
	}{
		{"missing secret", map[string]string{"JWT_SECRET": ""}, "JWT_SECRET"},
		{"short secret", map[string]string{"JWT_SECRET": "short"}, "JWT_SECRET"},
		{"bad env", map[string]string{"ENV": "staging"}, "ENV"},
		{"bad driver", map[string]string{"DB_DRIVER": "mysql"}, "DB_DRIVER"},
		{"bad image limit", map[string]string{"MAX_IMAGE_BYTES": "lots"}, "MAX_IMAGE_BYTES"},
		{"zero image limit", map[string]string{"MAX_IMAGE_BYTES": "0"}, "MAX_IMAGE_BYTES"},
		{"bad exchange url", map[string]string{"EXCHANGE_URL": "not a url"}, "EXCHANGE_URL"},
		{"bad currency", map[string]string{"BASE_CURRENCY": "dollar"}, "BASE_CURRENCY"},
		{"bad timeout", map[string]string{"EXCHANGE_TIMEOUT": "soon"}, "EXCHANGE_TIMEOUT"},
		{"negative rate limit", map[string]string{"RATE_LIMIT_INTERVAL": "-1s"}, "RATE_LIMIT_INTERVAL"},
		{"bad log level", map[string]string{"LOG_CONSOLE_LEVEL": "verbose"}, "LOG_CONSOLE_LEVEL"},
		{"postgres without settings", map[string]string{"DB_DRIVER": "postgres"}, "DATABASE_URL"},
		{"bad pg port", map[string]string{"DB_DRIVER": "postgres", "PG_PORT": "x"}, "PG_PORT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setEnv(t, tt.env)

			_, err := Load()

			var ce *apperr.ConfigurationError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.wantKey, ce.ConfigKey())
			assert.Equal(t, 500, ce.HTTPStatus())
		})
	}
}

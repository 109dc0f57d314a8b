// Package config loads the service configuration from the environment and
// an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"invoicing/internal/apperr"
	"invoicing/internal/platform/pg"
)

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds application configuration values.
type Config struct {
	Env  string `validate:"required,oneof=dev prod"`
	HTTP struct {
		Addr string `validate:"required"`
	}
	DB struct {
		Driver     string `validate:"required,oneof=postgres sqlite"`
		URL        string
		SQLitePath string `validate:"required_if=Driver sqlite"`
	}
	Auth struct {
		Secret    string `validate:"required,min=32"`
		Issuer    string
		RateLimit time.Duration `validate:"gte=0"`
	}
	Uploads struct {
		Dir      string `validate:"required"`
		MaxBytes int64  `validate:"gt=0"`
	}
	Exchange struct {
		URL          string `validate:"omitempty,url"`
		BaseCurrency string `validate:"required,len=3,alpha"`
		Timeout      time.Duration
	}
	HelpBaseURL string `validate:"required,url"`
	HealthCron  string `validate:"required"`
	Log         struct {
		ConsoleLevel string `validate:"required,oneof=debug info warn error critical"`
		FileLevel    string `validate:"required,oneof=debug info warn error critical"`
		File         string
	}
}

// Development reports whether diagnostics may be exposed in responses.
func (c Config) Development() bool { return c.Env == "dev" }

// envKeys maps validated fields back to the variables that set them.
var envKeys = map[string]string{
	"Config.Env":                   "ENV",
	"Config.HTTP.Addr":             "HTTP_ADDR",
	"Config.DB.Driver":             "DB_DRIVER",
	"Config.DB.SQLitePath":         "SQLITE_PATH",
	"Config.Auth.Secret":           "JWT_SECRET",
	"Config.Auth.RateLimit":        "RATE_LIMIT_INTERVAL",
	"Config.Uploads.Dir":           "UPLOAD_DIR",
	"Config.Uploads.MaxBytes":      "MAX_IMAGE_BYTES",
	"Config.Exchange.URL":          "EXCHANGE_URL",
	"Config.Exchange.BaseCurrency": "BASE_CURRENCY",
	"Config.HelpBaseURL":           "HELP_BASE_URL",
	"Config.HealthCron":            "HEALTH_CRON",
	"Config.Log.ConsoleLevel":      "LOG_CONSOLE_LEVEL",
	"Config.Log.FileLevel":         "LOG_FILE_LEVEL",
}

var validate = validator.New()

// Load reads configuration from environment variables and an optional .env
// file. Every failure is a *apperr.ConfigurationError naming the variable.
func Load() (Config, error) {
	_ = godotenv.Load()

	var c Config
	var err error

	c.Env = strings.ToLower(getenv("ENV", "prod"))
	c.HTTP.Addr = getenv("HTTP_ADDR", ":8080")

	c.DB.Driver = strings.ToLower(getenv("DB_DRIVER", DriverSQLite))
	c.DB.SQLitePath = getenv("SQLITE_PATH", "data/invoicing.db")

	c.Auth.Secret = os.Getenv("JWT_SECRET")
	c.Auth.Issuer = os.Getenv("JWT_ISSUER")
	if c.Auth.RateLimit, err = getduration("RATE_LIMIT_INTERVAL", 0); err != nil {
		return Config{}, err
	}

	c.Uploads.Dir = getenv("UPLOAD_DIR", "data/uploads")
	if c.Uploads.MaxBytes, err = getint("MAX_IMAGE_BYTES", 5<<20); err != nil {
		return Config{}, err
	}

	c.Exchange.URL = os.Getenv("EXCHANGE_URL")
	c.Exchange.BaseCurrency = strings.ToUpper(getenv("BASE_CURRENCY", "USD"))
	if c.Exchange.Timeout, err = getduration("EXCHANGE_TIMEOUT", 5*time.Second); err != nil {
		return Config{}, err
	}

	c.HelpBaseURL = getenv("HELP_BASE_URL", "https://api.facturacion.local/docs/errors/")
	c.HealthCron = getenv("HEALTH_CRON", "@every 1m")

	c.Log.ConsoleLevel = strings.ToLower(getenv("LOG_CONSOLE_LEVEL", "info"))
	c.Log.FileLevel = strings.ToLower(getenv("LOG_FILE_LEVEL", "debug"))
	c.Log.File = getenv("LOG_FILE", "data/logs/invoicing.log")

	if err := validate.Struct(c); err != nil {
		return Config{}, fromValidator(err)
	}

	if c.DB.Driver == DriverPostgres {
		if c.DB.URL, err = postgresURL(); err != nil {
			return Config{}, err
		}
	}
	return c, nil
}

// postgresURL prefers DATABASE_URL and otherwise assembles one from PG_*.
func postgresURL() (string, error) {
	if u := os.Getenv("DATABASE_URL"); u != "" {
		return u, nil
	}

	port, err := getint("PG_PORT", 5432)
	if err != nil {
		return "", err
	}
	dsn := pg.DSNConfig{
		Host:            getenv("PG_HOST", "localhost"),
		Port:            int(port),
		User:            os.Getenv("PG_USER"),
		Password:        os.Getenv("PG_PASSWORD"),
		Database:        os.Getenv("PG_DATABASE"),
		SSLMode:         getenv("PG_SSLMODE", "disable"),
		ApplicationName: "invoicing",
	}
	if err := dsn.Validate(); err != nil {
		return "", apperr.NewConfiguration("DATABASE_URL",
			"set DATABASE_URL or PG_USER and PG_DATABASE: "+err.Error(), apperr.WithCause(err))
	}
	return pg.BuildDSN(dsn), nil
}

func fromValidator(err error) error {
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) || len(ves) == 0 {
		return apperr.NewConfiguration("", "invalid configuration: "+err.Error(), apperr.WithCause(err))
	}
	fe := ves[0]
	key, ok := envKeys[fe.StructNamespace()]
	if !ok {
		key = fe.StructNamespace()
	}
	return apperr.NewConfiguration(key,
		fmt.Sprintf("%s fails %q constraint", key, describeTag(fe)),
		apperr.WithCause(err))
}

func describeTag(fe validator.FieldError) string {
	if fe.Param() == "" {
		return fe.Tag()
	}
	return fe.Tag() + "=" + fe.Param()
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int64) (int64, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, apperr.NewConfiguration(k, fmt.Sprintf("%s must be an integer, got %q", k, v), apperr.WithCause(err))
	}
	return n, nil
}

func getduration(k string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, apperr.NewConfiguration(k, fmt.Sprintf("%s must be a duration, got %q", k, v), apperr.WithCause(err))
	}
	return d, nil
}

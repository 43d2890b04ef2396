package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Source   SourceConfig
	Report   ReportConfig
	Logger   LoggerConfig
	Security SecurityConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// driverCSV matches source.DriverCSV.
const driverCSV = "csv"

type SourceConfig struct {
	Driver       string
	DSN          string `json:"-"`
	CSVDir       string
	CSVFiles     []string
	Views        []string
	FetchTimeout time.Duration
}

// ViewNames returns what the row source should be asked for: file names for
// the csv driver, table or view names otherwise.
func (s SourceConfig) ViewNames() []string {
	if s.Driver == driverCSV {
		return s.CSVFiles
	}
	return s.Views
}

type ReportConfig struct {
	Timezone     string
	AliasFile    string
	ExportPrefix string
	location     *time.Location
}

// Location is the zone used for day boundaries, buckets and the heatmap.
func (r ReportConfig) Location() *time.Location {
	if r.location == nil {
		return time.Local
	}
	return r.location
}

type LoggerConfig struct {
	Level  string
	Format string
}

type SecurityConfig struct {
	EnableRateLimit bool
	RateLimitRPS    int
	RateLimitBurst  int
	AllowedOrigins  []string
	TrustedProxies  []string
}

// Load reads the environment, after applying an optional .env file from the
// working directory. Variables already set take precedence over the file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnvString("SERVER_HOST", "localhost"),
			Port:            getEnvInt("SERVER_PORT", 8084),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:     getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Source: SourceConfig{
			Driver:       strings.ToLower(getEnvString("SOURCE_DRIVER", "csv")),
			DSN:          getEnvString("SOURCE_DSN", ""),
			CSVDir:       getEnvString("SOURCE_CSV_DIR", ""),
			CSVFiles:     getEnvStringSlice("SOURCE_CSV_FILES", []string{"data/orders.csv"}),
			Views:        getEnvStringSlice("SOURCE_VIEWS", []string{"orders", "sales"}),
			FetchTimeout: getEnvDuration("SOURCE_FETCH_TIMEOUT", 30*time.Second),
		},
		Report: ReportConfig{
			Timezone:     getEnvString("REPORT_TIMEZONE", "Local"),
			AliasFile:    getEnvString("REPORT_ALIAS_FILE", ""),
			ExportPrefix: getEnvString("EXPORT_FILENAME_PREFIX", "orders"),
		},
		Logger: LoggerConfig{
			Level:  getEnvString("LOG_LEVEL", "info"),
			Format: getEnvString("LOG_FORMAT", "json"),
		},
		Security: SecurityConfig{
			EnableRateLimit: getEnvBool("SECURITY_RATE_LIMIT_ENABLED", true),
			RateLimitRPS:    getEnvInt("SECURITY_RATE_LIMIT_RPS", 100),
			RateLimitBurst:  getEnvInt("SECURITY_RATE_LIMIT_BURST", 10),
			AllowedOrigins:  getEnvStringSlice("SECURITY_ALLOWED_ORIGINS", []string{"http://localhost:8084"}),
			TrustedProxies:  getEnvStringSlice("SECURITY_TRUSTED_PROXIES", []string{"127.0.0.1"}),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	switch c.Source.Driver {
	case driverCSV:
		if len(c.Source.CSVFiles) == 0 {
			return fmt.Errorf("at least one CSV file is required for the csv source")
		}
	case "postgres", "sqlite":
		if c.Source.DSN == "" {
			return fmt.Errorf("SOURCE_DSN is required for the %s source", c.Source.Driver)
		}
		if len(c.Source.Views) == 0 {
			return fmt.Errorf("at least one view is required for the %s source", c.Source.Driver)
		}
	default:
		return fmt.Errorf("invalid source driver %q, must be one of: csv, postgres, sqlite", c.Source.Driver)
	}

	if c.Source.FetchTimeout <= 0 {
		return fmt.Errorf("source fetch timeout must be positive")
	}

	loc, err := time.LoadLocation(c.Report.Timezone)
	if err != nil {
		return fmt.Errorf("invalid report timezone %q: %w", c.Report.Timezone, err)
	}
	c.Report.location = loc

	if c.Report.ExportPrefix == "" {
		return fmt.Errorf("export filename prefix cannot be empty")
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, c.Logger.Level) {
		return fmt.Errorf("invalid log level %q, must be one of: %s", c.Logger.Level, strings.Join(validLogLevels, ", "))
	}

	validLogFormats := []string{"json", "text"}
	if !contains(validLogFormats, c.Logger.Format) {
		return fmt.Errorf("invalid log format %q, must be one of: %s", c.Logger.Format, strings.Join(validLogFormats, ", "))
	}

	if c.Security.RateLimitRPS <= 0 {
		return fmt.Errorf("rate limit RPS must be positive")
	}

	if c.Security.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit burst must be positive")
	}

	return nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var items []string
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		return items
	}
	return defaultValue
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

package dbconfig

import (
	"fmt"
	"os"
	"strconv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds the room store connection settings. Postgres is the default; the
// sqlite driver runs a single-node relay on an embedded file.
type Config struct {
	Driver     string
	Host       string
	Port       int
	User       string
	Password   string
	Database   string
	SSLMode    string
	SQLitePath string
}

// NewConfigFromEnv reads STORE_DRIVER, SQLITE_PATH and DB_* environment variables (with defaults).
func NewConfigFromEnv() Config {
	return Config{}.WithEnv()
}

// WithEnv overrides c with any STORE_DRIVER, SQLITE_PATH and DB_* variables that are
// set, then fills the remaining defaults
func (c Config) WithEnv() Config {
	c.Driver = getEnv("STORE_DRIVER", c.Driver)
	c.Host = getEnv("DB_HOST", c.Host)
	c.User = getEnv("DB_USER", c.User)
	c.Password = getEnv("DB_PASSWORD", c.Password)
	c.Database = getEnv("DB_NAME", c.Database)
	c.SSLMode = getEnv("DB_SSLMODE", c.SSLMode)
	c.SQLitePath = getEnv("SQLITE_PATH", c.SQLitePath)
	if port, err := strconv.Atoi(os.Getenv("DB_PORT")); err == nil {
		c.Port = port
	}
	return c.withDefaults()
}

func (c Config) withDefaults() Config {
	if c.Driver == "" {
		c.Driver = DriverPostgres
	}
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 5432
	}
	if c.User == "" {
		c.User = "postgres"
	}
	if c.Password == "" {
		c.Password = "postgres"
	}
	if c.Database == "" {
		c.Database = "syncboard"
	}
	if c.SSLMode == "" {
		c.SSLMode = "disable"
	}
	if c.SQLitePath == "" {
		c.SQLitePath = "syncboard.db"
	}
	return c
}

// DSN returns the connection string for the configured driver.
func (c Config) DSN() string {
	if c.Driver == DriverSQLite {
		return fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", c.SQLitePath)
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

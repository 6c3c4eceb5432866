package postgres

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/juju/errors"
)

// Config holds PostgreSQL connection configuration
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string // disable, require, verify-ca, verify-full
}

var validSSLModes = map[string]bool{
	"disable":     true,
	"require":     true,
	"verify-ca":   true,
	"verify-full": true,
}

func DefaultConfig() *Config {
	return &Config{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "postgres",
		Database: "dagflow",
		SSLMode:  "disable",
	}
}

// DSN renders the config as a lib/pq keyword/value connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// Validate checks the required fields, an empty SSLMode becomes "disable".
func (c *Config) Validate() error {
	switch {
	case c.Host == "":
		return errors.NotValidf("empty host")
	case c.Port <= 0 || c.Port > 65535:
		return errors.NotValidf("port %d", c.Port)
	case c.User == "":
		return errors.NotValidf("empty user")
	case c.Database == "":
		return errors.NotValidf("empty database")
	}
	if c.SSLMode == "" {
		c.SSLMode = "disable"
	}
	if !validSSLModes[c.SSLMode] {
		return errors.NotValidf("sslmode %s", c.SSLMode)
	}
	return nil
}

/**
 * ParseDSN reads a keyword/value connection string such as
 * "host=localhost port=5432 user=postgres password=secret dbname=dagflow sslmode=disable".
 * Keywords it does not know are ignored, missing ones keep the defaults.
 */
func ParseDSN(dsn string) (*Config, error) {
	config := DefaultConfig()

	for _, part := range strings.Fields(dsn) {
		key, value, found := strings.Cut(part, "=")
		if !found {
			continue
		}
		switch key {
		case "host":
			config.Host = value
		case "port":
			port, err := strconv.Atoi(value)
			if err != nil {
				return nil, errors.NotValidf("port %q", value)
			}
			config.Port = port
		case "user":
			config.User = value
		case "password":
			config.Password = value
		case "dbname":
			config.Database = value
		case "sslmode":
			config.SSLMode = value
		}
	}
	return config, errors.Trace(config.Validate())
}

// Package db opens the relational database used by the server.
package db

import (
	"fmt"
	"os"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config is the database configuration. The password is taken from the
// environment variable named by PasswordEnvName so it never lands in a
// config file.
type Config struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslMode"`

	PasswordEnvName string `yaml:"passwordEnvName"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host must be set")
	}
	if c.Port <= 0 {
		return fmt.Errorf("port must be greater than 0")
	}
	if c.Username == "" {
		return fmt.Errorf("username must be set")
	}
	if c.Database == "" {
		return fmt.Errorf("database must be set")
	}
	return nil
}

// Open opens a connection to the configured Postgres database.
func Open(c Config) (*gorm.DB, error) {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.Username, c.Database, sslMode,
	)
	if c.PasswordEnvName != "" {
		if pw := os.Getenv(c.PasswordEnvName); pw != "" {
			dsn += fmt.Sprintf(" password=%s", pw)
		}
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

package cache

import (
	"fmt"
	"os"
	"time"
)

const defaultTTL = time.Hour

// Config is the configuration for the visualization result cache.
type Config struct {
	Enable bool `yaml:"enable"`

	Redis RedisConfig `yaml:"redis"`

	// TTL is how long a rendered visualization stays cached.
	// Defaults to 1h.
	TTL time.Duration `yaml:"ttl"`
}

// RedisConfig is the Redis connection configuration.
type RedisConfig struct {
	// host:port address.
	Address string `yaml:"address"`

	Username string `yaml:"username"`
	Password string `yaml:"-"`
	Database int    `yaml:"database"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if !c.Enable {
		return nil
	}
	if c.Redis.Address == "" {
		return fmt.Errorf("redis address is required")
	}
	c.Redis.Password = os.Getenv("REDIS_PASSWORD")
	if c.TTL == 0 {
		c.TTL = defaultTTL
	} else if c.TTL < 0 {
		return fmt.Errorf("ttl must be greater than 0")
	}
	return nil
}

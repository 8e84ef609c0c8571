package config

import (
	"fmt"
	"os"
	"time"

	"github.com/transformerzoo/zoo-server/common/pkg/db"
	"github.com/transformerzoo/zoo-server/server/internal/cache"
	"github.com/transformerzoo/zoo-server/server/internal/rate"
	"gopkg.in/yaml.v3"
)

const (
	defaultModelSizeLimitGiB       = 6.0
	defaultMaxInputTokens          = 50
	defaultTokenDuration           = 24 * time.Hour
	defaultGracefulShutdownTimeout = 30 * time.Second
)

// Config is the configuration.
type Config struct {
	HTTPPort       int `yaml:"httpPort"`
	MonitoringPort int `yaml:"monitoringPort"`

	Database db.Config `yaml:"database"`

	Auth AuthConfig `yaml:"auth"`

	RateLimit rate.Config `yaml:"rateLimit"`

	Cache cache.Config `yaml:"cache"`

	ObjectStore ObjectStoreConfig `yaml:"objectStore"`

	// ModelDir is the local directory where downloaded checkpoints are kept.
	ModelDir string `yaml:"modelDir"`

	// ModelSizeLimitGiB refuses models whose stored checkpoints exceed
	// this size. Defaults to 6 GiB.
	ModelSizeLimitGiB float64 `yaml:"modelSizeLimitGib"`

	// MaxInputTokens truncates submitted text to this many tokens before
	// the forward pass. Defaults to 50.
	MaxInputTokens int `yaml:"maxInputTokens"`

	GracefulShutdownTimeout time.Duration `yaml:"gracefulShutdownTimeout"`

	Debug DebugConfig `yaml:"debug"`
}

// AuthConfig is the authentication configuration.
type AuthConfig struct {
	// SecretEnvName names the environment variable holding the JWT
	// signing secret.
	SecretEnvName string `yaml:"secretEnvName"`

	// TokenDuration is the JWT lifetime. Defaults to 24h.
	TokenDuration time.Duration `yaml:"tokenDuration"`
}

// Secret returns the JWT signing secret.
func (c *AuthConfig) Secret() string {
	return os.Getenv(c.SecretEnvName)
}

func (c *AuthConfig) validate() error {
	if c.SecretEnvName == "" {
		return fmt.Errorf("secretEnvName must be set")
	}
	if os.Getenv(c.SecretEnvName) == "" {
		return fmt.Errorf("environment variable %q must be set", c.SecretEnvName)
	}
	if c.TokenDuration == 0 {
		c.TokenDuration = defaultTokenDuration
	} else if c.TokenDuration < 0 {
		return fmt.Errorf("tokenDuration must be greater than 0")
	}
	return nil
}

// S3Config is the S3 configuration for the checkpoint store.
type S3Config struct {
	EndpointURL string `yaml:"endpointUrl"`
	Region      string `yaml:"region"`
	Bucket      string `yaml:"bucket"`
	// PathPrefix is the key prefix under which checkpoints live.
	PathPrefix string `yaml:"pathPrefix"`
}

// ObjectStoreConfig is the object store configuration.
type ObjectStoreConfig struct {
	S3 S3Config `yaml:"s3"`
}

// Validate validates the object store configuration.
func (c *ObjectStoreConfig) Validate() error {
	if c.S3.Region == "" {
		return fmt.Errorf("s3 region must be set")
	}
	if c.S3.Bucket == "" {
		return fmt.Errorf("s3 bucket must be set")
	}
	return nil
}

// DebugConfig is the debug configuration.
type DebugConfig struct {
	// Standalone skips the object store: requested models are created
	// locally with random weights instead of downloaded. For local
	// development only.
	Standalone bool `yaml:"standalone"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.HTTPPort <= 0 {
		return fmt.Errorf("httpPort must be greater than 0")
	}
	if c.MonitoringPort <= 0 {
		return fmt.Errorf("monitoringPort must be greater than 0")
	}
	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("database: %s", err)
	}
	if err := c.Auth.validate(); err != nil {
		return fmt.Errorf("auth: %s", err)
	}
	if err := c.RateLimit.Validate(); err != nil {
		return fmt.Errorf("rateLimit: %s", err)
	}
	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("cache: %s", err)
	}
	if !c.Debug.Standalone {
		if err := c.ObjectStore.Validate(); err != nil {
			return fmt.Errorf("objectStore: %s", err)
		}
	}
	if c.ModelDir == "" {
		return fmt.Errorf("modelDir must be set")
	}
	if c.ModelSizeLimitGiB == 0 {
		c.ModelSizeLimitGiB = defaultModelSizeLimitGiB
	} else if c.ModelSizeLimitGiB < 0 {
		return fmt.Errorf("modelSizeLimitGib must be greater than 0")
	}
	if c.MaxInputTokens == 0 {
		c.MaxInputTokens = defaultMaxInputTokens
	} else if c.MaxInputTokens < 0 {
		return fmt.Errorf("maxInputTokens must be greater than 0")
	}
	if c.GracefulShutdownTimeout == 0 {
		c.GracefulShutdownTimeout = defaultGracefulShutdownTimeout
	} else if c.GracefulShutdownTimeout < 0 {
		return fmt.Errorf("gracefulShutdownTimeout must be greater than 0")
	}
	return nil
}

// Parse parses the configuration file at the given path, returning a new
// Config struct.
func Parse(path string) (Config, error) {
	var config Config

	b, err := os.ReadFile(path)
	if err != nil {
		return config, fmt.Errorf("config: read: %s", err)
	}

	if err = yaml.Unmarshal(b, &config); err != nil {
		return config, fmt.Errorf("config: unmarshal: %s", err)
	}
	return config, nil
}

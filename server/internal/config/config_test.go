package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/transformerzoo/zoo-server/common/pkg/db"
)

func TestParseAndValidate(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("DB_PASSWORD", "test-password")

	path := filepath.Join(t.TempDir(), "config.yaml")
	assert.NoError(t, os.WriteFile(path, []byte(`
httpPort: 8080
monitoringPort: 8081
database:
  host: localhost
  port: 5432
  username: zoo
  database: zoo
  passwordEnvName: DB_PASSWORD
auth:
  secretEnvName: JWT_SECRET
rateLimit:
  enable: true
  storeType: memory
  rate: 5
  period: 1m
  burst: 5
cache:
  enable: false
objectStore:
  s3:
    region: us-east-1
    bucket: zoo-checkpoints
    pathPrefix: checkpoints
modelDir: /tmp/models
`), 0644))

	c, err := Parse(path)
	assert.NoError(t, err)
	assert.NoError(t, c.Validate())

	assert.Equal(t, 8080, c.HTTPPort)
	assert.Equal(t, "test-secret", c.Auth.Secret())

	// Defaults applied by Validate.
	assert.Equal(t, defaultModelSizeLimitGiB, c.ModelSizeLimitGiB)
	assert.Equal(t, defaultMaxInputTokens, c.MaxInputTokens)
	assert.Equal(t, 24*time.Hour, c.Auth.TokenDuration)
	assert.Equal(t, defaultGracefulShutdownTimeout, c.GracefulShutdownTimeout)
}

func TestValidateRejects(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("DB_PASSWORD", "test-password")

	base := func() Config {
		return Config{
			HTTPPort:       8080,
			MonitoringPort: 8081,
			Database: db.Config{
				Host:            "localhost",
				Port:            5432,
				Username:        "zoo",
				Database:        "zoo",
				PasswordEnvName: "DB_PASSWORD",
			},
			Auth: AuthConfig{
				SecretEnvName: "JWT_SECRET",
			},
			ModelDir: "/tmp/models",
			Debug:    DebugConfig{Standalone: true},
		}
	}

	c := base()
	assert.NoError(t, c.Validate())

	c = base()
	c.HTTPPort = 0
	assert.Error(t, c.Validate())

	c = base()
	c.Auth.SecretEnvName = ""
	assert.Error(t, c.Validate())

	c = base()
	c.ModelDir = ""
	assert.Error(t, c.Validate())

	// Object store is required outside standalone mode.
	c = base()
	c.Debug.Standalone = false
	assert.Error(t, c.Validate())

	c = base()
	c.ModelSizeLimitGiB = -1
	assert.Error(t, c.Validate())
}

package cache

import (
	"context"
	"testing"
	"time"

	testutl "github.com/transformerzoo/zoo-server/common/pkg/test"
	"github.com/stretchr/testify/assert"
)

func TestKeyIsStable(t *testing.T) {
	k1 := Key("gpt-mini", "The cat sat.", "head")
	k2 := Key("gpt-mini", "The cat sat.", "head")
	k3 := Key("gpt-mini", "The cat sat.", "model")
	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)
	assert.Contains(t, k1, keyPrefix)
}

func TestDisabledCacheDegrades(t *testing.T) {
	c := New(context.Background(), Config{Enable: false}, testutl.NewTestLogger(t))
	assert.False(t, c.Available())

	_, ok := c.Get(context.Background(), "viz:abc")
	assert.False(t, ok)

	// Writes are dropped without error.
	c.Set(context.Background(), "viz:abc", "<html></html>")
	_, ok = c.Get(context.Background(), "viz:abc")
	assert.False(t, ok)

	assert.Error(t, c.Clear(context.Background()))

	s := c.Stats(context.Background())
	assert.False(t, s.Available)
	assert.Equal(t, int64(0), s.Hits)
}

func TestUnreachableRedisDegrades(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	c := New(ctx, Config{
		Enable: true,
		Redis:  RedisConfig{Address: "127.0.0.1:1"},
		TTL:    time.Minute,
	}, testutl.NewTestLogger(t))
	assert.False(t, c.Available())
}

func TestParseInfoField(t *testing.T) {
	info := "# Memory\r\nused_memory:1024\r\nused_memory_human:1.00K\r\n"
	assert.Equal(t, "1.00K", parseInfoField(info, "used_memory_human"))
	assert.Equal(t, "1024", parseInfoField(info, "used_memory"))
	assert.Equal(t, "", parseInfoField(info, "missing"))
}

func TestConfigValidate(t *testing.T) {
	c := Config{Enable: false}
	assert.NoError(t, c.Validate())

	c = Config{Enable: true}
	assert.Error(t, c.Validate(), "address required")

	c = Config{Enable: true, Redis: RedisConfig{Address: "localhost:6379"}}
	assert.NoError(t, c.Validate())
	assert.Equal(t, defaultTTL, c.TTL)
}

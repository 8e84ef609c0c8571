package rate

import (
	"context"
	"testing"
	"time"

	testutl "github.com/transformerzoo/zoo-server/common/pkg/test"
	"github.com/stretchr/testify/assert"
)

func TestMemoryStore_Limited(t *testing.T) {
	const cost = 1
	c := Config{
		Rate:   1,
		Period: 10 * time.Second,
		Burst:  5,
	}
	st := newMemoryStore(c, testutl.NewTestLogger(t))

	for i := 0; i < c.Burst; i++ {
		res, err := st.Take(context.Background(), "key-1", cost)
		assert.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, c.Burst-i-1, res.Remaining)
		assert.Equal(t, 0.0, res.RetryAfter.Seconds())
	}
	// no remaining burst capacity
	res, err := st.Take(context.Background(), "key-1", cost)
	assert.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	assert.InDelta(t, c.intervalSec(), res.RetryAfter.Seconds(), 0.01, res.RetryAfter)

	// different key
	res, err = st.Take(context.Background(), "key-2", cost)
	assert.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, c.Burst-1, res.Remaining)
	assert.Equal(t, 0.0, res.RetryAfter.Seconds())
}

func TestMemoryStore_Refill(t *testing.T) {
	const cost = 1
	c := Config{
		Rate:   1,
		Period: 100 * time.Millisecond,
		Burst:  1,
	}
	st := newMemoryStore(c, testutl.NewTestLogger(t))

	res, err := st.Take(context.Background(), "key", cost)
	assert.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)

	res, err = st.Take(context.Background(), "key", cost)
	assert.NoError(t, err)
	assert.False(t, res.Allowed)

	time.Sleep(150 * time.Millisecond)

	res, err = st.Take(context.Background(), "key", cost)
	assert.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestNoopStore(t *testing.T) {
	st := &noopStore{}
	res, err := st.Take(context.Background(), "key", 1)
	assert.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, -1, res.Limit)
}

func TestConfigValidate(t *testing.T) {
	tcs := []struct {
		name    string
		c       Config
		wantErr bool
	}{
		{
			name: "disabled",
			c:    Config{Enable: false},
		},
		{
			name: "memory store",
			c: Config{
				Enable:    true,
				StoreType: storeTypeMemory,
				Rate:      5,
				Period:    time.Minute,
				Burst:     5,
			},
		},
		{
			name: "unknown store",
			c: Config{
				Enable:    true,
				StoreType: "bogus",
				Rate:      5,
				Period:    time.Minute,
				Burst:     5,
			},
			wantErr: true,
		},
		{
			name: "redis without address",
			c: Config{
				Enable:    true,
				StoreType: storeTypeRedis,
				Redis:     &RedisStoreConfig{},
				Rate:      5,
				Period:    time.Minute,
				Burst:     5,
			},
			wantErr: true,
		},
		{
			name: "zero rate",
			c: Config{
				Enable:    true,
				StoreType: storeTypeMemory,
				Period:    time.Minute,
				Burst:     5,
			},
			wantErr: true,
		},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.c.Validate()
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

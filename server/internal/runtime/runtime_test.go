package runtime

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	testutl "github.com/transformerzoo/zoo-server/common/pkg/test"
	"github.com/transformerzoo/zoo-server/pkg/transformer"
)

type fakeRegistry struct {
	dir string

	mu      sync.Mutex
	ensured map[string]int
}

func newFakeRegistry(t *testing.T) *fakeRegistry {
	return &fakeRegistry{
		dir:     t.TempDir(),
		ensured: map[string]int{},
	}
}

func (r *fakeRegistry) Ensure(ctx context.Context, modelName string) (string, error) {
	r.mu.Lock()
	r.ensured[modelName]++
	r.mu.Unlock()

	path := filepath.Join(r.dir, modelName+".ckpt")
	m, err := transformer.New(transformer.Config{
		VocabSize: 259,
		SeqLen:    8,
		EmbedDim:  4,
		NumHeads:  2,
		NumLayers: 1,
		FFHidden:  8,
	})
	if err != nil {
		return "", err
	}
	if err := m.Save(path); err != nil {
		return "", err
	}
	return path, nil
}

func (r *fakeRegistry) ensureCount(modelName string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ensured[modelName]
}

type fakeMetrics struct {
	mu       sync.Mutex
	loads    map[string]int
	resident string
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{loads: map[string]int{}}
}

func (m *fakeMetrics) ObserveVisualizationLatency(modelName string, latency time.Duration) {}
func (m *fakeMetrics) ObserveModelLoadLatency(modelName string, latency time.Duration)     {}
func (m *fakeMetrics) IncCacheHits()                                                       {}
func (m *fakeMetrics) IncCacheMisses()                                                     {}

func (m *fakeMetrics) IncModelLoads(modelName string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads[modelName]++
}

func (m *fakeMetrics) SetResidentModel(modelName string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resident = modelName
}

func TestAcquireReusesResident(t *testing.T) {
	reg := newFakeRegistry(t)
	rt := New(reg, newFakeMetrics(), testutl.NewTestLogger(t))

	m1, err := rt.Acquire(context.Background(), "tiny")
	assert.NoError(t, err)
	m2, err := rt.Acquire(context.Background(), "tiny")
	assert.NoError(t, err)

	assert.Same(t, m1, m2)
	assert.Equal(t, 1, reg.ensureCount("tiny"))

	name, ok := rt.Resident()
	assert.True(t, ok)
	assert.Equal(t, "tiny", name)
}

func TestAcquireEvictsPrevious(t *testing.T) {
	reg := newFakeRegistry(t)
	metrics := newFakeMetrics()
	rt := New(reg, metrics, testutl.NewTestLogger(t))

	_, err := rt.Acquire(context.Background(), "first")
	assert.NoError(t, err)
	_, err = rt.Acquire(context.Background(), "second")
	assert.NoError(t, err)

	name, ok := rt.Resident()
	assert.True(t, ok)
	assert.Equal(t, "second", name)
	assert.Equal(t, "second", metrics.resident)

	// Re-acquiring the first model loads it again.
	_, err = rt.Acquire(context.Background(), "first")
	assert.NoError(t, err)
	assert.Equal(t, 2, reg.ensureCount("first"))
}

func TestAcquireConcurrent(t *testing.T) {
	reg := newFakeRegistry(t)
	rt := New(reg, newFakeMetrics(), testutl.NewTestLogger(t))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := rt.Acquire(context.Background(), "tiny")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	name, ok := rt.Resident()
	assert.True(t, ok)
	assert.Equal(t, "tiny", name)
}

func TestEvict(t *testing.T) {
	reg := newFakeRegistry(t)
	rt := New(reg, newFakeMetrics(), testutl.NewTestLogger(t))

	_, ok := rt.Evict()
	assert.False(t, ok)

	_, err := rt.Acquire(context.Background(), "tiny")
	assert.NoError(t, err)

	name, ok := rt.Evict()
	assert.True(t, ok)
	assert.Equal(t, "tiny", name)

	_, ok = rt.Resident()
	assert.False(t, ok)
}

// Package runtime keeps at most one transformer model resident in
// memory, evicting the previous one before a different model loads.
package runtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/transformerzoo/zoo-server/pkg/transformer"
	"github.com/transformerzoo/zoo-server/server/internal/monitoring"
	"golang.org/x/sync/singleflight"
)

type registry interface {
	Ensure(ctx context.Context, modelName string) (string, error)
}

// New returns a new M.
func New(reg registry, metrics monitoring.MetricsMonitoring, logger logr.Logger) *M {
	return &M{
		reg:     reg,
		metrics: metrics,
		logger:  logger.WithName("runtime"),
	}
}

// M is the single-slot model runtime.
type M struct {
	reg     registry
	metrics monitoring.MetricsMonitoring

	logger logr.Logger

	// mu guards the resident slot. The slot holds one model at a time;
	// the previous occupant is released before a new one loads so peak
	// memory stays bounded to a single checkpoint.
	mu           sync.Mutex
	residentName string
	resident     *transformer.Model

	group singleflight.Group
}

// Acquire returns the model, loading it into the slot first if a
// different model (or none) is resident. Concurrent requests for the
// same model share one load.
func (m *M) Acquire(ctx context.Context, modelName string) (*transformer.Model, error) {
	v, err, _ := m.group.Do(modelName, func() (interface{}, error) {
		return m.acquire(ctx, modelName)
	})
	if err != nil {
		return nil, err
	}
	return v.(*transformer.Model), nil
}

func (m *M) acquire(ctx context.Context, modelName string) (*transformer.Model, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.residentName == modelName {
		return m.resident, nil
	}

	if m.residentName != "" {
		m.logger.Info("Evicting resident model", "model", m.residentName, "incoming", modelName)
		m.residentName = ""
		m.resident = nil
		m.metrics.SetResidentModel("")
	}

	start := time.Now()
	path, err := m.reg.Ensure(ctx, modelName)
	if err != nil {
		return nil, err
	}
	model, err := transformer.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %s", err)
	}

	m.residentName = modelName
	m.resident = model
	m.metrics.IncModelLoads(modelName)
	m.metrics.ObserveModelLoadLatency(modelName, time.Since(start))
	m.metrics.SetResidentModel(modelName)
	m.logger.Info("Loaded model", "model", modelName, "duration", time.Since(start))
	return model, nil
}

// Evict clears the slot and returns the name of the evicted model.
// It returns false when the slot was already empty.
func (m *M) Evict() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.residentName == "" {
		return "", false
	}
	name := m.residentName
	m.residentName = ""
	m.resident = nil
	m.metrics.SetResidentModel("")
	m.logger.Info("Evicted model", "model", name)
	return name, true
}

// Resident returns the name of the currently resident model, if any.
func (m *M) Resident() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.residentName, m.residentName != ""
}

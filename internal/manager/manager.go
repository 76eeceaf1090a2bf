// Package manager wires the registry, metadata reader, estimator, hardware
// monitor and planner into one service surface consumed by the HTTP API and
// the CLI.
package manager

import (
	"context"
	"sync"
	"time"

	"ggufplan/internal/arch"
	"ggufplan/internal/estimate"
	"ggufplan/internal/gguf"
	"ggufplan/internal/planner"
	"ggufplan/internal/vram"
	"ggufplan/pkg/types"
)

type Manager struct {
	mu           sync.RWMutex
	registry     []types.Model
	byID         map[string]types.Model
	defaultModel string
	policy       planner.Policy
	monitor      Snapshotter
	plansTotal   uint64
	lastErr      string
	startTime    time.Time
}

// New constructs a Manager with default policy and the real nvidia-smi monitor.
func New(reg []types.Model, defaultModel string) *Manager {
	return NewWithConfig(ManagerConfig{Registry: reg, DefaultModel: defaultModel})
}

// Ready reports whether the service can answer plan requests. Construction
// implies a completed registry scan, so this only guards against a nil manager.
func (m *Manager) Ready() bool {
	return m != nil
}

func (m *Manager) ListModels() []types.Model {
	m.mu.RLock()
	defer m.mu.RUnlock()
	// return a shallow copy to avoid external mutation
	out := make([]types.Model, len(m.registry))
	copy(out, m.registry)
	return out
}

// lookup maps a request model id to a registry entry. Empty id selects the
// configured default.
func (m *Manager) lookup(id string) (types.Model, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id == "" {
		id = m.defaultModel
	}
	mdl, ok := m.byID[id]
	if !ok {
		return types.Model{}, ErrModelNotFound(id)
	}
	return mdl, nil
}

// resolve reads a model's container metadata and derives its architecture
// parameters and full-context estimate.
func (m *Manager) resolve(mdl types.Model) (types.ArchitectureParams, error) {
	md, err := gguf.ReadFile(mdl.Path)
	if err != nil {
		return types.ArchitectureParams{}, err
	}
	return arch.Resolve(md, mdl.Path)
}

// Describe resolves a model's parameters and returns its memory estimate at
// the trained context length.
func (m *Manager) Describe(modelID string) (types.EstimateResponse, error) {
	mdl, err := m.lookup(modelID)
	if err != nil {
		return types.EstimateResponse{}, m.recordErr(err)
	}
	params, err := m.resolve(mdl)
	if err != nil {
		return types.EstimateResponse{}, m.recordErr(err)
	}
	est, err := estimate.Estimate(params)
	if err != nil {
		return types.EstimateResponse{}, m.recordErr(err)
	}
	return types.EstimateResponse{Model: mdl.ID, Params: params, Estimate: est}, nil
}

// PlanLoad produces a complete load plan for a model: resolved parameters,
// memory estimate at the requested context, the VRAM reading the plan was
// based on, and the planner's decision.
func (m *Manager) PlanLoad(ctx context.Context, modelID string, requestedContext int) (types.PlanResponse, error) {
	mdl, err := m.lookup(modelID)
	if err != nil {
		return types.PlanResponse{}, m.recordErr(err)
	}
	params, err := m.resolve(mdl)
	if err != nil {
		return types.PlanResponse{}, m.recordErr(err)
	}
	// A zero request means the model's trained maximum.
	if requestedContext <= 0 {
		requestedContext = params.ContextLength
	}
	est, err := estimate.EstimateAtContext(params, requestedContext)
	if err != nil {
		return types.PlanResponse{}, m.recordErr(err)
	}
	snap := m.monitor.Snapshot(ctx)
	plan := m.policy.Plan(est, snap, params.LayerCount, requestedContext)

	m.mu.Lock()
	m.plansTotal++
	m.mu.Unlock()

	return types.PlanResponse{
		Model:    mdl.ID,
		Params:   params,
		Estimate: est,
		VRAM:     snap,
		Plan:     plan,
	}, nil
}

// CanFit reports whether the model's full estimate, padded by a 20% loading
// buffer, fits in currently free VRAM. Always false without a GPU.
func (m *Manager) CanFit(ctx context.Context, modelID string) (bool, error) {
	resp, err := m.Describe(modelID)
	if err != nil {
		return false, err
	}
	snap := m.monitor.Snapshot(ctx)
	if !snap.GPUPresent {
		return false, nil
	}
	return resp.Estimate.TotalBytes*6/5 <= snap.FreeBytes, nil
}

// Status builds a detailed status response for /status.
func (m *Manager) Status(ctx context.Context) types.StatusResponse {
	snap := m.monitor.Snapshot(ctx)
	m.mu.RLock()
	defer m.mu.RUnlock()
	now := time.Now()
	return types.StatusResponse{
		ModelCount:     len(m.registry),
		VRAM:           snap,
		HostRAMBytes:   vram.HostMemory(),
		PlansTotal:     m.plansTotal,
		LastError:      m.lastErr,
		UptimeSeconds:  int64(now.Sub(m.startTime).Seconds()),
		ServerTimeUnix: now.Unix(),
	}
}

// recordErr remembers the most recent planning failure for /status and
// returns err unchanged.
func (m *Manager) recordErr(err error) error {
	m.mu.Lock()
	m.lastErr = err.Error()
	m.mu.Unlock()
	return err
}

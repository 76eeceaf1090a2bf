package manager

import (
	"context"
	"time"

	"ggufplan/internal/planner"
	"ggufplan/internal/vram"
	"ggufplan/pkg/types"
)

// Snapshotter supplies VRAM readings. *vram.Monitor satisfies it; tests
// substitute a fixed snapshot.
type Snapshotter interface {
	Snapshot(ctx context.Context) types.VRAMSnapshot
}

// ManagerConfig encapsulates all tunables for Manager construction.
type ManagerConfig struct {
	Registry     []types.Model
	DefaultModel string
	Policy       planner.Policy
	Monitor      Snapshotter
}

// NewWithConfig constructs a Manager from ManagerConfig.
func NewWithConfig(cfg ManagerConfig) *Manager {
	m := &Manager{
		registry:     cfg.Registry,
		byID:         make(map[string]types.Model, len(cfg.Registry)),
		defaultModel: cfg.DefaultModel,
		policy:       cfg.Policy,
		monitor:      cfg.Monitor,
	}
	for _, mdl := range cfg.Registry {
		m.byID[mdl.ID] = mdl
	}
	// Apply defaults if unset
	if m.policy == (planner.Policy{}) {
		m.policy = planner.DefaultPolicy()
	}
	if m.monitor == nil {
		m.monitor = vram.New()
	}
	m.startTime = time.Now()
	return m
}

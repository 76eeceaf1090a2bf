// Package vram queries live GPU memory state from the host driver tool.
// Query failure is not an error: many valid deployments have no GPU, so a
// failed reading degrades to a snapshot with GPUPresent false and callers
// branch on that.
package vram

import (
	"context"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/mem"

	"ggufplan/pkg/types"
)

const (
	// nvidia-smi reports memory in MiB.
	mib = 1024 * 1024

	defaultTimeout = 2 * time.Second
)

// runner executes the driver query; injected so planners are testable with
// synthetic hardware readings.
type runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Monitor reads GPU memory via nvidia-smi. Every Snapshot call re-queries:
// VRAM usage changes under other processes' control, so readings are never
// cached.
type Monitor struct {
	timeout time.Duration
	run     runner
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithTimeout bounds each driver query. Zero or negative keeps the default.
func WithTimeout(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// withRunner swaps the command runner (tests only).
func withRunner(r runner) Option {
	return func(m *Monitor) { m.run = r }
}

// New returns a Monitor with a bounded query timeout.
func New(opts ...Option) *Monitor {
	m := &Monitor{timeout: defaultTimeout, run: execRunner}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Snapshot returns the current GPU memory state. On any failure (tool
// missing, command error, parse error, timeout) it returns the degraded
// no-GPU snapshot rather than an error.
func (m *Monitor) Snapshot(ctx context.Context) types.VRAMSnapshot {
	qctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	total, ok := m.queryMB(qctx, "memory.total")
	if !ok || len(total) != 1 || total[0] <= 0 {
		return types.VRAMSnapshot{}
	}
	usedFree, ok := m.queryMB(qctx, "memory.used,memory.free")
	if !ok || len(usedFree) != 2 {
		return types.VRAMSnapshot{}
	}
	return types.VRAMSnapshot{
		TotalBytes: total[0] * mib,
		UsedBytes:  usedFree[0] * mib,
		FreeBytes:  usedFree[1] * mib,
		GPUPresent: true,
	}
}

// queryMB runs one nvidia-smi query and parses its CSV output: one line of
// comma-separated integers in MiB.
func (m *Monitor) queryMB(ctx context.Context, fields string) ([]int64, bool) {
	out, err := m.run(ctx, "nvidia-smi",
		"--query-gpu="+fields, "--format=csv,noheader,nounits")
	if err != nil {
		return nil, false
	}
	line := strings.TrimSpace(string(out))
	if line == "" {
		return nil, false
	}
	// Multi-GPU hosts emit one line per device; plan against the first.
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = strings.TrimSpace(line[:idx])
	}
	parts := strings.Split(line, ",")
	vals := make([]int64, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil || n < 0 {
			return nil, false
		}
		vals = append(vals, n)
	}
	return vals, true
}

// HostMemory returns total host RAM in bytes, 0 when unavailable. Used for
// status display and CPU-mode sizing hints, not for admission decisions.
func HostMemory() uint64 {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0
	}
	return vm.Total
}

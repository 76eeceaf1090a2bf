package planner

import (
	"strings"
	"testing"

	"ggufplan/pkg/types"
)

const mib = int64(1024 * 1024)

// llama7BQ4 mirrors the reference estimate: 32 layers, ~120 MiB weights each.
func llama7BQ4() types.MemoryEstimate {
	return types.MemoryEstimate{
		EmbeddingsBytes: 524288000,
		KVCacheBytes:    2147483648,
		WeightsBytes:    4026531840,
		OverheadBytes:   399360,
		TotalBytes:      6698702848,
	}
}

func snap(totalMB, freeMB int64) types.VRAMSnapshot {
	return types.VRAMSnapshot{
		TotalBytes: totalMB * mib,
		UsedBytes:  (totalMB - freeMB) * mib,
		FreeBytes:  freeMB * mib,
		GPUPresent: true,
	}
}

func TestPlan_NoGPU(t *testing.T) {
	p := DefaultPolicy()
	plan := p.Plan(llama7BQ4(), types.VRAMSnapshot{}, 32, 8192)
	if plan.Tier != types.TierNoGPU || plan.GPULayers != 0 {
		t.Fatalf("no-GPU plan wrong: %+v", plan)
	}
	if plan.BatchSize != 128 || plan.ContextSize != 2048 || plan.KVCacheOnGPU {
		t.Fatalf("no-GPU parameters wrong: %+v", plan)
	}
	// Regardless of estimate contents.
	huge := types.MemoryEstimate{WeightsBytes: 1 << 50, TotalBytes: 1 << 50}
	if got := p.Plan(huge, types.VRAMSnapshot{}, 80, 4096); got.Tier != types.TierNoGPU || got.GPULayers != 0 {
		t.Fatalf("no-GPU must not depend on estimate: %+v", got)
	}
}

func TestPlan_NoGPUSmallRequestKept(t *testing.T) {
	plan := DefaultPolicy().Plan(llama7BQ4(), types.VRAMSnapshot{}, 32, 1024)
	if plan.ContextSize != 1024 {
		t.Fatalf("requested context below cap must be honored: %+v", plan)
	}
}

// Reference low-VRAM scenario: 8151 MiB card, 7740 MiB free, 7B Q4_0.
func TestPlan_LowTierReference(t *testing.T) {
	p := DefaultPolicy()
	plan := p.Plan(llama7BQ4(), snap(8151, 7740), 32, 4096)
	if plan.Tier != types.TierLow {
		t.Fatalf("want low tier, got %+v", plan)
	}
	if plan.GPULayers != 20 {
		t.Fatalf("want layer cap 20, got %d", plan.GPULayers)
	}
	if plan.KVCacheOnGPU {
		t.Fatal("KV cache must stay off-GPU in low tier")
	}
	if plan.BatchSize != 256 || plan.ContextSize != 4096 {
		t.Fatalf("low tier parameters wrong: %+v", plan)
	}
	if !strings.Contains(plan.Rationale, "capped at 20 layers") {
		t.Fatalf("rationale must name the cap: %q", plan.Rationale)
	}
}

func TestPlan_VeryLowTierCap(t *testing.T) {
	plan := DefaultPolicy().Plan(llama7BQ4(), snap(6144, 5800), 32, 8192)
	if plan.Tier != types.TierVeryLow {
		t.Fatalf("want verylow tier, got %+v", plan)
	}
	if plan.GPULayers > 12 {
		t.Fatalf("verylow cap exceeded: %d", plan.GPULayers)
	}
	if plan.ContextSize != 4096 || plan.BatchSize != 128 || plan.KVCacheOnGPU {
		t.Fatalf("verylow parameters wrong: %+v", plan)
	}
}

func TestPlan_HighTierUncapped(t *testing.T) {
	plan := DefaultPolicy().Plan(llama7BQ4(), snap(24576, 23000), 32, 16384)
	if plan.Tier != types.TierHigh {
		t.Fatalf("want high tier, got %+v", plan)
	}
	// 23000 MiB * 0.8 / 120 MiB-per-layer >> 32, so all layers fit.
	if plan.GPULayers != 32 {
		t.Fatalf("want full offload, got %d", plan.GPULayers)
	}
	if plan.ContextSize != 16384 || plan.BatchSize != 512 || !plan.KVCacheOnGPU {
		t.Fatalf("high tier parameters wrong: %+v", plan)
	}
}

func TestPlan_HighTierBudgetBound(t *testing.T) {
	// High tier but most VRAM already in use: budget, not the cap, decides.
	plan := DefaultPolicy().Plan(llama7BQ4(), snap(16384, 1500), 32, 4096)
	if plan.Tier != types.TierHigh {
		t.Fatalf("want high tier, got %+v", plan)
	}
	// 1500 MiB * 0.8 = 1200 MiB usable / 120 MiB per layer = 10 layers.
	if plan.GPULayers != 10 {
		t.Fatalf("want 10 layers by budget, got %d", plan.GPULayers)
	}
	if plan.GPULayers > 32 {
		t.Fatal("layer count must never exceed the model's layer count")
	}
}

func TestPlan_GPUPresentButNothingFits(t *testing.T) {
	// 70B-class weights against a small card: zero layers, but not NoGPU.
	est := types.MemoryEstimate{WeightsBytes: 80 * 2 * 1024 * mib, TotalBytes: 80 * 2 * 1024 * mib}
	plan := DefaultPolicy().Plan(est, snap(4096, 1000), 80, 4096)
	if plan.Tier == types.TierNoGPU {
		t.Fatal("GPU-present-too-small must stay distinct from NoGPU")
	}
	if plan.GPULayers != 0 {
		t.Fatalf("want 0 layers, got %d", plan.GPULayers)
	}
	if !strings.Contains(plan.Rationale, "too large") {
		t.Fatalf("rationale must surface the no-fit outcome: %q", plan.Rationale)
	}
}

func TestTier_BoundariesInclusive(t *testing.T) {
	p := DefaultPolicy()
	cases := []struct {
		totalMB int64
		want    types.Tier
	}{
		{6 * 1024, types.TierVeryLow},   // exactly 6 GiB
		{6*1024 + 1, types.TierLow},     // just above
		{8 * 1024, types.TierLow},       // exactly 8 GiB
		{8*1024 + 1, types.TierHigh},    // just above
		{4 * 1024, types.TierVeryLow},
		{24 * 1024, types.TierHigh},
	}
	for _, c := range cases {
		got := p.Tier(snap(c.totalMB, c.totalMB/2))
		if got != c.want {
			t.Fatalf("total %d MiB: got %s, want %s", c.totalMB, got, c.want)
		}
	}
	if p.Tier(types.VRAMSnapshot{}) != types.TierNoGPU {
		t.Fatal("absent GPU must classify NoGPU")
	}
}

func TestPlan_SafetyFactorSelection(t *testing.T) {
	p := DefaultPolicy()
	// Exactly 8 GiB total uses the conservative 0.7 factor:
	// 6400 MiB free * 0.7 = 4480 MiB / 120 MiB per layer = 37 -> capped at 20.
	low := p.Plan(llama7BQ4(), snap(8*1024, 6400), 32, 4096)
	if low.GPULayers != 20 {
		t.Fatalf("low: got %d layers", low.GPULayers)
	}
	// Just above 8 GiB uses 0.8 and no cap:
	// 3000 MiB free * 0.8 = 2400 MiB / 120 = 20 layers by budget alone.
	high := p.Plan(llama7BQ4(), snap(8*1024+512, 3000), 32, 4096)
	if high.Tier != types.TierHigh || high.GPULayers != 20 {
		t.Fatalf("high: got %+v", high)
	}
}

func TestPlan_CustomPolicy(t *testing.T) {
	p := DefaultPolicy()
	p.LowLayerCap = 8
	plan := p.Plan(llama7BQ4(), snap(8151, 7740), 32, 4096)
	if plan.GPULayers != 8 {
		t.Fatalf("custom cap not honored: %d", plan.GPULayers)
	}
}

func TestPlan_Deterministic(t *testing.T) {
	p := DefaultPolicy()
	a := p.Plan(llama7BQ4(), snap(8151, 7740), 32, 4096)
	b := p.Plan(llama7BQ4(), snap(8151, 7740), 32, 4096)
	if a != b {
		t.Fatalf("plans differ: %+v vs %+v", a, b)
	}
}

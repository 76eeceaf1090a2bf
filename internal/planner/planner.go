// Package planner reconciles a memory estimate with a VRAM reading into a
// concrete load plan: GPU layer offload count, batch size, context size, and
// KV-cache placement. The planner never fails — given any valid estimate and
// any snapshot (including the degraded no-GPU one) it produces a plan,
// because refusing to plan is worse than planning conservatively.
package planner

import (
	"fmt"

	"ggufplan/pkg/types"
)

const gib = int64(1024 * 1024 * 1024)

// Policy holds the tunable constants of the decision table. The boundary and
// factor values are empirically chosen policy, not physical constraints, so
// they are explicit fields rather than hard-coded literals; DefaultPolicy
// returns the values the table was calibrated with.
type Policy struct {
	// Tier boundaries on total VRAM, inclusive: total <= VeryLowBytes is
	// VeryLow, total <= LowBytes is Low, above is High.
	VeryLowBytes int64
	LowBytes     int64

	// Headroom factors applied to free VRAM before budgeting layers.
	// SafetyFactorLow applies when total <= LowBytes, SafetyFactorHigh above.
	SafetyFactorLow  float64
	SafetyFactorHigh float64

	// Layer offload caps per constrained tier. High tier is uncapped.
	VeryLowLayerCap int
	LowLayerCap     int

	// Batch sizes per tier.
	NoGPUBatch   int
	VeryLowBatch int
	LowBatch     int
	HighBatch    int

	// Context caps for constrained tiers. High tier honors the request.
	NoGPUContextCap int
	LowContextCap   int
}

// DefaultPolicy returns the calibrated constants: 6/8 GiB tier boundaries,
// 0.7/0.8 safety factors, 12/20 layer caps.
func DefaultPolicy() Policy {
	return Policy{
		VeryLowBytes:     6 * gib,
		LowBytes:         8 * gib,
		SafetyFactorLow:  0.7,
		SafetyFactorHigh: 0.8,
		VeryLowLayerCap:  12,
		LowLayerCap:      20,
		NoGPUBatch:       128,
		VeryLowBatch:     128,
		LowBatch:         256,
		HighBatch:        512,
		NoGPUContextCap:  2048,
		LowContextCap:    4096,
	}
}

// Tier classifies a snapshot. The classification is a total order
// (NoGPU < VeryLow < Low < High) derived solely from GPU presence and total
// VRAM, recomputed fresh on every call.
func (p Policy) Tier(snap types.VRAMSnapshot) types.Tier {
	switch {
	case !snap.GPUPresent:
		return types.TierNoGPU
	case snap.TotalBytes <= p.VeryLowBytes:
		return types.TierVeryLow
	case snap.TotalBytes <= p.LowBytes:
		return types.TierLow
	default:
		return types.TierHigh
	}
}

// safetyFactor returns the headroom factor for a snapshot's capacity class.
func (p Policy) safetyFactor(snap types.VRAMSnapshot) float64 {
	if snap.TotalBytes <= p.LowBytes {
		return p.SafetyFactorLow
	}
	return p.SafetyFactorHigh
}

// Plan derives a load plan for a model whose weights cost est.WeightsBytes
// across layerCount layers, under the hardware state in snap. requestedContext
// of 0 means "the model's trained maximum" and is resolved by the caller
// before display; here it simply passes through tier capping.
func (p Policy) Plan(est types.MemoryEstimate, snap types.VRAMSnapshot, layerCount, requestedContext int) types.LoadPlan {
	tier := p.Tier(snap)

	if tier == types.TierNoGPU {
		return types.LoadPlan{
			GPULayers:    0,
			BatchSize:    p.NoGPUBatch,
			ContextSize:  capContext(requestedContext, p.NoGPUContextCap),
			KVCacheOnGPU: false,
			Tier:         tier,
			Rationale:    "No GPU detected - CPU-only mode",
		}
	}

	usable := int64(float64(snap.FreeBytes) * p.safetyFactor(snap))
	perLayer := est.BytesPerLayer(layerCount)

	maxByBudget := layerCount
	if perLayer > 0 {
		maxByBudget = int(usable / perLayer)
	}

	layers := min(maxByBudget, layerCount)
	capped := false
	switch tier {
	case types.TierVeryLow:
		if layers > p.VeryLowLayerCap {
			layers, capped = p.VeryLowLayerCap, true
		}
	case types.TierLow:
		if layers > p.LowLayerCap {
			layers, capped = p.LowLayerCap, true
		}
	}
	if layers < 0 {
		layers = 0
	}

	plan := types.LoadPlan{
		GPULayers: layers,
		Tier:      tier,
	}
	switch tier {
	case types.TierHigh:
		plan.BatchSize = p.HighBatch
		plan.ContextSize = requestedContext
		plan.KVCacheOnGPU = true
	case types.TierLow:
		plan.BatchSize = p.LowBatch
		plan.ContextSize = capContext(requestedContext, p.LowContextCap)
	case types.TierVeryLow:
		plan.BatchSize = p.VeryLowBatch
		plan.ContextSize = capContext(requestedContext, p.LowContextCap)
	}
	plan.Rationale = p.rationale(tier, snap, layers, layerCount, capped)
	return plan
}

// rationale names the deciding factor: the tier, the capacity that put us
// there, and whether the layer count came from the cap or the budget.
func (p Policy) rationale(tier types.Tier, snap types.VRAMSnapshot, layers, layerCount int, capped bool) string {
	gb := snap.TotalGB()
	switch {
	case tier == types.TierHigh:
		if layers < layerCount {
			return fmt.Sprintf("High VRAM (%.1fGB) - %d of %d layers fit within free-memory budget", gb, layers, layerCount)
		}
		return fmt.Sprintf("High VRAM (%.1fGB) - full GPU acceleration", gb)
	case layers == 0:
		// GPU present but nothing fits: distinct from the NoGPU case so
		// callers can tell "no GPU" from "GPU too small for this model".
		return fmt.Sprintf("GPU present (%.1fGB) but model too large for any layer offload", gb)
	case tier == types.TierVeryLow:
		if capped {
			return fmt.Sprintf("Very low VRAM (%.1fGB) - capped at %d layers for stability", gb, layers)
		}
		return fmt.Sprintf("Very low VRAM (%.1fGB) - aggressive optimization, ~%d layers", gb, layers)
	default:
		if capped {
			return fmt.Sprintf("Low VRAM (%.1fGB) - capped at %d layers for stability", gb, layers)
		}
		return fmt.Sprintf("Low VRAM (%.1fGB) - optimized for efficiency, ~%d layers", gb, layers)
	}
}

func capContext(requested, limit int) int {
	if requested <= 0 || requested > limit {
		return limit
	}
	return requested
}

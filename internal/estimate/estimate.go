// Package estimate turns architecture parameters into a static memory
// budget. Pure functions, exact byte arithmetic: the totals feed admission
// decisions, so no floating-point drift is tolerated.
package estimate

import (
	"errors"
	"fmt"

	"ggufplan/internal/quant"
	"ggufplan/pkg/types"
)

// invalidParamsError marks estimator input that failed validation. This is a
// programmer-error class: a correctly resolved ArchitectureParams can never
// trigger it.
type invalidParamsError struct{ reason string }

func (e invalidParamsError) Error() string { return "invalid estimator params: " + e.reason }

// IsInvalidParams reports whether err indicates rejected estimator input.
func IsInvalidParams(err error) bool {
	var ip invalidParamsError
	return errors.As(err, &ip)
}

const (
	f32Width = 4 // embeddings are always stored at F32 width
	kvWidth  = 2 // KV cache elements are F16; a fixed assumption, not a knob

	// Per-layer weight tensors: attention projections (4 x embd^2) plus the
	// MLP up/down/gate projections (8 x embd^2).
	weightBlocksPerLayer = 12
)

// Estimate computes the memory breakdown for loading a model described by p.
// Deterministic and side-effect free; calling twice yields identical output.
// Unknown quantization tags fail closed to F16.
func Estimate(p types.ArchitectureParams) (types.MemoryEstimate, error) {
	switch {
	case p.LayerCount <= 0:
		return types.MemoryEstimate{}, invalidParamsError{reason: fmt.Sprintf("layer_count %d", p.LayerCount)}
	case p.EmbeddingDim <= 0:
		return types.MemoryEstimate{}, invalidParamsError{reason: fmt.Sprintf("embedding_dim %d", p.EmbeddingDim)}
	case p.ContextLength <= 0:
		return types.MemoryEstimate{}, invalidParamsError{reason: fmt.Sprintf("context_length %d", p.ContextLength)}
	case p.VocabSize <= 0:
		return types.MemoryEstimate{}, invalidParamsError{reason: fmt.Sprintf("vocab_size %d", p.VocabSize)}
	}

	sixteenths, ok := quant.Sixteenths(p.Quant)
	if !ok {
		sixteenths, _ = quant.Sixteenths(types.F16)
	}

	vocab := int64(p.VocabSize)
	ctx := int64(p.ContextLength)
	embd := int64(p.EmbeddingDim)
	layers := int64(p.LayerCount)

	e := types.MemoryEstimate{
		EmbeddingsBytes: vocab * embd * f32Width,
		KVCacheBytes:    2 * ctx * layers * embd * kvWidth,
		WeightsBytes:    layers * weightBlocksPerLayer * embd * embd * sixteenths / 16,
		OverheadBytes:   (6 + 12*layers) * 1024,
	}
	e.TotalBytes = e.EmbeddingsBytes + e.KVCacheBytes + e.WeightsBytes + e.OverheadBytes
	return e, nil
}

// EstimateAtContext recomputes the budget with the context length overridden,
// leaving every other parameter untouched. Used when a caller plans for a
// smaller window than the model's trained maximum.
func EstimateAtContext(p types.ArchitectureParams, ctx int) (types.MemoryEstimate, error) {
	if ctx > 0 {
		p.ContextLength = ctx
	}
	return Estimate(p)
}

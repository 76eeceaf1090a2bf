package types

// QuantType is a GGML quantization tag (e.g. "Q4_0", "F16").
type QuantType string

// Quantization tags understood by the bytes-per-element table.
// Filename variants like Q4_K_M collapse onto their base K tag.
const (
	F32  QuantType = "F32"
	F16  QuantType = "F16"
	Q4_0 QuantType = "Q4_0"
	Q4_1 QuantType = "Q4_1"
	Q5_0 QuantType = "Q5_0"
	Q5_1 QuantType = "Q5_1"
	Q8_0 QuantType = "Q8_0"
	Q8_1 QuantType = "Q8_1"
	Q2_K QuantType = "Q2_K"
	Q3_K QuantType = "Q3_K"
	Q4_K QuantType = "Q4_K"
	Q5_K QuantType = "Q5_K"
	Q6_K QuantType = "Q6_K"
	Q8_K QuantType = "Q8_K"
)

// ArchitectureParams is an immutable snapshot of a model's hyperparameters,
// resolved once per file from GGUF metadata with filename heuristics as
// fallback. Missing optional fields are replaced with documented defaults by
// the resolver, so zero values never escape it.
type ArchitectureParams struct {
	// Architecture tag, e.g. "llama", "qwen2", "mamba".
	// example: llama
	Architecture string `json:"architecture" example:"llama"`
	// Vocabulary size.
	// example: 32000
	VocabSize int `json:"vocab_size" example:"32000"`
	// Trained maximum context length in tokens.
	// example: 4096
	ContextLength int `json:"context_length" example:"4096"`
	// Embedding dimension.
	// example: 4096
	EmbeddingDim int `json:"embedding_dim" example:"4096"`
	// Attention head count.
	// example: 32
	HeadCount int `json:"head_count" example:"32"`
	// Key/value head count (equal to HeadCount unless the model uses GQA).
	// example: 32
	KVHeadCount int `json:"kv_head_count" example:"32"`
	// Transformer layer (block) count. Always > 0 once resolved.
	// example: 32
	LayerCount int `json:"layer_count" example:"32"`
	// Expert count; 0 for non-MoE models.
	// example: 0
	ExpertCount int `json:"expert_count" example:"0"`
	// Quantization of the weight tensors.
	// example: Q4_0
	Quant QuantType `json:"quant" example:"Q4_0"`
	// RoPE frequency base.
	// example: 10000
	RopeFreqBase float64 `json:"rope_freq_base" example:"10000"`
	// True when the quantization could not be determined and F16 was assumed.
	QuantAssumed bool `json:"quant_assumed,omitempty"`
}

// IsMoE reports whether the model is a mixture-of-experts model.
func (p ArchitectureParams) IsMoE() bool { return p.ExpertCount > 1 }

// KVRatio returns the key/value to query head ratio used by GQA models,
// or 1.0 when the model does not use grouped-query attention.
func (p ArchitectureParams) KVRatio() float64 {
	if p.HeadCount <= 0 || p.KVHeadCount <= 0 || p.KVHeadCount >= p.HeadCount {
		return 1.0
	}
	return float64(p.KVHeadCount) / float64(p.HeadCount)
}

// MemoryEstimate is the static memory budget for loading a model, derived
// once from ArchitectureParams. Internal arithmetic is exact bytes; the MB/GB
// views exist for display only. Invariant: TotalBytes is the sum of the four
// components.
type MemoryEstimate struct {
	// Token embedding table, always held at F32 width.
	// example: 524288000
	EmbeddingsBytes int64 `json:"embeddings_bytes" example:"524288000"`
	// K and V attention cache at F16 width for the full context.
	// example: 2147483648
	KVCacheBytes int64 `json:"kv_cache_bytes" example:"2147483648"`
	// Quantized weight tensors across all layers.
	// example: 4026531840
	WeightsBytes int64 `json:"weights_bytes" example:"4026531840"`
	// Fixed bookkeeping allowance per layer plus a small constant.
	// example: 399360
	OverheadBytes int64 `json:"overhead_bytes" example:"399360"`
	// Sum of the four components.
	// example: 6698702848
	TotalBytes int64 `json:"total_bytes" example:"6698702848"`
}

// TotalMB returns the total in binary megabytes.
func (e MemoryEstimate) TotalMB() float64 { return float64(e.TotalBytes) / (1024 * 1024) }

// TotalGB returns the total in binary gigabytes.
func (e MemoryEstimate) TotalGB() float64 { return float64(e.TotalBytes) / (1024 * 1024 * 1024) }

// BytesPerLayer returns the weight bytes attributable to one layer.
func (e MemoryEstimate) BytesPerLayer(layers int) int64 {
	if layers <= 0 {
		return 0
	}
	return e.WeightsBytes / int64(layers)
}

// VRAMSnapshot is a point-in-time GPU memory reading. A failed or absent GPU
// query yields the zero snapshot with GPUPresent false; callers branch on
// that rather than on an error. Snapshots are never reused across planning
// calls because VRAM usage is externally volatile.
type VRAMSnapshot struct {
	// Total device memory in bytes.
	// example: 8547991552
	TotalBytes int64 `json:"total_bytes" example:"8547991552"`
	// Device memory currently in use, in bytes.
	// example: 431013888
	UsedBytes int64 `json:"used_bytes" example:"431013888"`
	// Device memory currently free, in bytes.
	// example: 8116977664
	FreeBytes int64 `json:"free_bytes" example:"8116977664"`
	// False when no GPU (or no driver tool) is available.
	// example: true
	GPUPresent bool `json:"gpu_present" example:"true"`
}

// UsedPercent returns used memory as a percentage of total.
func (s VRAMSnapshot) UsedPercent() float64 {
	if s.TotalBytes <= 0 {
		return 0
	}
	return float64(s.UsedBytes) / float64(s.TotalBytes) * 100
}

// TotalGB returns total device memory in binary gigabytes.
func (s VRAMSnapshot) TotalGB() float64 { return float64(s.TotalBytes) / (1024 * 1024 * 1024) }

// FreeGB returns free device memory in binary gigabytes.
func (s VRAMSnapshot) FreeGB() float64 { return float64(s.FreeBytes) / (1024 * 1024 * 1024) }

// Tier is a coarse VRAM-capacity classification driving conservative
// parameter choices. Ordering: NoGPU < VeryLow < Low < High.
type Tier string

const (
	TierNoGPU   Tier = "nogpu"
	TierVeryLow Tier = "verylow"
	TierLow     Tier = "low"
	TierHigh    Tier = "high"
)

// LoadPlan is the optimizer's verdict for one load attempt: how many layers
// to offload, the batch and context sizes to request, and where the KV cache
// should live. Plans are disposable values recomputed per attempt.
type LoadPlan struct {
	// Number of layers to place on the GPU, 0..LayerCount.
	// example: 20
	GPULayers int `json:"gpu_layers" example:"20"`
	// Prompt processing batch size.
	// example: 256
	BatchSize int `json:"batch_size" example:"256"`
	// Context window to load with.
	// example: 4096
	ContextSize int `json:"context_size" example:"4096"`
	// Whether the KV cache should reside on the GPU.
	// example: false
	KVCacheOnGPU bool `json:"kv_cache_on_gpu" example:"false"`
	// VRAM capacity tier the plan was derived under.
	// example: low
	Tier Tier `json:"tier" example:"low"`
	// Human-readable explanation naming the deciding factor. Shown to the
	// user before the actual (slow) load begins.
	// example: Low VRAM (8.0GB) - capped at 20 layers for stability
	Rationale string `json:"rationale" example:"Low VRAM (8.0GB) - capped at 20 layers for stability"`
}

// Model represents a discoverable GGUF model file on disk.
type Model struct {
	// Stable identifier (the file name).
	// example: tinyllama-q4_k_m.gguf
	ID string `json:"id" example:"tinyllama-q4_k_m.gguf"`
	// Human-friendly name.
	// example: tinyllama-q4_k_m.gguf
	Name string `json:"name" example:"tinyllama-q4_k_m.gguf"`
	// Absolute path to the model file.
	// example: /home/user/models/tinyllama-q4_k_m.gguf
	Path string `json:"path" example:"/home/user/models/tinyllama-q4_k_m.gguf"`
	// Quantization tag inferred from the file name, if any.
	// example: Q4_K
	Quant string `json:"quant,omitempty" example:"Q4_K"`
	// Architecture family inferred from the file name, if any.
	// example: llama
	Family string `json:"family,omitempty" example:"llama"`
	// File size in bytes.
	// example: 668788096
	SizeBytes int64 `json:"size_bytes" example:"668788096"`
}

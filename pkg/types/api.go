package types

// PlanRequest is the payload for POST /plan and POST /estimate.
type PlanRequest struct {
	// Model identifier from the registry. If empty, the server default is used.
	// example: tinyllama-q4_k_m.gguf
	Model string `json:"model,omitempty" example:"tinyllama-q4_k_m.gguf"`
	// Requested context size in tokens. 0 means the model's trained maximum.
	// example: 4096
	Context int `json:"context,omitempty" example:"4096"`
}

// PlanResponse carries everything the calling UI needs to display before a
// load begins: the resolved parameters, the memory breakdown, the hardware
// reading the plan was based on, and the plan itself.
type PlanResponse struct {
	// Model identifier the plan was produced for.
	// example: tinyllama-q4_k_m.gguf
	Model string `json:"model" example:"tinyllama-q4_k_m.gguf"`
	// Resolved architecture parameters.
	Params ArchitectureParams `json:"params"`
	// Static memory budget.
	Estimate MemoryEstimate `json:"estimate"`
	// VRAM reading the plan was derived from.
	VRAM VRAMSnapshot `json:"vram"`
	// The load plan.
	Plan LoadPlan `json:"plan"`
}

// EstimateResponse is returned by POST /estimate.
type EstimateResponse struct {
	// Model identifier the estimate was produced for.
	// example: tinyllama-q4_k_m.gguf
	Model string `json:"model" example:"tinyllama-q4_k_m.gguf"`
	// Resolved architecture parameters.
	Params ArchitectureParams `json:"params"`
	// Static memory budget.
	Estimate MemoryEstimate `json:"estimate"`
}

// ModelsResponse wraps the list of models returned by GET /models.
type ModelsResponse struct {
	// List of discoverable models.
	Models []Model `json:"models"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: model not found: missing.gguf
	Error string `json:"error" example:"model not found: missing.gguf"`
	// HTTP status code.
	// example: 404
	Code int `json:"code" example:"404"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Number of models in the registry.
	// example: 4
	ModelCount int `json:"model_count" example:"4"`
	// Most recent VRAM reading (taken fresh for this response).
	VRAM VRAMSnapshot `json:"vram"`
	// Total host RAM in bytes, 0 if unavailable.
	// example: 33554432000
	HostRAMBytes uint64 `json:"host_ram_bytes" example:"33554432000"`
	// Total plans served since startup.
	// example: 12
	PlansTotal uint64 `json:"plans_total" example:"12"`
	// Last error observed while planning (if any).
	LastError string `json:"last_error,omitempty"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
}

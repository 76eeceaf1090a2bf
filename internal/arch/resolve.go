// Package arch resolves a model's architecture parameters from parsed GGUF
// metadata, falling back to filename heuristics when metadata is absent.
// Metadata-derived values always win over filename inference.
package arch

import (
	"errors"
	"path/filepath"
	"strings"

	"ggufplan/internal/gguf"
	"ggufplan/internal/quant"
	"ggufplan/pkg/types"
)

// Defaults for optional metadata fields. Non-zero so downstream arithmetic
// never divides by zero on a sparse but otherwise valid file.
const (
	defaultVocabSize    = 32000
	defaultContext      = 2048
	defaultEmbeddingDim = 4096
	defaultHeadCount    = 32
	defaultLayerCount   = 32
	defaultRopeFreqBase = 10000
)

// filenameRules is the ordered fallback list for architecture inference from
// file names. First match wins; the order is a policy decision (an ambiguous
// name like "llama-qwen-merge.gguf" resolves to the earliest fragment).
var filenameRules = []struct {
	fragment string
	arch     string
}{
	{"llama", "llama"},
	{"mixtral", "mixtral"},
	{"mistral", "mistral"},
	{"qwen", "qwen2"},
	{"gemma", "gemma"},
	{"phi", "phi"},
	{"falcon", "falcon"},
	{"mamba", "mamba"},
}

// unresolvableError marks a file whose metadata yields unusable parameters
// (layer count zero). Distinct from a malformed container: the file may be a
// valid container for an architecture this planner does not understand.
type unresolvableError struct {
	path   string
	reason string
}

func (e unresolvableError) Error() string {
	return "unresolvable architecture for " + e.path + ": " + e.reason
}

// IsUnresolvable reports whether err indicates an unsupported or degenerate
// architecture.
func IsUnresolvable(err error) bool {
	var u unresolvableError
	return errors.As(err, &u)
}

// FamilyFromFilename applies the ordered fallback rules to a file name.
// Best-effort; returns false when no fragment matches.
func FamilyFromFilename(name string) (string, bool) {
	lower := strings.ToLower(filepath.Base(name))
	for _, r := range filenameRules {
		if strings.Contains(lower, r.fragment) {
			return r.arch, true
		}
	}
	return "", false
}

// Resolve produces ArchitectureParams from parsed metadata plus the file name
// as a fallback signal. Missing optional fields take documented defaults;
// a resolved layer count of zero fails with an unresolvable-architecture
// error rather than letting downstream arithmetic divide by zero.
func Resolve(md *gguf.Metadata, path string) (types.ArchitectureParams, error) {
	p := types.ArchitectureParams{}

	archTag, fromMeta := md.Str("general.architecture")
	if !fromMeta || archTag == "" {
		if tag, ok := FamilyFromFilename(path); ok {
			archTag = tag
		} else {
			archTag = "llama"
		}
	}
	p.Architecture = archTag

	p.ContextLength = intKey(md, archTag+".context_length", defaultContext)
	p.EmbeddingDim = intKey(md, archTag+".embedding_length", defaultEmbeddingDim)
	p.LayerCount = intKey(md, archTag+".block_count", defaultLayerCount)
	p.HeadCount = intKey(md, archTag+".attention.head_count", defaultHeadCount)
	p.KVHeadCount = intKey(md, archTag+".attention.head_count_kv", p.HeadCount)
	p.ExpertCount = intKey(md, archTag+".expert_count", 0)
	if f, ok := md.Float(archTag + ".rope.freq_base"); ok && f > 0 {
		p.RopeFreqBase = f
	} else {
		p.RopeFreqBase = defaultRopeFreqBase
	}

	if v, ok := md.Uint("tokenizer.ggml.token_count"); ok && v > 0 {
		p.VocabSize = int(v)
	} else if n := md.ArrayLen("tokenizer.ggml.tokens"); n > 0 {
		p.VocabSize = n
	} else {
		p.VocabSize = defaultVocabSize
	}

	p.Quant = resolveQuant(md, path, &p.QuantAssumed)

	// A block count present in metadata but zero means the file describes an
	// architecture this planner cannot size. Fail here, not downstream.
	if p.LayerCount <= 0 {
		return types.ArchitectureParams{}, unresolvableError{path: path, reason: "layer count resolves to 0"}
	}
	return p, nil
}

// resolveQuant reads general.file_type, falls back to filename tags, and
// finally assumes F16 with the assumed flag set. Never returns an empty tag.
func resolveQuant(md *gguf.Metadata, path string, assumed *bool) types.QuantType {
	if ft, ok := md.Uint("general.file_type"); ok {
		if q, ok := quant.FromFileType(ft); ok {
			return q
		}
	}
	if q, ok := quant.FromFilename(filepath.Base(path)); ok {
		return q
	}
	*assumed = true
	return types.F16
}

// intKey fetches an integer metadata value, applying def when the key is
// absent or not integer-typed. A present-but-zero value is returned as zero
// so Resolve can distinguish "missing" from "explicitly degenerate".
func intKey(md *gguf.Metadata, key string, def int) int {
	v, ok := md.KV[key]
	if !ok {
		return def
	}
	u, ok := v.Uint()
	if !ok {
		return def
	}
	return int(u)
}

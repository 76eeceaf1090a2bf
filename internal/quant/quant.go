// Package quant holds the static quantization type table: the effective
// bytes-per-element of every GGML quantization format the estimator
// understands, plus lookups that map GGUF file_type values and filename tags
// onto table entries.
package quant

import (
	"strings"

	"ggufplan/pkg/types"
)

// sixteenths holds effective size per element in sixteenths of a byte, so
// that weight arithmetic stays exact integer math (every GGML block format
// works out to a multiple of 1/16 byte per element, block overhead included).
var sixteenths = map[types.QuantType]int64{
	types.F32:  64, // 4.0 bytes
	types.F16:  32, // 2.0
	types.Q8_0: 18, // 1.125, 8-bit + block scale
	types.Q8_1: 20, // 1.25
	types.Q4_0: 10, // 0.625, 4-bit + block scale
	types.Q4_1: 11, // 0.6875
	types.Q5_0: 12, // 0.75
	types.Q5_1: 13, // 0.8125
	types.Q2_K: 5,  // 0.3125
	types.Q3_K: 7,  // 0.4375
	types.Q4_K: 9,  // 0.5625
	types.Q5_K: 11, // 0.6875
	types.Q6_K: 13, // 0.8125
	types.Q8_K: 17, // 1.0625
}

// Sixteenths returns the effective element size in sixteenths of a byte.
func Sixteenths(t types.QuantType) (int64, bool) {
	v, ok := sixteenths[t]
	return v, ok
}

// BytesPerElement returns the effective bytes per element for a tag.
func BytesPerElement(t types.QuantType) (float64, bool) {
	v, ok := sixteenths[t]
	if !ok {
		return 0, false
	}
	return float64(v) / 16, true
}

// fileTypes maps the GGUF general.file_type enum (llama.cpp ftype values)
// onto table tags. K-quant size variants share their base tag's element size.
var fileTypes = map[uint64]types.QuantType{
	0:  types.F32,
	1:  types.F16,
	2:  types.Q4_0,
	3:  types.Q4_1,
	7:  types.Q8_0,
	8:  types.Q5_0,
	9:  types.Q5_1,
	10: types.Q2_K,
	11: types.Q3_K, // Q3_K_S
	12: types.Q3_K, // Q3_K_M
	13: types.Q3_K, // Q3_K_L
	14: types.Q4_K, // Q4_K_S
	15: types.Q4_K, // Q4_K_M
	16: types.Q5_K, // Q5_K_S
	17: types.Q5_K, // Q5_K_M
	18: types.Q6_K,
}

// FromFileType maps a GGUF general.file_type value onto a table tag.
func FromFileType(ft uint64) (types.QuantType, bool) {
	t, ok := fileTypes[ft]
	return t, ok
}

// filenameTags is the ordered filename-match list: longer tags first so
// "Q4_K_M" is recognized before "Q4_K" and "Q4_0" never shadows either.
var filenameTags = []struct {
	tag   string
	quant types.QuantType
}{
	{"Q2_K_S", types.Q2_K},
	{"Q3_K_S", types.Q3_K},
	{"Q3_K_M", types.Q3_K},
	{"Q3_K_L", types.Q3_K},
	{"Q4_K_S", types.Q4_K},
	{"Q4_K_M", types.Q4_K},
	{"Q5_K_S", types.Q5_K},
	{"Q5_K_M", types.Q5_K},
	{"Q2_K", types.Q2_K},
	{"Q3_K", types.Q3_K},
	{"Q4_K", types.Q4_K},
	{"Q5_K", types.Q5_K},
	{"Q6_K", types.Q6_K},
	{"Q8_K", types.Q8_K},
	{"Q4_0", types.Q4_0},
	{"Q4_1", types.Q4_1},
	{"Q5_0", types.Q5_0},
	{"Q5_1", types.Q5_1},
	{"Q8_0", types.Q8_0},
	{"Q8_1", types.Q8_1},
	{"F16", types.F16},
	{"FP16", types.F16},
	{"F32", types.F32},
	{"FP32", types.F32},
}

// FromFilename infers a quantization tag from a model file name. Best-effort:
// first match in the ordered list wins.
func FromFilename(name string) (types.QuantType, bool) {
	upper := strings.ToUpper(name)
	for _, e := range filenameTags {
		if strings.Contains(upper, e.tag) {
			return e.quant, true
		}
	}
	return "", false
}

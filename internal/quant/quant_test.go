package quant

import (
	"testing"

	"ggufplan/pkg/types"
)

func TestTablePositiveAndDocumented(t *testing.T) {
	cases := []struct {
		quant types.QuantType
		bytes float64
	}{
		{types.F32, 4.0},
		{types.F16, 2.0},
		{types.Q8_0, 1.125},
		{types.Q8_1, 1.25},
		{types.Q4_0, 0.625},
		{types.Q4_1, 0.6875},
		{types.Q5_0, 0.75},
		{types.Q5_1, 0.8125},
		{types.Q2_K, 0.3125},
		{types.Q3_K, 0.4375},
		{types.Q4_K, 0.5625},
		{types.Q5_K, 0.6875},
		{types.Q6_K, 0.8125},
		{types.Q8_K, 1.0625},
	}
	for _, c := range cases {
		got, ok := BytesPerElement(c.quant)
		if !ok {
			t.Fatalf("%s missing from table", c.quant)
		}
		if got != c.bytes {
			t.Fatalf("%s: got %v bytes/element, want %v", c.quant, got, c.bytes)
		}
		if got <= 0 {
			t.Fatalf("%s: non-positive element size", c.quant)
		}
	}
}

func TestUnknownTagFailsClosed(t *testing.T) {
	if _, ok := BytesPerElement(types.QuantType("IQ9_Z")); ok {
		t.Fatal("unknown tag should not resolve")
	}
	if _, ok := Sixteenths(types.QuantType("")); ok {
		t.Fatal("empty tag should not resolve")
	}
}

func TestFromFileType(t *testing.T) {
	cases := []struct {
		ft   uint64
		want types.QuantType
	}{
		{0, types.F32},
		{1, types.F16},
		{2, types.Q4_0},
		{7, types.Q8_0},
		{15, types.Q4_K}, // Q4_K_M
		{18, types.Q6_K},
	}
	for _, c := range cases {
		got, ok := FromFileType(c.ft)
		if !ok || got != c.want {
			t.Fatalf("file_type %d: got %q ok=%v, want %q", c.ft, got, ok, c.want)
		}
	}
	if _, ok := FromFileType(999); ok {
		t.Fatal("unknown file_type should not resolve")
	}
}

func TestFromFilename(t *testing.T) {
	cases := []struct {
		name string
		want types.QuantType
		ok   bool
	}{
		{"llama-2-7b.Q4_K_M.gguf", types.Q4_K, true},
		{"llama-2-7b.q4_0.gguf", types.Q4_0, true},
		{"mistral-7b-instruct.Q5_K_S.gguf", types.Q5_K, true},
		{"model-f16.gguf", types.F16, true},
		{"model-fp32.gguf", types.F32, true},
		{"ambiguous-Q4_K-not-Q4_0.gguf", types.Q4_K, true},
		{"plain-model.gguf", "", false},
	}
	for _, c := range cases {
		got, ok := FromFilename(c.name)
		if ok != c.ok || got != c.want {
			t.Fatalf("%s: got %q ok=%v, want %q ok=%v", c.name, got, ok, c.want, c.ok)
		}
	}
}

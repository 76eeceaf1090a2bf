// Package gguf reads the header and key/value metadata section of a GGUF
// model container without touching tensor payload bytes. The file is opened
// read-only and closed before the call returns.
package gguf

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

// Magic is the GGUF magic number ("GGUF" little-endian) at offset 0.
const Magic uint32 = 0x46554747

// Guards against corrupt length fields; exceeding either is treated as a
// malformed container rather than an allocation attempt.
const (
	maxStringLen = 1 << 24 // 16 MiB, chat templates are the largest strings seen
	maxArrayLen  = 1 << 21 // tokenizer vocabularies top out well below this
	maxArrayDepth = 4
)

// errUnknownType stops key/value parsing tolerantly: the wire format carries
// no byte length for unknown scalar tags, so the remainder of the KV section
// cannot be interpreted.
var errUnknownType = errors.New("unknown value type")

// Metadata is the parsed header and key/value section of a container.
type Metadata struct {
	Version     uint32
	TensorCount uint64
	KVCount     uint64
	KV          map[string]Value
	// Incomplete is set when an unknown future value type terminated KV
	// parsing early; everything parsed up to that point is kept.
	Incomplete bool
}

// Uint looks up an unsigned integer metadata value.
func (m *Metadata) Uint(key string) (uint64, bool) {
	v, ok := m.KV[key]
	if !ok {
		return 0, false
	}
	return v.Uint()
}

// Float looks up a float metadata value.
func (m *Metadata) Float(key string) (float64, bool) {
	v, ok := m.KV[key]
	if !ok {
		return 0, false
	}
	return v.Float()
}

// Str looks up a string metadata value.
func (m *Metadata) Str(key string) (string, bool) {
	v, ok := m.KV[key]
	if !ok {
		return "", false
	}
	return v.Str()
}

// ArrayLen returns the length of an array metadata value, 0 if absent.
func (m *Metadata) ArrayLen(key string) int {
	v, ok := m.KV[key]
	if !ok {
		return 0
	}
	a, ok := v.Array()
	if !ok {
		return 0
	}
	return len(a)
}

// ReadFile parses the header and metadata of the container at path.
// Errors: missing file (IsNotFound), bad magic or truncated fields
// (IsMalformed), other I/O failures propagated wrapped.
func ReadFile(path string) (*Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, notFoundError{path: path}
		}
		return nil, fmt.Errorf("open gguf: %w", err)
	}
	defer f.Close()

	r := &reader{br: bufio.NewReader(f), path: path}

	magic, err := r.uint32()
	if err != nil {
		return nil, err
	}
	if magic != Magic {
		return nil, malformedError{path: path, reason: fmt.Sprintf("bad magic 0x%08x", magic)}
	}

	md := &Metadata{KV: make(map[string]Value)}
	if md.Version, err = r.uint32(); err != nil {
		return nil, err
	}

	// v1 used 32-bit counts; v2 widened them to 64-bit.
	if md.Version == 1 {
		var nt, nk uint32
		if nt, err = r.uint32(); err != nil {
			return nil, err
		}
		if nk, err = r.uint32(); err != nil {
			return nil, err
		}
		md.TensorCount, md.KVCount = uint64(nt), uint64(nk)
	} else {
		if md.TensorCount, err = r.uint64(); err != nil {
			return nil, err
		}
		if md.KVCount, err = r.uint64(); err != nil {
			return nil, err
		}
	}
	if md.KVCount > maxArrayLen {
		return nil, malformedError{path: path, reason: fmt.Sprintf("implausible kv count %d", md.KVCount)}
	}

	for i := uint64(0); i < md.KVCount; i++ {
		key, err := r.str()
		if err != nil {
			return nil, err
		}
		val, err := r.value(0)
		if err != nil {
			if errors.Is(err, errUnknownType) {
				md.Incomplete = true
				break
			}
			return nil, err
		}
		md.KV[key] = val
	}
	return md, nil
}

// reader wraps the buffered stream with little-endian field decoding.
// Short reads surface as malformed containers, not raw EOF.
type reader struct {
	br   *bufio.Reader
	path string
}

func (r *reader) fail(err error, what string) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return malformedError{path: r.path, reason: "truncated reading " + what}
	}
	return fmt.Errorf("read gguf %s: %w", what, err)
}

func (r *reader) bytes(n int, what string) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(r.br, b); err != nil {
		return nil, r.fail(err, what)
	}
	return b, nil
}

func (r *reader) uint32() (uint32, error) {
	b, err := r.bytes(4, "uint32")
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *reader) uint64() (uint64, error) {
	b, err := r.bytes(8, "uint64")
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *reader) str() (string, error) {
	n, err := r.uint64()
	if err != nil {
		return "", err
	}
	if n > maxStringLen {
		return "", malformedError{path: r.path, reason: fmt.Sprintf("string length %d exceeds limit", n)}
	}
	if n == 0 {
		return "", nil
	}
	b, err := r.bytes(int(n), "string")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *reader) value(depth int) (Value, error) {
	t, err := r.uint32()
	if err != nil {
		return Value{}, err
	}
	return r.typedValue(ValueType(t), depth)
}

func (r *reader) typedValue(t ValueType, depth int) (Value, error) {
	v := Value{Type: t}
	switch t {
	case TypeUint8:
		b, err := r.bytes(1, "uint8")
		if err != nil {
			return v, err
		}
		v.U = uint64(b[0])
	case TypeInt8:
		b, err := r.bytes(1, "int8")
		if err != nil {
			return v, err
		}
		v.I = int64(int8(b[0]))
	case TypeUint16:
		b, err := r.bytes(2, "uint16")
		if err != nil {
			return v, err
		}
		v.U = uint64(binary.LittleEndian.Uint16(b))
	case TypeInt16:
		b, err := r.bytes(2, "int16")
		if err != nil {
			return v, err
		}
		v.I = int64(int16(binary.LittleEndian.Uint16(b)))
	case TypeUint32:
		u, err := r.uint32()
		if err != nil {
			return v, err
		}
		v.U = uint64(u)
	case TypeInt32:
		u, err := r.uint32()
		if err != nil {
			return v, err
		}
		v.I = int64(int32(u))
	case TypeFloat32:
		u, err := r.uint32()
		if err != nil {
			return v, err
		}
		v.F = float64(math.Float32frombits(u))
	case TypeBool:
		b, err := r.bytes(1, "bool")
		if err != nil {
			return v, err
		}
		v.B = b[0] != 0
	case TypeString:
		s, err := r.str()
		if err != nil {
			return v, err
		}
		v.S = s
	case TypeUint64:
		u, err := r.uint64()
		if err != nil {
			return v, err
		}
		v.U = u
	case TypeInt64:
		u, err := r.uint64()
		if err != nil {
			return v, err
		}
		v.I = int64(u)
	case TypeFloat64:
		u, err := r.uint64()
		if err != nil {
			return v, err
		}
		v.F = math.Float64frombits(u)
	case TypeArray:
		if depth >= maxArrayDepth {
			return v, malformedError{path: r.path, reason: "array nesting exceeds limit"}
		}
		et, err := r.uint32()
		if err != nil {
			return v, err
		}
		n, err := r.uint64()
		if err != nil {
			return v, err
		}
		if n > maxArrayLen {
			return v, malformedError{path: r.path, reason: fmt.Sprintf("array length %d exceeds limit", n)}
		}
		v.A = make([]Value, 0, n)
		for i := uint64(0); i < n; i++ {
			ev, err := r.typedValue(ValueType(et), depth+1)
			if err != nil {
				return v, err
			}
			v.A = append(v.A, ev)
		}
	default:
		return v, errUnknownType
	}
	return v, nil
}

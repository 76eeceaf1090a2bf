package vram

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

// fakeRunner answers nvidia-smi queries from a canned map keyed on the
// --query-gpu argument.
func fakeRunner(answers map[string]string, err error) runner {
	return func(ctx context.Context, name string, args ...string) ([]byte, error) {
		if err != nil {
			return nil, err
		}
		if name != "nvidia-smi" {
			return nil, errors.New("unexpected command " + name)
		}
		for _, a := range args {
			if strings.HasPrefix(a, "--query-gpu=") {
				if out, ok := answers[strings.TrimPrefix(a, "--query-gpu=")]; ok {
					return []byte(out), nil
				}
			}
		}
		return nil, errors.New("no canned answer")
	}
}

func TestSnapshot_ParsesCSV(t *testing.T) {
	m := New(withRunner(fakeRunner(map[string]string{
		"memory.total":            "8151\n",
		"memory.used,memory.free": "411, 7740\n",
	}, nil)))
	s := m.Snapshot(context.Background())
	if !s.GPUPresent {
		t.Fatalf("expected GPU present: %+v", s)
	}
	if s.TotalBytes != 8151*mib || s.UsedBytes != 411*mib || s.FreeBytes != 7740*mib {
		t.Fatalf("unexpected snapshot: %+v", s)
	}
	if s.UsedBytes+s.FreeBytes > s.TotalBytes {
		t.Fatalf("used+free exceeds total: %+v", s)
	}
}

func TestSnapshot_MultiGPUUsesFirstLine(t *testing.T) {
	m := New(withRunner(fakeRunner(map[string]string{
		"memory.total":            "24576\n8192\n",
		"memory.used,memory.free": "1024, 23552\n100, 8092\n",
	}, nil)))
	s := m.Snapshot(context.Background())
	if s.TotalBytes != 24576*mib || s.FreeBytes != 23552*mib {
		t.Fatalf("expected first device: %+v", s)
	}
}

func TestSnapshot_CommandFailureDegrades(t *testing.T) {
	m := New(withRunner(fakeRunner(nil, errors.New("exec: nvidia-smi not found"))))
	s := m.Snapshot(context.Background())
	if s.GPUPresent || s.TotalBytes != 0 || s.UsedBytes != 0 || s.FreeBytes != 0 {
		t.Fatalf("failure must degrade to no-GPU snapshot: %+v", s)
	}
}

func TestSnapshot_ParseFailureDegrades(t *testing.T) {
	m := New(withRunner(fakeRunner(map[string]string{
		"memory.total":            "not-a-number\n",
		"memory.used,memory.free": "411, 7740\n",
	}, nil)))
	if s := m.Snapshot(context.Background()); s.GPUPresent {
		t.Fatalf("parse failure must degrade: %+v", s)
	}
}

func TestSnapshot_TimeoutDegrades(t *testing.T) {
	slow := func(ctx context.Context, name string, args ...string) ([]byte, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(5 * time.Second):
			return []byte("8151"), nil
		}
	}
	m := New(WithTimeout(20*time.Millisecond), withRunner(slow))
	start := time.Now()
	s := m.Snapshot(context.Background())
	if s.GPUPresent {
		t.Fatalf("timeout must degrade: %+v", s)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatal("snapshot must not hang past its timeout")
	}
}

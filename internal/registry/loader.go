// Package registry discovers GGUF model files on disk and builds the model
// list the planner serves. Entries are enriched with best-effort quant and
// family tags from the file name; authoritative values come from metadata at
// plan time.
package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ggufplan/internal/arch"
	"ggufplan/internal/quant"
	"ggufplan/pkg/types"
)

// LoadDir scans a directory for *.gguf files and builds a registry.
// ID is the full filename (including extension); Path is the absolute path.
func LoadDir(dir string) ([]types.Model, error) {
	base, err := expandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var models []types.Model
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(strings.ToLower(name), ".gguf") {
			continue
		}
		m := types.Model{ID: name, Name: name, Path: filepath.Join(abs, name)}
		if info, err := e.Info(); err == nil {
			m.SizeBytes = info.Size()
		}
		if q, ok := quant.FromFilename(name); ok {
			m.Quant = string(q)
		}
		if fam, ok := arch.FamilyFromFilename(name); ok {
			m.Family = fam
		}
		models = append(models, m)
	}
	return models, nil
}

// expandHome expands a leading '~' to the user's home directory.
func expandHome(path string) (string, error) {
	if path == "" {
		return path, nil
	}
	if path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
}

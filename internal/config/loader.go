package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and will be replaced by defaults in main.
type Config struct {
	Addr             string `json:"addr" yaml:"addr" toml:"addr"`
	ModelsDir        string `json:"models_dir" yaml:"models_dir" toml:"models_dir"`
	DefaultModel     string `json:"default_model" yaml:"default_model" toml:"default_model"`
	LogLevel         string `json:"log_level" yaml:"log_level" toml:"log_level"`
	MonitorTimeoutMS int    `json:"monitor_timeout_ms" yaml:"monitor_timeout_ms" toml:"monitor_timeout_ms"`

	// CORS settings for the HTTP API.
	CORSEnabled        bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSAllowedOrigins []string `json:"cors_allowed_origins" yaml:"cors_allowed_origins" toml:"cors_allowed_origins"`

	// Planner policy overrides. Zero means "use the built-in default".
	VeryLowVRAMMB    int     `json:"verylow_vram_mb" yaml:"verylow_vram_mb" toml:"verylow_vram_mb"`
	LowVRAMMB        int     `json:"low_vram_mb" yaml:"low_vram_mb" toml:"low_vram_mb"`
	SafetyFactorLow  float64 `json:"safety_factor_low" yaml:"safety_factor_low" toml:"safety_factor_low"`
	SafetyFactorHigh float64 `json:"safety_factor_high" yaml:"safety_factor_high" toml:"safety_factor_high"`
	VeryLowLayerCap  int     `json:"verylow_layer_cap" yaml:"verylow_layer_cap" toml:"verylow_layer_cap"`
	LowLayerCap      int     `json:"low_layer_cap" yaml:"low_layer_cap" toml:"low_layer_cap"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

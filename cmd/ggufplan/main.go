package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"ggufplan/internal/config"
	"ggufplan/internal/httpapi"
	"ggufplan/internal/manager"
	"ggufplan/internal/planner"
	"ggufplan/internal/registry"
	"ggufplan/internal/vram"
)

func main() {
	// Flags with environment variable defaults
	defaultAddr := ":8080"
	if v := os.Getenv("GGUFPLAN_ADDR"); v != "" {
		defaultAddr = v
	}
	addr := flag.String("addr", defaultAddr, "HTTP listen address, e.g. :8080")
	modelsDir := flag.String("models-dir", "~/models/llm", "Directory to scan for *.gguf model files")
	defaultModel := flag.String("default-model", "", "Default model id when request omits model")
	configPath := flag.String("config", "", "Optional config file (.yaml/.json/.toml); flags win over file values")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	flag.Parse()

	var cfg config.Config
	if *configPath != "" {
		c, err := config.Load(*configPath)
		if err != nil {
			fatal("failed to load config", err)
		}
		cfg = c
	}
	// Flags win over file values; file values win over built-in defaults.
	if cfg.Addr == "" || flagSet("addr") {
		cfg.Addr = *addr
	}
	if cfg.ModelsDir == "" || flagSet("models-dir") {
		cfg.ModelsDir = *modelsDir
	}
	if cfg.DefaultModel == "" || flagSet("default-model") {
		cfg.DefaultModel = *defaultModel
	}
	if cfg.LogLevel == "" || flagSet("log-level") {
		cfg.LogLevel = *logLevel
	}

	logger := newLogger(cfg.LogLevel)
	httpapi.SetLogger(logger)

	reg, err := registry.LoadDir(cfg.ModelsDir)
	if err != nil {
		fatal("failed to load models", err)
	}
	logger.Info().Int("models", len(reg)).Str("dir", cfg.ModelsDir).Msg("registry loaded")

	var monOpts []vram.Option
	if cfg.MonitorTimeoutMS > 0 {
		monOpts = append(monOpts, vram.WithTimeout(time.Duration(cfg.MonitorTimeoutMS)*time.Millisecond))
	}
	mgr := manager.NewWithConfig(manager.ManagerConfig{
		Registry:     reg,
		DefaultModel: cfg.DefaultModel,
		Policy:       policyFromConfig(cfg),
		Monitor:      vram.New(monOpts...),
	})

	httpapi.SetCORSOptions(cfg.CORSEnabled, cfg.CORSAllowedOrigins, nil, nil)
	mux := httpapi.NewMux(mgr)
	srv := &http.Server{Addr: cfg.Addr, Handler: mux}

	go func() {
		logger.Info().Str("addr", cfg.Addr).Msg("ggufplan listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fatal("server error", err)
		}
	}()

	// Graceful shutdown (Ctrl+C / SIGTERM)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown error")
	}
}

// policyFromConfig starts from the built-in policy and applies any non-zero
// overrides from the config file.
func policyFromConfig(cfg config.Config) planner.Policy {
	p := planner.DefaultPolicy()
	if cfg.VeryLowVRAMMB > 0 {
		p.VeryLowBytes = int64(cfg.VeryLowVRAMMB) * 1024 * 1024
	}
	if cfg.LowVRAMMB > 0 {
		p.LowBytes = int64(cfg.LowVRAMMB) * 1024 * 1024
	}
	if cfg.SafetyFactorLow > 0 {
		p.SafetyFactorLow = cfg.SafetyFactorLow
	}
	if cfg.SafetyFactorHigh > 0 {
		p.SafetyFactorHigh = cfg.SafetyFactorHigh
	}
	if cfg.VeryLowLayerCap > 0 {
		p.VeryLowLayerCap = cfg.VeryLowLayerCap
	}
	if cfg.LowLayerCap > 0 {
		p.LowLayerCap = cfg.LowLayerCap
	}
	return p
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(lvl).
		With().Timestamp().Logger()
}

// flagSet reports whether a flag was passed explicitly on the command line.
func flagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func fatal(msg string, err error) {
	logger := zerolog.New(os.Stderr)
	logger.Error().Err(err).Msg(msg)
	os.Exit(1)
}

// Package planctl implements the command line companion to the planning
// server: inspect a GGUF file, estimate its memory, or produce a load plan
// against the local GPU, without running the HTTP daemon.
package planctl

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"ggufplan/internal/arch"
	"ggufplan/internal/estimate"
	"ggufplan/internal/gguf"
	"ggufplan/internal/planner"
	"ggufplan/internal/registry"
	"ggufplan/internal/vram"
	"ggufplan/pkg/types"
)

// Main runs the CLI and returns a process exit code.
func Main(args []string) int {
	root := buildRootCmd()
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "planctl: %v\n", err)
		return 1
	}
	return 0
}

// buildRootCmd constructs the Cobra command tree.
func buildRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "planctl",
		Short:         "Inspect GGUF models and plan their VRAM usage",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var modelsDir string
	modelsCmd := &cobra.Command{
		Use:     "models",
		Short:   "List GGUF model files in a directory",
		Example: "  planctl models --models-dir ~/models/llm",
		RunE: func(cmd *cobra.Command, args []string) error {
			models, err := registry.LoadDir(modelsDir)
			if err != nil {
				return err
			}
			sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })
			for _, m := range models {
				fmt.Fprintf(cmd.OutOrStdout(), "%-60s %8s %10s %.2f GB\n",
					m.ID, m.Quant, m.Family, float64(m.SizeBytes)/(1024*1024*1024))
			}
			if len(models) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no models found")
			}
			return nil
		},
	}
	modelsCmd.Flags().StringVar(&modelsDir, "models-dir", "~/models/llm", "Directory to scan for *.gguf files")

	inspectCmd := &cobra.Command{
		Use:     "inspect <file.gguf>",
		Short:   "Print container metadata and resolved architecture parameters",
		Example: "  planctl inspect llama-2-7b.Q4_K_M.gguf",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			md, params, err := resolveFile(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "GGUF version:   %d\n", md.Version)
			fmt.Fprintf(out, "Tensors:        %d\n", md.TensorCount)
			fmt.Fprintf(out, "Metadata keys:  %d\n", md.KVCount)
			if md.Incomplete {
				fmt.Fprintln(out, "Metadata:       incomplete (stopped at an unknown value type)")
			}
			printParams(out, params)
			return nil
		},
	}

	var estCtx int
	estimateCmd := &cobra.Command{
		Use:     "estimate <file.gguf>",
		Short:   "Estimate the memory required to load a model",
		Example: "  planctl estimate llama-2-7b.Q4_K_M.gguf --context 2048",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, params, err := resolveFile(args[0])
			if err != nil {
				return err
			}
			est, err := estimate.EstimateAtContext(params, estCtx)
			if err != nil {
				return err
			}
			printEstimate(cmd.OutOrStdout(), est)
			return nil
		},
	}
	estimateCmd.Flags().IntVar(&estCtx, "context", 0, "Context size in tokens (0 = trained maximum)")

	var planCtx int
	var timeoutMS int
	planCmd := &cobra.Command{
		Use:     "plan <file.gguf>",
		Short:   "Produce a load plan against the local GPU",
		Example: "  planctl plan llama-2-7b.Q4_K_M.gguf --context 4096",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, params, err := resolveFile(args[0])
			if err != nil {
				return err
			}
			reqCtx := planCtx
			if reqCtx <= 0 {
				reqCtx = params.ContextLength
			}
			est, err := estimate.EstimateAtContext(params, reqCtx)
			if err != nil {
				return err
			}
			mon := vram.New(vram.WithTimeout(time.Duration(timeoutMS) * time.Millisecond))
			snap := mon.Snapshot(cmd.Context())
			plan := planner.DefaultPolicy().Plan(est, snap, params.LayerCount, reqCtx)

			out := cmd.OutOrStdout()
			printEstimate(out, est)
			fmt.Fprintln(out)
			if snap.GPUPresent {
				fmt.Fprintf(out, "GPU:            %.2f GB total, %.2f GB free\n", snap.TotalGB(), snap.FreeGB())
			} else {
				fmt.Fprintln(out, "GPU:            none detected")
			}
			fmt.Fprintf(out, "Tier:           %s\n", plan.Tier)
			fmt.Fprintf(out, "GPU layers:     %d / %d\n", plan.GPULayers, params.LayerCount)
			fmt.Fprintf(out, "Batch size:     %d\n", plan.BatchSize)
			fmt.Fprintf(out, "Context:        %d\n", plan.ContextSize)
			fmt.Fprintf(out, "KV cache:       %s\n", kvPlacement(plan))
			fmt.Fprintf(out, "Rationale:      %s\n", plan.Rationale)
			fmt.Fprintln(out)
			fmt.Fprintln(out, ModelfileParams(plan))
			return nil
		},
	}
	planCmd.Flags().IntVar(&planCtx, "context", 0, "Context size in tokens (0 = trained maximum)")
	planCmd.Flags().IntVar(&timeoutMS, "monitor-timeout-ms", 2000, "Timeout for the nvidia-smi query")

	root.AddCommand(modelsCmd, inspectCmd, estimateCmd, planCmd)
	return root
}

func resolveFile(path string) (*gguf.Metadata, types.ArchitectureParams, error) {
	md, err := gguf.ReadFile(path)
	if err != nil {
		return nil, types.ArchitectureParams{}, err
	}
	params, err := arch.Resolve(md, path)
	if err != nil {
		return nil, types.ArchitectureParams{}, err
	}
	return md, params, nil
}

func printParams(out io.Writer, p types.ArchitectureParams) {
	fmt.Fprintf(out, "Architecture:   %s\n", p.Architecture)
	fmt.Fprintf(out, "Layers:         %d\n", p.LayerCount)
	fmt.Fprintf(out, "Embedding dim:  %d\n", p.EmbeddingDim)
	fmt.Fprintf(out, "Context length: %d\n", p.ContextLength)
	fmt.Fprintf(out, "Vocab size:     %d\n", p.VocabSize)
	fmt.Fprintf(out, "Heads:          %d (kv: %d)\n", p.HeadCount, p.KVHeadCount)
	if p.IsMoE() {
		fmt.Fprintf(out, "Experts:        %d\n", p.ExpertCount)
	}
	if p.QuantAssumed {
		fmt.Fprintf(out, "Quantization:   %s (assumed)\n", p.Quant)
	} else {
		fmt.Fprintf(out, "Quantization:   %s\n", p.Quant)
	}
}

func printEstimate(out io.Writer, e types.MemoryEstimate) {
	gb := func(b int64) float64 { return float64(b) / (1024 * 1024 * 1024) }
	fmt.Fprintf(out, "Weights:        %.2f GB\n", gb(e.WeightsBytes))
	fmt.Fprintf(out, "KV cache:       %.2f GB\n", gb(e.KVCacheBytes))
	fmt.Fprintf(out, "Embeddings:     %.2f GB\n", gb(e.EmbeddingsBytes))
	fmt.Fprintf(out, "Overhead:       %.4f GB\n", gb(e.OverheadBytes))
	fmt.Fprintf(out, "Total:          %.2f GB\n", e.TotalGB())
}

func kvPlacement(p types.LoadPlan) string {
	if p.KVCacheOnGPU {
		return "GPU"
	}
	return "CPU"
}

// ModelfileParams renders a plan as Ollama modelfile PARAMETER lines.
func ModelfileParams(p types.LoadPlan) string {
	var lines []string
	if p.GPULayers > 0 {
		lines = append(lines, fmt.Sprintf("PARAMETER num_gpu %d", p.GPULayers))
	}
	lines = append(lines, fmt.Sprintf("PARAMETER num_batch %d", p.BatchSize))
	lines = append(lines, fmt.Sprintf("PARAMETER num_ctx %d", p.ContextSize))
	lines = append(lines, "PARAMETER mmap true")
	return strings.Join(lines, "\n")
}

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/valentingol/yaecs"
)

var (
	defaultSource  string
	regimeName     string
	outPath        string
	outDir         string
	variationsName string
	gridName       string
)

func init() {
	resolveCmd.Flags().StringVarP(&defaultSource, "default", "d", "", "default source file (required)")
	resolveCmd.Flags().StringVar(&regimeName, "regime", "auto-save", "overwriting regime: locked, unsafe or auto-save")
	resolveCmd.Flags().StringVarP(&outPath, "out", "o", "", "save the resolved config to this path")
	_ = resolveCmd.MarkFlagRequired("default")

	varyCmd.Flags().StringVarP(&defaultSource, "default", "d", "", "default source file (required)")
	varyCmd.Flags().StringVar(&regimeName, "regime", "auto-save", "overwriting regime: locked, unsafe or auto-save")
	varyCmd.Flags().StringVar(&outDir, "out-dir", "variations", "directory receiving one saved config per variation")
	varyCmd.Flags().StringVar(&variationsName, "variations-param", "variations", "parameter holding the variation patches")
	varyCmd.Flags().StringVar(&gridName, "grid-param", "grid", "parameter holding the grid dimensions")
	_ = varyCmd.MarkFlagRequired("default")
}

// buildConfig runs the standard pipeline with the tokens given after
// "--" (experiment source selection via --config plus overrides).
func buildConfig(tokens []string, registry *yaecs.ProcessingRegistry) (*yaecs.Config, error) {
	regime, err := yaecs.ParseRegime(regimeName)
	if err != nil {
		return nil, err
	}
	return yaecs.NewBuilder().
		WithDefault(defaultSource).
		WithArgs(tokens).
		WithRegistry(registry).
		WithRegime(regime).
		Build()
}

var resolveCmd = &cobra.Command{
	Use:   "resolve -d default.yaml [-- overrides...]",
	Short: "Merge sources and overrides into one config",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := buildConfig(args, nil)
		if err != nil {
			return err
		}
		if outPath != "" {
			if err := cfg.Save(outPath); err != nil {
				return fmt.Errorf("saving config: %w", err)
			}
			fmt.Fprintf(os.Stdout, "Saved config to %s\n", outPath)
			return nil
		}
		fmt.Fprint(os.Stdout, cfg.Details())
		return nil
	},
}

var varyCmd = &cobra.Command{
	Use:   "vary -d default.yaml [-- overrides...]",
	Short: "Expand declared variations and grids into saved configs",
	RunE: func(cmd *cobra.Command, args []string) error {
		registry := yaecs.NewProcessingRegistry().
			RegisterAsConfigVariations(variationsName).
			RegisterAsGrid(gridName)
		cfg, err := buildConfig(args, registry)
		if err != nil {
			return err
		}
		children, err := cfg.CreateVariations()
		if err != nil {
			return err
		}
		if len(children) == 0 {
			fmt.Fprintln(os.Stdout, "No variations declared")
			return nil
		}
		for i, child := range children {
			name := child.VariationName()
			if name == "" {
				name = fmt.Sprintf("variation_%d", i)
			}
			path := filepath.Join(outDir, name+".yaml")
			if err := child.Save(path); err != nil {
				return fmt.Errorf("saving variation %q: %w", name, err)
			}
			fmt.Fprintf(os.Stdout, "Saved %s\n", path)
		}
		return nil
	},
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/joelkehle/offerdraft/internal/offer"
	"github.com/joelkehle/offerdraft/internal/render"
)

var (
	renderFormat string
	renderOutDir string
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render a saved bundle as on-screen JSON or PDF",
	Long: `Renders a bundle written by "offerdraft generate". Formats: screen, branded,
pro, or all. "all" writes the view model plus both PDF variants.

Example:
  offerdraft render --bundle bundle.json --format all --out-dir out/`,
	RunE: runRender,
}

func init() {
	renderCmd.Flags().StringVar(&bundlePath, "bundle", "", "Path to the bundle JSON (required)")
	renderCmd.Flags().StringVar(&renderFormat, "format", "branded", "screen, branded, pro or all")
	renderCmd.Flags().StringVar(&renderOutDir, "out-dir", ".", "Directory for rendered files")
	renderCmd.MarkFlagRequired("bundle")
}

func renderTargets(format string) ([]render.Target, error) {
	if strings.EqualFold(strings.TrimSpace(format), "all") {
		return render.Targets, nil
	}
	t, err := render.ParseTarget(format)
	if err != nil {
		return nil, err
	}
	return []render.Target{t}, nil
}

func runRender(cmd *cobra.Command, args []string) error {
	targets, err := renderTargets(renderFormat)
	if err != nil {
		return err
	}
	b, err := readBundle(bundlePath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(renderOutDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	ctx, cancel := commandContext()
	defer cancel()
	paths, err := renderAll(ctx, newEngine(cfg, logger), b, targets, renderOutDir)
	if err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Fprintln(cmd.OutOrStdout(), p)
	}
	return nil
}

// renderAll renders every target concurrently and returns the written paths
// in target order.
func renderAll(ctx context.Context, engine *render.Engine, b offer.OfferBundle, targets []render.Target, dir string) ([]string, error) {
	paths := make([]string, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	for i, t := range targets {
		g.Go(func() error {
			out, err := engine.Render(gctx, b, t)
			if err != nil {
				return fmt.Errorf("render %s: %w", t, err)
			}
			name, data := out.Filename, out.Document
			if t == render.OnScreen {
				name = strings.TrimSuffix(render.Filename(b, render.BrandedPdf), ".pdf") + ".view.json"
				if data, err = json.MarshalIndent(out.View, "", "  "); err != nil {
					return err
				}
			}
			path := filepath.Join(dir, name)
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
			if len(out.Degraded) > 0 {
				logger.Warn("render degraded", zap.String("target", string(t)), zap.Int("sections", len(out.Degraded)))
			}
			paths[i] = path
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}

package main

import (
	"fmt"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/joelkehle/offerdraft/internal/render"
	"github.com/joelkehle/offerdraft/internal/strategy"
)

var (
	previewWidth int
	previewPlain bool
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Show a saved bundle in the terminal",
	RunE:  runPreview,
}

var strategiesCmd = &cobra.Command{
	Use:   "strategies",
	Short: "List the supported offer strategies",
	RunE:  runStrategies,
}

func init() {
	previewCmd.Flags().StringVar(&bundlePath, "bundle", "", "Path to the bundle JSON (required)")
	previewCmd.Flags().IntVar(&previewWidth, "width", 80, "Word wrap width")
	previewCmd.Flags().BoolVar(&previewPlain, "plain", false, "Print raw markdown instead of styled output")
	previewCmd.MarkFlagRequired("bundle")
}

func runPreview(cmd *cobra.Command, args []string) error {
	b, err := readBundle(bundlePath)
	if err != nil {
		return err
	}
	content, _ := render.Assemble(b, cfg.Render.ScreenLimits)
	md := render.Markdown(content)

	out := cmd.OutOrStdout()
	if previewPlain {
		_, err := fmt.Fprint(out, md)
		return err
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(previewWidth),
	)
	if err != nil {
		return fmt.Errorf("terminal renderer: %w", err)
	}
	styled, err := r.Render(md)
	if err != nil {
		// Fall back to plain text.
		styled = md
	}
	_, err = fmt.Fprint(out, styled)
	return err
}

func runStrategies(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	for _, d := range strategy.All() {
		fmt.Fprintf(out, "%-16s %-18s %s\n", d.Kind, d.Name, d.Description)
	}
	return nil
}

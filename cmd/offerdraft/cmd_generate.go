package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/joelkehle/offerdraft/internal/offer"
)

var (
	formPath   string
	bundleOut  string
	bundlePath string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate an offer bundle from a JSON form file",
	Long: `Reads the intake form as a JSON object (the same fields the web form posts),
runs normalize, compose, oracle and interpret, and writes the bundle as JSON.

Example:
  offerdraft generate --form deal.json --out bundle.json`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&formPath, "form", "", "Path to the form JSON (required)")
	generateCmd.Flags().StringVarP(&bundleOut, "out", "o", "", "Write the bundle here (default: stdout)")
	generateCmd.MarkFlagRequired("form")
}

func commandContext() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

func readForm(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read form: %w", err)
	}
	var form map[string]any
	if err := json.Unmarshal(data, &form); err != nil {
		return nil, fmt.Errorf("decode form JSON: %w", err)
	}
	return form, nil
}

func readBundle(path string) (offer.OfferBundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return offer.OfferBundle{}, fmt.Errorf("read bundle: %w", err)
	}
	var b offer.OfferBundle
	if err := json.Unmarshal(data, &b); err != nil {
		return offer.OfferBundle{}, fmt.Errorf("decode bundle JSON: %w", err)
	}
	if err := offer.ValidateBundle(b); err != nil {
		return offer.OfferBundle{}, err
	}
	return b, nil
}

func writeBundle(w io.Writer, path string, b offer.OfferBundle) error {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if path == "" {
		_, err := w.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	form, err := readForm(formPath)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	stderr := cmd.ErrOrStderr()
	res, err := a.pipeline.RunWithProgress(ctx, form, func(stage, message string) {
		fmt.Fprintf(stderr, "[%s] %s\n", stage, message)
	})
	if err != nil {
		return fmt.Errorf("%s: %w", offer.UserMessage(err), err)
	}

	if err := writeBundle(cmd.OutOrStdout(), bundleOut, res.Bundle); err != nil {
		return err
	}
	fmt.Fprintf(stderr, "generated %s in %s with %d oracle attempt(s)\n",
		res.Bundle.GenerationID, res.CompletedAt.Sub(res.StartedAt).Round(time.Millisecond), res.Oracle.Attempts)
	return nil
}

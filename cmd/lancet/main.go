// Package main is the entry point for the lancet binary.
// It exposes the security pipeline for inspection and operations work:
// sanitizing text from stdin, minting session tags, checking schema
// directories, and serving pipeline metrics.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/k-shibuki/lyra-sub001/pkg/config"
	"github.com/k-shibuki/lyra-sub001/pkg/logging"
	"github.com/k-shibuki/lyra-sub001/pkg/prompt"
	"github.com/k-shibuki/lyra-sub001/pkg/sanitize"
	"github.com/k-shibuki/lyra-sub001/pkg/schema"
	"github.com/k-shibuki/lyra-sub001/pkg/telemetry"
)

const defaultLogLevel = "info"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "lancet",
		Short: "Security pipeline tooling for the Lyra research agent",
		Long: `Lancet shields an LLM-mediated research agent from prompt injection and
from leaking internal state across the tool-call boundary.

This CLI exposes the pipeline pieces for inspection:

  lancet sanitize < input.txt     Run the input sanitizer, print the result
  lancet validate < output.txt    Run the output validator, print the result
  lancet tag                      Mint a fresh session tag
  lancet schema check <dir>       Parse every tool schema in a directory
  lancet serve-metrics            Expose pipeline metrics for Prometheus`,
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to configuration file (YAML)")
	rootCmd.PersistentFlags().StringP("log-level", "l", defaultLogLevel, "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(newSanitizeCmd())
	rootCmd.AddCommand(newValidateCmd())
	rootCmd.AddCommand(newTagCmd())
	rootCmd.AddCommand(newSchemaCmd())
	rootCmd.AddCommand(newServeMetricsCmd())
	return rootCmd
}

// loadConfig resolves the effective configuration for a command invocation.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	cfg := config.Default()
	if path != "" {
		loader, err := config.NewLoader(path)
		if err != nil {
			return nil, err
		}
		cfg, err = loader.Load()
		if err != nil {
			return nil, err
		}
	}

	level, err := cmd.Flags().GetString("log-level")
	if err != nil {
		return nil, err
	}
	if level != "" {
		cfg.Logging.Level = level
	}
	logging.SetupLogger(cfg.Logging)
	return cfg, nil
}

func newSanitizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sanitize",
		Short: "Sanitize untrusted text from stdin and print the result as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			input, err := readAll(cmd)
			if err != nil {
				return err
			}

			sanitizer := sanitize.NewSanitizer(sanitize.Config{
				MaxInputLength: cfg.Sanitizer.MaxInputLength,
				TagPrefix:      cfg.Sanitizer.TagPrefix,
			})
			return printJSON(cmd, sanitizer.Sanitize(input))
		},
	}
}

func newValidateCmd() *cobra.Command {
	var expectedMaxLength int
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate model output from stdin and print the result as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			output, err := readAll(cmd)
			if err != nil {
				return err
			}

			validator := sanitize.NewValidator(sanitize.ValidatorConfig{
				MaxOutputMultiplier: cfg.Validator.MaxOutputMultiplier,
			})
			result := validator.Validate(output, sanitize.ValidateOptions{
				ExpectedMaxLength: expectedMaxLength,
			})
			return printJSON(cmd, result)
		},
	}
	cmd.Flags().IntVar(&expectedMaxLength, "expected-max-length", 0, "Expected output length; zero disables the bound")
	return cmd
}

func newTagCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tag",
		Short: "Mint a fresh session tag and print it as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			tag, err := prompt.GenerateSessionTag(cfg.Sanitizer.TagPrefix)
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]string{
				"tag_name": tag.Name,
				"tag_id":   tag.ID,
			})
		},
	}
}

func newSchemaCmd() *cobra.Command {
	schemaCmd := &cobra.Command{
		Use:   "schema",
		Short: "Tool schema operations",
	}
	schemaCmd.AddCommand(&cobra.Command{
		Use:   "check [dir]",
		Short: "Parse every tool schema in a directory and report problems",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			dir := cfg.Schema.Dir
			if len(args) == 1 {
				dir = args[0]
			}
			return checkSchemas(cmd, dir)
		},
	})
	return schemaCmd
}

func checkSchemas(cmd *cobra.Command, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read schema directory: %w", err)
	}

	registry := schema.NewRegistry(dir, slog.Default(), nil)
	var failed int
	for _, entry := range entries {
		tool, ok := toolName(entry.Name())
		if !ok || entry.IsDir() {
			continue
		}
		if _, err := registry.Get(tool); err != nil {
			failed++
			fmt.Fprintf(cmd.OutOrStdout(), "FAIL %s: %v\n", tool, err)
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "OK   %s\n", tool)
	}
	if failed > 0 {
		return fmt.Errorf("%d schema(s) failed to parse", failed)
	}
	return nil
}

func newServeMetricsCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve-metrics",
		Short: "Expose pipeline metrics for Prometheus scraping",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := loadConfig(cmd); err != nil {
				return err
			}

			metrics := telemetry.NewMetrics()
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())

			server := &http.Server{
				Addr:              addr,
				Handler:           mux,
				ReadHeaderTimeout: 5 * time.Second,
			}
			slog.Info("serving metrics", "addr", addr)
			return server.ListenAndServe()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":9464", "Listen address for the metrics endpoint")
	return cmd
}

func readAll(cmd *cobra.Command) (string, error) {
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return string(data), nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func toolName(filename string) (string, bool) {
	const suffix = ".json"
	if len(filename) <= len(suffix) || filename[len(filename)-len(suffix):] != suffix {
		return "", false
	}
	return filename[:len(filename)-len(suffix)], true
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"plc-copilot/internal/config"
)

const (
	Version = "0.1.0"
	appName = "plc-copilot"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// globalFlags override the environment configuration when set.
type globalFlags struct {
	logLevel string
	upstream string
	store    string
}

func (g *globalFlags) load() config.Config {
	cfg := config.Load()
	if g.logLevel != "" {
		cfg.LogLevel = g.logLevel
	}
	if g.upstream != "" {
		cfg.UpstreamMode = g.upstream
	}
	if g.store != "" {
		cfg.StoreBackend = g.store
	}
	return cfg
}

func rootCmd() *cobra.Command {
	flags := &globalFlags{}
	cmd := &cobra.Command{
		Use:   appName,
		Short: "Chat front end for AI generated PLC Structured Text",
		Long: `plc-copilot relays natural-language prompts to a PLC code generation
service, shows the generated Structured Text with its variables, simulation
trace and verification notes, and sends code to a verification service.

Run "serve" for the browser console or "ask" and "validate" from a terminal.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides LOG_LEVEL")
	cmd.PersistentFlags().StringVar(&flags.upstream, "upstream", "", "Upstream mode (orchestrator, n8n, gemini); overrides UPSTREAM_MODE")
	cmd.PersistentFlags().StringVar(&flags.store, "store", "", "Transcript store (memory, file, postgres, redis); overrides STORE_BACKEND")

	cmd.AddCommand(serveCmd(flags), askCmd(flags), validateCmd(flags))
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
		},
	})
	return cmd
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"plc-copilot/internal/config"
	"plc-copilot/internal/copilot"
	"plc-copilot/internal/logging"
	"plc-copilot/internal/render"
	"plc-copilot/internal/store"
	"plc-copilot/internal/upstream"
)

// client is the terminal counterpart of the browser console.
type client struct {
	cfg      config.Config
	logger   *zap.Logger
	store    store.Store
	verifier copilot.Verifier
	registry *copilot.Registry
}

func newClient(ctx context.Context, cfg config.Config) (*client, error) {
	logger, err := logging.NewConsole(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	gen, verifier, err := upstream.FromConfig(cfg, nil)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &client{
		cfg:      cfg,
		logger:   logger,
		store:    st,
		verifier: verifier,
		registry: copilot.NewRegistry(gen, verifier, st, st, logger, copilot.WithTranscriptLimit(cfg.MaxTranscript)),
	}, nil
}

func (c *client) Close() {
	if err := c.store.Close(); err != nil {
		c.logger.Warn("closing store", zap.Error(err))
	}
	_ = c.logger.Sync()
}

func askCmd(flags *globalFlags) *cobra.Command {
	var (
		sessionID string
		outPath   string
		panels    []string
		validate  bool
	)
	cmd := &cobra.Command{
		Use:   "ask <prompt>",
		Short: "Send one prompt and print the answer and output panels",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !store.ValidSessionID(sessionID) {
				return fmt.Errorf("invalid session id %q", sessionID)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			c, err := newClient(ctx, flags.load())
			if err != nil {
				return err
			}
			defer c.Close()

			sess := c.registry.Get(ctx, sessionID)
			out, err := sess.Send(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			term := render.NewTerminal(cmd.OutOrStdout())
			term.Panels = panels
			term.Outcome(out)

			if validate && out.Kind == copilot.KindCode {
				term.Outcome(sess.Validate(ctx, ""))
			}
			if outPath != "" {
				if err := store.WriteFileAtomic(outPath, []byte(sess.Code()), 0o644); err != nil {
					return fmt.Errorf("write %s: %w", outPath, err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", outPath)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&sessionID, "session", "s", "cli", "Session whose transcript the prompt joins")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write the code panel to this file (e.g. "+copilot.DownloadName+")")
	cmd.Flags().StringSliceVar(&panels, "panels", render.AllPanels, "Panels to print: code, variables, simulation, notes")
	cmd.Flags().BoolVar(&validate, "validate", false, "Send generated code to the verifier")
	return cmd
}

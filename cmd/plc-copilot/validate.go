package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"plc-copilot/internal/copilot"
	"plc-copilot/internal/render"
	"plc-copilot/internal/types"
)

var errValidationFailed = errors.New("validation failed")

func validateCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file.st>",
		Short: "Send a Structured Text file to the verification service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			c, err := newClient(cmd.Context(), flags.load())
			if err != nil {
				return err
			}
			defer c.Close()

			sess := copilot.NewSession("cli-validate", nil, c.verifier, nil, c.logger)
			out := sess.Validate(cmd.Context(), string(code))
			render.NewTerminal(cmd.OutOrStdout()).Outcome(out)
			if failed(out.Notifications) {
				return errValidationFailed
			}
			return nil
		},
	}
}

func failed(notes []types.Notification) bool {
	for _, n := range notes {
		if n.Level == copilot.LevelError || n.Level == copilot.LevelWarning {
			return true
		}
	}
	return false
}

// Package punch implements the one-shot attendance command.
package punch

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/gopunch/cmd/common"
	"github.com/jonesrussell/gopunch/internal/domain"
)

// attemptTimeout bounds the whole attempt including session refreshes.
const attemptTimeout = 2 * time.Minute

// Command returns the punch command, which runs a single clock-in or
// clock-out and exits.
func Command(debug *bool) *cobra.Command {
	return &cobra.Command{
		Use:       "punch <clockin|clockout>",
		Short:     "Run a single attendance action and exit",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"clockin", "clockout"},
		RunE: func(cmd *cobra.Command, args []string) error {
			action, err := domain.ParseAction(args[0])
			if err != nil {
				return err
			}
			return run(cmd, action, *debug)
		},
	}
}

func run(cmd *cobra.Command, action domain.Action, debug bool) error {
	deps, err := common.NewCommandDeps(debug)
	if err != nil {
		return err
	}

	pipeline := deps.BuildPipeline(true)
	defer pipeline.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), attemptTimeout)
	defer cancel()

	result, err := pipeline.Runner.Execute(ctx, action, domain.TriggerCLI)
	if err != nil {
		return fmt.Errorf("%s failed: %w", action.Label(), err)
	}

	fmt.Printf("%s: %s\n", action.Label(), result.Message)
	return nil
}

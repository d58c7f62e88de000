// Package serve implements the attendance daemon command.
package serve

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/gopunch/cmd/common"
	"github.com/jonesrussell/gopunch/internal/api"
	"github.com/jonesrussell/gopunch/internal/scheduler"
)

// shutdownTimeout bounds the drain of in-flight API requests.
const shutdownTimeout = 10 * time.Second

// Command returns the serve command, which runs the scheduler and the
// control API until interrupted.
func Command(debug *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the attendance scheduler and control API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(*debug)
		},
	}
}

func run(debug bool) error {
	deps, err := common.NewCommandDeps(debug)
	if err != nil {
		return err
	}

	pipeline := deps.BuildPipeline(true)
	defer pipeline.Close()

	sched, err := scheduler.New(
		pipeline.Runner, pipeline.State, deps.Config.Schedule, deps.Logger)
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	var history api.History
	if pipeline.Journal != nil {
		history = pipeline.Journal
	}
	server := api.NewServer(
		deps.Config.Server, pipeline.State, pipeline.Runner, history, deps.Logger)

	sched.Start()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	deps.Logger.Info("gopunch daemon started",
		"address", deps.Config.Server.Address,
		"timezone", deps.Config.Schedule.Timezone)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		deps.Logger.Info("shutdown signal received", "signal", sig.String())
	case err = <-serverErr:
		if err != nil {
			deps.Logger.Error("control API failed", "error", err)
		}
	}

	sched.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if shutdownErr := server.Shutdown(ctx); shutdownErr != nil {
		deps.Logger.Error("control API shutdown failed", "error", shutdownErr)
	}

	deps.Logger.Info("gopunch daemon stopped")
	return err
}

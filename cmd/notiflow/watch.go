package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

type watchClient interface {
	Start(ctx context.Context) error
	Stop()
}

// NewWatchCmd creates the watch command with explicit dependencies.
func NewWatchCmd(client watchClient) *cobra.Command {
	if client == nil {
		panic("NewWatchCmd: client dependency cannot be nil")
	}

	return &cobra.Command{
		Use:   "watch",
		Short: "Run scheduled refresh checks until interrupted",
		Long: `Run scheduled refresh checks until interrupted.

The schedule is refresh_schedule (a cron expression or descriptor such as
"@every 15m"). Each tick refreshes when keep-at-top is enabled.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := client.Start(ctx); err != nil {
				return fmt.Errorf("watch failed: %w", err)
			}
			cmd.Println("Watching for scheduled refreshes, press Ctrl-C to stop")
			<-ctx.Done()
			client.Stop()
			cmd.Println("Stopped")
			return nil
		},
	}
}

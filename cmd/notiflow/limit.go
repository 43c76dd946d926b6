package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

type limitClient interface {
	LimitNotifications(ctx context.Context) (int, error)
}

// NewLimitCmd creates the limit command with explicit dependencies.
func NewLimitCmd(client limitClient) *cobra.Command {
	if client == nil {
		panic("NewLimitCmd: client dependency cannot be nil")
	}

	return &cobra.Command{
		Use:   "limit",
		Short: "Cancel the oldest notifications over the configured limit",
		Long: `Cancel the oldest notifications over the configured limit.

Runs only when keep-at-top is enabled (remote.notification_keep_at_top) and
leaves room for one more notification.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			removed, err := client.LimitNotifications(cmd.Context())
			if err != nil {
				return fmt.Errorf("limit failed: %w", err)
			}
			cmd.Printf("Cancelled %d notification(s)\n", removed)
			return nil
		},
	}
}

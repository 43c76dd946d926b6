package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

type refreshClient interface {
	RefreshNotifications(ctx context.Context) error
}

// NewRefreshCmd creates the refresh command with explicit dependencies.
func NewRefreshCmd(client refreshClient) *cobra.Command {
	if client == nil {
		panic("NewRefreshCmd: client dependency cannot be nil")
	}

	return &cobra.Command{
		Use:   "refresh",
		Short: "Re-surface visible notifications, oldest first",
		Long: `Re-surface visible notifications, oldest first.

A pass is skipped within remote.notification_unlock_at_top_timeout_ms of the
previous one, or when fewer than remote.notification_unlock_at_top_limit
notifications are visible.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.RefreshNotifications(cmd.Context()); err != nil {
				return fmt.Errorf("refresh failed: %w", err)
			}
			cmd.Println("Refresh completed")
			return nil
		},
	}
}

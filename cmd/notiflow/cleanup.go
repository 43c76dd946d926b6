package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

type cleanupClient interface {
	CleanupOldRecords(ctx context.Context) (int, error)
}

// NewCleanupCmd creates the cleanup command with explicit dependencies.
func NewCleanupCmd(client cleanupClient) *cobra.Command {
	if client == nil {
		panic("NewCleanupCmd: client dependency cannot be nil")
	}

	return &cobra.Command{
		Use:   "cleanup",
		Short: "Delete records older than the retention period",
		Long: `Delete records older than the retention period.

The period is record_retention_days (default 7). Records are used to rebuild
notifications during refresh; older ones are never refreshed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			removed, err := client.CleanupOldRecords(cmd.Context())
			if err != nil {
				return fmt.Errorf("cleanup failed: %w", err)
			}
			cmd.Printf("Removed %d record(s)\n", removed)
			return nil
		},
	}
}

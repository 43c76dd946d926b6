package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

type cancelClient interface {
	CancelNotification(ctx context.Context, id int) error
}

// NewCancelCmd creates the cancel command with explicit dependencies.
func NewCancelCmd(client cancelClient) *cobra.Command {
	if client == nil {
		panic("NewCancelCmd: client dependency cannot be nil")
	}

	return &cobra.Command{
		Use:   "cancel <id>...",
		Short: "Cancel notifications and forget their records",
		Long: `Cancel notifications and forget their records.

Unknown IDs are ignored.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int, 0, len(args))
			for _, arg := range args {
				id, err := strconv.Atoi(arg)
				if err != nil || id == 0 {
					return fmt.Errorf("invalid notification id %q", arg)
				}
				ids = append(ids, id)
			}
			for _, id := range ids {
				if err := client.CancelNotification(cmd.Context(), id); err != nil {
					return fmt.Errorf("cancel failed: %w", err)
				}
				cmd.Printf("Cancelled notification %d\n", id)
			}
			return nil
		},
	}
}

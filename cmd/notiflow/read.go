package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/lokalapp/notiflow/internal/colors"
)

type readClient interface {
	MarkRead(ctx context.Context, readKey string) error
}

// NewReadCmd creates the read command with explicit dependencies.
func NewReadCmd(client readClient) *cobra.Command {
	if client == nil {
		panic("NewReadCmd: client dependency cannot be nil")
	}

	return &cobra.Command{
		Use:   "read <group-or-id>...",
		Short: "Mark notification groups as read",
		Long: `Mark notification groups as read.

Each argument is a group ID, or the notification ID of an ungrouped
notification. Read groups no longer count towards the badge shown by
'notiflow list --records'.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, arg := range args {
				if _, err := strconv.Atoi(arg); err != nil {
					return fmt.Errorf("invalid group or notification id %q", arg)
				}
			}
			for _, key := range args {
				if err := client.MarkRead(cmd.Context(), key); err != nil {
					return fmt.Errorf("read failed: %w", err)
				}
				colors.Success(fmt.Sprintf("Marked %s as read", key))
			}
			return nil
		},
	}
}

package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/lokalapp/notiflow/internal/domain"
)

type listClient interface {
	VisibleNotifications(ctx context.Context) ([]domain.ActiveNotification, error)
	Records(ctx context.Context) ([]domain.Record, error)
	BadgeCount(ctx context.Context) (int, error)
}

var headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

// NewListCmd creates the list command with explicit dependencies.
func NewListCmd(client listClient) *cobra.Command {
	if client == nil {
		panic("NewListCmd: client dependency cannot be nil")
	}

	var recordsFlag bool
	var simpleFlag bool

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List visible notifications, newest first",
		Long: `List visible notifications, newest first.

With --records the persisted records are listed instead, followed by the badge
count (records whose group has not been marked read).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			now := time.Now()
			if recordsFlag {
				records, err := client.Records(ctx)
				if err != nil {
					return fmt.Errorf("list records: %w", err)
				}
				badge, err := client.BadgeCount(ctx)
				if err != nil {
					return fmt.Errorf("badge count: %w", err)
				}
				writeRecords(cmd.OutOrStdout(), records, now, simpleFlag)
				fmt.Fprintf(cmd.OutOrStdout(), "%d record(s), badge %d\n", len(records), badge)
				return nil
			}

			visible, err := client.VisibleNotifications(ctx)
			if err != nil {
				return fmt.Errorf("list notifications: %w", err)
			}
			if len(visible) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No notifications")
				return nil
			}
			writeVisible(cmd.OutOrStdout(), visible, now, simpleFlag)
			return nil
		},
	}

	listCmd.Flags().BoolVar(&recordsFlag, "records", false, "List persisted records instead of the tray")
	listCmd.Flags().BoolVar(&simpleFlag, "simple", false, "Tab separated output without borders")

	return listCmd
}

func age(ts int64, now time.Time) string {
	if ts <= 0 {
		return "-"
	}
	return humanize.RelTime(time.UnixMilli(ts), now, "ago", "from now")
}

func writeVisible(w io.Writer, visible []domain.ActiveNotification, now time.Time, simple bool) {
	rows := make([][]string, 0, len(visible))
	for _, n := range visible {
		rows = append(rows, []string{
			strconv.Itoa(n.ID),
			n.Content.Kind.String(),
			n.Content.Title,
			n.Content.GroupKey,
			age(n.Timestamp, now),
		})
	}
	writeTable(w, []string{"ID", "KIND", "TITLE", "GROUP", "POSTED"}, rows, simple)
}

func writeRecords(w io.Writer, records []domain.Record, now time.Time, simple bool) {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			strconv.Itoa(r.NotificationID),
			r.Title,
			r.GroupID,
			r.CategoryName,
			r.NotificationType.String(),
			age(r.Timestamp, now),
		})
	}
	writeTable(w, []string{"ID", "TITLE", "GROUP", "CATEGORY", "TYPE", "UPDATED"}, rows, simple)
}

func writeTable(w io.Writer, headers []string, rows [][]string, simple bool) {
	if simple {
		for _, row := range rows {
			for i, cell := range row {
				if i > 0 {
					fmt.Fprint(w, "\t")
				}
				fmt.Fprint(w, cell)
			}
			fmt.Fprintln(w)
		}
		return
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	fmt.Fprintln(w, t.Render())
}

package main

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

type configClient interface {
	RemoteSettings() map[string]string
	RemoteOverridden(key string) bool
}

func source(client configClient, key string) string {
	if client.RemoteOverridden(key) {
		return "config"
	}
	return "default"
}

// NewConfigCmd creates the config command with explicit dependencies.
func NewConfigCmd(client configClient) *cobra.Command {
	if client == nil {
		panic("NewConfigCmd: client dependency cannot be nil")
	}

	var simpleFlag bool

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective remote settings",
		Long: `Show the effective remote settings.

Values come from the [remote] table of config.toml, overridden by
NOTIFLOW_REMOTE__<KEY> environment variables. SOURCE is "config" when the
value differs from the shipped default.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := client.RemoteSettings()
			keys := make([]string, 0, len(settings))
			for k := range settings {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			if simpleFlag {
				for _, k := range keys {
					fmt.Fprintf(cmd.OutOrStdout(), "%s=%s\n", k, settings[k])
				}
				return nil
			}
			t := table.New().
				Border(lipgloss.RoundedBorder()).
				Headers("KEY", "VALUE", "SOURCE").
				StyleFunc(func(row, col int) lipgloss.Style {
					if row == table.HeaderRow {
						return headerStyle
					}
					return cellStyle
				})
			for _, k := range keys {
				t.Row(k, settings[k], source(client, k))
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.Render())
			return nil
		},
	}

	configCmd.Flags().BoolVar(&simpleFlag, "simple", false, "Print key=value lines")

	return configCmd
}

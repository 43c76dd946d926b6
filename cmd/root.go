// Package cmd holds the root command of the notiflow CLI.
package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/lokalapp/notiflow/internal/colors"
	"github.com/lokalapp/notiflow/internal/config"
	"github.com/lokalapp/notiflow/internal/logging"
	"github.com/lokalapp/notiflow/internal/version"
)

// EnvFile is loaded before configuration when present in the working directory.
const EnvFile = ".env"

// RootCmd is the base command. Subcommands register themselves from package main.
var RootCmd = &cobra.Command{
	Use:           "notiflow",
	Short:         "Drive the notification lifecycle against a simulated tray.",
	Long:          `Drive the notification lifecycle against a simulated tray.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return Setup(EnvFile)
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return logging.ShutdownGlobal()
	},
}

// Execute runs the root command.
func Execute() error {
	err := RootCmd.Execute()
	if err != nil {
		colors.Error(err.Error())
	}
	return err
}

// Setup loads envFile (if it exists), the layered configuration and the global logger.
func Setup(envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	config.Load()
	colors.SetDebug(config.GetBool("debug", false))
	if err := logging.InitGlobal(); err != nil {
		colors.Warning(fmt.Sprintf("logging disabled: %v", err))
	}
	return nil
}

func init() {
	RootCmd.Version = version.String()
	RootCmd.CompletionOptions.HiddenDefaultCmd = true
	RootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		if cmd != RootCmd {
			fmt.Fprint(cmd.OutOrStdout(), cmd.UsageString())
			return
		}
		fmt.Fprint(cmd.OutOrStdout(), helpText(cmd))
	})
}

var commandOrder = []string{
	"create",
	"cancel",
	"read",
	"list",
	"limit",
	"refresh",
	"cleanup",
	"watch",
	"config",
	"version",
}

func helpText(cmd *cobra.Command) string {
	var lines []string
	for _, name := range commandOrder {
		for _, c := range cmd.Commands() {
			if c.Name() == name {
				lines = append(lines, fmt.Sprintf("    %-16s %s", c.Name(), c.Short))
				break
			}
		}
	}
	return fmt.Sprintf(`notiflow %s

Drive the notification lifecycle against a simulated tray.

USAGE:
    notiflow [COMMAND] [OPTIONS]

COMMANDS:
%s

ENVIRONMENT:
    NOTIFLOW_*      Override any config key, e.g. NOTIFLOW_REMOTE__NOTIFICATION_LIMIT=5
    .env            Loaded from the working directory when present

OPTIONS:
    -h, --help      Show help message
`, version.String(), strings.Join(lines, "\n"))
}

// Command notiflow drives the notification lifecycle against a simulated tray.
package main

import (
	"os"

	"github.com/lokalapp/notiflow/cmd"
	"github.com/lokalapp/notiflow/internal/colors"
)

func init() {
	cmd.RootCmd.AddCommand(
		NewCreateCmd(appClient),
		NewCancelCmd(appClient),
		NewReadCmd(appClient),
		NewListCmd(appClient),
		NewLimitCmd(appClient),
		NewRefreshCmd(appClient),
		NewCleanupCmd(appClient),
		NewWatchCmd(appClient),
		NewConfigCmd(appClient),
		NewVersionCmd(appClient),
	)
}

func main() {
	err := cmd.Execute()
	if cerr := appClient.Close(); cerr != nil {
		colors.Warning("failed to close storage: " + cerr.Error())
	}
	if err != nil {
		os.Exit(1)
	}
}

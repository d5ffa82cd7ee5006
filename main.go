package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/sthembisoo/rollbar-notifier/cmd/rollbar/report"
)

var rootCmd = &cobra.Command{
	Use:           "rollbar-notifier",
	Short:         "Build and send Rollbar error reports",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.AddCommand(report.NewCmdReport())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

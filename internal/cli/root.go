package cli

import (
	"github.com/spf13/cobra"

	"github.com/jparks/lexledger/internal/app"
)

var appInstance *app.App

var rootCmd = &cobra.Command{
	Use:   "lexledger",
	Short: "Time tracking and billing for solo and small-firm attorneys",
	Long: `Lexledger tracks billable time against clients and matters, resolves
hourly rates from a layered rate catalog, rounds durations to the firm's
billing increment, and turns unbilled time into invoices.

By default, running lexledger without arguments launches the interactive TUI.
Use subcommands for CLI operations.`,
	Run: func(cmd *cobra.Command, args []string) {
		// Default behavior: launch TUI
		launchTUI(cmd, args)
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetApp sets the app instance for commands to use
func SetApp(a *app.App) {
	appInstance = a
}

func init() {
	rootCmd.AddCommand(timerCmd)
	rootCmd.AddCommand(clientsCmd)
	rootCmd.AddCommand(mattersCmd)
	rootCmd.AddCommand(ratesCmd)
	rootCmd.AddCommand(entriesCmd)
	rootCmd.AddCommand(invoicesCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(tuiCmd)
}

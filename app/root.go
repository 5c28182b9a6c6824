// Package app implements the main application commands.
package app

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "account-console",
	Short: "Account console is a self-service web interface for user accounts",
	Long: `Account console is a self-service web interface where users manage
their profile, review and revoke browser sessions and configure
security settings such as passwords and two-factor authentication.`,
	Args: cobra.OnlyValidArgs,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

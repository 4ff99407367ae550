// Package commands provides the CLI commands for wirebus.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version information set at build time
	Version   = "0.1.0"
	BuildTime = "dev"
)

// Global flags
var logLevel string

var rootCmd = &cobra.Command{
	Use:   "wirebus",
	Short: "wirebus - event and hook dispatch for multi-channel gateways",
	Long: `wirebus is an in-process event and hook dispatch system with an HTTP
bridge. Run 'wirebus serve' to expose the bus over HTTP, or 'wirebus emit'
to publish an event into a running server.`,
	Version: Version,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (DEBUG|INFO|WARN|ERROR)")

	rootCmd.SetVersionTemplate(fmt.Sprintf("wirebus %s (%s)\n", Version, BuildTime))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(emitCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// GetWorkDir returns the working directory from flag or current directory.
func GetWorkDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	return os.Getwd()
}

package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"fitgate/internal/config"
	"fitgate/internal/fault"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeConfig indicates missing or invalid configuration.
	ExitCodeConfig = 2
	// ExitCodeCredential indicates the stored credential could not be read or written.
	ExitCodeCredential = 3
)

// Global flags shared by every subcommand.
var (
	configPath string
	debug      bool
)

// rootCmd represents the base command for the fitgate application.
// It is the entry point when the application is called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "fitgate",
	Short: "MCP gateway for your fitness tracker data",
	Long: `fitgate lets an MCP client (an AI assistant) read sleep, readiness,
activity, heart rate and workout data from your fitness tracker account.

It connects to the upstream API with OAuth2 (authorization code + PKCE),
stores the credential encrypted on disk and serves the data as MCP tools
over SSE and streamable HTTP.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
	SilenceUsage: true,
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// This function is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "fitgate version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		var verrs config.ValidationErrors
		if errors.As(err, &verrs) {
			fmt.Fprintln(os.Stderr, "\nSet the missing values in the config file or via FITGATE_* environment variables.")
		}
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
// This provides semantic exit codes for scripting and automation.
func getExitCode(err error) int {
	var verrs config.ValidationErrors
	if errors.As(err, &verrs) {
		return ExitCodeConfig
	}

	var cfgErr config.ConfigurationError
	if errors.As(err, &cfgErr) {
		return ExitCodeConfig
	}

	switch fault.KindOf(err) {
	case fault.KindConfiguration:
		return ExitCodeConfig
	case fault.KindDecryption, fault.KindPersistence:
		return ExitCodeCredential
	}

	return ExitCodeError
}

func init() {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newKeygenCmd())

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Configuration directory (default is $HOME/.config/fitgate)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
}

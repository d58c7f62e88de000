// Package cmd implements the command-line interface for gopunch.
// It provides the root command and subcommands for running the attendance
// daemon and for one-shot portal operations.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jonesrussell/gopunch/cmd/punch"
	"github.com/jonesrussell/gopunch/cmd/serve"
	"github.com/jonesrussell/gopunch/cmd/status"
	"github.com/jonesrussell/gopunch/internal/config"
)

var (
	// cfgFile holds the path to the configuration file.
	cfgFile string

	// Debug enables debug mode for all commands
	Debug bool

	// rootCmd represents the root command for the gopunch CLI.
	rootCmd = &cobra.Command{
		Use:   "gopunch",
		Short: "Automated attendance for the Talenta HR portal",
		Long: `gopunch clocks in and out of the Talenta HR portal on a weekday
schedule, skips days that are already recorded, and exposes a small
HTTP API for manual control.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
)

// Execute runs the root command
func Execute() error {
	// Parse flags early so --config and --debug are available before the
	// configuration is initialized.
	_ = rootCmd.ParseFlags(os.Args[1:])

	if err := initConfig(); err != nil {
		return fmt.Errorf("failed to initialize configuration: %w", err)
	}

	return rootCmd.ExecuteContext(context.Background())
}

// init initializes the root command and its subcommands.
func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"",
		"config file (default is ./config.yaml or ./config/config.yaml)",
	)
	rootCmd.PersistentFlags().BoolVar(&Debug, "debug", false, "enable debug mode")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("gopunch version %s\n", "1.0.0")
		},
	})

	rootCmd.AddCommand(serve.Command(&Debug))
	rootCmd.AddCommand(punch.Command(&Debug))
	rootCmd.AddCommand(status.Command(&Debug))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	return config.InitializeViper()
}

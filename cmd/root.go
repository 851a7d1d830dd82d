package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"courier/internal/config"
	"courier/internal/logger"
)

var version = "1.0.0"

// appConfig is the environment configuration; flags on the root command
// override its storage paths.
var appConfig = defaultConfig()

var rootCmd = &cobra.Command{
	Use:   "courier",
	Short: "Courier back-office invoicing",
	Long: `Courier bills completed deliveries to clients.

Completed deliveries are reconciled against the payment methods configured in
the settings file and aggregated into each client's open invoice. Fee payments
and pass-through settlements move invoices towards Finalized.

Invoices are kept in a local SQLite database.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("db") {
			appConfig.DBPath, _ = cmd.Flags().GetString("db")
		}
		if cmd.Flags().Changed("settings") {
			appConfig.SettingsFile, _ = cmd.Flags().GetString("settings")
		}
		if appConfig.DBPath == "" {
			return fmt.Errorf("database path must not be empty")
		}
		return nil
	},
}

// Execute runs the root command with cfg. A nil cfg uses the defaults.
func Execute(cfg *config.Config) {
	log := logger.WithComponent("cmd")

	if cfg != nil {
		appConfig = cfg
	}

	if err := rootCmd.Execute(); err != nil {
		log.Debug().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func defaultConfig() *config.Config {
	return &config.Config{
		DBPath:       "./data/courier.db",
		SettingsFile: "./settings.json",
		AsyncSave:    true,
	}
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "SQLite database path (default: COURIER_DB_PATH)")
	rootCmd.PersistentFlags().String("settings", "", "Settings file with clients, payment methods and extra fees (default: COURIER_SETTINGS_FILE)")
	rootCmd.PersistentFlags().Bool("dry-run", false, "Compute and print results without saving")
	rootCmd.PersistentFlags().StringP("output", "o", "table", "Output format: table or json")
}

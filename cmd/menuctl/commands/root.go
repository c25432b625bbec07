package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/chenyk320/menu/internal/app"
	"github.com/chenyk320/menu/internal/config"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	dbURL      string
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "menuctl",
	Short: "Maintenance commands for the restaurant menu",
	Long: `menuctl manages the menu database and dish images outside the API server.

Settings are read from the environment and .env like the server does;
--db overrides DATABASE_URL.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbURL, "db", "", "Database URL (defaults to DATABASE_URL)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if dbURL != "" {
		cfg.DatabaseURL = dbURL
	}
	return cfg, nil
}

func openApp(ctx context.Context) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

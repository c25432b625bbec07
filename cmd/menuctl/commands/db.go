package commands

import (
	"context"
	"fmt"

	"github.com/chenyk320/menu/cmd/menuctl/output"
	"github.com/chenyk320/menu/internal/seed"

	"github.com/spf13/cobra"
)

var (
	demoFile    string
	builtinDemo bool
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Database schema and seed data",
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the menu schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		output.Success("Schema is current (%s)", a.Store.Kind)
		return nil
	},
}

var dbSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert default categories and allergens, optionally demo dishes",
	Long: `Insert the default categories (A-H) and the 14 EU allergens into empty
tables. Existing rows are never changed.

Examples:
  menuctl db seed                       # defaults only
  menuctl db seed --demo-builtin        # plus the bundled demo dishes
  menuctl db seed --demo dishes.yaml    # plus dishes from a YAML file`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSeed(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(dbMigrateCmd, dbSeedCmd)

	dbSeedCmd.Flags().StringVar(&demoFile, "demo", "", "YAML file with demo dishes")
	dbSeedCmd.Flags().BoolVar(&builtinDemo, "demo-builtin", false, "Load the bundled demo dishes")
}

func runSeed(ctx context.Context) error {
	if demoFile != "" && builtinDemo {
		return fmt.Errorf("--demo and --demo-builtin are mutually exclusive")
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := seed.Defaults(ctx, a.Menu)
	if err != nil {
		return fmt.Errorf("seed defaults: %w", err)
	}
	if res.Categories == 0 && res.Allergens == 0 {
		output.Info("Categories and allergens already present")
	} else {
		output.Success("Added %d categories and %d allergens", res.Categories, res.Allergens)
	}

	var demo *seed.DemoFile
	switch {
	case builtinDemo:
		demo, err = seed.Builtin()
	case demoFile != "":
		demo, err = seed.LoadFile(demoFile)
	default:
		return nil
	}
	if err != nil {
		return err
	}

	dres, err := seed.Apply(ctx, a.Menu, demo)
	if err != nil {
		if dres != nil {
			output.Error("Demo data stopped after %d dishes", dres.Dishes)
		}
		return err
	}
	output.Success("Added %d demo dishes", dres.Dishes)
	return nil
}

package commands

import (
	"context"
	"strings"

	"github.com/chenyk320/menu/cmd/menuctl/output"
	"github.com/chenyk320/menu/internal/menu"

	"github.com/spf13/cobra"
)

var resequencePrefix string

var dishesCmd = &cobra.Command{
	Use:   "dishes",
	Short: "Dish maintenance",
}

var dishesResequenceCmd = &cobra.Command{
	Use:   "resequence",
	Short: "Renumber dishes to PREFIX1..PREFIXn, closing gaps",
	Long: `Renumber the dishes of one category, or of every category, in sort order.

Examples:
  menuctl dishes resequence               # every category
  menuctl dishes resequence --category F  # only category F`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runResequence(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(dishesCmd)
	dishesCmd.AddCommand(dishesResequenceCmd)

	dishesResequenceCmd.Flags().StringVar(&resequencePrefix, "category", "", "Prefix letter of the category")
}

func runResequence(ctx context.Context) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	cats, err := a.Menu.ListCategories(ctx)
	if err != nil {
		return err
	}

	prefix := strings.ToUpper(strings.TrimSpace(resequencePrefix))
	var selected []menu.Category
	for _, c := range cats {
		if prefix == "" || c.PrefixLetter == prefix {
			selected = append(selected, c)
		}
	}
	if len(selected) == 0 {
		output.Warning("No category with prefix %s", prefix)
		return nil
	}

	for _, c := range selected {
		if err := a.Menu.Resequence(ctx, c.ID); err != nil {
			output.Error("%s %s: %v", c.PrefixLetter, c.NameIT, err)
			return err
		}
		output.Success("%s %s renumbered", c.PrefixLetter, c.NameIT)
	}
	return nil
}

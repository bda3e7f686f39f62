package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"financas/internal/core"
	"financas/internal/dashboard"
)

func init() {
	rootCmd.AddCommand(listCmd, summaryCmd, categoriesCmd)
	for _, c := range []*cobra.Command{listCmd, summaryCmd} {
		addCriteriaFlags(c.Flags())
		c.Flags().Bool("json", false, "Print JSON instead of a table")
	}
}

// addCriteriaFlags registers the list filters.
func addCriteriaFlags(fs *pflag.FlagSet) {
	fs.StringP("kind", "k", "", "Only income or only expense")
	fs.StringP("category", "c", "", "Only this category")
	fs.StringP("search", "s", "", "Description contains this text (case-insensitive)")
	fs.String("from", "", "On or after this date, YYYY-MM-DD")
	fs.String("to", "", "On or before this date, YYYY-MM-DD")
	fs.StringP("month", "m", "", "Within this month, YYYY-MM")
}

func criteriaFromFlags(fs *pflag.FlagSet) (core.Criteria, error) {
	get := func(name string) string {
		v, _ := fs.GetString(name)
		return v
	}
	return core.ParseCriteria(core.CriteriaParams{
		Kind:     get("kind"),
		Category: get("category"),
		Search:   get("search"),
		From:     get("from"),
		To:       get("to"),
		Month:    get("month"),
	}, cfg.Location())
}

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List transactions, newest first",
	Example: `  financas list --month 2024-03
  financas list -k expense -c Transporte -s uber`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func runList(cmd *cobra.Command, args []string) error {
	return runView(cmd, func(v dashboard.View, asJSON bool) error {
		out := cmd.OutOrStdout()
		if asJSON {
			return writeIndentedJSON(out, v.Filtered)
		}
		return printTransactions(out, v.Filtered, cfg.Location())
	})
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show totals, balance and per-category breakdown",
	Args:  cobra.NoArgs,
	RunE:  runSummary,
}

func runSummary(cmd *cobra.Command, args []string) error {
	return runView(cmd, func(v dashboard.View, asJSON bool) error {
		out := cmd.OutOrStdout()
		if asJSON {
			return writeIndentedJSON(out, summaryJSON{
				Summary:            v.Summary,
				FilteredSummary:    v.FilteredSummary,
				ExpensesByCategory: v.ExpensesByCategory,
				IncomeByCategory:   v.IncomeByCategory,
				Count:              len(v.Filtered),
			})
		}
		return printSummary(out, v)
	})
}

type summaryJSON struct {
	Summary            core.Summary          `json:"summary"`
	FilteredSummary    core.Summary          `json:"filteredSummary"`
	ExpensesByCategory []core.CategoryAmount `json:"expensesByCategory"`
	IncomeByCategory   []core.CategoryAmount `json:"incomeByCategory"`
	Count              int                   `json:"count"`
}

// runView loads the owner's list, applies the criteria flags on the board
// and hands the resulting view to render.
func runView(cmd *cobra.Command, render func(v dashboard.View, asJSON bool) error) error {
	c, err := criteriaFromFlags(cmd.Flags())
	if err != nil {
		return err
	}
	asJSON, _ := cmd.Flags().GetBool("json")
	return withSession(cmd, func(ctx context.Context, app *App) error {
		app.Board.SetCriteria(c)
		return render(app.Board.Current(), asJSON)
	})
}

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List the configured categories",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		set := cfg.CategorySet()
		for _, name := range set.Names() {
			if name == set.Default() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s (default)\n", name)
				continue
			}
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

func writeIndentedJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

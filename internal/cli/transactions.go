package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"financas/internal/core"
)

func init() {
	rootCmd.AddCommand(addCmd, editCmd, rmCmd)
	addInputFlags(addCmd.Flags())
	addInputFlags(editCmd.Flags())
}

// addInputFlags registers the fields of a transaction form.
func addInputFlags(fs *pflag.FlagSet) {
	fs.StringP("kind", "k", "", "income or expense (receita/despesa also accepted)")
	fs.StringP("description", "d", "", "What the money was for")
	fs.StringP("amount", "a", "", "Positive amount, '.' or ',' as decimal separator")
	fs.StringP("category", "c", "", "One of the configured categories (see financas categories); empty means the default")
	fs.String("date", "", "When it happened: YYYY-MM-DD, YYYY-MM-DD HH:MM or RFC 3339 (default now)")
}

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Record a new transaction",
	Example: `  financas add -k expense -d "Uber" -a 25,50 -c Transporte
  financas add -k income -d Salário -a 3500 --date 2024-03-05`,
	Args: cobra.NoArgs,
	RunE: runAdd,
}

func runAdd(cmd *cobra.Command, args []string) error {
	in := inputFromFlags(cmd.Flags(), core.Input{})
	return withSession(cmd, func(ctx context.Context, app *App) error {
		id, err := app.Store.Add(ctx, in)
		if err != nil {
			return describeWriteError(err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", id)
		return nil
	})
}

var editCmd = &cobra.Command{
	Use:   "edit ID",
	Short: "Change an existing transaction",
	Long: `Change an existing transaction. Fields not given on the command line keep
their current values; the whole record is written back.`,
	Args: cobra.ExactArgs(1),
	RunE: runEdit,
}

func runEdit(cmd *cobra.Command, args []string) error {
	id := args[0]
	return withSession(cmd, func(ctx context.Context, app *App) error {
		current, ok := findTransaction(app.Store.Transactions(), id)
		if !ok {
			return fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
		}
		in := inputFromFlags(cmd.Flags(), inputFromTransaction(current, app.Config.Location()))
		if err := app.Store.Edit(ctx, id, in); err != nil {
			return describeWriteError(err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", id)
		return nil
	})
}

var rmCmd = &cobra.Command{
	Use:     "rm ID...",
	Aliases: []string{"remove", "delete"},
	Short:   "Delete transactions",
	Long:    `Delete transactions by id. Ids that do not exist are ignored.`,
	Args:    cobra.MinimumNArgs(1),
	RunE:    runRemove,
}

func runRemove(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(ctx context.Context, app *App) error {
		for _, id := range args {
			if err := app.Store.Remove(ctx, id); err != nil {
				return describeWriteError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", id)
		}
		return nil
	})
}

// inputFromFlags overlays the flags the user set on base.
func inputFromFlags(fs *pflag.FlagSet, base core.Input) core.Input {
	in := base
	set := func(name string, dst *string) {
		if fs.Changed(name) {
			*dst, _ = fs.GetString(name)
		}
	}
	set("kind", &in.Kind)
	set("description", &in.Description)
	set("amount", &in.Amount)
	set("category", &in.Category)
	set("date", &in.OccurredAt)
	return in
}

func inputFromTransaction(tx core.Transaction, loc *time.Location) core.Input {
	return core.Input{
		Kind:        string(tx.Kind),
		Description: tx.Description,
		Amount:      tx.Amount.String(),
		Category:    tx.Category,
		OccurredAt:  tx.OccurredAt.In(loc).Format(time.RFC3339Nano),
	}
}

func findTransaction(txs []core.Transaction, id string) (core.Transaction, bool) {
	for _, tx := range txs {
		if tx.ID == id {
			return tx, true
		}
	}
	return core.Transaction{}, false
}

// describeWriteError spells out validation failures field by field.
func describeWriteError(err error) error {
	var verr *core.ValidationError
	if !errors.As(err, &verr) {
		return err
	}
	msg := "invalid transaction:"
	for _, f := range verr.Fields {
		msg += fmt.Sprintf("\n  %s: %s", f.Field, f.Message)
	}
	return errors.New(msg)
}

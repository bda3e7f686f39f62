package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"financas/internal/core"
	"financas/internal/dashboard"
)

// formatReais formats an amount as "R$ 1.234,56", with a leading minus when
// negative.
func formatReais(d decimal.Decimal) string {
	whole, frac, _ := strings.Cut(d.Abs().StringFixed(2), ".")
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	s := "R$ " + b.String() + "," + frac
	if d.Round(2).IsNegative() {
		return "-" + s
	}
	return s
}

func kindLabel(k core.Kind) string {
	switch k {
	case core.Income:
		return "receita"
	case core.Expense:
		return "despesa"
	}
	return string(k)
}

func printTransactions(w io.Writer, txs []core.Transaction, loc *time.Location) error {
	if len(txs) == 0 {
		_, err := fmt.Fprintln(w, "No transactions.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tKIND\tCATEGORY\tAMOUNT\tDESCRIPTION\tID\t")
	for _, tx := range txs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t\n",
			core.DateOf(tx.OccurredAt, loc),
			kindLabel(tx.Kind),
			tx.Category,
			formatReais(tx.Amount.Decimal()),
			tx.Description,
			tx.ID)
	}
	return tw.Flush()
}

func printSummary(w io.Writer, v dashboard.View) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Receitas\t%s\n", formatReais(v.Summary.TotalIncome))
	fmt.Fprintf(tw, "Despesas\t%s\n", formatReais(v.Summary.TotalExpense))
	fmt.Fprintf(tw, "Saldo\t%s\n", formatReais(v.Summary.Balance))
	if !v.Criteria.IsZero() {
		fmt.Fprintf(tw, "\nFiltered (%d)\t\n", len(v.Filtered))
		fmt.Fprintf(tw, "Receitas\t%s\n", formatReais(v.FilteredSummary.TotalIncome))
		fmt.Fprintf(tw, "Despesas\t%s\n", formatReais(v.FilteredSummary.TotalExpense))
		fmt.Fprintf(tw, "Saldo\t%s\n", formatReais(v.FilteredSummary.Balance))
	}
	printBreakdown(tw, "Despesas por categoria", v.ExpensesByCategory)
	printBreakdown(tw, "Receitas por categoria", v.IncomeByCategory)
	return tw.Flush()
}

func printBreakdown(w io.Writer, title string, rows []core.CategoryAmount) {
	if len(rows) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s\t\n", title)
	for _, row := range rows {
		fmt.Fprintf(w, "  %s\t%s\n", row.Name, formatReais(row.Amount))
	}
}

// viewLine is the one-line rendering of a view used by watch.
func viewLine(v dashboard.View) string {
	st := v.State
	line := fmt.Sprintf("[%s] %s v%d: %d transactions, receitas %s, despesas %s, saldo %s",
		st.Status, st.OwnerID, st.Version, len(v.Filtered),
		formatReais(v.FilteredSummary.TotalIncome),
		formatReais(v.FilteredSummary.TotalExpense),
		formatReais(v.FilteredSummary.Balance))
	if st.Err != nil {
		line += " (" + st.Err.Error() + ")"
	}
	return line
}

package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Summary holds the derived totals of a transaction list.
type Summary struct {
	TotalIncome  decimal.Decimal `json:"totalIncome"`
	TotalExpense decimal.Decimal `json:"totalExpense"`
	Balance      decimal.Decimal `json:"balance"`
}

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// Aggregate sums amounts per kind. Each cent amount is exact in a decimal and
// the running totals are arbitrary precision, so no list can wrap them.
func Aggregate(txs []Transaction) Summary {
	income, expense := decimal.Zero, decimal.Zero
	for _, tx := range txs {
		switch tx.Kind {
		case Income:
			income = income.Add(tx.Amount.Decimal())
		case Expense:
			expense = expense.Add(tx.Amount.Decimal())
		}
	}
	return Summary{
		TotalIncome:  income,
		TotalExpense: expense,
		Balance:      income.Sub(expense),
	}
}

// Equal compares by value, ignoring decimal exponent differences.
func (s Summary) Equal(o Summary) bool {
	return s.TotalIncome.Equal(o.TotalIncome) &&
		s.TotalExpense.Equal(o.TotalExpense) &&
		s.Balance.Equal(o.Balance)
}

// AggregateByCategory totals transactions of the given kind per category,
// largest first, ties by name.
func AggregateByCategory(txs []Transaction, kind Kind) []CategoryAmount {
	totals := map[string]decimal.Decimal{}
	for _, tx := range txs {
		if tx.Kind == kind {
			totals[tx.Category] = totals[tx.Category].Add(tx.Amount.Decimal())
		}
	}
	out := make([]CategoryAmount, 0, len(totals))
	for name, amount := range totals {
		out = append(out, CategoryAmount{Name: name, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].Name < out[j].Name
	})
	return out
}

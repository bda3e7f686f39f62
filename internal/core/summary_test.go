package core

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestAggregateEmpty(t *testing.T) {
	got := Aggregate(nil)
	want := Summary{TotalIncome: decimal.Zero, TotalExpense: decimal.Zero, Balance: decimal.Zero}
	if !got.Equal(want) {
		t.Fatalf("Aggregate([]) = %+v, want zeros", got)
	}
}

func TestAggregateIncomeAndExpense(t *testing.T) {
	got := Aggregate([]Transaction{
		{Kind: Income, Amount: Money{Cents: 100000}},
		{Kind: Expense, Amount: Money{Cents: 40000}},
	})
	want := Summary{TotalIncome: dec("1000"), TotalExpense: dec("400"), Balance: dec("600")}
	if !got.Equal(want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestAggregateKeepsCentPrecision(t *testing.T) {
	// 0.1 + 0.2 drifts in float64; cents must not.
	txs := make([]Transaction, 0, 3000)
	for i := 0; i < 1000; i++ {
		txs = append(txs,
			Transaction{Kind: Income, Amount: Money{Cents: 10}},
			Transaction{Kind: Income, Amount: Money{Cents: 20}},
			Transaction{Kind: Expense, Amount: Money{Cents: 30}},
		)
	}
	got := Aggregate(txs)
	if !got.TotalIncome.Equal(dec("300")) || !got.TotalExpense.Equal(dec("300")) || !got.Balance.IsZero() {
		t.Fatalf("got %+v", got)
	}
}

func TestAggregateBalanceIdentityAndOrderIndependence(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	txs := make([]Transaction, 200)
	for i := range txs {
		k := Income
		if r.Intn(2) == 0 {
			k = Expense
		}
		txs[i] = Transaction{Kind: k, Amount: Money{Cents: r.Int63n(1_000_000)}}
	}
	base := Aggregate(txs)
	if !base.Balance.Equal(base.TotalIncome.Sub(base.TotalExpense)) {
		t.Fatalf("balance %s != income %s - expense %s", base.Balance, base.TotalIncome, base.TotalExpense)
	}
	for i := 0; i < 5; i++ {
		r.Shuffle(len(txs), func(a, b int) { txs[a], txs[b] = txs[b], txs[a] })
		if got := Aggregate(txs); !got.Equal(base) {
			t.Fatalf("shuffled aggregate %+v differs from %+v", got, base)
		}
	}
}

func TestAggregateByCategory(t *testing.T) {
	got := AggregateByCategory(sampleTransactions(), Expense)
	if len(got) != 2 {
		t.Fatalf("got %+v", got)
	}
	if got[0].Name != "Alimentação" || !got[0].Amount.Equal(dec("189.90")) {
		t.Fatalf("first = %+v", got[0])
	}
	if got[1].Name != "Transporte" || !got[1].Amount.Equal(dec("27.90")) {
		t.Fatalf("second = %+v", got[1])
	}
}

func TestAggregateDoesNotWrapLargeTotals(t *testing.T) {
	cents, err := ParseDecimalToCents("90000000000000000")
	if err != nil {
		t.Fatalf("ParseDecimalToCents() error = %v", err)
	}
	txs := []Transaction{
		{Kind: Income, Category: "Salário", Amount: Money{Cents: cents}},
		{Kind: Income, Category: "Salário", Amount: Money{Cents: cents}},
		{Kind: Expense, Category: "Casa", Amount: Money{Cents: 1}},
	}
	got := Aggregate(txs)
	if !got.TotalIncome.Equal(dec("180000000000000000")) {
		t.Errorf("TotalIncome = %s, want 180000000000000000", got.TotalIncome)
	}
	if !got.Balance.Equal(dec("179999999999999999.99")) {
		t.Errorf("Balance = %s, want 179999999999999999.99", got.Balance)
	}
	byCat := AggregateByCategory(txs, Income)
	if len(byCat) != 1 || !byCat[0].Amount.Equal(dec("180000000000000000")) {
		t.Errorf("AggregateByCategory() = %+v", byCat)
	}
}

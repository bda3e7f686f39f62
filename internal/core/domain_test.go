package core

import (
	"testing"
	"time"
)

func TestParseKind(t *testing.T) {
	cases := []struct {
		in   string
		want Kind
		ok   bool
	}{
		{"income", Income, true},
		{"EXPENSE", Expense, true},
		{" receita ", Income, true},
		{"despesa", Expense, true},
		{"transfer", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseKind(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("%q expected %q, got %q (err=%v)", tc.in, tc.want, got, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestDateOfUsesLocation(t *testing.T) {
	saoPaulo := time.FixedZone("BRT", -3*3600)
	ts := time.Date(2025, 3, 1, 1, 30, 0, 0, time.UTC)

	if got := DateOf(ts, time.UTC); got != NewDate(2025, time.March, 1) {
		t.Fatalf("utc date = %v", got)
	}
	if got := DateOf(ts, saoPaulo); got != NewDate(2025, time.February, 28) {
		t.Fatalf("brt date = %v", got)
	}
}

func TestDateCompare(t *testing.T) {
	a := NewDate(2025, time.January, 31)
	b := NewDate(2025, time.February, 1)
	if a.Compare(b) != -1 || b.Compare(a) != 1 || a.Compare(a) != 0 {
		t.Fatalf("unexpected ordering between %v and %v", a, b)
	}
}

func TestParseDateAndMonth(t *testing.T) {
	d, err := ParseDate("2025-07-04")
	if err != nil || d != NewDate(2025, time.July, 4) {
		t.Fatalf("ParseDate = %v, %v", d, err)
	}
	if _, err := ParseDate("04/07/2025"); err == nil {
		t.Fatalf("expected error for non ISO date")
	}
	ym, err := ParseYearMonth("2025-07")
	if err != nil || ym.String() != "2025-07" {
		t.Fatalf("ParseYearMonth = %v, %v", ym, err)
	}
	if !ym.Contains(d) || ym.Contains(NewDate(2024, time.July, 4)) {
		t.Fatalf("month containment is wrong")
	}
}

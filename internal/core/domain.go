package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	Income  Kind = "income"
	Expense Kind = "expense"
)

type (
	// Kind says whether a transaction adds to or subtracts from the balance.
	Kind string

	// Date is a calendar date without time of day or location.
	Date struct {
		Year  int
		Month time.Month
		Day   int
	}

	// YearMonth identifies one calendar month.
	YearMonth struct {
		Year  int
		Month time.Month
	}

	// Transaction is the only persisted entity. ID, OwnerID, CreatedAt and
	// UpdatedAt are owned by the remote collection.
	Transaction struct {
		ID          string    `json:"id"`
		OwnerID     string    `json:"ownerId"`
		Kind        Kind      `json:"kind"`
		Description string    `json:"description"`
		Amount      Money     `json:"amount"`
		Category    string    `json:"category"`
		OccurredAt  time.Time `json:"occurredAt"`
		CreatedAt   time.Time `json:"createdAt"`
		UpdatedAt   time.Time `json:"updatedAt"`
	}
)

// ParseKind accepts the wire values and the receita/despesa aliases.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "income", "receita":
		return Income, nil
	case "expense", "despesa":
		return Expense, nil
	}
	return "", fmt.Errorf("unknown kind %q", s)
}

func (k Kind) Valid() bool {
	return k == Income || k == Expense
}

func (k Kind) String() string {
	return string(k)
}

// DateOf returns the calendar date of t in loc. A nil loc keeps t's own location.
func DateOf(t time.Time, loc *time.Location) Date {
	if loc != nil {
		t = t.In(loc)
	}
	return NewDate(t.Date())
}

// ParseDate parses YYYY-MM-DD.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return DateOf(t, nil), nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year int, month time.Month, day int) Date {
	return Date{Year: year, Month: month, Day: day}
}

// Compare returns -1, 0 or +1.
func (d Date) Compare(o Date) int {
	switch {
	case d.Year != o.Year:
		return cmpInt(d.Year, o.Year)
	case d.Month != o.Month:
		return cmpInt(int(d.Month), int(o.Month))
	default:
		return cmpInt(d.Day, o.Day)
	}
}

func (d Date) IsZero() bool {
	return d == Date{}
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// ParseYearMonth parses YYYY-MM.
func ParseYearMonth(s string) (YearMonth, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return YearMonth{}, fmt.Errorf("parse month %q: %w", s, err)
	}
	return YearMonth{Year: t.Year(), Month: t.Month()}, nil
}

// Contains reports whether d falls inside the month.
func (ym YearMonth) Contains(d Date) bool {
	return d.Year == ym.Year && d.Month == ym.Month
}

func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, ym.Month)
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

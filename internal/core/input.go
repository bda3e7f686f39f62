package core

import (
	"errors"
	"math"
	"strings"
	"time"
)

const maxDescriptionLen = 200

// occurredAtLayouts are tried in order; all but RFC3339 are read in the
// caller's location.
var occurredAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.DateOnly,
}

// Adapters persist occurredAt as Unix nanoseconds, which bounds the range.
var (
	minOccurredAt = time.Unix(0, math.MinInt64)
	maxOccurredAt = time.Unix(0, math.MaxInt64)
)

// Input is the raw, user-supplied form of a transaction for add and edit.
// Updates are full-record: every field is sent again.
type Input struct {
	Kind        string
	Description string
	Amount      string
	Category    string
	OccurredAt  string // optional; empty means "now"
}

// ParseOccurredAt parses a user-supplied timestamp. Date-only values land on
// midnight in loc.
func ParseOccurredAt(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	s = strings.TrimSpace(s)
	for _, layout := range occurredAtLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("unrecognized date")
}

// Normalize validates in against cats and returns the transaction to send to
// the remote collection. All violations are reported together in a
// *ValidationError. ID, OwnerID and the server timestamps are left empty.
func (in Input) Normalize(cats Categories, now time.Time, loc *time.Location) (Transaction, error) {
	verr := &ValidationError{}
	var tx Transaction

	kind, err := ParseKind(in.Kind)
	if err != nil {
		verr.add("kind", "must be income or expense")
	}
	tx.Kind = kind

	desc := strings.TrimSpace(in.Description)
	switch {
	case desc == "":
		verr.add("description", "is required")
	case len(desc) > maxDescriptionLen:
		verr.add("description", "is too long (max 200 characters)")
	}
	tx.Description = desc

	cents, err := ParseDecimalToCents(in.Amount)
	if err != nil {
		verr.add("amount", "must be a positive number")
	}
	tx.Amount = Money{Cents: cents}

	if strings.TrimSpace(in.Category) == "" {
		tx.Category = cats.Default()
	} else if name, ok := cats.Resolve(in.Category); ok {
		tx.Category = name
	} else {
		verr.add("category", "is not one of the configured categories")
	}

	if strings.TrimSpace(in.OccurredAt) == "" {
		tx.OccurredAt = now
	} else if t, err := ParseOccurredAt(in.OccurredAt, loc); err != nil {
		verr.add("occurredAt", "is not a valid date")
	} else if t.Before(minOccurredAt) || t.After(maxOccurredAt) {
		verr.add("occurredAt", "is out of range (1678 to 2262)")
	} else {
		tx.OccurredAt = t
	}

	if len(verr.Fields) > 0 {
		return Transaction{}, verr
	}
	return tx, nil
}

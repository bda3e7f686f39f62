package core

import (
	"strings"
	"time"
)

// Criteria narrows a transaction list. Every zero field matches all; set
// fields are combined with AND.
//
// From and To are inclusive and compare calendar dates only: the date of
// OccurredAt in Location (time.Local when nil). Time of day never decides
// membership.
type Criteria struct {
	Kind     *Kind
	Category string
	Search   string
	From     *Date
	To       *Date
	Month    *YearMonth
	Location *time.Location
}

// IsZero reports whether c matches everything.
func (c Criteria) IsZero() bool {
	return c.Kind == nil && strings.TrimSpace(c.Category) == "" && c.Search == "" &&
		c.From == nil && c.To == nil && c.Month == nil
}

// Key is a stable identity for c, used to memoize derived views.
func (c Criteria) Key() string {
	var b strings.Builder
	if c.Kind != nil {
		b.WriteString("k=" + string(*c.Kind))
	}
	b.WriteString("|c=" + strings.ToLower(strings.TrimSpace(c.Category)))
	b.WriteString("|s=" + strings.ToLower(c.Search))
	if c.From != nil {
		b.WriteString("|f=" + c.From.String())
	}
	if c.To != nil {
		b.WriteString("|t=" + c.To.String())
	}
	if c.Month != nil {
		b.WriteString("|m=" + c.Month.String())
	}
	if c.Location != nil {
		b.WriteString("|l=" + c.Location.String())
	}
	return b.String()
}

// Match reports whether tx satisfies every set constraint.
func (c Criteria) Match(tx Transaction) bool {
	if c.Kind != nil && tx.Kind != *c.Kind {
		return false
	}
	if cat := strings.TrimSpace(c.Category); cat != "" && !strings.EqualFold(tx.Category, cat) {
		return false
	}
	if c.Search != "" && !strings.Contains(strings.ToLower(tx.Description), strings.ToLower(c.Search)) {
		return false
	}
	if c.From == nil && c.To == nil && c.Month == nil {
		return true
	}
	loc := c.Location
	if loc == nil {
		loc = time.Local
	}
	d := DateOf(tx.OccurredAt, loc)
	if c.From != nil && d.Compare(*c.From) < 0 {
		return false
	}
	if c.To != nil && d.Compare(*c.To) > 0 {
		return false
	}
	if c.Month != nil && !c.Month.Contains(d) {
		return false
	}
	return true
}

// Filter returns the transactions matching c in their original relative
// order. It never modifies txs.
func Filter(txs []Transaction, c Criteria) []Transaction {
	out := make([]Transaction, 0, len(txs))
	for _, tx := range txs {
		if c.Match(tx) {
			out = append(out, tx)
		}
	}
	return out
}

// CriteriaParams is the textual form of Criteria, as typed on a command
// line or sent in a query string. Blank fields are unset.
type CriteriaParams struct {
	Kind     string
	Category string
	Search   string
	From     string
	To       string
	Month    string
}

// ParseCriteria validates p and builds the matching Criteria in loc.
func ParseCriteria(p CriteriaParams, loc *time.Location) (Criteria, error) {
	c := Criteria{
		Category: strings.TrimSpace(p.Category),
		Search:   strings.TrimSpace(p.Search),
		Location: loc,
	}
	if s := strings.TrimSpace(p.Kind); s != "" {
		k, err := ParseKind(s)
		if err != nil {
			return Criteria{}, err
		}
		c.Kind = &k
	}
	if s := strings.TrimSpace(p.From); s != "" {
		d, err := ParseDate(s)
		if err != nil {
			return Criteria{}, err
		}
		c.From = &d
	}
	if s := strings.TrimSpace(p.To); s != "" {
		d, err := ParseDate(s)
		if err != nil {
			return Criteria{}, err
		}
		c.To = &d
	}
	if s := strings.TrimSpace(p.Month); s != "" {
		ym, err := ParseYearMonth(s)
		if err != nil {
			return Criteria{}, err
		}
		c.Month = &ym
	}
	return c, nil
}

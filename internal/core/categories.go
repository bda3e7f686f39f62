package core

import "strings"

// DefaultCategoryNames is the category set offered when none is configured.
var DefaultCategoryNames = []string{
	"Alimentação",
	"Transporte",
	"Saúde",
	"Educação",
	"Lazer",
	"Casa",
	"Roupas",
	"Salário",
	"Freelance",
	"Investimentos",
	"Outros",
}

// DefaultCategory is the catch-all ("other") category.
const DefaultCategory = "Outros"

// Categories is the closed set a transaction's category must belong to.
type Categories struct {
	names []string
	def   string
}

// NewCategories dedupes names preserving order. def is added when missing;
// an empty def falls back to DefaultCategory.
func NewCategories(names []string, def string) Categories {
	def = strings.TrimSpace(def)
	if def == "" {
		def = DefaultCategory
	}
	seen := map[string]struct{}{}
	out := make([]string, 0, len(names)+1)
	for _, n := range append(append([]string(nil), names...), def) {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		key := strings.ToLower(n)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, n)
	}
	return Categories{names: out, def: def}
}

// DefaultCategories returns the built-in set.
func DefaultCategories() Categories {
	return NewCategories(DefaultCategoryNames, DefaultCategory)
}

// Resolve returns the canonical spelling of name, matching case-insensitively.
func (c Categories) Resolve(name string) (string, bool) {
	name = strings.TrimSpace(name)
	for _, n := range c.names {
		if strings.EqualFold(n, name) {
			return n, true
		}
	}
	return "", false
}

func (c Categories) Default() string {
	if c.def == "" {
		return DefaultCategory
	}
	return c.def
}

func (c Categories) Names() []string {
	return append([]string(nil), c.names...)
}

func (c Categories) Len() int {
	return len(c.names)
}

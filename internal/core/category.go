package core

import "strings"

// DefaultColor is used for categories missing from the lookup table.
const DefaultColor = "#6c757d"

// Category is a labelled bucket with a display color hint.
type Category struct {
	Name  string `json:"name"`
	Type  TxType `json:"type"`
	Color string `json:"color"`
}

// Categories is the category lookup table, keyed by name.
type Categories []Category

// DefaultCategories returns the seed set used when nothing is stored.
func DefaultCategories() Categories {
	return Categories{
		{Name: "Gaji", Type: Income, Color: "#28a745"},
		{Name: "Bonus", Type: Income, Color: "#20c997"},
		{Name: "Investasi", Type: Income, Color: "#17a2b8"},
		{Name: "Makanan", Type: Expense, Color: "#dc3545"},
		{Name: "Transportasi", Type: Expense, Color: "#fd7e14"},
		{Name: "Hiburan", Type: Expense, Color: "#e83e8c"},
		{Name: "Tagihan", Type: Expense, Color: "#6f42c1"},
		{Name: "Belanja", Type: Expense, Color: "#6610f2"},
		{Name: "Kesehatan", Type: Expense, Color: "#d63384"},
		{Name: "Pendidikan", Type: Expense, Color: "#0d6efd"},
	}
}

// Find returns the category with the given name.
func (cs Categories) Find(name string) (Category, bool) {
	name = strings.TrimSpace(name)
	for _, c := range cs {
		if c.Name == name {
			return c, true
		}
	}
	return Category{}, false
}

// ByType returns the categories of one type, preserving order.
func (cs Categories) ByType(t TxType) Categories {
	out := make(Categories, 0, len(cs))
	for _, c := range cs {
		if c.Type == t {
			out = append(out, c)
		}
	}
	return out
}

// Color returns the display color for name, or DefaultColor.
func (cs Categories) Color(name string) string {
	if c, ok := cs.Find(name); ok && c.Color != "" {
		return c.Color
	}
	return DefaultColor
}

// Names lists category names in table order.
func (cs Categories) Names() []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Name
	}
	return out
}

// Validate rejects tables with empty or duplicate names.
func (cs Categories) Validate() error {
	seen := make(map[string]struct{}, len(cs))
	for _, c := range cs {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return ErrEmptyCategory
		}
		if _, dup := seen[name]; dup {
			return &ValidationError{Field: "categories", Msg: "duplicate category " + name}
		}
		seen[name] = struct{}{}
	}
	return nil
}

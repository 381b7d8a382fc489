package ledger

import (
	"cmp"
	"slices"
	"strings"

	"moneymanager/internal/core"
)

// PageSize is the fixed number of rows per table page.
const PageSize = 10

// All matches every type or category in a Filter.
const All = "all"

const (
	DateDesc   SortOrder = "date-desc"
	DateAsc    SortOrder = "date-asc"
	AmountDesc SortOrder = "amount-desc"
	AmountAsc  SortOrder = "amount-asc"
)

// SortOrder names a sort key and direction.
type SortOrder string

// ParseSortOrder maps a stored value to a SortOrder; unknown values give DateDesc.
func ParseSortOrder(s string) SortOrder {
	switch o := SortOrder(strings.TrimSpace(s)); o {
	case DateAsc, DateDesc, AmountAsc, AmountDesc:
		return o
	}
	return DateDesc
}

// Filter selects transactions. Zero-valued fields match everything.
type Filter struct {
	Type     core.TxType // "", "all", income or expense
	Category string      // "", "all" or an exact category name
	Date     core.Date   // exact calendar date
	Search   string      // case-insensitive substring
}

// Match reports whether tx passes every criterion of f.
func (f Filter) Match(tx core.Transaction) bool {
	if f.Type != "" && f.Type != All && tx.Type != f.Type {
		return false
	}
	if f.Category != "" && f.Category != All && tx.Category != f.Category {
		return false
	}
	if !f.Date.IsZero() && tx.Date.Compare(f.Date) != 0 {
		return false
	}
	if f.Search != "" && !matchesSearch(tx, f.Search) {
		return false
	}
	return true
}

func matchesSearch(tx core.Transaction, term string) bool {
	term = strings.ToLower(term)
	if strings.Contains(strings.ToLower(tx.Category), term) {
		return true
	}
	if tx.Description != "" && strings.Contains(strings.ToLower(tx.Description), term) {
		return true
	}
	return strings.Contains(tx.Amount.String(), term)
}

// Apply returns the transactions matching f in their original order.
func Apply(txs []core.Transaction, f Filter) []core.Transaction {
	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if f.Match(tx) {
			out = append(out, tx)
		}
	}
	return out
}

// Sort returns a sorted copy of txs. Equal keys keep their input order.
func Sort(txs []core.Transaction, order SortOrder) []core.Transaction {
	out := slices.Clone(txs)
	var less func(a, b core.Transaction) int
	switch order {
	case DateAsc:
		less = func(a, b core.Transaction) int { return a.Date.Compare(b.Date) }
	case AmountAsc:
		less = func(a, b core.Transaction) int { return a.Amount.Cmp(b.Amount) }
	case AmountDesc:
		less = func(a, b core.Transaction) int { return b.Amount.Cmp(a.Amount) }
	default:
		less = func(a, b core.Transaction) int { return b.Date.Compare(a.Date) }
	}
	slices.SortStableFunc(out, less)
	return out
}

// Page is one slice of a filtered, sorted sequence.
type Page struct {
	Items      []core.Transaction `json:"items"`
	Page       int                `json:"page"`
	TotalPages int                `json:"totalPages"`
	TotalItems int                `json:"totalItems"`
}

// TotalPages is ceil(n/PageSize), never less than one.
func TotalPages(n int) int {
	return max(1, (n+PageSize-1)/PageSize)
}

// ClampPage keeps page within [1, TotalPages(n)].
func ClampPage(page, n int) int {
	return min(max(page, 1), TotalPages(n))
}

// Paginate returns items [(page-1)*PageSize, page*PageSize). It does not clamp:
// a page past the end is empty.
func Paginate(txs []core.Transaction, page int) Page {
	p := Page{
		Items:      []core.Transaction{},
		Page:       page,
		TotalPages: TotalPages(len(txs)),
		TotalItems: len(txs),
	}
	if page < 1 || page > p.TotalPages {
		return p
	}
	start := (page - 1) * PageSize
	if start >= len(txs) {
		return p
	}
	end := min(start+PageSize, len(txs))
	p.Items = slices.Clone(txs[start:end])
	return p
}

// Query filters, sorts and returns the requested page, clamped into range.
func Query(txs []core.Transaction, f Filter, order SortOrder, page int) Page {
	matched := Sort(Apply(txs, f), order)
	return Paginate(matched, ClampPage(page, len(matched)))
}

// Recent returns the first n transactions in native order.
func Recent(txs []core.Transaction, n int) []core.Transaction {
	return slices.Clone(txs[:min(max(n, 0), len(txs))])
}

// Categories lists the distinct category names present in txs, sorted.
func Categories(txs []core.Transaction) []string {
	seen := make(map[string]struct{})
	for _, tx := range txs {
		seen[tx.Category] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	slices.SortFunc(out, cmp.Compare[string])
	return out
}

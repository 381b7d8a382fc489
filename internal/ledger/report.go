package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"

	"moneymanager/internal/core"
)

// Report is a period summary plus its rows, newest first. Renderers consume it
// as is.
type Report struct {
	Start   core.Date          `json:"start"`
	End     core.Date          `json:"end"`
	Income  decimal.Decimal    `json:"income"`
	Expense decimal.Decimal    `json:"expense"`
	Balance decimal.Decimal    `json:"balance"`
	Count   int                `json:"count"`
	Rows    []core.Transaction `json:"rows"`
}

// BuildReport summarises the transactions dated within [start, end].
// It fails with ErrEmptyRange when nothing matches.
func BuildReport(txs []core.Transaction, start, end core.Date) (Report, error) {
	rows := Sort(filterBy(txs, Between(start, end)), DateDesc)
	if len(rows) == 0 {
		return Report{}, fmt.Errorf("%s to %s: %w", start, end, core.ErrEmptyRange)
	}
	sum := Summarize(rows, Always)
	return Report{
		Start:   start,
		End:     end,
		Income:  sum.Income,
		Expense: sum.Expense,
		Balance: sum.Balance,
		Count:   len(rows),
		Rows:    rows,
	}, nil
}

func filterBy(txs []core.Transaction, pred Predicate) []core.Transaction {
	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if pred(tx) {
			out = append(out, tx)
		}
	}
	return out
}

// DisplayDate renders d the way printed reports show it, e.g. "10 Mar 2025".
func DisplayDate(d core.Date) string {
	return fmt.Sprintf("%d %s %d", d.Day(), shortMonths[d.Month()-1], d.Year())
}

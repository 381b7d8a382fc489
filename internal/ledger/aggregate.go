package ledger

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"moneymanager/internal/core"
)

var hundred = decimal.NewFromInt(100)

// Predicate selects the transactions belonging to a period.
type Predicate func(core.Transaction) bool

// Always matches every transaction.
func Always(core.Transaction) bool { return true }

// YearMonth identifies a calendar month.
type YearMonth struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
}

// MonthOf returns the calendar month containing t.
func MonthOf(t time.Time) YearMonth {
	return YearMonth{Year: t.Year(), Month: t.Month()}
}

// AddMonths shifts ym by n months, rolling the year as needed.
func (ym YearMonth) AddMonths(n int) YearMonth {
	return MonthOf(time.Date(ym.Year, ym.Month+time.Month(n), 1, 0, 0, 0, 0, time.UTC))
}

func (ym YearMonth) Contains(d core.Date) bool {
	return d.Year() == ym.Year && d.Month() == ym.Month
}

func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month))
}

var shortMonths = [...]string{"Jan", "Feb", "Mar", "Apr", "Mei", "Jun", "Jul", "Agu", "Sep", "Okt", "Nov", "Des"}

// Label is the short Indonesian month name used on charts.
func (ym YearMonth) Label() string {
	return shortMonths[ym.Month-1]
}

// InMonth matches transactions dated within ym.
func InMonth(ym YearMonth) Predicate {
	return func(tx core.Transaction) bool { return ym.Contains(tx.Date) }
}

// CurrentMonth matches the calendar month of now.
func CurrentMonth(now time.Time) Predicate {
	return InMonth(MonthOf(now))
}

// PreviousMonth matches the month before now; January rolls back to December.
func PreviousMonth(now time.Time) Predicate {
	return InMonth(MonthOf(now).AddMonths(-1))
}

// Between matches dates in [start, end], inclusive by calendar day.
func Between(start, end core.Date) Predicate {
	return func(tx core.Transaction) bool {
		return tx.Date.Compare(start) >= 0 && tx.Date.Compare(end) <= 0
	}
}

// Summary holds period totals. Balance is Income minus Expense.
type Summary struct {
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Balance decimal.Decimal `json:"balance"`
	Count   int             `json:"count"`
}

// Summarize sums income and expense over the transactions matching pred.
func Summarize(txs []core.Transaction, pred Predicate) Summary {
	s := Summary{Income: decimal.Zero, Expense: decimal.Zero}
	for _, tx := range txs {
		if !pred(tx) {
			continue
		}
		s.Count++
		switch tx.Type {
		case core.Income:
			s.Income = s.Income.Add(tx.Amount)
		case core.Expense:
			s.Expense = s.Expense.Add(tx.Amount)
		}
	}
	s.Balance = s.Income.Sub(s.Expense)
	return s
}

// Trend is the percentage change from previous to current rounded to one
// decimal. It is zero whenever previous is zero.
func Trend(current, previous decimal.Decimal) decimal.Decimal {
	if previous.IsZero() {
		return decimal.Zero
	}
	return current.Sub(previous).Div(previous).Mul(hundred).Round(1)
}

// Series holds parallel per-month totals, oldest first.
type Series struct {
	Months  []YearMonth       `json:"months"`
	Labels  []string          `json:"labels"`
	Income  []decimal.Decimal `json:"income"`
	Expense []decimal.Decimal `json:"expense"`
}

// MonthlySeries computes income and expense for the n months ending with the
// month of now.
func MonthlySeries(txs []core.Transaction, now time.Time, n int) Series {
	s := Series{
		Months:  make([]YearMonth, 0, n),
		Labels:  make([]string, 0, n),
		Income:  make([]decimal.Decimal, 0, n),
		Expense: make([]decimal.Decimal, 0, n),
	}
	current := MonthOf(now)
	for i := n - 1; i >= 0; i-- {
		ym := current.AddMonths(-i)
		sum := Summarize(txs, InMonth(ym))
		s.Months = append(s.Months, ym)
		s.Labels = append(s.Labels, ym.Label())
		s.Income = append(s.Income, sum.Income)
		s.Expense = append(s.Expense, sum.Expense)
	}
	return s
}

// CategoryBreakdown sums expense amounts per category name.
func CategoryBreakdown(txs []core.Transaction) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for _, tx := range txs {
		if tx.Type != core.Expense {
			continue
		}
		out[tx.Category] = out[tx.Category].Add(tx.Amount)
	}
	return out
}

// CategoryTotal is one row of a sorted breakdown.
type CategoryTotal struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
	Color    string          `json:"color"`
}

// SortedBreakdown orders a breakdown by total descending, then by name.
func SortedBreakdown(breakdown map[string]decimal.Decimal, cats core.Categories) []CategoryTotal {
	out := make([]CategoryTotal, 0, len(breakdown))
	for name, total := range breakdown {
		out = append(out, CategoryTotal{Category: name, Total: total, Color: cats.Color(name)})
	}
	slices.SortFunc(out, func(a, b CategoryTotal) int {
		if c := b.Total.Cmp(a.Total); c != 0 {
			return c
		}
		return cmp.Compare(a.Category, b.Category)
	})
	return out
}

const (
	Up   Direction = "up"
	Down Direction = "down"
	Flat Direction = "flat"
)

// Direction describes how a balance moved between two periods.
type Direction string

// Dashboard gathers the headline numbers for the current month.
type Dashboard struct {
	Month            YearMonth       `json:"month"`
	Monthly          Summary         `json:"monthly"`
	Previous         Summary         `json:"previous"`
	AllTime          Summary         `json:"allTime"`
	IncomeTrend      decimal.Decimal `json:"incomeTrend"`
	ExpenseTrend     decimal.Decimal `json:"expenseTrend"`
	BalanceDirection Direction       `json:"balanceDirection"`
	TransactionCount int             `json:"transactionCount"`
}

// BuildDashboard computes the current/previous month summaries, all-time
// totals and month-over-month trends as of now.
func BuildDashboard(txs []core.Transaction, now time.Time) Dashboard {
	d := Dashboard{
		Month:            MonthOf(now),
		Monthly:          Summarize(txs, CurrentMonth(now)),
		Previous:         Summarize(txs, PreviousMonth(now)),
		AllTime:          Summarize(txs, Always),
		TransactionCount: len(txs),
	}
	d.IncomeTrend = Trend(d.Monthly.Income, d.Previous.Income)
	d.ExpenseTrend = Trend(d.Monthly.Expense, d.Previous.Expense)
	switch d.Monthly.Balance.Cmp(d.Previous.Balance) {
	case 1:
		d.BalanceDirection = Up
	case -1:
		d.BalanceDirection = Down
	default:
		d.BalanceDirection = Flat
	}
	return d
}

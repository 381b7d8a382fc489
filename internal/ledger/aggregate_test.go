package ledger

import (
	"slices"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"moneymanager/internal/core"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestSummarizeMatchesManualSum(t *testing.T) {
	all := sample()
	sum := Summarize(all, Always)

	manual := decimal.Zero
	for _, tx := range all {
		manual = manual.Add(tx.Signed())
	}
	if !sum.Balance.Equal(manual) || !sum.Balance.Equal(sum.Income.Sub(sum.Expense)) {
		t.Fatalf("balance %s does not reconcile with manual sum %s", sum.Balance, manual)
	}
	if !sum.Income.Equal(dec("6000000")) || !sum.Expense.Equal(dec("600000")) || sum.Count != 5 {
		t.Fatalf("unexpected summary: %+v", sum)
	}

	reversed := slices.Clone(all)
	slices.Reverse(reversed)
	if again := Summarize(reversed, Always); !again.Balance.Equal(sum.Balance) {
		t.Fatalf("summary depends on order")
	}
}

func TestPeriodPredicates(t *testing.T) {
	txs := []core.Transaction{
		tx(1, core.Income, 100, "Gaji", core.NewDate(2025, 1, 5), ""),
		tx(2, core.Income, 200, "Gaji", core.NewDate(2024, 12, 31), ""),
		tx(3, core.Expense, 50, "Makanan", core.NewDate(2024, 12, 1), ""),
		tx(4, core.Expense, 70, "Makanan", core.NewDate(2023, 12, 15), ""),
	}
	now := time.Date(2025, 1, 20, 15, 0, 0, 0, time.UTC)

	cur := Summarize(txs, CurrentMonth(now))
	if !cur.Income.Equal(dec("100")) || cur.Count != 1 {
		t.Fatalf("unexpected current month: %+v", cur)
	}
	prev := Summarize(txs, PreviousMonth(now))
	if !prev.Income.Equal(dec("200")) || !prev.Expense.Equal(dec("50")) || prev.Count != 2 {
		t.Fatalf("January should roll back to December of the prior year: %+v", prev)
	}

	between := Summarize(txs, Between(core.NewDate(2024, 12, 1), core.NewDate(2024, 12, 31)))
	if between.Count != 2 {
		t.Fatalf("range bounds should be inclusive, got %d", between.Count)
	}
}

func TestTrend(t *testing.T) {
	cases := []struct {
		cur, prev, want string
	}{
		{"150", "100", "50"},
		{"50", "100", "-50"},
		{"100", "300", "-66.7"},
		{"200", "300", "-33.3"},
		{"1", "3", "-66.7"},
		{"100", "100", "0"},
		{"999", "0", "0"},
		{"0", "0", "0"},
	}
	for _, tc := range cases {
		got := Trend(dec(tc.cur), dec(tc.prev))
		if !got.Equal(dec(tc.want)) {
			t.Errorf("Trend(%s, %s) = %s, want %s", tc.cur, tc.prev, got, tc.want)
		}
	}
}

func TestMonthlySeries(t *testing.T) {
	txs := []core.Transaction{
		tx(1, core.Income, 100, "Gaji", core.NewDate(2025, 2, 1), ""),
		tx(2, core.Expense, 40, "Makanan", core.NewDate(2025, 2, 3), ""),
		tx(3, core.Income, 300, "Gaji", core.NewDate(2024, 9, 30), ""),
		tx(4, core.Expense, 10, "Makanan", core.NewDate(2024, 8, 31), ""), // outside the window
	}
	s := MonthlySeries(txs, time.Date(2025, 2, 14, 0, 0, 0, 0, time.UTC), 6)

	if len(s.Months) != 6 || len(s.Income) != 6 || len(s.Expense) != 6 {
		t.Fatalf("expected six entries per sequence: %+v", s)
	}
	wantMonths := []YearMonth{
		{2024, time.September}, {2024, time.October}, {2024, time.November},
		{2024, time.December}, {2025, time.January}, {2025, time.February},
	}
	if !slices.Equal(s.Months, wantMonths) {
		t.Fatalf("unexpected window: %v", s.Months)
	}
	if s.Labels[0] != "Sep" || s.Labels[3] != "Des" || s.Labels[5] != "Feb" {
		t.Fatalf("unexpected labels: %v", s.Labels)
	}
	if !s.Income[0].Equal(dec("300")) || !s.Income[5].Equal(dec("100")) || !s.Expense[5].Equal(dec("40")) {
		t.Fatalf("unexpected sums: income=%v expense=%v", s.Income, s.Expense)
	}
	for i := 1; i < 5; i++ {
		if !s.Income[i].IsZero() || !s.Expense[i].IsZero() {
			t.Fatalf("month %d should be empty", i)
		}
	}
}

func TestCategoryBreakdown(t *testing.T) {
	txs := append(sample(), tx(6, core.Expense, 50000, "Makanan", core.NewDate(2025, 3, 11), ""))
	got := CategoryBreakdown(txs)

	if len(got) != 3 {
		t.Fatalf("expected expense categories only, got %v", got)
	}
	if !got["Makanan"].Equal(dec("200000")) || !got["Belanja"].Equal(dec("350000")) {
		t.Fatalf("unexpected totals: %v", got)
	}
	if _, ok := got["Gaji"]; ok {
		t.Fatalf("income categories must be excluded")
	}

	sorted := SortedBreakdown(got, core.DefaultCategories())
	if sorted[0].Category != "Belanja" || sorted[1].Category != "Makanan" || sorted[2].Category != "Transportasi" {
		t.Fatalf("unexpected order: %+v", sorted)
	}
	if sorted[0].Color != "#6610f2" {
		t.Fatalf("unexpected color: %s", sorted[0].Color)
	}
}

func TestBuildDashboard(t *testing.T) {
	txs := []core.Transaction{
		tx(1, core.Income, 150, "Gaji", core.NewDate(2025, 3, 1), ""),
		tx(2, core.Expense, 30, "Makanan", core.NewDate(2025, 3, 2), ""),
		tx(3, core.Income, 100, "Gaji", core.NewDate(2025, 2, 1), ""),
		tx(4, core.Income, 500, "Bonus", core.NewDate(2024, 6, 1), ""),
	}
	d := BuildDashboard(txs, time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC))

	if !d.IncomeTrend.Equal(dec("50")) {
		t.Fatalf("unexpected income trend: %s", d.IncomeTrend)
	}
	if !d.ExpenseTrend.IsZero() {
		t.Fatalf("expense trend must be zero when last month had no expenses: %s", d.ExpenseTrend)
	}
	if d.BalanceDirection != Up {
		t.Fatalf("balance 120 vs 100 should be up, got %s", d.BalanceDirection)
	}
	if !d.AllTime.Balance.Equal(dec("720")) || d.TransactionCount != 4 {
		t.Fatalf("unexpected all-time numbers: %+v", d.AllTime)
	}
}

// Package sheets renders ledger reports as spreadsheet value grids.
package sheets

import (
	"context"

	"moneymanager/internal/core"
	"moneymanager/internal/currency"
	"moneymanager/internal/ledger"
)

// ReportWriter is the outbound port for report destinations.
type ReportWriter interface {
	WriteReport(ctx context.Context, report ledger.Report, code currency.Code) error
}

// Header is the column row of the transaction table.
var Header = []any{"Tanggal", "Kategori", "Jenis", "Jumlah", "Deskripsi"}

// ReportValues lays a report out as rows: title, period, summary block, a
// blank row, then the table header and one row per transaction.
func ReportValues(r ledger.Report, code currency.Code) [][]any {
	f := currency.Formatter{Code: code}
	values := [][]any{
		{"LAPORAN KEUANGAN"},
		{"Periode", ledger.DisplayDate(r.Start) + " - " + ledger.DisplayDate(r.End)},
		{"Total Pemasukan", f.Format(r.Income)},
		{"Total Pengeluaran", f.Format(r.Expense)},
		{"Saldo Bersih", f.Format(r.Balance)},
		{"Jumlah Transaksi", r.Count},
		{},
		Header,
	}
	for _, tx := range r.Rows {
		values = append(values, []any{
			ledger.DisplayDate(tx.Date),
			tx.Category,
			typeLabel(tx.Type),
			f.FormatSigned(tx.Amount, tx.IsIncome()),
			description(tx.Description),
		})
	}
	return values
}

func typeLabel(t core.TxType) string {
	if t == core.Income {
		return "Pemasukan"
	}
	return "Pengeluaran"
}

func description(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/lipgloss"

	"moneymanager/internal/core"
	"moneymanager/internal/currency"
	"moneymanager/internal/ledger"
	"moneymanager/internal/services"
	"moneymanager/internal/storage"
	"moneymanager/internal/transfer"
)

// errAborted is returned when a confirmation is declined.
var errAborted = errors.New("aborted")

func (a *App) formatter() currency.Formatter {
	return currency.Formatter{Code: a.Ledger.Settings().Currency}
}

func (a *App) today() core.Date {
	return core.DateOf(a.Ledger.Now())
}

func parseOptionalDate(raw string, fallback core.Date) (core.Date, error) {
	if strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	d, err := core.ParseDate(raw)
	if err != nil {
		return core.Date{}, &core.ValidationError{Field: "date", Msg: fmt.Sprintf("invalid date %q, want YYYY-MM-DD", raw)}
	}
	return d, nil
}

func amountStyle(txs []core.Transaction) func(int) lipgloss.Style {
	return func(row int) lipgloss.Style {
		if txs[row].IsIncome() {
			return incomeStyle
		}
		return expenseStyle
	}
}

func typeLabel(t core.TxType) string {
	if t == core.Income {
		return "Pemasukan"
	}
	return "Pengeluaran"
}

// transactionTable renders records as they appear in the history table.
func transactionTable(w io.Writer, txs []core.Transaction, f currency.Formatter) {
	rows := make([][]string, len(txs))
	for i, tx := range txs {
		rows[i] = []string{
			strconv.FormatInt(tx.ID, 10),
			ledger.DisplayDate(tx.Date),
			typeLabel(tx.Type),
			tx.Category,
			tx.Description,
			f.FormatSigned(tx.Amount, tx.IsIncome()),
		}
	}
	renderTable(w, []column{
		{Title: "ID", Right: true},
		{Title: "Tanggal"},
		{Title: "Jenis"},
		{Title: "Kategori"},
		{Title: "Keterangan"},
		{Title: "Jumlah", Right: true, Style: amountStyle(txs)},
	}, rows)
}

type AddCmd struct {
	Type        string `arg:"" help:"income or expense (pemasukan or pengeluaran)."`
	Amount      string `arg:"" help:"Amount, e.g. 150000 or 12,50."`
	Category    string `arg:"" help:"Category name."`
	Date        string `short:"d" help:"Date as YYYY-MM-DD. Defaults to today."`
	Description string `short:"m" help:"Free-text description."`
}

func (cmd *AddCmd) Run(ctx context.Context, kctx *kong.Context, app *App) error {
	t, err := core.ParseTxType(cmd.Type)
	if err != nil {
		return err
	}
	amount, err := core.ParseAmount(cmd.Amount)
	if err != nil {
		return err
	}
	date, err := parseOptionalDate(cmd.Date, app.today())
	if err != nil {
		return err
	}
	tx, err := app.Ledger.Add(ctx, core.Entry{
		Type:        t,
		Amount:      amount,
		Category:    strings.TrimSpace(cmd.Category),
		Date:        date,
		Description: strings.TrimSpace(cmd.Description),
	})
	if err != nil {
		return err
	}
	printSuccess(kctx.Stdout, fmt.Sprintf("Added #%d %s %s on %s",
		tx.ID, app.formatter().FormatSigned(tx.Amount, tx.IsIncome()), tx.Category, ledger.DisplayDate(tx.Date)))
	return nil
}

type EditCmd struct {
	ID          int64  `arg:"" help:"Transaction id."`
	Amount      string `short:"a" help:"New amount."`
	Category    string `short:"c" help:"New category."`
	Date        string `short:"d" help:"New date as YYYY-MM-DD."`
	Description string `short:"m" help:"New description."`
}

// Run edits the fields given on the command line. The type of a
// transaction cannot be changed; delete and re-add it instead.
func (cmd *EditCmd) Run(ctx context.Context, kctx *kong.Context, app *App) error {
	current, err := app.Ledger.Find(cmd.ID)
	if err != nil {
		return err
	}
	patch := core.Patch{
		Amount:      current.Amount,
		Category:    current.Category,
		Date:        current.Date,
		Description: current.Description,
	}
	if cmd.Amount != "" {
		if patch.Amount, err = core.ParseAmount(cmd.Amount); err != nil {
			return err
		}
	}
	if cmd.Category != "" {
		patch.Category = strings.TrimSpace(cmd.Category)
	}
	if patch.Date, err = parseOptionalDate(cmd.Date, current.Date); err != nil {
		return err
	}
	if cmd.Description != "" {
		patch.Description = strings.TrimSpace(cmd.Description)
	}

	tx, err := app.Ledger.Update(ctx, cmd.ID, patch)
	if err != nil {
		return err
	}
	printSuccess(kctx.Stdout, fmt.Sprintf("Updated #%d %s %s on %s",
		tx.ID, app.formatter().FormatSigned(tx.Amount, tx.IsIncome()), tx.Category, ledger.DisplayDate(tx.Date)))
	return nil
}

type RmCmd struct {
	IDs []int64 `arg:"" name:"id" help:"Transaction ids."`
}

// Run deletes every id it can and reports the ones that do not exist.
func (cmd *RmCmd) Run(ctx context.Context, kctx *kong.Context, app *App) error {
	var missing []string
	for _, id := range cmd.IDs {
		removed, err := app.Ledger.Delete(ctx, id)
		if err != nil {
			return err
		}
		if !removed {
			missing = append(missing, strconv.FormatInt(id, 10))
			continue
		}
		printSuccess(kctx.Stdout, fmt.Sprintf("Deleted #%d", id))
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s: %w", strings.Join(missing, ", "), core.ErrNotFound)
	}
	return nil
}

type ListCmd struct {
	Type     string `short:"t" help:"Only income or expense." default:"all"`
	Category string `short:"c" help:"Only this category." default:"all"`
	Date     string `short:"d" help:"Only this date (YYYY-MM-DD)."`
	Search   string `short:"q" help:"Text to look for in category, description or amount."`
	Sort     string `short:"s" help:"date-desc, date-asc, amount-desc or amount-asc. Defaults to the saved order."`
	Page     int    `short:"p" help:"Page number." default:"1"`
}

func (cmd *ListCmd) Run(kctx *kong.Context, app *App) error {
	f := ledger.Filter{Category: strings.TrimSpace(cmd.Category), Search: strings.TrimSpace(cmd.Search)}
	if cmd.Type != "" && cmd.Type != ledger.All {
		t, err := core.ParseTxType(cmd.Type)
		if err != nil {
			return err
		}
		f.Type = t
	}
	date, err := parseOptionalDate(cmd.Date, core.Date{})
	if err != nil {
		return err
	}
	f.Date = date

	order := app.Ledger.Settings().SortOrder
	if cmd.Sort != "" {
		order = ledger.ParseSortOrder(cmd.Sort)
	}
	page := app.Ledger.ListBy(f, order, cmd.Page)
	if page.TotalItems == 0 {
		printInfof(kctx.Stdout, "No transactions found")
		return nil
	}
	transactionTable(kctx.Stdout, page.Items, app.formatter())
	_, _ = fmt.Fprintln(kctx.Stdout)
	_, _ = fmt.Fprintln(kctx.Stdout, mutedStyle.Render(fmt.Sprintf("Page %d of %d, %d transactions", page.Page, page.TotalPages, page.TotalItems)))
	return nil
}

type DashboardCmd struct {
	Months int `help:"Months shown in the monthly history." default:"6"`
}

func trendLabel(pct string) string {
	if strings.HasPrefix(pct, "-") {
		return pct + "%"
	}
	return "+" + pct + "%"
}

func (cmd *DashboardCmd) Run(kctx *kong.Context, app *App) error {
	w := kctx.Stdout
	f := app.formatter()
	d := app.Ledger.Dashboard()

	heading(w, fmt.Sprintf("Halo, %s. %s %d", app.Ledger.Settings().UserName, d.Month.Label(), d.Month.Year))
	keyValues(w, [][2]string{
		{"Pemasukan", incomeStyle.Render(f.Format(d.Monthly.Income)) + mutedStyle.Render(" "+trendLabel(d.IncomeTrend.StringFixed(1)))},
		{"Pengeluaran", expenseStyle.Render(f.Format(d.Monthly.Expense)) + mutedStyle.Render(" "+trendLabel(d.ExpenseTrend.StringFixed(1)))},
		{"Saldo", f.Format(d.Monthly.Balance) + mutedStyle.Render(" "+string(d.BalanceDirection))},
		{"Saldo total", f.Format(d.AllTime.Balance)},
		{"Transaksi", strconv.Itoa(d.TransactionCount)},
	})

	series := app.Ledger.Series(cmd.Months)
	rows := make([][]string, len(series.Months))
	for i, ym := range series.Months {
		rows[i] = []string{fmt.Sprintf("%s %d", series.Labels[i], ym.Year), f.Format(series.Income[i]), f.Format(series.Expense[i])}
	}
	_, _ = fmt.Fprintln(w)
	heading(w, "Riwayat bulanan")
	renderTable(w, []column{{Title: "Bulan"}, {Title: "Pemasukan", Right: true}, {Title: "Pengeluaran", Right: true}}, rows)

	if breakdown := app.Ledger.Breakdown(); len(breakdown) > 0 {
		rows = make([][]string, len(breakdown))
		for i, b := range breakdown {
			rows[i] = []string{b.Category, f.Format(b.Total)}
		}
		_, _ = fmt.Fprintln(w)
		heading(w, "Pengeluaran per kategori")
		renderTable(w, []column{{Title: "Kategori"}, {Title: "Total", Right: true}}, rows)
	}

	if recent := app.Ledger.Recent(5); len(recent) > 0 {
		_, _ = fmt.Fprintln(w)
		heading(w, "Transaksi terbaru")
		transactionTable(w, recent, f)
	}
	return nil
}

type ReportCmd struct {
	Start string `arg:"" help:"First day, YYYY-MM-DD."`
	End   string `arg:"" help:"Last day, YYYY-MM-DD."`
	Sheet bool   `help:"Also write the report to the configured Google spreadsheet."`
}

func (cmd *ReportCmd) Run(ctx context.Context, kctx *kong.Context, app *App) error {
	start, err := core.ParseDate(cmd.Start)
	if err != nil {
		return err
	}
	end, err := core.ParseDate(cmd.End)
	if err != nil {
		return err
	}

	var r ledger.Report
	if cmd.Sheet {
		r, err = app.Ledger.ExportReport(ctx, start, end)
	} else {
		r, err = app.Ledger.Report(start, end)
	}
	if err != nil {
		return err
	}

	w := kctx.Stdout
	f := app.formatter()
	heading(w, fmt.Sprintf("Laporan %s - %s", ledger.DisplayDate(r.Start), ledger.DisplayDate(r.End)))
	keyValues(w, [][2]string{
		{"Total pemasukan", incomeStyle.Render(f.Format(r.Income))},
		{"Total pengeluaran", expenseStyle.Render(f.Format(r.Expense))},
		{"Saldo", f.Format(r.Balance)},
		{"Jumlah transaksi", strconv.Itoa(r.Count)},
	})
	_, _ = fmt.Fprintln(w)
	transactionTable(w, r.Rows, f)
	if cmd.Sheet {
		_, _ = fmt.Fprintln(w)
		printSuccess(w, "Report written to "+app.Config.GoogleReportSheetName)
	}
	return nil
}

type ExportCmd struct {
	Output string `short:"o" help:"File to write. Defaults to money_manager_<date>.json; '-' writes to stdout."`
}

func (cmd *ExportCmd) Run(kctx *kong.Context, app *App) error {
	doc := app.Ledger.Export()
	if cmd.Output == "-" {
		return transfer.Encode(kctx.Stdout, doc)
	}

	path := cmd.Output
	if path == "" {
		path = transfer.Filename(app.Ledger.Now())
	}
	raw, err := transfer.Marshal(doc)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, raw, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	printSuccess(kctx.Stdout, fmt.Sprintf("Exported %d transactions to %s", len(doc.Transactions), path))
	return nil
}

type ImportCmd struct {
	File string `arg:"" type:"existingfile" help:"Exported JSON document."`
	Yes  bool   `short:"y" help:"Replace without asking."`
}

func (cmd *ImportCmd) Run(ctx context.Context, kctx *kong.Context, app *App) error {
	fh, err := os.Open(cmd.File)
	if err != nil {
		return err
	}
	defer fh.Close()

	doc, err := transfer.Decode(fh)
	if err != nil {
		return err
	}
	ok, err := app.Confirm(cmd.Yes, fmt.Sprintf("Import %d transactions? This replaces the %d currently stored.", len(doc.Transactions), app.Ledger.Len()))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("import %w, pass --yes to skip the prompt", errAborted)
	}
	if err := app.Ledger.Import(ctx, doc); err != nil {
		return err
	}
	printSuccess(kctx.Stdout, fmt.Sprintf("Imported %d transactions", len(doc.Transactions)))
	return nil
}

type ClearCmd struct {
	Yes bool `short:"y" help:"Delete without asking."`
}

func (cmd *ClearCmd) Run(ctx context.Context, kctx *kong.Context, app *App) error {
	n := app.Ledger.Len()
	if n == 0 {
		printInfof(kctx.Stdout, "Nothing to delete")
		return nil
	}
	ok, err := app.Confirm(cmd.Yes, fmt.Sprintf("Delete all %d transactions? This cannot be undone.", n))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("clear %w, pass --yes to skip the prompt", errAborted)
	}
	if err := app.Ledger.Clear(ctx); err != nil {
		return err
	}
	printSuccess(kctx.Stdout, fmt.Sprintf("Deleted %d transactions", n))
	return nil
}

type SettingsCmd struct {
	Name            string `help:"Display name."`
	Currency        string `help:"Display currency: IDR, USD or EUR."`
	Sort            string `help:"Default list order."`
	AutoRefresh     string `name:"auto-refresh" help:"on or off."`
	RefreshInterval int    `name:"refresh-interval" help:"Auto-refresh interval in minutes."`
	AutoSave        string `name:"auto-save" help:"on or off."`
	AutoExport      string `name:"auto-export" help:"Daily backup, on or off."`
	Logout          bool   `help:"Forget the display name."`
}

func parseToggle(field, raw string, dst *bool) error {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
	case "on", "true", "yes":
		*dst = true
	case "off", "false", "no":
		*dst = false
	default:
		return &core.ValidationError{Field: field, Msg: fmt.Sprintf("want on or off, got %q", raw)}
	}
	return nil
}

func (cmd *SettingsCmd) Run(ctx context.Context, kctx *kong.Context, app *App) error {
	if cmd.Logout {
		if err := app.Ledger.Logout(ctx); err != nil {
			return err
		}
		printSuccess(kctx.Stdout, "Logged out")
	}

	next := app.Ledger.Settings()
	changed := false
	if cmd.Name != "" {
		next.UserName, changed = cmd.Name, true
	}
	if cmd.Currency != "" {
		next.Currency, changed = currency.ParseCode(cmd.Currency), true
	}
	if cmd.Sort != "" {
		next.SortOrder, changed = ledger.ParseSortOrder(cmd.Sort), true
	}
	if cmd.RefreshInterval < 0 {
		return &core.ValidationError{Field: "refresh-interval", Msg: "must be a positive number of minutes"}
	}
	if cmd.RefreshInterval > 0 {
		next.RefreshInterval, changed = time.Duration(cmd.RefreshInterval)*time.Minute, true
	}
	for _, t := range []struct {
		field, raw string
		dst        *bool
	}{
		{"auto-refresh", cmd.AutoRefresh, &next.AutoRefresh},
		{"auto-save", cmd.AutoSave, &next.AutoSave},
		{"auto-export", cmd.AutoExport, &next.AutoExport},
	} {
		if err := parseToggle(t.field, t.raw, t.dst); err != nil {
			return err
		}
		changed = changed || t.raw != ""
	}

	if changed {
		if _, err := app.Ledger.UpdateSettings(ctx, next); err != nil {
			return err
		}
		printSuccess(kctx.Stdout, "Settings saved")
	}
	printSettings(kctx.Stdout, app.Ledger.Settings(), app.Ledger.DataSize())
	return nil
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func printSettings(w io.Writer, s storage.Settings, size services.DataSize) {
	lastExport := "never"
	if !s.LastExportDate.IsZero() {
		lastExport = s.LastExportDate.String()
	}
	keyValues(w, [][2]string{
		{"Name", s.UserName},
		{"Currency", string(s.Currency)},
		{"Sort", string(s.SortOrder)},
		{"Auto-refresh", fmt.Sprintf("%s, every %d min", onOff(s.AutoRefresh), int(s.RefreshInterval.Minutes()))},
		{"Auto-save", onOff(s.AutoSave)},
		{"Auto-export", onOff(s.AutoExport)},
		{"Last export", lastExport},
		{"Data size", size.Human},
	})
}

package http

import (
	"strings"

	"moneymanager/internal/core"
	"moneymanager/internal/currency"
	"moneymanager/internal/ledger"
	"moneymanager/internal/storage"
)

// sanitizeInput removes control characters except tab and newlines, then trims.
func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s))
}

// transactionView is a record plus its signed display amount.
type transactionView struct {
	core.Transaction
	Formatted string `json:"formatted"`
}

func viewOf(tx core.Transaction, f currency.Formatter) transactionView {
	return transactionView{Transaction: tx, Formatted: f.FormatSigned(tx.Amount, tx.IsIncome())}
}

func viewsOf(txs []core.Transaction, f currency.Formatter) []transactionView {
	out := make([]transactionView, len(txs))
	for i, tx := range txs {
		out[i] = viewOf(tx, f)
	}
	return out
}

type pageView struct {
	Items      []transactionView `json:"items"`
	Page       int               `json:"page"`
	TotalPages int               `json:"totalPages"`
	TotalItems int               `json:"totalItems"`
	PageSize   int               `json:"pageSize"`
}

func pageViewOf(p ledger.Page, f currency.Formatter) pageView {
	return pageView{
		Items:      viewsOf(p.Items, f),
		Page:       p.Page,
		TotalPages: p.TotalPages,
		TotalItems: p.TotalItems,
		PageSize:   ledger.PageSize,
	}
}

// summaryView holds display strings for a summary.
type summaryView struct {
	Income  string `json:"income"`
	Expense string `json:"expense"`
	Balance string `json:"balance"`
}

func summaryViewOf(s ledger.Summary, f currency.Formatter) summaryView {
	return summaryView{Income: f.Format(s.Income), Expense: f.Format(s.Expense), Balance: f.Format(s.Balance)}
}

type dashboardView struct {
	ledger.Dashboard
	Currency  currency.Code     `json:"currency"`
	UserName  string            `json:"userName"`
	Formatted summaryView       `json:"formatted"`
	Recent    []transactionView `json:"recent"`
}

type reportView struct {
	ledger.Report
	Currency  currency.Code     `json:"currency"`
	Formatted summaryView       `json:"formatted"`
	Rows      []transactionView `json:"rows"`
	Sheet     bool              `json:"sheet,omitempty"`
}

func reportViewOf(r ledger.Report, f currency.Formatter) reportView {
	return reportView{
		Report:    r,
		Currency:  f.Code,
		Formatted: summaryViewOf(ledger.Summary{Income: r.Income, Expense: r.Expense, Balance: r.Balance}, f),
		Rows:      viewsOf(r.Rows, f),
	}
}

// settingsDTO is the wire form of the preferences. The refresh interval is
// in minutes.
type settingsDTO struct {
	UserName        string `json:"userName"`
	Currency        string `json:"currency"`
	SortOrder       string `json:"sortOrder"`
	AutoRefresh     bool   `json:"autoRefresh"`
	RefreshInterval int    `json:"refreshInterval"`
	AutoSave        bool   `json:"autoSave"`
	AutoExport      bool   `json:"autoExport"`
	LastExportDate  string `json:"lastExportDate,omitempty"`
}

func settingsDTOOf(s storage.Settings) settingsDTO {
	dto := settingsDTO{
		UserName:        s.UserName,
		Currency:        string(s.Currency),
		SortOrder:       string(s.SortOrder),
		AutoRefresh:     s.AutoRefresh,
		RefreshInterval: int(s.RefreshInterval.Minutes()),
		AutoSave:        s.AutoSave,
		AutoExport:      s.AutoExport,
	}
	if !s.LastExportDate.IsZero() {
		dto.LastExportDate = s.LastExportDate.String()
	}
	return dto
}

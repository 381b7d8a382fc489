package http

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"moneymanager/internal/core"
	"moneymanager/internal/currency"
	"moneymanager/internal/ledger"
	"moneymanager/internal/log"
	"moneymanager/internal/services"
	"moneymanager/internal/storage"
	"moneymanager/internal/transfer"
)

const (
	serviceName    = "Money Manager"
	serviceVersion = "1.0"
	recentCount    = 5
)

func (s *Server) formatter() currency.Formatter {
	return currency.Formatter{Code: s.svc.Settings().Currency}
}

func (s *Server) today() core.Date {
	return core.DateOf(s.svc.Now())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]any{
		"status":       "ok",
		"service":      serviceName,
		"version":      serviceVersion,
		"timestamp":    s.svc.Now().Unix(),
		"transactions": s.svc.Len(),
	}).Write(w)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f, err := ParseFilter(q)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	order := s.svc.Settings().SortOrder
	if raw := q.Get("sort"); raw != "" {
		order = ledger.ParseSortOrder(raw)
	}
	page := s.svc.ListBy(f, order, ParsePage(q))
	NewJSONResponse().Body(pageViewOf(page, s.formatter())).Write(w)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	tx, err := s.svc.Find(id)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(viewOf(tx, s.formatter())).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	parser := NewRequestBodyParser(w, r)
	if err := parser.Parse(); err != nil {
		s.bodyError(w, r, err)
		return
	}
	in, err := parseTransactionInput(parser, s.today(), true)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	entry, err := in.entry()
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	tx, err := s.svc.Add(r.Context(), entry)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	s.Invalidate()
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/transactions/"+strconv.FormatInt(tx.ID, 10)).
		Body(viewOf(tx, s.formatter())).
		Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	current, err := s.svc.Find(id)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	parser := NewRequestBodyParser(w, r)
	if err := parser.Parse(); err != nil {
		s.bodyError(w, r, err)
		return
	}
	in, err := parseTransactionInput(parser, current.Date, false)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	if in.Type != "" && in.Type != current.Type {
		UnprocessableEntityError("type cannot be changed").Write(w)
		return
	}
	// Omitted fields keep their stored values.
	if !parser.Has("amount") {
		in.Amount = current.Amount.String()
	}
	if !parser.Has("category") {
		in.Category = current.Category
	}
	if !parser.Has("description") {
		in.Description = current.Description
	}
	patch, err := in.patch()
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	tx, err := s.svc.Update(r.Context(), id, patch)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	s.Invalidate()
	NewJSONResponse().Body(viewOf(tx, s.formatter())).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	removed, err := s.svc.Delete(r.Context(), id)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	if !removed {
		FromError(r, core.ErrNotFound).Write(w)
		return
	}
	s.Invalidate()
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	f := s.formatter()
	d := s.svc.Dashboard()
	NewJSONResponse().Body(dashboardView{
		Dashboard: d,
		Currency:  f.Code,
		UserName:  s.svc.Settings().UserName,
		Formatted: summaryViewOf(d.Monthly, f),
		Recent:    viewsOf(s.svc.Recent(recentCount), f),
	}).Write(w)
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	months, err := strconv.Atoi(r.URL.Query().Get("months"))
	if err != nil || months <= 0 || months > 24 {
		months = services.SeriesMonths
	}
	key := ledger.MonthOf(s.svc.Now()).String() + "/" + strconv.Itoa(months)
	series, ok := s.seriesCache.Get(key)
	if !ok {
		series = s.svc.Series(months)
		s.seriesCache.Set(key, series)
	}
	NewJSONResponse().Body(series).Write(w)
}

type breakdownRow struct {
	ledger.CategoryTotal
	Formatted string `json:"formatted"`
}

func (s *Server) handleBreakdown(w http.ResponseWriter, r *http.Request) {
	f := s.formatter()
	totals := s.svc.Breakdown()
	rows := make([]breakdownRow, len(totals))
	for i, t := range totals {
		rows[i] = breakdownRow{CategoryTotal: t, Formatted: f.Format(t.Total)}
	}
	NewJSONResponse().Body(rows).Write(w)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	cats := s.svc.Categories()
	if raw := strings.TrimSpace(r.URL.Query().Get("type")); raw != "" && raw != ledger.All {
		t, err := core.ParseTxType(raw)
		if err != nil {
			FromError(r, err).Write(w)
			return
		}
		cats = cats.ByType(t)
	}
	if cats == nil {
		cats = core.Categories{}
	}
	NewJSONResponse().Body(cats).Write(w)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, end, err := ParseRange(q)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}

	if q.Get("sheet") == "1" {
		report, err := s.svc.ExportReport(r.Context(), start, end)
		if err != nil {
			FromError(r, err).Write(w)
			return
		}
		view := reportViewOf(report, s.formatter())
		view.Sheet = true
		NewJSONResponse().Body(view).Write(w)
		return
	}

	key := start.String() + "/" + end.String()
	report, ok := s.reportCache.Get(key)
	if !ok {
		report, err = s.svc.Report(start, end)
		if err != nil {
			FromError(r, err).Write(w)
			return
		}
		s.reportCache.Set(key, report)
	}
	NewJSONResponse().Body(reportViewOf(report, s.formatter())).Write(w)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	doc := s.svc.Export()
	log.FromContext(r.Context()).InfoContext(r.Context(), "Ledger exported",
		log.FieldCount, len(doc.Transactions), log.FieldOperation, log.OpExport)
	NewJSONResponse().
		Attachment(transfer.Filename(s.svc.Now())).
		Body(doc).
		Write(w)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.bodyError(w, r, err)
		return
	}
	doc, err := transfer.Decode(bytes.NewReader(raw))
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	if err := s.svc.Import(r.Context(), doc); err != nil {
		FromError(r, err).Write(w)
		return
	}
	s.Invalidate()
	NewJSONResponse().Body(map[string]any{"imported": len(doc.Transactions)}).Write(w)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Clear(r.Context()); err != nil {
		FromError(r, err).Write(w)
		return
	}
	s.Invalidate()
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleBackups(w http.ResponseWriter, r *http.Request) {
	backups, err := s.svc.Backups(r.Context())
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	if backups == nil {
		backups = []storage.Backup{}
	}
	NewJSONResponse().Body(backups).Write(w)
}

type statsView struct {
	Transactions  int               `json:"transactions"`
	DataSize      services.DataSize `json:"dataSize"`
	LastSaved     *time.Time        `json:"lastSaved,omitempty"`
	AutoRefresh   bool              `json:"autoRefresh"`
	LastRefresh   *time.Time        `json:"lastRefresh,omitempty"`
	NextRefresh   *time.Time        `json:"nextRefresh,omitempty"`
	Requests      int64             `json:"requests"`
	Suspicious    int64             `json:"suspicious"`
	RateLimited   int64             `json:"rateLimited"`
	ActiveClients int               `json:"activeClients"`
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := statsView{
		Transactions:  s.svc.Len(),
		DataSize:      s.svc.DataSize(),
		LastSaved:     timePtr(s.svc.LastSaved()),
		Requests:      s.tracer.TotalRequests(),
		Suspicious:    s.detector.SuspiciousRequests(),
		RateLimited:   s.limiter.Hits(),
		ActiveClients: s.limiter.ActiveClients(),
	}
	if s.bg != nil {
		stats.AutoRefresh = s.bg.RefreshRunning()
		stats.LastRefresh = timePtr(s.bg.LastRefresh())
		stats.NextRefresh = timePtr(s.bg.NextRefresh())
	}
	NewJSONResponse().Body(stats).Write(w)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(settingsDTOOf(s.svc.Settings())).Write(w)
}

// handleUpdateSettings applies the supplied keys only. Auto-refresh changes
// are rescheduled immediately when background tasks are running.
func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	parser := NewRequestBodyParser(w, r)
	if err := parser.Parse(); err != nil {
		s.bodyError(w, r, err)
		return
	}

	next := s.svc.Settings()
	if parser.Has("userName") {
		next.UserName = parser.Get("userName")
	}
	if parser.Has("currency") {
		next.Currency = currency.Code(parser.Get("currency"))
	}
	if parser.Has("sortOrder") {
		next.SortOrder = ledger.SortOrder(parser.Get("sortOrder"))
	}
	if parser.Has("autoRefresh") {
		next.AutoRefresh = parser.Get("autoRefresh") == "true"
	}
	if parser.Has("refreshInterval") {
		minutes, err := strconv.Atoi(parser.Get("refreshInterval"))
		if err != nil || minutes < 1 {
			UnprocessableEntityError("refreshInterval must be a positive number of minutes").Write(w)
			return
		}
		next.RefreshInterval = time.Duration(minutes) * time.Minute
	}
	if parser.Has("autoSave") {
		next.AutoSave = parser.Get("autoSave") == "true"
	}
	if parser.Has("autoExport") {
		next.AutoExport = parser.Get("autoExport") == "true"
	}

	saved, err := s.svc.UpdateSettings(r.Context(), next)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	if s.bg != nil {
		if err := s.bg.SetAutoRefresh(r.Context(), saved.AutoRefresh, saved.RefreshInterval); err != nil {
			FromError(r, err).Write(w)
			return
		}
	}
	NewJSONResponse().Body(settingsDTOOf(s.svc.Settings())).Write(w)
}

// handleLogout forgets the user name; records and preferences stay.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Logout(r.Context()); err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(settingsDTOOf(s.svc.Settings())).Write(w)
}

// bodyError reports an unreadable or oversized body.
func (s *Server) bodyError(w http.ResponseWriter, r *http.Request, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		ErrorResponse(http.StatusRequestEntityTooLarge, "request body too large").Write(w)
		return
	}
	if errors.Is(err, core.ErrValidation) {
		FromError(r, err).Write(w)
		return
	}
	BadRequestError("unreadable request body").Write(w)
}

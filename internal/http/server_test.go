package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"moneymanager/internal/log"
	"moneymanager/internal/middleware/ratelimit"
	"moneymanager/internal/scheduler"
	"moneymanager/internal/services"
	"moneymanager/internal/sheets/memory"
	"moneymanager/internal/storage"
)

var testNow = time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)

type testEnv struct {
	srv   *Server
	svc   *services.LedgerService
	clock *scheduler.ManualClock
}

func newTestEnv(t *testing.T, svcOpts []services.Option, opts ...ServerOption) *testEnv {
	t.Helper()
	clock := scheduler.NewManualClock(testNow)
	repo := storage.NewRepository(storage.NewMemoryKV(), nil)
	svcOpts = append([]services.Option{services.WithClock(clock), services.WithSampleData(true)}, svcOpts...)
	svc := services.NewLedgerService(repo, svcOpts...)
	if err := svc.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	srv := NewServer(":0", svc, log.Discard(), opts...)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &testEnv{srv: srv, svc: svc, clock: clock}
}

func (e *testEnv) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil)
	rr := env.do(t, http.MethodGet, "/api/health", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("health status=%d", rr.Code)
	}
	body := decode[map[string]any](t, rr)
	if body["status"] != "ok" || body["service"] != "Money Manager" || body["transactions"] != float64(5) {
		t.Fatalf("unexpected health body: %v", body)
	}
	if body["timestamp"] != float64(testNow.Unix()) {
		t.Fatalf("timestamp = %v, want %d", body["timestamp"], testNow.Unix())
	}
}

func TestListTransactions(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name      string
		query     string
		wantCode  int
		wantTotal int
		wantFirst int64
	}{
		{name: "all", query: "", wantCode: 200, wantTotal: 5},
		{name: "expenses", query: "?type=expense", wantCode: 200, wantTotal: 3},
		{name: "indonesian type label", query: "?type=pemasukan", wantCode: 200, wantTotal: 2},
		{name: "category", query: "?category=Gaji", wantCode: 200, wantTotal: 1, wantFirst: 1},
		{name: "search description", query: "?q=BENSIN", wantCode: 200, wantTotal: 1, wantFirst: 3},
		{name: "exact date", query: "?date=2025-03-08", wantCode: 200, wantTotal: 1, wantFirst: 4},
		{name: "amount order", query: "?sort=amount-desc", wantCode: 200, wantTotal: 5, wantFirst: 1},
		{name: "ascending amount", query: "?sort=amount-asc", wantCode: 200, wantTotal: 5, wantFirst: 3},
		{name: "combined criteria", query: "?type=expense&category=Gaji", wantCode: 200, wantTotal: 0},
		{name: "bad type", query: "?type=transfer", wantCode: 422},
		{name: "bad date", query: "?date=10-03-2025", wantCode: 422},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, http.MethodGet, "/api/transactions"+tt.query, "")
			if rr.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d: %s", rr.Code, tt.wantCode, rr.Body.String())
			}
			if tt.wantCode != http.StatusOK {
				return
			}
			page := decode[pageView](t, rr)
			if page.TotalItems != tt.wantTotal || len(page.Items) != tt.wantTotal {
				t.Fatalf("total = %d (%d items), want %d", page.TotalItems, len(page.Items), tt.wantTotal)
			}
			if page.PageSize != 10 {
				t.Errorf("pageSize = %d, want 10", page.PageSize)
			}
			if tt.wantFirst != 0 && page.Items[0].ID != tt.wantFirst {
				t.Errorf("first id = %d, want %d", page.Items[0].ID, tt.wantFirst)
			}
		})
	}
}

func TestListTransactionsPagination(t *testing.T) {
	env := newTestEnv(t, []services.Option{services.WithSampleData(false)})
	for i := range 23 {
		env.clock.Advance(time.Millisecond)
		body := `{"type":"expense","amount":` + decimal.NewFromInt(int64(1000+i)).String() + `,"category":"Makanan","date":"2025-03-01"}`
		if rr := env.do(t, http.MethodPost, "/api/transactions", body); rr.Code != http.StatusCreated {
			t.Fatalf("create %d: %d %s", i, rr.Code, rr.Body.String())
		}
	}

	page := decode[pageView](t, env.do(t, http.MethodGet, "/api/transactions?page=3", ""))
	if page.Page != 3 || page.TotalPages != 3 || len(page.Items) != 3 {
		t.Fatalf("unexpected last page: page=%d of %d, %d items", page.Page, page.TotalPages, len(page.Items))
	}
	page = decode[pageView](t, env.do(t, http.MethodGet, "/api/transactions?page=99", ""))
	if page.Page != 3 {
		t.Errorf("out of range page should clamp to the last, got %d", page.Page)
	}
	page = decode[pageView](t, env.do(t, http.MethodGet, "/api/transactions?page=abc", ""))
	if page.Page != 1 || len(page.Items) != 10 {
		t.Errorf("invalid page should give the first, got %d with %d items", page.Page, len(page.Items))
	}
}

func TestCreateTransaction(t *testing.T) {
	env := newTestEnv(t, nil)

	rr := env.do(t, http.MethodPost, "/api/transactions",
		`{"type":"expense","amount":"75000","category":"Makanan","date":"2025-03-09","description":"Kopi"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}
	created := decode[transactionView](t, rr)
	if created.Formatted != "-Rp 75.000" || created.Description != "Kopi" {
		t.Fatalf("unexpected created record: %+v", created)
	}
	if loc := rr.Header().Get("Location"); !strings.HasSuffix(loc, "/api/transactions/"+jsonID(created.ID)) {
		t.Errorf("Location = %q", loc)
	}

	got := decode[transactionView](t, env.do(t, http.MethodGet, "/api/transactions/"+jsonID(created.ID), ""))
	if got.ID != created.ID || !got.Amount.Equal(decimal.NewFromInt(75000)) {
		t.Fatalf("fetched %+v, want %+v", got, created)
	}
	if env.svc.Len() != 6 {
		t.Errorf("len = %d, want 6", env.svc.Len())
	}
}

func TestCreateTransactionFormBodyDefaultsDate(t *testing.T) {
	env := newTestEnv(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/transactions",
		strings.NewReader("type=income&amount=12,5&category=Bonus"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	env.srv.Handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	tx := decode[transactionView](t, rr)
	if tx.Date.String() != "2025-03-10" || !tx.Amount.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("unexpected record: %+v", tx)
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name      string
		body      string
		wantCode  int
		wantField string
	}{
		{"zero amount", `{"type":"expense","amount":0,"category":"Makanan"}`, 422, "amount"},
		{"negative amount", `{"type":"expense","amount":"-10","category":"Makanan"}`, 422, "amount"},
		{"missing amount", `{"type":"expense","category":"Makanan"}`, 422, "amount"},
		{"empty category", `{"type":"expense","amount":10,"category":"  "}`, 422, "category"},
		{"missing type", `{"amount":10,"category":"Makanan"}`, 422, "type"},
		{"bad date", `{"type":"income","amount":10,"category":"Gaji","date":"kemarin"}`, 422, "date"},
		{"invalid json", `{"type":`, 422, "body"},
		{"json array", `[1,2]`, 422, "body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, http.MethodPost, "/api/transactions", tt.body)
			if rr.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d: %s", rr.Code, tt.wantCode, rr.Body.String())
			}
			body := decode[errorBody](t, rr)
			if body.Field != tt.wantField || body.Error == "" {
				t.Errorf("error body = %+v, want field %q", body, tt.wantField)
			}
		})
	}
	if env.svc.Len() != 5 {
		t.Errorf("rejected input must not be stored, len = %d", env.svc.Len())
	}
}

func TestUpdateTransaction(t *testing.T) {
	env := newTestEnv(t, nil)

	rr := env.do(t, http.MethodPut, "/api/transactions/2", `{"amount":200000,"description":"Makan malam"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("update status=%d body=%s", rr.Code, rr.Body.String())
	}
	tx := decode[transactionView](t, rr)
	if !tx.Amount.Equal(decimal.NewFromInt(200000)) || tx.Category != "Makanan" || tx.Description != "Makan malam" {
		t.Fatalf("omitted fields should be kept: %+v", tx)
	}
	if tx.Date.String() != "2025-03-10" {
		t.Errorf("date = %s, want the stored date", tx.Date)
	}

	tests := []struct {
		name     string
		target   string
		body     string
		wantCode int
	}{
		{"type change", "/api/transactions/2", `{"type":"income"}`, 422},
		{"same type is fine", "/api/transactions/2", `{"type":"expense"}`, 200},
		{"invalid amount", "/api/transactions/2", `{"amount":"abc"}`, 422},
		{"unknown id", "/api/transactions/999", `{"amount":1}`, 404},
		{"bad id", "/api/transactions/abc", `{"amount":1}`, 422},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rr := env.do(t, http.MethodPut, tt.target, tt.body); rr.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d: %s", rr.Code, tt.wantCode, rr.Body.String())
			}
		})
	}
}

func TestDeleteTransaction(t *testing.T) {
	env := newTestEnv(t, nil)

	if rr := env.do(t, http.MethodDelete, "/api/transactions/3", ""); rr.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", rr.Code)
	}
	if rr := env.do(t, http.MethodDelete, "/api/transactions/3", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("second delete status=%d, want 404", rr.Code)
	}
	if rr := env.do(t, http.MethodGet, "/api/transactions/3", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("get deleted status=%d, want 404", rr.Code)
	}
	if env.svc.Len() != 4 {
		t.Errorf("len = %d, want 4", env.svc.Len())
	}
}

func TestDashboard(t *testing.T) {
	env := newTestEnv(t, nil)
	rr := env.do(t, http.MethodGet, "/api/dashboard", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	d := decode[dashboardView](t, rr)
	if d.UserName != "Pengguna" || d.Currency != "IDR" || len(d.Recent) != 5 {
		t.Fatalf("unexpected dashboard: %+v", d)
	}
	if d.Formatted.Income != "Rp 6.000.000" || d.Formatted.Expense != "Rp 600.000" || d.Formatted.Balance != "Rp 5.400.000" {
		t.Fatalf("unexpected formatted totals: %+v", d.Formatted)
	}
	if d.TransactionCount != 5 {
		t.Errorf("transactionCount = %d, want 5", d.TransactionCount)
	}
}

func TestSeriesAndBreakdown(t *testing.T) {
	env := newTestEnv(t, nil)

	series := decode[map[string][]any](t, env.do(t, http.MethodGet, "/api/series?months=3", ""))
	if labels := series["labels"]; len(labels) != 3 || labels[2] != "Mar" {
		t.Fatalf("unexpected labels: %v", labels)
	}
	series = decode[map[string][]any](t, env.do(t, http.MethodGet, "/api/series?months=bogus", ""))
	if len(series["labels"]) != services.SeriesMonths {
		t.Fatalf("invalid months should use the default window, got %d", len(series["labels"]))
	}

	rows := decode[[]breakdownRow](t, env.do(t, http.MethodGet, "/api/breakdown", ""))
	if len(rows) != 3 || rows[0].Category != "Belanja" || rows[0].Formatted != "Rp 350.000" || rows[0].Color == "" {
		t.Fatalf("unexpected breakdown: %+v", rows)
	}
}

func TestCategories(t *testing.T) {
	env := newTestEnv(t, nil)
	all := decode[[]map[string]any](t, env.do(t, http.MethodGet, "/api/categories", ""))
	income := decode[[]map[string]any](t, env.do(t, http.MethodGet, "/api/categories?type=income", ""))
	if len(all) != 10 || len(income) == 0 || len(income) >= len(all) {
		t.Fatalf("all=%d income=%d", len(all), len(income))
	}
	for _, c := range income {
		if c["type"] != "income" {
			t.Errorf("expense category in income list: %v", c)
		}
	}
	if rr := env.do(t, http.MethodGet, "/api/categories?type=x", ""); rr.Code != 422 {
		t.Errorf("bad type status=%d", rr.Code)
	}
}

func TestReport(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name      string
		query     string
		wantCode  int
		wantCount int
	}{
		{"march", "?start=2025-03-01&end=2025-03-31", 200, 5},
		{"single day", "?start=2025-03-10&end=2025-03-10", 200, 2},
		{"no matches", "?start=2024-01-01&end=2024-01-31", 404, 0},
		{"start after end", "?start=2025-03-31&end=2025-03-01", 404, 0},
		{"missing start", "?end=2025-03-31", 422, 0},
		{"bad end", "?start=2025-03-01&end=31/03/2025", 422, 0},
		{"sheet without writer", "?start=2025-03-01&end=2025-03-31&sheet=1", 503, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, http.MethodGet, "/api/report"+tt.query, "")
			if rr.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d: %s", rr.Code, tt.wantCode, rr.Body.String())
			}
			if tt.wantCode != http.StatusOK {
				return
			}
			r := decode[reportView](t, rr)
			if r.Count != tt.wantCount || len(r.Rows) != tt.wantCount {
				t.Errorf("count = %d, want %d", r.Count, tt.wantCount)
			}
		})
	}

	r := decode[reportView](t, env.do(t, http.MethodGet, "/api/report?start=2025-03-01&end=2025-03-31", ""))
	if r.Formatted.Income != "Rp 6.000.000" || r.Formatted.Balance != "Rp 5.400.000" {
		t.Errorf("unexpected formatted totals: %+v", r.Formatted)
	}
}

func TestReportToSheet(t *testing.T) {
	w := memory.New()
	env := newTestEnv(t, []services.Option{services.WithReportWriter(w)})

	rr := env.do(t, http.MethodGet, "/api/report?start=2025-03-01&end=2025-03-31&sheet=1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if r := decode[reportView](t, rr); !r.Sheet || r.Count != 5 {
		t.Fatalf("unexpected report: %+v", r)
	}
	if w.Len() != 1 {
		t.Errorf("writer calls = %d, want 1", w.Len())
	}
}

func TestReportCacheInvalidatedByMutation(t *testing.T) {
	env := newTestEnv(t, nil)
	const target = "/api/report?start=2025-03-01&end=2025-03-31"

	if r := decode[reportView](t, env.do(t, http.MethodGet, target, "")); r.Count != 5 {
		t.Fatalf("count = %d, want 5", r.Count)
	}
	env.do(t, http.MethodPost, "/api/transactions", `{"type":"expense","amount":1,"category":"Lainnya","date":"2025-03-02"}`)
	if r := decode[reportView](t, env.do(t, http.MethodGet, target, "")); r.Count != 6 {
		t.Fatalf("cached report survived a mutation: count = %d", r.Count)
	}

	// Writes that bypass the API are only seen after Invalidate.
	if _, err := env.svc.Delete(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	if r := decode[reportView](t, env.do(t, http.MethodGet, target, "")); r.Count != 6 {
		t.Fatalf("expected cached count 6, got %d", r.Count)
	}
	env.srv.Invalidate()
	if r := decode[reportView](t, env.do(t, http.MethodGet, target, "")); r.Count != 5 {
		t.Fatalf("count after invalidate = %d, want 5", r.Count)
	}
}

func TestExportClearImport(t *testing.T) {
	env := newTestEnv(t, nil)

	rr := env.do(t, http.MethodGet, "/api/export", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("export status=%d", rr.Code)
	}
	if cd := rr.Header().Get("Content-Disposition"); cd != `attachment; filename="money_manager_2025-03-10.json"` {
		t.Errorf("Content-Disposition = %q", cd)
	}
	exported := rr.Body.String()

	if rr := env.do(t, http.MethodDelete, "/api/data", ""); rr.Code != http.StatusNoContent {
		t.Fatalf("clear status=%d", rr.Code)
	}
	if env.svc.Len() != 0 {
		t.Fatalf("len after clear = %d", env.svc.Len())
	}

	rr = env.do(t, http.MethodPost, "/api/import", exported)
	if rr.Code != http.StatusOK {
		t.Fatalf("import status=%d body=%s", rr.Code, rr.Body.String())
	}
	if body := decode[map[string]any](t, rr); body["imported"] != float64(5) {
		t.Fatalf("unexpected import body: %v", body)
	}
	if env.svc.Len() != 5 {
		t.Fatalf("len after import = %d", env.svc.Len())
	}
}

func TestImportRejectsBadDocuments(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name string
		body string
	}{
		{"not json", `hello`},
		{"missing transactions", `{"categories":[]}`},
		{"transactions not an array", `{"transactions":{}}`},
		{"invalid record", `{"transactions":[{"id":1,"type":"expense","amount":0,"category":"Makanan","date":"2025-03-01"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rr := env.do(t, http.MethodPost, "/api/import", tt.body); rr.Code != http.StatusUnprocessableEntity {
				t.Fatalf("status = %d, want 422: %s", rr.Code, rr.Body.String())
			}
		})
	}
	if env.svc.Len() != 5 {
		t.Errorf("rejected import must leave the ledger untouched, len = %d", env.svc.Len())
	}
}

func TestSettings(t *testing.T) {
	env := newTestEnv(t, nil)

	got := decode[settingsDTO](t, env.do(t, http.MethodGet, "/api/settings", ""))
	if got.Currency != "IDR" || got.RefreshInterval != 1 || !got.AutoRefresh || got.SortOrder != "date-desc" {
		t.Fatalf("unexpected defaults: %+v", got)
	}

	rr := env.do(t, http.MethodPut, "/api/settings", `{"currency":"usd","refreshInterval":5,"sortOrder":"bogus","userName":"Budi"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("update status=%d body=%s", rr.Code, rr.Body.String())
	}
	got = decode[settingsDTO](t, rr)
	if got.Currency != "USD" || got.RefreshInterval != 5 || got.SortOrder != "date-desc" || got.UserName != "Budi" {
		t.Fatalf("unexpected settings: %+v", got)
	}
	if !got.AutoSave {
		t.Errorf("omitted keys must keep their values: %+v", got)
	}

	tx := decode[transactionView](t, env.do(t, http.MethodGet, "/api/transactions/1", ""))
	if !strings.HasPrefix(tx.Formatted, "+$") {
		t.Errorf("formatted = %q, want a dollar amount", tx.Formatted)
	}

	if rr := env.do(t, http.MethodPut, "/api/settings", `{"refreshInterval":0}`); rr.Code != 422 {
		t.Errorf("zero interval status=%d, want 422", rr.Code)
	}

	got = decode[settingsDTO](t, env.do(t, http.MethodPost, "/api/logout", ""))
	if got.UserName != "Pengguna" || got.Currency != "USD" {
		t.Errorf("logout should reset only the name: %+v", got)
	}
}

func TestSettingsReschedulesAutoRefresh(t *testing.T) {
	clock := scheduler.NewManualClock(testNow)
	repo := storage.NewRepository(storage.NewMemoryKV(), nil)
	svc := services.NewLedgerService(repo, services.WithClock(clock))
	if err := svc.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	bg := services.NewBackground(svc, log.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := bg.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer bg.Stop()

	srv := NewServer(":0", svc, log.Discard(), WithBackground(bg))
	defer srv.Shutdown(context.Background())

	put := func(body string) {
		t.Helper()
		req := httptest.NewRequest(http.MethodPut, "/api/settings", strings.NewReader(body))
		rr := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
		}
	}

	if !bg.RefreshRunning() {
		t.Fatal("auto-refresh should start enabled")
	}
	put(`{"autoRefresh":false}`)
	if bg.RefreshRunning() || !bg.NextRefresh().IsZero() {
		t.Fatal("disabling auto-refresh should stop the timer")
	}
	put(`{"autoRefresh":true,"refreshInterval":15}`)
	if !bg.RefreshRunning() || !bg.NextRefresh().Equal(testNow.Add(15*time.Minute)) {
		t.Fatalf("next refresh = %v, want %v", bg.NextRefresh(), testNow.Add(15*time.Minute))
	}

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	stats := decode[statsView](t, rr)
	if !stats.AutoRefresh || stats.NextRefresh == nil || stats.Requests != 3 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestBackups(t *testing.T) {
	env := newTestEnv(t, nil)
	list := decode[[]storage.Backup](t, env.do(t, http.MethodGet, "/api/backups", ""))
	if len(list) != 0 {
		t.Fatalf("fresh store has no backups, got %v", list)
	}
	if rr := env.do(t, http.MethodPut, "/api/settings", `{"autoExport":true}`); rr.Code != http.StatusOK {
		t.Fatalf("enable auto export: %d", rr.Code)
	}
	if written, err := env.svc.BackupIfDue(context.Background()); err != nil || !written {
		t.Fatalf("backup written=%v err=%v", written, err)
	}
	list = decode[[]storage.Backup](t, env.do(t, http.MethodGet, "/api/backups", ""))
	if len(list) != 1 || list[0].Date.String() != "2025-03-10" {
		t.Fatalf("unexpected backups: %+v", list)
	}
}

func TestMiddlewareChain(t *testing.T) {
	env := newTestEnv(t, nil)

	rr := env.do(t, http.MethodGet, "/api/health", "")
	if id := rr.Header().Get("X-Request-ID"); !strings.HasPrefix(id, "req_") {
		t.Errorf("X-Request-ID = %q", id)
	}
	if got := rr.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "client-42")
	rr = httptest.NewRecorder()
	env.srv.Handler.ServeHTTP(rr, req)
	if id := rr.Header().Get("X-Request-ID"); id != "client-42" {
		t.Errorf("incoming request id not reused: %q", id)
	}

	if rr := env.do(t, http.MethodOptions, "/api/transactions", ""); rr.Code != http.StatusNoContent {
		t.Errorf("preflight status=%d, want 204", rr.Code)
	}
	if rr := env.do(t, http.MethodGet, "/api/../.env", ""); rr.Code != http.StatusBadRequest {
		t.Errorf("probe status=%d, want 400", rr.Code)
	}
	if rr := env.do(t, http.MethodPatch, "/api/transactions/1", ""); rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("unsupported method status=%d, want 405", rr.Code)
	}
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, nil, WithRateLimit(ratelimit.Config{
		RequestsPerMinute: 2,
		Methods:           []string{http.MethodDelete},
		Now:               func() time.Time { return testNow },
	}))

	codes := make([]int, 0, 3)
	for _, id := range []string{"1", "2", "3"} {
		codes = append(codes, env.do(t, http.MethodDelete, "/api/transactions/"+id, "").Code)
	}
	if codes[0] != 204 || codes[1] != 204 || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v", codes)
	}
	if rr := env.do(t, http.MethodGet, "/api/health", ""); rr.Code != http.StatusOK {
		t.Errorf("reads are not limited, status=%d", rr.Code)
	}
	if env.svc.Len() != 3 {
		t.Errorf("limited request reached the handler, len = %d", env.svc.Len())
	}
}

func jsonID(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}

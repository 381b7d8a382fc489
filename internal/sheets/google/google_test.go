package google

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	gsheet "google.golang.org/api/sheets/v4"

	"moneymanager/internal/currency"
	"moneymanager/internal/ledger"
	"moneymanager/internal/log"
)

func clearCredentials(t *testing.T) {
	t.Helper()
	for _, k := range []string{"GOOGLE_SERVICE_ACCOUNT_JSON", "GOOGLE_SERVICE_ACCOUNT_FILE", "GOOGLE_APPLICATION_CREDENTIALS"} {
		t.Setenv(k, "")
	}
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), " ", "Laporan", nil)
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNew_MissingSheetName(t *testing.T) {
	if _, err := New(context.Background(), "id", "", nil); err == nil {
		t.Fatal("expected error for empty sheet name")
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	clearCredentials(t)
	_, err := New(context.Background(), "id", "Laporan", nil)
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("expected missing credentials error, got %v", err)
	}
}

func TestLoadCredentials(t *testing.T) {
	clearCredentials(t)
	path := filepath.Join(t.TempDir(), "sa.json")
	if err := os.WriteFile(path, []byte(`{"type":"service_account"}`), 0600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", path)
	b, err := loadCredentials(log.Discard())
	if err != nil || string(b) != `{"type":"service_account"}` {
		t.Fatalf("fallback file not used: %s %v", b, err)
	}

	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", `{"inline":true}`)
	b, _ = loadCredentials(log.Discard())
	if string(b) != `{"inline":true}` {
		t.Fatalf("inline JSON should win, got %s", b)
	}

	clearCredentials(t)
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", filepath.Join(t.TempDir(), "missing.json"))
	if _, err := loadCredentials(log.Discard()); err == nil {
		t.Fatal("expected error for unreadable file")
	}
}

func TestSheetRange(t *testing.T) {
	cases := map[string]string{
		"Laporan":      "'Laporan'!A1",
		"Laporan 2025": "'Laporan 2025'!A1",
		"Budi's":       "'Budi''s'!A1",
	}
	for sheet, want := range cases {
		if got := sheetRange(sheet, "A1"); got != want {
			t.Errorf("sheetRange(%q) = %q, want %q", sheet, got, want)
		}
	}
}

func TestHasSheet(t *testing.T) {
	ss := &gsheet.Spreadsheet{Sheets: []*gsheet.Sheet{
		{Properties: &gsheet.SheetProperties{Title: "Dashboard"}},
		{},
		{Properties: &gsheet.SheetProperties{Title: "Laporan"}},
	}}
	if !hasSheet(ss, "laporan") || hasSheet(ss, "Ringkasan") {
		t.Fatal("unexpected sheet lookup")
	}
}

func TestWriteReport_Uninitialized(t *testing.T) {
	c := &Client{spreadsheetID: "id", sheetName: "Laporan"}
	if err := c.WriteReport(context.Background(), ledger.Report{}, currency.IDR); err == nil {
		t.Fatal("expected error without a service")
	}
}

package backend

import (
	"context"
	"path/filepath"
	"testing"

	"moneymanager/internal/config"
	"moneymanager/internal/storage"
)

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name      string
		cfg       Config
		wantWatch bool
	}{
		{"memory", Config{Type: Memory}, false},
		{"file", Config{Type: File, DataFile: filepath.Join(dir, "mm.json")}, true},
		{"sqlite", Config{Type: SQLite, SQLiteDBPath: filepath.Join(dir, "mm.db")}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Open(tt.cfg, nil)
			if err != nil {
				t.Fatalf("open: %v", err)
			}
			defer res.Cleanup()

			if (res.WatchPath != "") != tt.wantWatch {
				t.Fatalf("unexpected watch path %q", res.WatchPath)
			}
			if err := res.KV.Set(context.Background(), storage.KeyCurrency, "USD"); err != nil {
				t.Fatalf("set: %v", err)
			}
		})
	}
}

func TestOpenRejectsInvalidConfig(t *testing.T) {
	for _, cfg := range []Config{{Type: "sheets"}, {Type: File}, {Type: SQLite}} {
		if _, err := Open(cfg, nil); err == nil {
			t.Fatalf("expected error for %+v", cfg)
		}
	}
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
	cfg, err := FromAppConfig(&config.Config{DataBackend: "file", DataFile: "x.json"})
	if err != nil || cfg.Type != File || cfg.DataFile != "x.json" {
		t.Fatalf("unexpected conversion: %+v %v", cfg, err)
	}
}

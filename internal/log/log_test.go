package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func jsonLogger(buf *bytes.Buffer, component string) *Logger {
	return New(Config{Component: component, Handler: slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})})
}

func lines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("bad log line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestLoggerComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := jsonLogger(&buf, ComponentLedger)
	logger.Info("first", FieldCount, 2)
	logger.WithComponent(ComponentStorage).Warn("second")

	got := lines(t, &buf)
	if len(got) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(got))
	}
	if got[0][FieldComponent] != ComponentLedger || got[0][FieldCount] != float64(2) {
		t.Fatalf("unexpected first line: %v", got[0])
	}
	if got[1][FieldComponent] != ComponentStorage || got[1]["level"] != "WARN" {
		t.Fatalf("unexpected second line: %v", got[1])
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug, "WARN": slog.LevelWarn, "warning": slog.LevelWarn,
		"error": slog.LevelError, "info": slog.LevelInfo, "": slog.LevelInfo, "loud": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLogFields(t *testing.T) {
	f := NewFields().WithComponent(ComponentHTTP).WithError(errors.New("boom")).WithError(nil).WithCount(3)
	if f[FieldError] != "boom" || f[FieldCount] != 3 || len(f.ToSlice()) != 6 {
		t.Fatalf("unexpected fields: %v", f)
	}
}

func TestMiddleware(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		requestID string
		level     string
	}{
		{"ok", http.StatusOK, "", "INFO"},
		{"client error", http.StatusNotFound, "req_1", "WARN"},
		{"server error", http.StatusInternalServerError, "", "ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := jsonLogger(&buf, ComponentHTTP)
			h := Middleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if FromContext(r.Context()) == nil {
					t.Error("no logger in context")
				}
				w.WriteHeader(tt.status)
			}))

			rr := httptest.NewRecorder()
			if tt.requestID != "" {
				rr.Header().Set(RequestIDHeader, tt.requestID)
			}
			h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/health?x=1", nil))

			got := lines(t, &buf)
			if len(got) != 1 {
				t.Fatalf("expected one line, got %d", len(got))
			}
			line := got[0]
			if line["level"] != tt.level || line[FieldStatusCode] != float64(tt.status) || line[FieldQuery] != "x=1" {
				t.Fatalf("unexpected line: %v", line)
			}
			if tt.requestID != "" && line[FieldRequestID] != tt.requestID {
				t.Fatalf("request id missing: %v", line)
			}
		})
	}
}

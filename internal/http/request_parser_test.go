package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"moneymanager/internal/core"
)

func newParser(t *testing.T, body string) *RequestBodyParser {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	return NewRequestBodyParser(httptest.NewRecorder(), req)
}

func TestRequestBodyParser(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		key      string
		want     string
		wantJSON bool
	}{
		{"json string", `{"category":" Makanan "}`, "category", "Makanan", true},
		{"json number", `{"amount":150000}`, "amount", "150000", true},
		{"json fraction", `{"amount":12.5}`, "amount", "12.5", true},
		{"json bool", `{"autoSave":false}`, "autoSave", "false", true},
		{"json null", `{"description":null}`, "description", "", true},
		{"form", "amount=12%2C5&category=Gaji", "amount", "12,5", false},
		{"control characters", `{"description":"a\u0000b\tc"}`, "description", "ab\tc", true},
		{"missing key", `{"a":"b"}`, "category", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newParser(t, tt.body)
			if err := p.Parse(); err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if got := p.Get(tt.key); got != tt.want {
				t.Errorf("Get(%q) = %q, want %q", tt.key, got, tt.want)
			}
			if p.IsJSON() != tt.wantJSON {
				t.Errorf("IsJSON() = %v, want %v", p.IsJSON(), tt.wantJSON)
			}
		})
	}
}

func TestRequestBodyParserHas(t *testing.T) {
	p := newParser(t, `{"amount":0,"description":""}`)
	if err := p.Parse(); err != nil {
		t.Fatal(err)
	}
	if !p.Has("amount") || !p.Has("description") || p.Has("category") {
		t.Error("Has should report supplied keys, including empty ones")
	}

	empty := newParser(t, "")
	if err := empty.Parse(); err != nil {
		t.Fatalf("empty body should parse, got %v", err)
	}
	if empty.Has("amount") || empty.Get("amount") != "" {
		t.Error("empty body has no keys")
	}
}

func TestRequestBodyParserErrors(t *testing.T) {
	for _, body := range []string{`{"a":`, `[1]`} {
		p := newParser(t, body)
		err := p.Parse()
		var ve *core.ValidationError
		if !errors.As(err, &ve) || ve.Field != "body" {
			t.Errorf("Parse(%q) error = %v, want body validation error", body, err)
		}
		if again := p.Parse(); again != err {
			t.Errorf("second Parse should return the cached error")
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(strings.Repeat("a", maxBodyBytes+1)))
	p := NewRequestBodyParser(httptest.NewRecorder(), req)
	var tooLarge *http.MaxBytesError
	if err := p.Parse(); !errors.As(err, &tooLarge) {
		t.Errorf("oversized body error = %v, want MaxBytesError", err)
	}
}

func TestParseFilter(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		want    string
		wantErr error
	}{
		{"empty", "", "||0001-01-01|", nil},
		{"all type", "type=all&category=all", "|all|0001-01-01|", nil},
		{"expense", "type=expense&category=Makanan&date=2025-03-10&q=makan", "expense|Makanan|2025-03-10|makan", nil},
		{"bad type", "type=saving", "", core.ErrValidation},
		{"bad date", "date=2025-13-01", "", core.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, _ := url.ParseQuery(tt.query)
			f, err := ParseFilter(q)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParseFilter() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseFilter() error = %v", err)
			}
			date := "0001-01-01"
			if !f.Date.IsZero() {
				date = f.Date.String()
			}
			if got := string(f.Type) + "|" + f.Category + "|" + date + "|" + f.Search; got != tt.want {
				t.Errorf("ParseFilter() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParsePage(t *testing.T) {
	tests := map[string]int{"": 1, "page=2": 2, "page=0": 1, "page=-3": 1, "page=x": 1, "page=%2011": 11}
	for query, want := range tests {
		q, _ := url.ParseQuery(query)
		if got := ParsePage(q); got != want {
			t.Errorf("ParsePage(%q) = %d, want %d", query, got, want)
		}
	}
}

func TestParseRange(t *testing.T) {
	q, _ := url.ParseQuery("start=2025-03-01&end=2025-03-31")
	start, end, err := ParseRange(q)
	if err != nil || start.String() != "2025-03-01" || end.String() != "2025-03-31" {
		t.Fatalf("ParseRange() = %s, %s, %v", start, end, err)
	}

	for _, query := range []string{"end=2025-03-31", "start=2025-03-01", "start=x&end=2025-03-31"} {
		q, _ := url.ParseQuery(query)
		if _, _, err := ParseRange(q); !errors.Is(err, core.ErrValidation) {
			t.Errorf("ParseRange(%q) error = %v, want validation error", query, err)
		}
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  Gaji  ", "Gaji"},
		{"line1\nline2", "line1\nline2"},
		{"bell\x07", "bell"},
		{"\x1b[31mred", "[31mred"},
	}
	for _, tt := range tests {
		if got := sanitizeInput(tt.in); got != tt.want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// This file implements utilities for parsing and validating request data.

package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"moneymanager/internal/core"
	"moneymanager/internal/ledger"
)

// maxBodyBytes bounds request bodies, imports included.
const maxBodyBytes = 10 << 20

// RequestBodyParser reads JSON or form-encoded bodies into flat string values.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser reads the body once and keeps it for parsing.
func NewRequestBodyParser(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{contentType: r.Header.Get("Content-Type")}
	p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return p
}

// Parse decodes the body as JSON when it looks like an object, else as a form.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true
	if p.err != nil {
		return p.err
	}

	body := strings.TrimSpace(string(p.body))
	if body == "" {
		p.formData = url.Values{}
		return nil
	}
	if body[0] == '{' {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal([]byte(body), &p.jsonData); err != nil {
			p.err = &core.ValidationError{Field: "body", Msg: "invalid JSON"}
		}
		return p.err
	}
	if body[0] == '[' {
		p.err = &core.ValidationError{Field: "body", Msg: "expected a JSON object"}
		return p.err
	}
	p.formData, p.err = url.ParseQuery(body)
	if p.err != nil {
		p.err = &core.ValidationError{Field: "body", Msg: "invalid form data"}
	}
	return p.err
}

// Has reports whether key was supplied at all.
func (p *RequestBodyParser) Has(key string) bool {
	if p.jsonData != nil {
		_, ok := p.jsonData[key]
		return ok
	}
	return p.formData != nil && p.formData.Has(key)
}

// Get returns a trimmed, sanitized value from the parsed data.
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// transactionInput holds the user-editable fields of a record.
type transactionInput struct {
	Type        core.TxType
	Amount      string
	Category    string
	Date        core.Date
	Description string
}

// parseTransactionInput reads a record from the body. A missing date means
// today; a missing type is only allowed when requireType is false.
func parseTransactionInput(p *RequestBodyParser, today core.Date, requireType bool) (transactionInput, error) {
	in := transactionInput{
		Amount:      p.Get("amount"),
		Category:    p.Get("category"),
		Description: p.Get("description"),
		Date:        today,
	}
	if raw := p.Get("type"); raw != "" || requireType {
		t, err := core.ParseTxType(raw)
		if err != nil {
			return in, err
		}
		in.Type = t
	}
	if raw := p.Get("date"); raw != "" {
		d, err := core.ParseDate(raw)
		if err != nil {
			return in, invalidDate("date", raw)
		}
		in.Date = d
	}
	return in, nil
}

func (in transactionInput) entry() (core.Entry, error) {
	amount, err := core.ParseAmount(in.Amount)
	if err != nil {
		return core.Entry{}, err
	}
	return core.Entry{Type: in.Type, Amount: amount, Category: in.Category, Date: in.Date, Description: in.Description}, nil
}

func (in transactionInput) patch() (core.Patch, error) {
	amount, err := core.ParseAmount(in.Amount)
	if err != nil {
		return core.Patch{}, err
	}
	return core.Patch{Amount: amount, Category: in.Category, Date: in.Date, Description: in.Description}, nil
}

// ParseFilter reads type, category, date and q from the query string.
func ParseFilter(q url.Values) (ledger.Filter, error) {
	f := ledger.Filter{
		Category: strings.TrimSpace(q.Get("category")),
		Search:   sanitizeInput(q.Get("q")),
	}
	if raw := strings.TrimSpace(q.Get("type")); raw != "" && raw != ledger.All {
		t, err := core.ParseTxType(raw)
		if err != nil {
			return f, err
		}
		f.Type = t
	}
	if raw := strings.TrimSpace(q.Get("date")); raw != "" {
		d, err := core.ParseDate(raw)
		if err != nil {
			return f, invalidDate("date", raw)
		}
		f.Date = d
	}
	return f, nil
}

// ParsePage reads a 1-based page number, defaulting to 1.
func ParsePage(q url.Values) int {
	if n, err := strconv.Atoi(strings.TrimSpace(q.Get("page"))); err == nil && n > 0 {
		return n
	}
	return 1
}

// ParseRange reads the required start and end dates of a report.
func ParseRange(q url.Values) (start, end core.Date, err error) {
	for _, p := range []struct {
		key string
		dst *core.Date
	}{{"start", &start}, {"end", &end}} {
		raw := strings.TrimSpace(q.Get(p.key))
		if raw == "" {
			return start, end, &core.ValidationError{Field: p.key, Msg: "is required"}
		}
		d, perr := core.ParseDate(raw)
		if perr != nil {
			return start, end, invalidDate(p.key, raw)
		}
		*p.dst = d
	}
	return start, end, nil
}

func invalidDate(field, raw string) error {
	return &core.ValidationError{Field: field, Msg: fmt.Sprintf("invalid date %q, want YYYY-MM-DD", raw)}
}

// parseID reads a positive transaction id from the path.
func parseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, core.ErrInvalidID
	}
	return id, nil
}

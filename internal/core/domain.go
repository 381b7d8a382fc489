package core

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  TxType = "income"
	Expense TxType = "expense"
)

// DateLayout is the calendar date format used in files and query strings.
const DateLayout = "2006-01-02"

type (
	TxType string

	Date struct {
		time.Time
	}

	Transaction struct {
		ID          int64           `json:"id"`
		Type        TxType          `json:"type"`
		Amount      decimal.Decimal `json:"amount"`
		Category    string          `json:"category"`
		Date        Date            `json:"date"`
		Description string          `json:"description"`
		CreatedAt   time.Time       `json:"createdAt"`
	}

	// Entry is the user input for a new transaction.
	Entry struct {
		Type        TxType
		Amount      decimal.Decimal
		Category    string
		Date        Date
		Description string
	}

	// Patch carries the fields an update may replace. Type is deliberately absent.
	Patch struct {
		Amount      decimal.Decimal
		Category    string
		Date        Date
		Description string
	}
)

func init() {
	// Ledger files written by the browser app store amounts as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

func (t TxType) Valid() bool {
	return t == Income || t == Expense
}

// ParseTxType accepts the English names and the Indonesian labels
// ("pemasukan", "pengeluaran").
func ParseTxType(s string) (TxType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "income", "pemasukan":
		return Income, nil
	case "expense", "pengeluaran":
		return Expense, nil
	}
	return "", ErrInvalidType
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf drops the time of day from t, keeping its calendar date.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses YYYY-MM-DD. RFC 3339 timestamps are accepted and truncated.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return DateOf(t), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, ErrInvalidDate)
	}
	return DateOf(t), nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// Compare orders two dates by calendar day.
func (d Date) Compare(o Date) int {
	return d.Time.Compare(o.Time)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (e Entry) Validate() error {
	if !e.Type.Valid() {
		return ErrInvalidType
	}
	return validateFields(e.Amount, e.Category, e.Date)
}

func (p Patch) Validate() error {
	return validateFields(p.Amount, p.Category, p.Date)
}

// Validate checks that a stored record is transaction-shaped.
func (t Transaction) Validate() error {
	if t.ID <= 0 {
		return ErrInvalidID
	}
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	return validateFields(t.Amount, t.Category, t.Date)
}

func validateFields(amount decimal.Decimal, category string, date Date) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(category) == "" {
		return ErrEmptyCategory
	}
	if date.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// IsIncome reports whether the transaction adds to the balance.
func (t Transaction) IsIncome() bool {
	return t.Type == Income
}

// Signed returns the amount with expenses negated.
func (t Transaction) Signed() decimal.Decimal {
	if t.IsIncome() {
		return t.Amount
	}
	return t.Amount.Neg()
}

package storage

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"moneymanager/internal/core"
	"moneymanager/internal/currency"
	"moneymanager/internal/ledger"
)

const (
	DefaultUserName        = "Pengguna"
	DefaultRefreshInterval = time.Minute
)

// Settings are the user preferences kept next to the ledger.
type Settings struct {
	UserName        string           `json:"userName"`
	Currency        currency.Code    `json:"currency"`
	SortOrder       ledger.SortOrder `json:"sortOrder"`
	AutoRefresh     bool             `json:"autoRefresh"`
	RefreshInterval time.Duration    `json:"refreshInterval"`
	AutoSave        bool             `json:"autoSave"`
	AutoExport      bool             `json:"autoExport"`
	LastExportDate  core.Date        `json:"lastExportDate"`
}

// DefaultSettings is what a fresh store reports.
func DefaultSettings() Settings {
	return Settings{
		UserName:        DefaultUserName,
		Currency:        currency.IDR,
		SortOrder:       ledger.DateDesc,
		AutoRefresh:     true,
		RefreshInterval: DefaultRefreshInterval,
		AutoSave:        true,
	}
}

// LoadSettings reads every preference key, falling back to defaults. Boolean
// keys keep their asymmetric defaults: auto-refresh and auto-save stay on
// unless stored as "false", auto-export stays off unless stored as "true".
func (r *Repository) LoadSettings(ctx context.Context) (Settings, error) {
	s := DefaultSettings()
	get := func(key string) (string, bool, error) {
		v, ok, err := r.kv.Get(ctx, key)
		if err != nil {
			return "", false, fmt.Errorf("load %s: %w", key, err)
		}
		return strings.TrimSpace(v), ok && strings.TrimSpace(v) != "", nil
	}

	if v, ok, err := get(KeyUserName); err != nil {
		return s, err
	} else if ok {
		s.UserName = v
	}
	if v, ok, err := get(KeyCurrency); err != nil {
		return s, err
	} else if ok {
		s.Currency = currency.ParseCode(v)
	}
	if v, ok, err := get(KeySortOrder); err != nil {
		return s, err
	} else if ok {
		s.SortOrder = ledger.ParseSortOrder(v)
	}
	if v, ok, err := get(KeyAutoRefresh); err != nil {
		return s, err
	} else if ok {
		s.AutoRefresh = v != "false"
	}
	if v, ok, err := get(KeyRefreshInterval); err != nil {
		return s, err
	} else if ok {
		if minutes, err := strconv.Atoi(v); err == nil && minutes > 0 {
			s.RefreshInterval = time.Duration(minutes) * time.Minute
		}
	}
	if v, ok, err := get(KeyAutoSave); err != nil {
		return s, err
	} else if ok {
		s.AutoSave = v != "false"
	}
	if v, ok, err := get(KeyAutoExport); err != nil {
		return s, err
	} else if ok {
		s.AutoExport = v == "true"
	}
	if v, ok, err := get(KeyLastExportDate); err != nil {
		return s, err
	} else if ok {
		if d, err := core.ParseDate(v); err == nil {
			s.LastExportDate = d
		}
	}
	return s, nil
}

// SaveSettings writes every preference key. The refresh interval is stored in
// whole minutes, at least one.
func (r *Repository) SaveSettings(ctx context.Context, s Settings) error {
	minutes := max(1, int(s.RefreshInterval/time.Minute))
	values := map[string]string{
		KeyUserName:        s.UserName,
		KeyCurrency:        string(s.Currency),
		KeySortOrder:       string(s.SortOrder),
		KeyAutoRefresh:     strconv.FormatBool(s.AutoRefresh),
		KeyRefreshInterval: strconv.Itoa(minutes),
		KeyAutoSave:        strconv.FormatBool(s.AutoSave),
		KeyAutoExport:      strconv.FormatBool(s.AutoExport),
	}
	if !s.LastExportDate.IsZero() {
		values[KeyLastExportDate] = s.LastExportDate.String()
	}
	if s.UserName == "" {
		delete(values, KeyUserName)
		if err := r.kv.Remove(ctx, KeyUserName); err != nil {
			return fmt.Errorf("remove %s: %w", KeyUserName, err)
		}
	}
	for key, v := range values {
		if err := r.kv.Set(ctx, key, v); err != nil {
			return fmt.Errorf("save %s: %w", key, err)
		}
	}
	return nil
}

// MarkExported records date as the day of the last automatic backup.
func (r *Repository) MarkExported(ctx context.Context, date core.Date) error {
	if err := r.kv.Set(ctx, KeyLastExportDate, date.String()); err != nil {
		return fmt.Errorf("save %s: %w", KeyLastExportDate, err)
	}
	return nil
}

// Logout forgets the user name.
func (r *Repository) Logout(ctx context.Context) error {
	return r.kv.Remove(ctx, KeyUserName)
}

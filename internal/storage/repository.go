package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"moneymanager/internal/core"
	"moneymanager/internal/log"
)

// Repository maps ledger state onto KV keys as JSON.
type Repository struct {
	kv     KV
	logger *log.Logger
}

func NewRepository(kv KV, logger *log.Logger) *Repository {
	if logger == nil {
		logger = log.Discard()
	}
	return &Repository{kv: kv, logger: logger.WithComponent(log.ComponentStorage)}
}

// KV exposes the underlying store.
func (r *Repository) KV() KV { return r.kv }

// LoadTransactions returns the stored ledger. An absent key yields an empty
// ledger. Undecodable contents are logged and also yield an empty ledger.
func (r *Repository) LoadTransactions(ctx context.Context) ([]core.Transaction, error) {
	raw, ok, err := r.kv.Get(ctx, KeyTransactions)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return []core.Transaction{}, nil
	}
	var txs []core.Transaction
	if err := json.Unmarshal([]byte(raw), &txs); err != nil {
		r.logger.WarnContext(ctx, "Stored transactions are unreadable, starting empty",
			log.FieldKey, KeyTransactions, log.FieldError, err)
		return []core.Transaction{}, nil
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	return txs, nil
}

// SaveTransactions implements ledger.Saver.
func (r *Repository) SaveTransactions(ctx context.Context, txs []core.Transaction) error {
	if txs == nil {
		txs = []core.Transaction{}
	}
	return r.setJSON(ctx, KeyTransactions, txs)
}

// LoadCategories returns the stored table or the defaults when none is stored
// or it cannot be decoded.
func (r *Repository) LoadCategories(ctx context.Context) (core.Categories, error) {
	raw, ok, err := r.kv.Get(ctx, KeyCategories)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return core.DefaultCategories(), nil
	}
	var cats core.Categories
	if err := json.Unmarshal([]byte(raw), &cats); err != nil || len(cats) == 0 {
		r.logger.WarnContext(ctx, "Stored categories are unreadable, using defaults",
			log.FieldKey, KeyCategories, log.FieldError, err)
		return core.DefaultCategories(), nil
	}
	return cats, nil
}

func (r *Repository) SaveCategories(ctx context.Context, cats core.Categories) error {
	return r.setJSON(ctx, KeyCategories, cats)
}

// Backup is a stored daily snapshot.
type Backup struct {
	Key  string    `json:"key"`
	Date core.Date `json:"date"`
}

// BackupKey names the snapshot slot for date.
func BackupKey(date core.Date) string {
	return KeyBackupPrefix + date.String()
}

// SaveBackup stores payload in the slot for date, replacing any earlier one.
func (r *Repository) SaveBackup(ctx context.Context, date core.Date, payload []byte) error {
	key := BackupKey(date)
	if err := r.kv.Set(ctx, key, string(payload)); err != nil {
		return fmt.Errorf("save backup: %w", err)
	}
	r.logger.InfoContext(ctx, "Backup stored", log.FieldKey, key, log.FieldOperation, log.OpBackup)
	return nil
}

// LoadBackup returns the snapshot stored for date.
func (r *Repository) LoadBackup(ctx context.Context, date core.Date) ([]byte, bool, error) {
	raw, ok, err := r.kv.Get(ctx, BackupKey(date))
	if err != nil || !ok {
		return nil, false, err
	}
	return []byte(raw), true, nil
}

// ListBackups returns stored snapshots, oldest first. Keys with an
// unparseable date suffix are skipped.
func (r *Repository) ListBackups(ctx context.Context) ([]Backup, error) {
	keys, err := r.kv.Keys(ctx, KeyBackupPrefix)
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}
	out := make([]Backup, 0, len(keys))
	for _, k := range keys {
		d, err := core.ParseDate(strings.TrimPrefix(k, KeyBackupPrefix))
		if err != nil {
			continue
		}
		out = append(out, Backup{Key: k, Date: d})
	}
	return out, nil
}

func (r *Repository) setJSON(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := r.kv.Set(ctx, key, string(raw)); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"moneymanager/internal/amqp"
	"moneymanager/internal/core"
	"moneymanager/internal/currency"
	"moneymanager/internal/ledger"
	"moneymanager/internal/log"
	"moneymanager/internal/scheduler"
	"moneymanager/internal/storage"
	"moneymanager/internal/transfer"
)

// ErrNoReportWriter is returned by ExportReport when no destination is set.
var ErrNoReportWriter = errors.New("no report destination configured")

// SeriesMonths is the length of the default chart window.
const SeriesMonths = 6

// Publisher receives an event after every committed mutation.
type Publisher interface {
	Publish(ctx context.Context, event *amqp.LedgerEvent) error
}

// ReportWriter renders a report somewhere outside the process.
type ReportWriter interface {
	WriteReport(ctx context.Context, report ledger.Report, code currency.Code) error
}

// LedgerService owns the ledger state: records, categories and settings.
// It persists through a Repository and announces changes to an optional
// Publisher.
type LedgerService struct {
	store     *ledger.Store
	repo      *storage.Repository
	publisher Publisher
	reports   ReportWriter
	clock     scheduler.Clock
	logger    *log.Logger

	strict          bool
	seedSample      bool
	defaultCurrency currency.Code
	defaultRefresh  time.Duration

	mu         sync.RWMutex
	categories core.Categories
	settings   storage.Settings
	loaded     bool
	lastSaved  time.Time
}

// Option configures a LedgerService.
type Option func(*LedgerService)

func WithPublisher(p Publisher) Option { return func(s *LedgerService) { s.publisher = p } }

func WithReportWriter(w ReportWriter) Option { return func(s *LedgerService) { s.reports = w } }

func WithClock(c scheduler.Clock) Option { return func(s *LedgerService) { s.clock = c } }

func WithLogger(l *log.Logger) Option { return func(s *LedgerService) { s.logger = l } }

// WithStrictCategories makes unknown category names a validation error.
func WithStrictCategories(strict bool) Option { return func(s *LedgerService) { s.strict = strict } }

// WithSampleData seeds the sample records when the first load finds an
// empty ledger.
func WithSampleData(seed bool) Option { return func(s *LedgerService) { s.seedSample = seed } }

// WithDefaultRefreshInterval is used until the user stores an interval.
// It is rounded down to whole minutes, at least one.
func WithDefaultRefreshInterval(d time.Duration) Option {
	return func(s *LedgerService) { s.defaultRefresh = max(time.Minute, d.Truncate(time.Minute)) }
}

// WithDefaultCurrency is used until the user picks one.
func WithDefaultCurrency(c currency.Code) Option {
	return func(s *LedgerService) { s.defaultCurrency = c }
}

func NewLedgerService(repo *storage.Repository, opts ...Option) *LedgerService {
	s := &LedgerService{
		repo:            repo,
		clock:           scheduler.RealClock{},
		defaultCurrency: currency.IDR,
		categories:      core.DefaultCategories(),
		settings:        storage.DefaultSettings(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.Discard()
	}
	s.logger = s.logger.WithComponent(log.ComponentLedger)

	storeOpts := []ledger.Option{ledger.WithSaver(repo), ledger.WithClock(s.clock.Now)}
	if s.strict {
		storeOpts = append(storeOpts, ledger.WithStrictCategories(s.categories))
	}
	s.store = ledger.NewStore(storeOpts...)
	return s
}

// Load reads records, categories and settings from storage, replacing what
// is in memory. The first load of an empty ledger seeds the sample records
// when enabled.
func (s *LedgerService) Load(ctx context.Context) error {
	txs, err := s.repo.LoadTransactions(ctx)
	if err != nil {
		return err
	}
	cats, err := s.repo.LoadCategories(ctx)
	if err != nil {
		return err
	}
	settings, err := s.repo.LoadSettings(ctx)
	if err != nil {
		return err
	}
	if _, ok, err := s.repo.KV().Get(ctx, storage.KeyCurrency); err == nil && !ok {
		settings.Currency = s.defaultCurrency
	}
	if _, ok, err := s.repo.KV().Get(ctx, storage.KeyRefreshInterval); err == nil && !ok && s.defaultRefresh > 0 {
		settings.RefreshInterval = s.defaultRefresh
	}

	s.store.Load(txs)
	s.store.SetCategories(cats)

	s.mu.Lock()
	s.categories = cats
	s.settings = settings
	first := !s.loaded
	s.loaded = true
	s.mu.Unlock()

	s.logger.DebugContext(ctx, "Ledger loaded", log.FieldCount, len(txs), log.FieldOperation, log.OpRead)

	if first && s.seedSample && len(txs) == 0 {
		if _, err := s.SeedSample(ctx); err != nil {
			return fmt.Errorf("seed sample data: %w", err)
		}
	}
	return nil
}

// Save writes the records and the category table.
func (s *LedgerService) Save(ctx context.Context) error {
	if err := s.store.Flush(ctx); err != nil {
		return err
	}
	if err := s.repo.SaveCategories(ctx, s.Categories()); err != nil {
		return err
	}
	s.mu.Lock()
	s.lastSaved = s.clock.Now()
	s.mu.Unlock()
	return nil
}

// LastSaved is when Save last succeeded.
func (s *LedgerService) LastSaved() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSaved
}

func (s *LedgerService) Add(ctx context.Context, e core.Entry) (core.Transaction, error) {
	tx, err := s.store.Add(ctx, e)
	if err != nil {
		return core.Transaction{}, err
	}
	s.logger.InfoContext(ctx, "Transaction added", log.NewFields().WithTransaction(tx).WithOperation(log.OpCreate).ToSlice()...)
	s.publish(ctx, amqp.EventCreated, tx.ID)
	return tx, nil
}

// Update replaces the editable fields of an existing record.
func (s *LedgerService) Update(ctx context.Context, id int64, p core.Patch) (core.Transaction, error) {
	tx, err := s.store.Update(ctx, id, p)
	if err != nil {
		return core.Transaction{}, err
	}
	s.logger.InfoContext(ctx, "Transaction updated", log.NewFields().WithTransaction(tx).WithOperation(log.OpUpdate).ToSlice()...)
	s.publish(ctx, amqp.EventUpdated, tx.ID)
	return tx, nil
}

// Delete removes id. Deleting an unknown id reports false and changes nothing.
func (s *LedgerService) Delete(ctx context.Context, id int64) (bool, error) {
	removed, err := s.store.Remove(ctx, id)
	if err != nil || !removed {
		return removed, err
	}
	s.logger.InfoContext(ctx, "Transaction deleted", log.FieldTxID, id, log.FieldOperation, log.OpDelete)
	s.publish(ctx, amqp.EventDeleted, id)
	return true, nil
}

func (s *LedgerService) Find(id int64) (core.Transaction, error) {
	return s.store.Find(id)
}

// Len is the number of stored records.
func (s *LedgerService) Len() int { return s.store.Len() }

// Transactions is a snapshot of every record in stored order.
func (s *LedgerService) Transactions() []core.Transaction { return s.store.All() }

// List filters, sorts by the saved sort order and paginates.
func (s *LedgerService) List(f ledger.Filter, page int) ledger.Page {
	return ledger.Query(s.store.All(), f, s.Settings().SortOrder, page)
}

// ListBy is List with an explicit order instead of the saved one.
func (s *LedgerService) ListBy(f ledger.Filter, order ledger.SortOrder, page int) ledger.Page {
	return ledger.Query(s.store.All(), f, order, page)
}

// Now is the service clock's current time.
func (s *LedgerService) Now() time.Time { return s.clock.Now() }

// Recent returns the first n records in stored order, newest added first.
func (s *LedgerService) Recent(n int) []core.Transaction {
	return ledger.Recent(s.store.All(), n)
}

func (s *LedgerService) Dashboard() ledger.Dashboard {
	return ledger.BuildDashboard(s.store.All(), s.clock.Now())
}

// Series covers the n months ending with the current one, six when n <= 0.
func (s *LedgerService) Series(n int) ledger.Series {
	if n <= 0 {
		n = SeriesMonths
	}
	return ledger.MonthlySeries(s.store.All(), s.clock.Now(), n)
}

// Breakdown sums expenses per category, largest first.
func (s *LedgerService) Breakdown() []ledger.CategoryTotal {
	return ledger.SortedBreakdown(ledger.CategoryBreakdown(s.store.All()), s.Categories())
}

func (s *LedgerService) Report(start, end core.Date) (ledger.Report, error) {
	return ledger.BuildReport(s.store.All(), start, end)
}

// ExportReport builds a report and hands it to the configured ReportWriter.
func (s *LedgerService) ExportReport(ctx context.Context, start, end core.Date) (ledger.Report, error) {
	if s.reports == nil {
		return ledger.Report{}, ErrNoReportWriter
	}
	r, err := s.Report(start, end)
	if err != nil {
		return ledger.Report{}, err
	}
	if err := s.reports.WriteReport(ctx, r, s.Settings().Currency); err != nil {
		return ledger.Report{}, fmt.Errorf("write report: %w", err)
	}
	return r, nil
}

func (s *LedgerService) Export() transfer.Document {
	return transfer.Export(s.store.All(), s.Categories(), s.clock.Now())
}

// Import replaces the ledger with doc. Categories are replaced only when the
// document carries them. Nothing changes when any record is invalid.
func (s *LedgerService) Import(ctx context.Context, doc transfer.Document) error {
	if doc.Categories != nil {
		if err := doc.Categories.Validate(); err != nil {
			return err
		}
	}
	// Categories are written first so a failed record save can put the
	// previous table back; the store rolls its own change back.
	if doc.Categories != nil {
		if err := s.repo.SaveCategories(ctx, doc.Categories); err != nil {
			return err
		}
	}
	if err := s.store.ReplaceAll(ctx, doc.Transactions); err != nil {
		if doc.Categories != nil {
			if restoreErr := s.repo.SaveCategories(ctx, s.Categories()); restoreErr != nil {
				return errors.Join(err, fmt.Errorf("restore categories: %w", restoreErr))
			}
		}
		return err
	}
	if doc.Categories != nil {
		s.store.SetCategories(doc.Categories)
		s.mu.Lock()
		s.categories = doc.Categories
		s.mu.Unlock()
	}
	n := len(doc.Transactions)
	s.logger.InfoContext(ctx, "Ledger imported", log.FieldCount, n, log.FieldOperation, log.OpImport)
	s.publishCount(ctx, amqp.EventImported, n)
	return nil
}

// Clear deletes every record. Categories and settings stay.
func (s *LedgerService) Clear(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Ledger cleared", log.FieldOperation, log.OpDelete)
	s.publishCount(ctx, amqp.EventCleared, 0)
	return nil
}

// SeedSample fills an empty ledger with five example records dated over the
// last four days. It reports false and does nothing when records exist.
func (s *LedgerService) SeedSample(ctx context.Context) (bool, error) {
	if s.store.Len() > 0 {
		return false, nil
	}
	if err := s.store.ReplaceAll(ctx, SampleTransactions(s.clock.Now())); err != nil {
		return false, err
	}
	s.logger.InfoContext(ctx, "Sample data added", log.FieldCount, s.store.Len())
	return true, nil
}

// SampleTransactions are the example records relative to now.
func SampleTransactions(now time.Time) []core.Transaction {
	today := core.DateOf(now)
	daysAgo := func(n int) core.Date { return core.DateOf(today.AddDate(0, 0, -n)) }
	created := now.UTC()
	rec := func(id int64, typ core.TxType, amount int64, cat string, date core.Date, desc string) core.Transaction {
		return core.Transaction{
			ID: id, Type: typ, Amount: decimal.NewFromInt(amount), Category: cat,
			Date: date, Description: desc, CreatedAt: created,
		}
	}
	return []core.Transaction{
		rec(1, core.Income, 5000000, "Gaji", today, "Gaji bulan Maret"),
		rec(2, core.Expense, 150000, "Makanan", today, "Makan siang dengan klien"),
		rec(3, core.Expense, 100000, "Transportasi", daysAgo(1), "Bensin mingguan"),
		rec(4, core.Income, 1000000, "Bonus", daysAgo(2), "Bonus project selesai"),
		rec(5, core.Expense, 350000, "Belanja", daysAgo(3), "Belanja bulanan"),
	}
}

func (s *LedgerService) Categories() core.Categories {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.categories
}

func (s *LedgerService) Settings() storage.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// UpdateSettings normalises and persists next, returning what was stored.
func (s *LedgerService) UpdateSettings(ctx context.Context, next storage.Settings) (storage.Settings, error) {
	next.Currency = currency.ParseCode(string(next.Currency))
	next.SortOrder = ledger.ParseSortOrder(string(next.SortOrder))
	next.UserName = strings.TrimSpace(next.UserName)
	if next.UserName == "" {
		next.UserName = storage.DefaultUserName
	}
	if next.RefreshInterval < time.Minute {
		next.RefreshInterval = storage.DefaultRefreshInterval
	}
	if err := s.repo.SaveSettings(ctx, next); err != nil {
		return s.Settings(), err
	}
	s.mu.Lock()
	s.settings = next
	s.mu.Unlock()
	return next, nil
}

// SetCurrency switches the display currency. Unknown codes fall back to IDR.
func (s *LedgerService) SetCurrency(ctx context.Context, code string) (currency.Code, error) {
	next := s.Settings()
	next.Currency = currency.ParseCode(code)
	saved, err := s.UpdateSettings(ctx, next)
	return saved.Currency, err
}

// SetSortOrder changes the list order. Unknown orders fall back to date-desc.
func (s *LedgerService) SetSortOrder(ctx context.Context, order string) (ledger.SortOrder, error) {
	next := s.Settings()
	next.SortOrder = ledger.ParseSortOrder(order)
	saved, err := s.UpdateSettings(ctx, next)
	return saved.SortOrder, err
}

// Logout forgets the user name.
func (s *LedgerService) Logout(ctx context.Context) error {
	if err := s.repo.Logout(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	s.settings.UserName = storage.DefaultUserName
	s.mu.Unlock()
	return nil
}

// Format renders amount in the selected currency.
func (s *LedgerService) Format(amount decimal.Decimal) string {
	return currency.Format(amount, s.Settings().Currency)
}

// FormatTransaction renders a record's amount with a +/- sign.
func (s *LedgerService) FormatTransaction(tx core.Transaction) string {
	return currency.Formatter{Code: s.Settings().Currency}.FormatSigned(tx.Amount, tx.IsIncome())
}

// DataSize is the footprint of the serialised records.
type DataSize struct {
	Bytes int    `json:"bytes"`
	Human string `json:"human"`
}

// DataSize measures the records as they would be stored.
func (s *LedgerService) DataSize() DataSize {
	raw, err := json.Marshal(s.store.All())
	if err != nil {
		return DataSize{}
	}
	return NewDataSize(len(raw))
}

// NewDataSize formats n bytes as KB with two decimals, or MB with three
// above one megabyte.
func NewDataSize(n int) DataSize {
	b := decimal.NewFromInt(int64(n))
	if n > 1024*1024 {
		return DataSize{Bytes: n, Human: b.Div(decimal.NewFromInt(1024*1024)).StringFixed(3) + " MB"}
	}
	return DataSize{Bytes: n, Human: b.Div(decimal.NewFromInt(1024)).StringFixed(2) + " KB"}
}

// BackupIfDue writes today's automatic backup when auto-export is on and no
// backup was made today. It reports whether one was written.
func (s *LedgerService) BackupIfDue(ctx context.Context) (bool, error) {
	settings := s.Settings()
	today := core.DateOf(s.clock.Now())
	if !settings.AutoExport || settings.LastExportDate.Compare(today) == 0 {
		return false, nil
	}

	payload, err := transfer.Marshal(transfer.Backup(s.store.All(), s.Categories(), s.clock.Now()))
	if err != nil {
		return false, err
	}
	if err := s.repo.SaveBackup(ctx, today, payload); err != nil {
		return false, err
	}
	if err := s.repo.MarkExported(ctx, today); err != nil {
		return false, err
	}
	s.mu.Lock()
	s.settings.LastExportDate = today
	s.mu.Unlock()
	return true, nil
}

// Backups lists stored automatic backups.
func (s *LedgerService) Backups(ctx context.Context) ([]storage.Backup, error) {
	return s.repo.ListBackups(ctx)
}

func (s *LedgerService) publish(ctx context.Context, kind amqp.EventKind, id int64) {
	s.emit(ctx, amqp.NewLedgerEvent(kind, id, s.store.Len()))
}

func (s *LedgerService) publishCount(ctx context.Context, kind amqp.EventKind, n int) {
	s.emit(ctx, amqp.NewLedgerEvent(kind, 0, n))
}

// emit never fails the caller; the mutation is already committed.
func (s *LedgerService) emit(ctx context.Context, event *amqp.LedgerEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish ledger event",
			"kind", event.Kind, log.FieldTxID, event.ID, log.FieldError, err)
	}
}

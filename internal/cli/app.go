package cli

import (
	"context"
	"errors"

	"moneymanager/internal/amqp"
	"moneymanager/internal/backend"
	"moneymanager/internal/config"
	"moneymanager/internal/currency"
	"moneymanager/internal/log"
	"moneymanager/internal/services"
	"moneymanager/internal/sheets/google"
	"moneymanager/internal/storage"
)

// amqpDialAttempts bounds connection retries at startup.
const amqpDialAttempts = 3

// App is the opened ledger every command runs against.
type App struct {
	Config  *config.Config
	Logger  *log.Logger
	Ledger  *services.LedgerService
	Backend *backend.Result

	publisher *amqp.Client
	confirm   func(question string) (bool, error)
}

// Open connects the configured backend and optional integrations, then
// loads the ledger. An unreachable broker or spreadsheet is logged and
// skipped.
func Open(ctx context.Context, cfg *config.Config, logger *log.Logger) (*App, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.Open(bcfg, logger)
	if err != nil {
		return nil, err
	}

	app := &App{Config: cfg, Logger: logger, Backend: res, confirm: promptYesNo}
	opts := []services.Option{
		services.WithLogger(logger),
		services.WithStrictCategories(cfg.StrictCategories),
		services.WithSampleData(cfg.SeedSampleData),
		services.WithDefaultCurrency(currency.ParseCode(cfg.Currency)),
		services.WithDefaultRefreshInterval(cfg.AutoRefreshInterval),
	}

	if cfg.AMQPURL != "" {
		client, err := amqp.DialWithRetry(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, amqpDialAttempts, logger)
		if err != nil {
			logger.WarnContext(ctx, "AMQP unavailable, ledger events will not be published", log.FieldError, err)
		} else {
			app.publisher = client
			opts = append(opts, services.WithPublisher(client))
		}
	}
	if cfg.GoogleSpreadsheetID != "" {
		writer, err := google.New(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleReportSheetName, logger)
		if err != nil {
			logger.WarnContext(ctx, "Google Sheets unavailable, reports stay local", log.FieldError, err)
		} else {
			opts = append(opts, services.WithReportWriter(writer))
		}
	}

	app.Ledger = services.NewLedgerService(storage.NewRepository(res.KV, logger), opts...)
	if err := app.Ledger.Load(ctx); err != nil {
		_ = app.Close()
		return nil, err
	}
	return app, nil
}

// Close releases the broker connection and the backend.
func (a *App) Close() error {
	var errs []error
	if a.publisher != nil {
		errs = append(errs, a.publisher.Close())
	}
	if a.Backend != nil && a.Backend.Cleanup != nil {
		errs = append(errs, a.Backend.Cleanup())
	}
	return errors.Join(errs...)
}

// Confirm asks question unless yes is already set.
func (a *App) Confirm(yes bool, question string) (bool, error) {
	if yes {
		return true, nil
	}
	return a.confirm(question)
}

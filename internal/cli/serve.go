package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/alecthomas/kong"
	"golang.org/x/sync/errgroup"

	apphttp "moneymanager/internal/http"
	"moneymanager/internal/ledger"
	"moneymanager/internal/log"
	"moneymanager/internal/services"
)

const shutdownTimeout = 10 * time.Second

type ServeCmd struct {
	Port string `short:"P" help:"Listen port. Overrides PORT."`
}

// Run serves the JSON API until ctx is cancelled. Auto-refresh, auto-save
// and the data file watcher run alongside the listener.
func (cmd *ServeCmd) Run(ctx context.Context, kctx *kong.Context, app *App) error {
	port := app.Config.Port
	if cmd.Port != "" {
		port = cmd.Port
	}
	logger := app.Logger.WithComponent(log.ComponentHTTP)

	var srv *apphttp.Server
	bg := services.NewBackground(app.Ledger, app.Logger,
		services.WithSaveInterval(app.Config.AutoSaveInterval),
		services.OnRefresh(func(ledger.Dashboard) { srv.Invalidate() }),
	)
	srv = apphttp.NewServer(":"+port, app.Ledger, app.Logger, apphttp.WithBackground(bg))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting server", "port", port, "backend", app.Config.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen on %s: %w", port, err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := bg.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		bg.Stop()
		return nil
	})
	if path := app.Backend.WatchPath; path != "" {
		w := services.NewWatcher(path, func(ctx context.Context) error {
			if err := app.Ledger.Load(ctx); err != nil {
				return err
			}
			srv.Invalidate()
			return nil
		}, app.Logger)
		g.Go(func() error { return w.Run(ctx) })
	}

	err := g.Wait()
	// A final save so nothing recorded since the last tick is lost.
	if saveErr := app.Ledger.Save(context.Background()); saveErr != nil {
		logger.Error("Final save failed", log.FieldError, saveErr)
		err = errors.Join(err, saveErr)
	}
	if err == nil {
		printInfof(kctx.Stdout, "Server stopped")
	}
	return err
}

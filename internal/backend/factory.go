package backend

import (
	"fmt"

	"moneymanager/internal/log"
	"moneymanager/internal/storage"
)

// CleanupFunc releases backend resources.
type CleanupFunc func() error

// Result is an opened backend.
type Result struct {
	KV      storage.KV
	Cleanup CleanupFunc
	// WatchPath is the file other processes may rewrite, empty when the
	// backend has nothing to watch.
	WatchPath string
}

// Open creates the key-value store selected by cfg.
func Open(cfg Config, logger *log.Logger) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentStorage)
	noop := func() error { return nil }

	switch cfg.Type {
	case SQLite:
		kv, err := storage.NewSQLiteKV(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
		}
		logger.Info("Using SQLite backend", "path", cfg.SQLiteDBPath)
		return &Result{KV: kv, Cleanup: kv.Close}, nil

	case File:
		kv, err := storage.NewFileKV(cfg.DataFile)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize file store: %w", err)
		}
		logger.Info("Using file backend", "path", cfg.DataFile)
		return &Result{KV: kv, Cleanup: noop, WatchPath: kv.Path()}, nil

	default:
		logger.Info("Using in-memory backend, data will not survive restarts")
		return &Result{KV: storage.NewMemoryKV(), Cleanup: noop}, nil
	}
}

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"calorie-tracker/internal/config"
	"calorie-tracker/internal/food"
	"calorie-tracker/internal/storage"

	"go.uber.org/zap"
)

// MigrateResult reports what MigrateStore copied.
type MigrateResult struct {
	Keys    []string
	Skipped []string
}

// MigrateStore copies the ledger keys from one store into another. Keys that
// already exist in the destination are left alone unless overwrite is set.
func MigrateStore(ctx context.Context, from, to storage.Store, overwrite bool, logger *zap.Logger) (MigrateResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var res MigrateResult
	for _, key := range []string{storage.KeyFoods, storage.KeyGoal} {
		data, ok, err := from.Load(ctx, key)
		if err != nil {
			return res, fmt.Errorf("failed to read %q from source store: %w", key, err)
		}
		if !ok {
			logger.Debug("key absent in source store", zap.String("key", key))
			continue
		}
		if !overwrite {
			if _, exists, err := to.Load(ctx, key); err != nil {
				return res, fmt.Errorf("failed to check %q in destination store: %w", key, err)
			} else if exists {
				logger.Info("key already present, skipping", zap.String("key", key))
				res.Skipped = append(res.Skipped, key)
				continue
			}
		}
		if err := to.Save(ctx, key, data); err != nil {
			return res, fmt.Errorf("failed to write %q to destination store: %w", key, err)
		}
		res.Keys = append(res.Keys, key)
	}
	return res, nil
}

// MigrateFileStore copies the file-backed ledger in data_dir into the SQLite
// store. It is a no-op when the file backend is already active.
func (a *App) MigrateFileStore(ctx context.Context, overwrite bool) (MigrateResult, error) {
	if a.cfg.StoreBackend == config.BackendFile {
		return MigrateResult{}, fmt.Errorf("store_backend is already %q", config.BackendFile)
	}
	from, err := storage.NewFileStore(a.cfg.DataDir)
	if err != nil {
		return MigrateResult{}, err
	}
	if !from.Exists(storage.KeyFoods) && !from.Exists(storage.KeyGoal) {
		a.logger.Info("no file store data to migrate", zap.String("data_dir", a.cfg.DataDir))
		return MigrateResult{}, nil
	}
	res, err := MigrateStore(ctx, from, a.store, overwrite, a.logger.Named("migrate"))
	if err != nil {
		return res, err
	}
	a.tracker.Load(ctx)
	return res, nil
}

// ImportEntries appends entries from a JSON array, such as a browser export
// of the ledger. All entries are validated before any is added.
func (a *App) ImportEntries(ctx context.Context, r io.Reader) ([]food.Entry, error) {
	var entries []food.Entry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("failed to decode entries: %w", err)
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return a.tracker.AddBatch(ctx, entries)
}

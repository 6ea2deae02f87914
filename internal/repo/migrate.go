package repo

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/pressly/goose/v3"
)

// applyMigrations runs the goose migrations stored under dir of filesystem.
func applyMigrations(ctx context.Context, dialect goose.Dialect, db *sql.DB, filesystem fs.FS, dir string, logger *slog.Logger) error {
	sub, err := fs.Sub(filesystem, dir)
	if err != nil {
		return fmt.Errorf("open migrations dir %s: %w", dir, err)
	}

	provider, err := goose.NewProvider(dialect, db, sub)
	if err != nil {
		return fmt.Errorf("init migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	for _, res := range results {
		logger.Info("migration applied", "version", res.Source.Version, "path", res.Source.Path, "duration", res.Duration)
	}
	return nil
}

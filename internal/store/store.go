// Package store persists normalized books into the libri table.
package store

import (
	"context"
	"errors"
	"fmt"

	"bookpipe/internal/config"
	"bookpipe/internal/logger"
	"bookpipe/internal/models"
)

// TableName is the table every backend writes to.
const TableName = "libri"

// Store errors.
var (
	// ErrDropped matches every error returned by Save when a book could
	// not be persisted and has been discarded.
	ErrDropped = errors.New("item dropped")
	// ErrClosed is returned when the store is used after Close.
	ErrClosed = errors.New("store is closed")
	// ErrUnknownDriver is returned by Open for an unsupported driver name.
	ErrUnknownDriver = errors.New("unknown storage driver")
)

// DropError carries the storage fault that caused a book to be dropped.
type DropError struct {
	Book models.Book
	Err  error
}

func (e *DropError) Error() string {
	return fmt.Sprintf("dropped %q: %v", e.Book.Title, e.Err)
}

// Unwrap exposes both ErrDropped and the underlying cause to errors.Is/As.
func (e *DropError) Unwrap() []error {
	return []error{ErrDropped, e.Err}
}

// Store appends books to the libri table, one row and one commit per call.
// Implementations serialize concurrent Save calls.
type Store interface {
	Save(ctx context.Context, book models.Book) error
	Close() error
}

// Open connects to the configured backend and creates the table if needed.
func Open(ctx context.Context, cfg config.StorageConfig, log *logger.Logger) (Store, error) {
	if log == nil {
		log = logger.Discard()
	}

	var (
		st  Store
		err error
	)

	switch cfg.Driver {
	case "", "sqlite":
		st, err = openSQLiteStore(ctx, cfg.DBPath, log)
	case "postgres":
		st, err = openPostgresStore(ctx, cfg.DSN, log)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, cfg.Driver)
	}

	if err != nil {
		return nil, err
	}

	return st, nil
}

func openSQLiteStore(ctx context.Context, path string, log *logger.Logger) (Store, error) {
	s, err := OpenSQLite(ctx, path, log)
	if err != nil {
		return nil, err
	}

	return s, nil
}

func openPostgresStore(ctx context.Context, dsn string, log *logger.Logger) (Store, error) {
	s, err := OpenPostgres(ctx, dsn, log)
	if err != nil {
		return nil, err
	}

	return s, nil
}

// row returns the insert arguments in column order.
func row(b models.Book) []any {
	return []any{
		b.Title,
		b.Price,
		b.Rating,
		b.ProductType,
		b.Category,
		b.ReviewCount,
		b.Availability,
	}
}

package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"bookpipe/internal/logger"
	"bookpipe/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// REAL is single precision in Postgres, so prices use DOUBLE PRECISION.
const postgresSchema = `
CREATE TABLE IF NOT EXISTS libri (
	title TEXT,
	price DOUBLE PRECISION,
	rating INTEGER,
	product_type TEXT,
	category TEXT,
	review_count INTEGER,
	availability INTEGER
)`

const postgresInsert = `
INSERT INTO libri
	(title, price, rating, product_type, category, review_count, availability)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

// PostgresStore writes to a Postgres database through a pgx pool.
type PostgresStore struct {
	pool   *pgxpool.Pool
	log    *logger.Logger
	mu     sync.Mutex
	closed bool
}

// OpenPostgres connects using dsn and creates the table if needed.
func OpenPostgres(ctx context.Context, dsn string, log *logger.Logger) (*PostgresStore, error) {
	if log == nil {
		log = logger.Discard()
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres dsn: %w", err)
	}

	cfg.MaxConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create table %s: %w", TableName, err)
	}

	log.Debug("postgres store ready", "host", cfg.ConnConfig.Host, "database", cfg.ConnConfig.Database)

	return &PostgresStore{pool: pool, log: log}, nil
}

// Save inserts one row in its own implicit transaction.
func (s *PostgresStore) Save(ctx context.Context, book models.Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	if _, err := s.pool.Exec(ctx, postgresInsert, row(book)...); err != nil {
		args := []any{"error", err, "title", book.Title}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			args = append(args, "sqlstate", pgErr.Code)
		}

		s.log.Error("postgres insert failed, dropping item", args...)

		return &DropError{Book: book, Err: err}
	}

	return nil
}

// Close shuts down the pool.
func (s *PostgresStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	s.closed = true
	s.pool.Close()

	return nil
}

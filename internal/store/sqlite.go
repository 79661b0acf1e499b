package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"bookpipe/internal/logger"
	"bookpipe/internal/models"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS libri (
	title TEXT,
	price REAL,
	rating INTEGER,
	product_type TEXT,
	category TEXT,
	review_count INTEGER,
	availability INTEGER
)`

const sqliteInsert = `
INSERT INTO libri
	(title, price, rating, product_type, category, review_count, availability)
VALUES (?, ?, ?, ?, ?, ?, ?)`

// SQLiteStore writes to a local SQLite file.
type SQLiteStore struct {
	db     *sql.DB
	insert *sql.Stmt
	log    *logger.Logger
	path   string
	mu     sync.Mutex
	closed bool
}

// OpenSQLite opens (creating if necessary) the database file at path.
func OpenSQLite(ctx context.Context, path string, log *logger.Logger) (*SQLiteStore, error) {
	if log == nil {
		log = logger.Discard()
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// one writer, one connection
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to sqlite database: %w", err)
	}

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table %s: %w", TableName, err)
	}

	stmt, err := db.PrepareContext(ctx, sqliteInsert)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare insert: %w", err)
	}

	log.Debug("sqlite store ready", "path", path)

	return &SQLiteStore{
		db:     db,
		insert: stmt,
		log:    log,
		path:   path,
	}, nil
}

// Save inserts one row. A failed insert leaves no row behind and is
// reported as a *DropError.
func (s *SQLiteStore) Save(ctx context.Context, book models.Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	if _, err := s.insert.ExecContext(ctx, row(book)...); err != nil {
		s.log.Error("sqlite insert failed, dropping item", "error", err, "title", book.Title, "path", s.path)
		return &DropError{Book: book, Err: err}
	}

	return nil
}

// Close releases the statement and the connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	s.closed = true

	stmtErr := s.insert.Close()
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close sqlite database: %w", err)
	}

	if stmtErr != nil {
		return fmt.Errorf("failed to close insert statement: %w", stmtErr)
	}

	return nil
}

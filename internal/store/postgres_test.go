package store

import (
	"context"
	"errors"
	"os"
	"testing"

	"bookpipe/internal/logger"
)

// Runs only against a disposable database named by BOOKPIPE_TEST_PG_DSN.
func TestPostgresStore_RoundTrip(t *testing.T) {
	dsn := os.Getenv("BOOKPIPE_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("BOOKPIPE_TEST_PG_DSN not set")
	}

	ctx := context.Background()

	s, err := OpenPostgres(ctx, dsn, logger.Discard())
	if err != nil {
		t.Fatalf("OpenPostgres failed: %v", err)
	}

	if _, err := s.pool.Exec(ctx, `TRUNCATE libri`); err != nil {
		t.Fatalf("truncate failed: %v", err)
	}

	if err := s.Save(ctx, attic); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	var count int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM libri WHERE title = $1 AND price = $2`, attic.Title, attic.Price).Scan(&count); err != nil {
		t.Fatalf("query failed: %v", err)
	}

	if count != 1 {
		t.Errorf("Expected 1 row, got %d", count)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if err := s.Save(ctx, attic); !errors.Is(err, ErrClosed) {
		t.Errorf("Save after Close = %v, want ErrClosed", err)
	}
}

func TestOpenPostgres_BadDSN(t *testing.T) {
	_, err := OpenPostgres(context.Background(), "not a dsn ::", logger.Discard())
	if err == nil {
		t.Fatal("Expected error for malformed dsn")
	}
}

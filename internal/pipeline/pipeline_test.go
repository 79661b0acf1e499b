package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"bookpipe/internal/logger"
	"bookpipe/internal/metrics"
	"bookpipe/internal/models"
	"bookpipe/internal/normalizer"
	"bookpipe/internal/store"
)

// memoryStore records saved books and fails for titles listed in reject.
type memoryStore struct {
	books  []models.Book
	reject map[string]bool
	closed bool
}

func (m *memoryStore) Save(_ context.Context, b models.Book) error {
	if m.closed {
		return store.ErrClosed
	}

	if m.reject[b.Title] {
		return &store.DropError{Book: b, Err: errors.New("disk I/O error")}
	}

	m.books = append(m.books, b)

	return nil
}

func (m *memoryStore) Close() error {
	m.closed = true
	return nil
}

func newTestPipeline(st store.Store) *Pipeline {
	return New(normalizer.NewProcessor(normalizer.DefaultExchangeRate, logger.Discard()), st, metrics.NewRegistry(), logger.Discard(), "test-run")
}

func TestPipeline_Process(t *testing.T) {
	st := &memoryStore{}
	p := newTestPipeline(st)

	book, err := p.Process(context.Background(), models.RawRecord{
		"title":        "Tipping the Velvet",
		"price":        "£53.74",
		"rating":       "One",
		"availability": "In stock (20 available)",
	})
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if book.Price != 62.34 || book.Rating != 1 || book.Availability != 20 {
		t.Errorf("unexpected book: %+v", book)
	}

	if len(st.books) != 1 || st.books[0] != book {
		t.Errorf("store holds %+v", st.books)
	}

	sum := p.Summary()
	if sum.Received != 1 || sum.Stored != 1 || sum.Dropped != 0 {
		t.Errorf("unexpected summary: %+v", sum)
	}

	key := DefaultKey{Field: models.FieldReviewCount, Reason: normalizer.ReasonMissing}
	if sum.Defaults[key] != 1 {
		t.Errorf("expected missing review_count to be counted, got %v", sum.Defaults)
	}
}

func TestPipeline_Process_Drop(t *testing.T) {
	st := &memoryStore{reject: map[string]bool{"Sharp Objects": true}}
	p := newTestPipeline(st)

	_, err := p.Process(context.Background(), models.RawRecord{"title": "Sharp Objects"})
	if !errors.Is(err, store.ErrDropped) {
		t.Fatalf("expected drop, got %v", err)
	}

	sum := p.Summary()
	if sum.Dropped != 1 || sum.Stored != 0 {
		t.Errorf("unexpected summary: %+v", sum)
	}
}

func TestPipeline_Process_ClosedStoreIsFatal(t *testing.T) {
	st := &memoryStore{}
	st.Close()

	p := newTestPipeline(st)

	_, err := p.Process(context.Background(), models.RawRecord{"title": "Olio"})
	if !errors.Is(err, store.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}

	if errors.Is(err, store.ErrDropped) {
		t.Error("lifecycle misuse must not be reported as a drop")
	}
}

func TestPipeline_Process_Canceled(t *testing.T) {
	st := &memoryStore{}
	p := newTestPipeline(st)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := p.Process(ctx, models.RawRecord{"title": "Olio"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	if len(st.books) != 0 {
		t.Error("nothing should be stored after cancel")
	}
}

func TestPipeline_Run_JSONLines(t *testing.T) {
	st := &memoryStore{reject: map[string]bool{"Rejected": true}}
	p := newTestPipeline(st)

	feed := strings.Join([]string{
		`{"title": "A Light in the Attic", "price": "£51.77", "rating": "Three", "review_count": "0", "product_type": "Books", "category": "Poetry", "availability": "In stock (22 available)"}`,
		``,
		`not json`,
		`null`,
		`{"title": "Rejected", "price": "£10.00"}`,
		`{"title": "Soumission", "price": "garbage", "rating": "Excellent"}`,
	}, "\n")

	sum, err := p.Run(context.Background(), strings.NewReader(feed))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if sum.Received != 3 || sum.Stored != 2 || sum.Dropped != 1 || sum.Invalid != 2 {
		t.Errorf("unexpected summary: %+v", sum)
	}

	if st.books[0].Price != 60.05 || st.books[1].Price != 0 {
		t.Errorf("unexpected books: %+v", st.books)
	}

	if sum.RunID != "test-run" {
		t.Errorf("RunID = %q", sum.RunID)
	}
}

func TestPipeline_Run_JSONArray(t *testing.T) {
	st := &memoryStore{}
	p := newTestPipeline(st)

	feed := `
[
  {"title": "Sapiens", "rating": "Five", "review_count": 17},
  42,
  {"title": "Olio", "availability": "In stock"}
]`

	sum, err := p.Run(context.Background(), strings.NewReader(feed))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if sum.Stored != 2 || sum.Invalid != 1 {
		t.Errorf("unexpected summary: %+v", sum)
	}

	if st.books[0].ReviewCount != 17 || st.books[0].Rating != 5 {
		t.Errorf("unexpected first book: %+v", st.books[0])
	}
}

func TestPipeline_Run_TruncatedArray(t *testing.T) {
	p := newTestPipeline(&memoryStore{})

	_, err := p.Run(context.Background(), strings.NewReader(`[{"title": "a"}, {"title": `))
	if !errors.Is(err, ErrInvalidFeed) {
		t.Fatalf("expected ErrInvalidFeed, got %v", err)
	}
}

func TestPipeline_Run_Empty(t *testing.T) {
	p := newTestPipeline(&memoryStore{})

	sum, err := p.Run(context.Background(), strings.NewReader("  \n"))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if sum.Received != 0 {
		t.Errorf("unexpected summary: %+v", sum)
	}
}

func TestPipeline_Run_StopsOnClosedStore(t *testing.T) {
	st := &memoryStore{}
	st.Close()

	p := newTestPipeline(st)

	_, err := p.Run(context.Background(), strings.NewReader("{\"title\": \"a\"}\n{\"title\": \"b\"}\n"))
	if !errors.Is(err, store.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}

	if got := p.Summary().Received; got != 1 {
		t.Errorf("run should stop at the first fatal error, received %d", got)
	}
}

func TestPipeline_Run_SQLite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "DB_libri.db")

	st, err := store.OpenSQLite(ctx, path, logger.Discard())
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	defer st.Close()

	p := newTestPipeline(st)

	var feed strings.Builder
	for i := 1; i <= 5; i++ {
		fmt.Fprintf(&feed, "{\"title\": \"Book %d\", \"price\": \"£%d.00\", \"rating\": \"Two\"}\n", i, i)
	}

	sum, err := p.Run(ctx, strings.NewReader(feed.String()))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if sum.Stored != 5 || sum.Dropped != 0 {
		t.Errorf("unexpected summary: %+v", sum)
	}
}

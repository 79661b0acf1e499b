package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRun_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "items.jl")
	db := filepath.Join(dir, "out", "DB_libri.db")

	feed := `{"title": "A Light in the Attic", "price": "£51.77", "rating": "Three", "review_count": "0", "product_type": "Books", "category": "Poetry", "availability": "In stock (22 available)"}
{"title": "Soumission", "price": "garbage"}
`
	if err := os.WriteFile(input, []byte(feed), 0644); err != nil {
		t.Fatalf("failed to write feed: %v", err)
	}

	var out bytes.Buffer

	code := run([]string{"-input", input, "-db", db, "-env", filepath.Join(dir, "none.env")}, strings.NewReader(""), &out)
	if code != 0 {
		t.Fatalf("run exited with %d, output:\n%s", code, out.String())
	}

	if !strings.Contains(out.String(), "| stored   | 2     |") {
		t.Errorf("unexpected report:\n%s", out.String())
	}

	if _, err := os.Stat(db); err != nil {
		t.Errorf("database not created: %v", err)
	}
}

func TestRun_Stdin(t *testing.T) {
	dir := t.TempDir()

	var out bytes.Buffer

	code := run([]string{"-db", filepath.Join(dir, "b.db"), "-rate", "2", "-env", filepath.Join(dir, "none.env")},
		strings.NewReader(`[{"title": "Olio", "price": "£1.50"}]`), &out)
	if code != 0 {
		t.Fatalf("run exited with %d", code)
	}

	if !strings.Contains(out.String(), "| received | 1     |") {
		t.Errorf("unexpected report:\n%s", out.String())
	}
}

func TestRun_BadConfig(t *testing.T) {
	dir := t.TempDir()

	code := run([]string{"-config", filepath.Join(dir, "missing.yaml"), "-env", filepath.Join(dir, "none.env")}, strings.NewReader(""), &bytes.Buffer{})
	if code != 1 {
		t.Errorf("expected exit code 1, got %d", code)
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	cfg, err := loadConfig("", "custom.db", 1.3)
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}

	if cfg.Storage.DBPath != "custom.db" || cfg.Normalizer.ExchangeRate != 1.3 {
		t.Errorf("overrides not applied: %s", cfg)
	}

	if _, err := loadConfig("", "", -1); err == nil {
		t.Error("expected validation error for negative rate")
	}
}

// Package pipeline runs each crawled item through normalization and storage.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bookpipe/internal/logger"
	"bookpipe/internal/metrics"
	"bookpipe/internal/models"
	"bookpipe/internal/normalizer"
	"bookpipe/internal/store"
)

// DefaultKey identifies a defaulted field and why.
type DefaultKey struct {
	Field  string
	Reason normalizer.DefaultReason
}

// Summary counts what happened to the items of one run.
type Summary struct {
	Defaults map[DefaultKey]int
	RunID    string
	Duration time.Duration
	Received int
	Stored   int
	Dropped  int
	Invalid  int
}

// Pipeline normalizes and stores items one at a time. It is not safe for
// concurrent use.
type Pipeline struct {
	processor *normalizer.Processor
	store     store.Store
	metrics   *metrics.Registry
	log       *logger.Logger
	summary   Summary
	started   time.Time
}

// New wires a pipeline. The store stays owned by the caller, who must close it.
func New(processor *normalizer.Processor, st store.Store, reg *metrics.Registry, log *logger.Logger, runID string) *Pipeline {
	if log == nil {
		log = logger.Discard()
	}

	if reg == nil {
		reg = metrics.NewRegistry()
	}

	return &Pipeline{
		processor: processor,
		store:     st,
		metrics:   reg,
		log:       log,
		summary: Summary{
			RunID:    runID,
			Defaults: make(map[DefaultKey]int),
		},
		started: time.Now(),
	}
}

// Process normalizes raw and saves the result. A storage failure returns
// an error matching store.ErrDropped; any other error is fatal for the run.
func (p *Pipeline) Process(ctx context.Context, raw models.RawRecord) (models.Book, error) {
	if err := ctx.Err(); err != nil {
		return models.Book{}, err
	}

	p.summary.Received++
	p.metrics.Received.Inc()

	book, rep := p.processor.Process(raw)
	for _, d := range rep.Defaults {
		p.summary.Defaults[DefaultKey{Field: d.Field, Reason: d.Reason}]++
		p.metrics.FieldDefaults.WithLabelValues(d.Field, string(d.Reason)).Inc()
	}

	start := time.Now()
	err := p.store.Save(ctx, book)
	p.metrics.StoreLatency.Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		p.summary.Stored++
		p.metrics.Stored.Inc()

		return book, nil
	case errors.Is(err, store.ErrDropped):
		p.summary.Dropped++
		p.metrics.Dropped.Inc()
		p.log.Warn("item dropped", "title", book.Title)

		return book, err
	default:
		return book, fmt.Errorf("store failed: %w", err)
	}
}

// Summary returns the counters accumulated so far.
func (p *Pipeline) Summary() Summary {
	s := p.summary
	s.Duration = time.Since(p.started)

	s.Defaults = make(map[DefaultKey]int, len(p.summary.Defaults))
	for k, v := range p.summary.Defaults {
		s.Defaults[k] = v
	}

	return s
}

func (p *Pipeline) markInvalid(where string, err error) {
	p.summary.Invalid++
	p.metrics.Invalid.Inc()
	p.log.Warn("skipping undecodable item", "at", where, "error", err)
}

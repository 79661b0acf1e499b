// Package normalizer cleans and type-converts raw book items scraped by the crawler.
package normalizer

import (
	"bookpipe/internal/logger"
	"bookpipe/internal/models"
)

const maxLoggedTitle = 80

// Processor turns raw items into typed books. It never fails: malformed
// fields are replaced by their defaults and reported.
type Processor struct {
	transformer *Transformer
	log         *logger.Logger
}

// NewProcessor creates a processor. A non-positive rate selects DefaultExchangeRate.
func NewProcessor(rate float64, log *logger.Logger) *Processor {
	if rate <= 0 {
		rate = DefaultExchangeRate
	}

	if log == nil {
		log = logger.Discard()
	}

	return &Processor{
		transformer: NewTransformer(rate),
		log:         log,
	}
}

// Process normalizes one raw item.
func (p *Processor) Process(raw models.RawRecord) (models.Book, Report) {
	var rep Report

	t := p.transformer
	book := models.Book{
		Title:        note(&rep, models.FieldTitle, t.Title(raw)),
		Price:        note(&rep, models.FieldPrice, t.Price(raw)),
		Rating:       note(&rep, models.FieldRating, t.Rating(raw)),
		ReviewCount:  note(&rep, models.FieldReviewCount, t.ReviewCount(raw)),
		ProductType:  note(&rep, models.FieldProductType, t.Folded(raw, models.FieldProductType)),
		Category:     note(&rep, models.FieldCategory, t.Folded(raw, models.FieldCategory)),
		Availability: note(&rep, models.FieldAvailability, t.Availability(raw)),
	}

	title := t.text.TruncateString(book.Title, maxLoggedTitle)

	for _, d := range rep.Defaults {
		if d.Reason == ReasonMissing {
			p.log.Debug("field missing, using default", "field", d.Field, "title", title)

			continue
		}

		p.log.Warn("could not convert field, using default",
			"field", d.Field,
			"reason", string(d.Reason),
			"input", d.Input,
			"title", title,
		)
	}

	return book, rep
}

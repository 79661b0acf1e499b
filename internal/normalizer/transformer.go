package normalizer

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"bookpipe/internal/models"
	"bookpipe/pkg/utils"
)

// DefaultExchangeRate converts pounds sterling to euro.
const DefaultExchangeRate = 1.16

// ratingWords maps the star-rating class names used on listing pages.
var ratingWords = map[string]int{
	"zero":  0,
	"one":   1,
	"two":   2,
	"three": 3,
	"four":  4,
	"five":  5,
}

// Transformer holds the per-field conversion rules.
type Transformer struct {
	validator    *Validator
	text         *utils.StringHelper
	exchangeRate float64
}

// NewTransformer creates a transformer that converts prices with rate.
func NewTransformer(rate float64) *Transformer {
	return &Transformer{
		validator:    NewValidator(),
		text:         utils.NewStringHelper(),
		exchangeRate: rate,
	}
}

// Title passes the title through untouched.
func (t *Transformer) Title(raw models.RawRecord) FieldResult[string] {
	s, reason := t.validator.Text(raw, models.FieldTitle)
	if reason != ReasonNone {
		return defaulted("", reason, s)
	}

	return parsed(s)
}

// Folded trims and lowercases a free-text field such as category.
func (t *Transformer) Folded(raw models.RawRecord, key string) FieldResult[string] {
	s, reason := t.validator.Text(raw, key)
	if reason != ReasonNone {
		return defaulted("", reason, s)
	}

	return parsed(t.text.FoldCase(s))
}

// Price strips the currency symbol, converts with the exchange rate and
// rounds to cents.
func (t *Transformer) Price(raw models.RawRecord) FieldResult[float64] {
	s, reason := t.validator.Text(raw, models.FieldPrice)
	if reason != ReasonNone {
		return defaulted(0.0, reason, s)
	}

	if s == "" {
		return defaulted(0.0, ReasonMissing, s)
	}

	amount, err := strconv.ParseFloat(t.text.KeepDecimal(s), 64)
	if err != nil {
		return defaulted(0.0, ReasonMalformed, s)
	}

	return parsed(roundCents(amount * t.exchangeRate))
}

// Availability extracts the stock count from text like "In stock (22 available)".
func (t *Transformer) Availability(raw models.RawRecord) FieldResult[int] {
	s, reason := t.validator.Text(raw, models.FieldAvailability)
	if reason != ReasonNone {
		return defaulted(0, reason, s)
	}

	_, rest, found := strings.Cut(s, "(")
	if !found {
		return defaulted(0, ReasonMissing, s)
	}

	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return defaulted(0, ReasonMalformed, s)
	}

	n, err := strconv.Atoi(fields[0])
	if err != nil {
		return defaulted(0, ReasonMalformed, s)
	}

	if n < 0 {
		return defaulted(0, ReasonOutOfRange, s)
	}

	return parsed(n)
}

// Rating maps the word form of a star rating to 0..5.
func (t *Transformer) Rating(raw models.RawRecord) FieldResult[int] {
	s, reason := t.validator.Text(raw, models.FieldRating)
	if reason != ReasonNone {
		return defaulted(0, reason, s)
	}

	word := t.text.FoldCase(s)
	if word == "" {
		return defaulted(0, ReasonMissing, s)
	}

	n, ok := ratingWords[word]
	if !ok {
		return defaulted(0, ReasonMalformed, s)
	}

	return parsed(n)
}

// ReviewCount parses the number of reviews. Numeric JSON values are
// truncated toward zero.
func (t *Transformer) ReviewCount(raw models.RawRecord) FieldResult[int] {
	val, ok := raw.Lookup(models.FieldReviewCount)
	if !ok {
		return defaulted(0, ReasonMissing, "")
	}

	var n int

	switch v := val.(type) {
	case string:
		digits := t.text.FoldCase(v)
		if digits == "" {
			return defaulted(0, ReasonMissing, v)
		}

		parsedInt, err := strconv.Atoi(digits)
		if err != nil {
			return defaulted(0, ReasonMalformed, v)
		}

		n = parsedInt
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) > math.MaxInt32 {
			return defaulted(0, ReasonMalformed, describe(v))
		}

		n = int(v)
	case int:
		n = v
	case int64:
		n = int(v)
	case json.Number:
		parsedInt, err := strconv.Atoi(v.String())
		if err != nil {
			f, ferr := v.Float64()
			if ferr != nil || math.Abs(f) > math.MaxInt32 {
				return defaulted(0, ReasonMalformed, v.String())
			}

			parsedInt = int(f)
		}

		n = parsedInt
	default:
		return defaulted(0, ReasonWrongType, describe(v))
	}

	if n < 0 {
		return defaulted(0, ReasonOutOfRange, describe(val))
	}

	return parsed(n)
}

// roundCents rounds to two decimals using the shortest correctly rounded
// decimal representation, so 60.0532 becomes 60.05.
func roundCents(v float64) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 2, 64), 64)
	if err != nil {
		return 0
	}

	return r
}

package normalizer

// DefaultReason explains why a field fell back to its default value.
type DefaultReason string

// Reasons a field may be defaulted.
const (
	ReasonNone       DefaultReason = ""
	ReasonMissing    DefaultReason = "missing"
	ReasonWrongType  DefaultReason = "wrong_type"
	ReasonMalformed  DefaultReason = "malformed"
	ReasonOutOfRange DefaultReason = "out_of_range"
)

// FieldResult is the outcome of normalizing a single field: either a parsed
// value or a default together with the reason it was substituted.
type FieldResult[T any] struct {
	Value     T
	Defaulted bool
	Reason    DefaultReason
	Input     string
}

func parsed[T any](v T) FieldResult[T] {
	return FieldResult[T]{Value: v}
}

func defaulted[T any](v T, reason DefaultReason, input string) FieldResult[T] {
	return FieldResult[T]{Value: v, Defaulted: true, Reason: reason, Input: input}
}

// Default records one defaulted field of a record.
type Default struct {
	Field  string
	Reason DefaultReason
	Input  string
}

// Report lists the fields of one record that were defaulted.
type Report struct {
	Defaults []Default
}

// Clean reports whether every field parsed from its input.
func (r Report) Clean() bool {
	return len(r.Defaults) == 0
}

// Has reports whether field was defaulted.
func (r Report) Has(field string) bool {
	for _, d := range r.Defaults {
		if d.Field == field {
			return true
		}
	}

	return false
}

func note[T any](r *Report, field string, res FieldResult[T]) T {
	if res.Defaulted {
		r.Defaults = append(r.Defaults, Default{Field: field, Reason: res.Reason, Input: res.Input})
	}

	return res.Value
}

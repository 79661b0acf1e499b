package normalizer

import (
	"fmt"

	"bookpipe/internal/models"
)

// Validator inspects raw item values before they are converted.
type Validator struct{}

// NewValidator creates a new validator instance.
func NewValidator() *Validator {
	return &Validator{}
}

// Text returns the string stored under key. Absent and nil values report
// ReasonMissing, anything that is not a string reports ReasonWrongType.
func (v *Validator) Text(raw models.RawRecord, key string) (string, DefaultReason) {
	val, ok := raw.Lookup(key)
	if !ok {
		return "", ReasonMissing
	}

	s, ok := val.(string)
	if !ok {
		return describe(val), ReasonWrongType
	}

	return s, ReasonNone
}

// describe renders an arbitrary raw value for log output.
func describe(v any) string {
	if v == nil {
		return ""
	}

	return fmt.Sprintf("%v", v)
}

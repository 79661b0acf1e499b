package models

// Raw item field names as emitted by the book spider.
const (
	FieldTitle        = "title"
	FieldPrice        = "price"
	FieldRating       = "rating"
	FieldReviewCount  = "review_count"
	FieldProductType  = "product_type"
	FieldCategory     = "category"
	FieldAvailability = "availability"
)

// RawRecord is one unvalidated item produced by the crawler for a single page.
// Values are usually strings but may be missing, nil, or any JSON type.
type RawRecord map[string]any

// Lookup returns the raw value for key and whether it is present and non-nil.
func (r RawRecord) Lookup(key string) (any, bool) {
	v, ok := r[key]
	if !ok || v == nil {
		return nil, false
	}

	return v, true
}

// Book is a fully typed, default-completed listing ready for persistence.
type Book struct {
	Title        string  `json:"title"`
	Price        float64 `json:"price"`
	Rating       int     `json:"rating"`
	ReviewCount  int     `json:"review_count"`
	ProductType  string  `json:"product_type"`
	Category     string  `json:"category"`
	Availability int     `json:"availability"`
}

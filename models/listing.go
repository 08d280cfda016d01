package models

import "time"

// ListingSpec is the structured description of a listing, either the target
// property or a scraped candidate. Unknown numeric attributes are nil.
type ListingSpec struct {
	URL          string
	Title        string
	Location     string
	Accommodates *int
	Bedrooms     *int
	Beds         *int
	Baths        *float64
	PropertyType string
	Amenities    []string
	Rating       *float64
	Reviews      *int
	NightlyPrice *float64 // nil for the target
	Currency     string
}

// HasPrice reports whether the spec carries a positive nightly price.
func (l *ListingSpec) HasPrice() bool {
	return l.NightlyPrice != nil && *l.NightlyPrice > 0
}

// Card is the raw search-result card returned by the page renderer
type Card struct {
	RoomID    string   `json:"room_id"`
	URL       string   `json:"url"`
	Title     string   `json:"title"`
	Text      string   `json:"text"`
	PriceText string   `json:"price_text"`
	Rating    *float64 `json:"rating"`
	Reviews   *int     `json:"reviews"`
}

// SearchQuery describes a marketplace search results page
type SearchQuery struct {
	Origin    string
	Location  string
	Checkin   time.Time
	Checkout  time.Time
	Adults    int
	MaxRounds int
	MaxCards  int
}

// Comparable is the public view of a comparable listing used for pricing
type Comparable struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	PropertyType string   `json:"propertyType"`
	Accommodates int      `json:"accommodates"`
	Bedrooms     int      `json:"bedrooms"`
	Baths        float64  `json:"baths"`
	NightlyPrice float64  `json:"nightlyPrice"`
	Currency     string   `json:"currency"`
	Similarity   float64  `json:"similarity"`
	Rating       *float64 `json:"rating"`
	Reviews      *int     `json:"reviews"`
	Location     string   `json:"location,omitempty"`
	URL          string   `json:"url,omitempty"`
}

// IntPtr and FloatPtr are small helpers for optional attributes.
func IntPtr(v int) *int { return &v }

func FloatPtr(v float64) *float64 { return &v }

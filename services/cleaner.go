package services

import (
	"regexp"
	"strconv"
	"strings"

	"airbnb-pricer/models"

	"github.com/sirupsen/logrus"
)

var (
	priceRegex   = regexp.MustCompile(`\$?([\d,]+(?:\.\d{1,2})?)`)
	nightsRegex  = regexp.MustCompile(`(?i)for\s+(\d+)\s+night`)
	ratingRegex  = regexp.MustCompile(`([1-5]\.\d{1,2})`)
	guestRegex   = regexp.MustCompile(`(?i)(\d+)\s*(?:guests?\b|位|人)`)
	bedroomRegex = regexp.MustCompile(`(?i)(\d+)\s*(?:bedrooms?\b|間臥室|卧室)`)
	bedRegex     = regexp.MustCompile(`(?i)(\d+)\s*(?:beds?\b|張床|床)`)
	bathRegex    = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:(?:private |shared )?baths?\b|bathrooms?\b|衛浴|浴室|衛生間|卫生间)`)
	roomIDRegex  = regexp.MustCompile(`/rooms/(\d+)`)

	titleLocationRegex = regexp.MustCompile(`\bin\s+([A-Z][a-zA-Z\s,]+(?:,\s*[A-Z][a-zA-Z\s]+)?)`)
	titleSplitRegex    = regexp.MustCompile(`[-|•·]`)
)

// Normalized property types
const (
	TypeEntireHome  = "entire_home"
	TypePrivateRoom = "private_room"
	TypeSharedRoom  = "shared_room"
)

var propertyTypeHints = []struct {
	key   string
	hints []string
}{
	{TypeEntireHome, []string{"entire home", "entire place", "entire rental unit", "entire condo", "entire townhouse", "entire guest suite", "entire cabin", "entire villa", "整套"}},
	{TypePrivateRoom, []string{"private room", "獨立房間"}},
	{TypeSharedRoom, []string{"shared room", "合住房間"}},
}

var amenityHints = []struct {
	code    string
	pattern *regexp.Regexp
}{
	{"wifi", regexp.MustCompile(`(?i)\bwi-?fi\b`)},
	{"kitchen", regexp.MustCompile(`(?i)\bkitchen\b`)},
	{"washer", regexp.MustCompile(`(?i)\b(?:washer|washing machine|laundry)\b`)},
	{"dryer", regexp.MustCompile(`(?i)\bdryer\b`)},
	{"ac", regexp.MustCompile(`(?i)(?:\bair conditioning\b|\ba/c\b|\bac\b)`)},
	{"heating", regexp.MustCompile(`(?i)\b(?:heating|heater)\b`)},
	{"pool", regexp.MustCompile(`(?i)\bpool\b`)},
	{"hot_tub", regexp.MustCompile(`(?i)\b(?:hot tub|jacuzzi)\b`)},
	{"free_parking", regexp.MustCompile(`(?i)\b(?:free parking|parking on premises)\b`)},
	{"gym", regexp.MustCompile(`(?i)\b(?:gym|fitness)\b`)},
	{"bbq", regexp.MustCompile(`(?i)\b(?:bbq|barbecue|grill)\b`)},
	{"fire_pit", regexp.MustCompile(`(?i)\bfire pit\b`)},
}

// DataCleaner normalizes raw search cards into ListingSpecs
type DataCleaner struct {
	logger logrus.FieldLogger
}

// NewDataCleaner creates a new DataCleaner
func NewDataCleaner(logger logrus.FieldLogger) *DataCleaner {
	return &DataCleaner{logger: logger.WithField("component", "cleaner")}
}

// CardToSpec converts one raw card into a ListingSpec
func (c *DataCleaner) CardToSpec(card models.Card) models.ListingSpec {
	text := CleanText(card.Text)
	spec := models.ListingSpec{
		URL:          strings.TrimSpace(card.URL),
		Title:        CleanText(card.Title),
		Accommodates: ExtractFirstInt(text, guestRegex),
		Bedrooms:     ExtractFirstInt(text, bedroomRegex),
		Beds:         ExtractFirstInt(text, bedRegex),
		Baths:        ExtractFirstFloat(text, bathRegex),
		PropertyType: NormalizePropertyType(text),
		Amenities:    ExtractAmenities(text),
		Rating:       card.Rating,
		Reviews:      card.Reviews,
		Currency:     "USD",
	}
	if spec.Rating == nil {
		spec.Rating = ParseRating(ratingSnippet(text))
	}
	if price := ParsePrice(CleanText(card.PriceText)); price > 0 {
		spec.NightlyPrice = &price
	}
	return spec
}

// PricedSpecs converts cards and drops those without a URL or a positive price
func (c *DataCleaner) PricedSpecs(cards []models.Card) []models.ListingSpec {
	out := make([]models.ListingSpec, 0, len(cards))
	for _, card := range cards {
		spec := c.CardToSpec(card)
		if spec.URL == "" || !spec.HasPrice() {
			continue
		}
		out = append(out, spec)
	}
	c.logger.Debugf("Kept %d priced listings from %d cards", len(out), len(cards))
	return out
}

// ParsePrice extracts a per-night price from strings like "$71 for 2 nights"
func ParsePrice(raw string) float64 {
	if raw == "" {
		return 0
	}
	cleaned := strings.ReplaceAll(raw, ",", "")

	matches := priceRegex.FindStringSubmatch(cleaned)
	if len(matches) < 2 {
		return 0
	}
	val, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0
	}

	// Totals for multi-night stays are divided down to a nightly rate
	if m := nightsRegex.FindStringSubmatch(cleaned); len(m) >= 2 {
		nights, err := strconv.ParseFloat(m[1], 64)
		if err == nil && nights > 0 {
			return val / nights
		}
	}
	return val
}

// ratingSnippet returns the part of a card's text that carries its
// rating, so bath counts like "2.5 baths" are never read as one.
func ratingSnippet(text string) string {
	if i := strings.Index(text, "★"); i != -1 {
		return text[i:]
	}
	if i := strings.Index(strings.ToLower(text), "out of 5"); i != -1 {
		return text[max(0, i-8):i]
	}
	return ""
}

// ParseRating extracts a rating from strings like "4.82 out of 5 average rating"
func ParseRating(raw string) *float64 {
	matches := ratingRegex.FindStringSubmatch(raw)
	if len(matches) < 2 {
		return nil
	}
	val, err := strconv.ParseFloat(matches[1], 64)
	if err != nil || val < 2.5 || val > 5 {
		return nil
	}
	return &val
}

// NormalizePropertyType maps free text onto a normalized property type
func NormalizePropertyType(text string) string {
	t := strings.ToLower(text)
	for _, pt := range propertyTypeHints {
		for _, h := range pt.hints {
			if strings.Contains(t, h) {
				return pt.key
			}
		}
	}
	return ""
}

// ExtractAmenities returns amenity codes mentioned in text
func ExtractAmenities(text string) []string {
	var out []string
	for _, a := range amenityHints {
		if a.pattern.MatchString(text) {
			out = append(out, a.code)
		}
	}
	return out
}

// ExtractFirstInt returns the first integer captured by re, or nil
func ExtractFirstInt(text string, re *regexp.Regexp) *int {
	m := re.FindStringSubmatch(text)
	if len(m) < 2 {
		return nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return &n
}

// ExtractFirstFloat returns the first number captured by re, or nil
func ExtractFirstFloat(text string, re *regexp.Regexp) *float64 {
	m := re.FindStringSubmatch(text)
	if len(m) < 2 {
		return nil
	}
	f, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil
	}
	return &f
}

// Capacity attributes of free listing text
func ExtractGuests(text string) *int    { return ExtractFirstInt(text, guestRegex) }
func ExtractBedrooms(text string) *int  { return ExtractFirstInt(text, bedroomRegex) }
func ExtractBeds(text string) *int      { return ExtractFirstInt(text, bedRegex) }
func ExtractBaths(text string) *float64 { return ExtractFirstFloat(text, bathRegex) }

// RoomID returns the numeric room id of a listing URL, or "" if absent
func RoomID(url string) string {
	if m := roomIDRegex.FindStringSubmatch(url); len(m) == 2 {
		return m[1]
	}
	return ""
}

// LocationFromTitle guesses a search location from a listing title, first
// from an "... in City, State" phrase, then from the last delimited token.
func LocationFromTitle(title string) string {
	if m := titleLocationRegex.FindStringSubmatch(title); len(m) == 2 {
		return strings.TrimRight(strings.TrimSpace(m[1]), ",.")
	}
	var last string
	for _, tok := range titleSplitRegex.Split(title, -1) {
		if tok = strings.TrimSpace(tok); len([]rune(tok)) >= 3 {
			last = tok
		}
	}
	return last
}

// CleanText replaces non-breaking spaces and trims
func CleanText(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\u00a0", " "))
}

// CleanLocation strips trailing rating and capacity noise such as
// "Austin, Texas · ★4.95 · 2 guests" and "Condo in " prefixes
func CleanLocation(loc string) string {
	loc = CleanText(loc)
	if idx := strings.IndexAny(loc, "·•★"); idx != -1 {
		loc = strings.TrimSpace(loc[:idx])
	}
	if idx := strings.LastIndex(loc, " in "); idx != -1 && idx < 30 {
		loc = loc[idx+4:]
	}
	return strings.TrimRight(loc, ",. ")
}

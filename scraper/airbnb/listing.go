package airbnb

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"airbnb-pricer/models"
	"airbnb-pricer/services"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
)

const listingTimeout = 40 * time.Second

var (
	subtitleLocationRegexes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:Entire\s+[\w ]+?|Private\s+room|Shared\s+room|Room|Hotel\s+room)\s+in\s+(.+)`),
		regexp.MustCompile(`(?:整套|獨立房間|合住房間|房間|飯店房間)\s*[·位於在]+\s*(.+)`),
	}
	metaLocationRegex = regexp.MustCompile(`(?i)(?:rental|home|apartment|place|room|stay|cabin|villa|condo)\s+in\s+([^·|]+)`)
	metaSplitRegex    = regexp.MustCompile(`\s*[·|]\s*`)
	metaNoiseRegex    = regexp.MustCompile(`(?i)^\d|★|Airbnb|review`)
	ratingReviewRegex = regexp.MustCompile(`(?i)(\d\.\d\d|\d\.\d)\s*(?:\(|·|・)?\s*(\d+)\s*review`)
)

var lodgingTypes = []string{
	"LodgingBusiness", "Hotel", "Apartment", "House", "Accommodation",
	"VacationRental", "SingleFamilyResidence", "Residence",
}

// GotoAndExtractListing loads a listing page and extracts its spec
func (s *Scraper) GotoAndExtractListing(ctx context.Context, url string) (*models.ListingSpec, []string, error) {
	tabCtx, cancel := s.tab(ctx, listingTimeout)
	defer cancel()

	s.logger.Infof("Extracting target listing: %s", url)
	var html, bodyText string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(url),
		chromedp.Sleep(800*time.Millisecond),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		chromedp.Evaluate(`document.body ? document.body.innerText : ''`, &bodyText),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("load listing page: %w", err)
	}

	spec, warnings, err := ParseListingPage(url, html, bodyText)
	if err != nil {
		return nil, nil, err
	}
	if spec.Location != "" {
		s.logger.Infof("Extracted location: '%s'", spec.Location)
	}
	return spec, warnings, nil
}

// ParseListingPage extracts a listing spec from rendered page HTML and the
// page's visible text. Missing attributes are reported as warnings.
func ParseListingPage(url, html, bodyText string) (*models.ListingSpec, []string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, nil, fmt.Errorf("parse listing page: %w", err)
	}
	var warnings []string
	bodyText = services.CleanText(bodyText)

	title := services.CleanText(doc.Find("h1").First().Text())
	if title == "" {
		title = firstLine(bodyText)
		warnings = append(warnings, "Title extracted from body text fallback")
	}

	location := locationFromSubtitles(subtitleHints(doc))
	if location == "" {
		location = locationFromBreadcrumbs(doc)
	}
	if location == "" {
		og, _ := doc.Find(`meta[property="og:title"]`).Attr("content")
		location = locationFromMeta(og, doc.Find("title").First().Text())
	}
	if location == "" {
		location = locationFromSubtitles(topLines(bodyText, 80))
	}

	spec := &models.ListingSpec{
		URL:          url,
		Title:        title,
		Accommodates: services.ExtractGuests(bodyText),
		Bedrooms:     services.ExtractBedrooms(bodyText),
		Beds:         services.ExtractBeds(bodyText),
		Baths:        services.ExtractBaths(bodyText),
		Amenities:    services.ExtractAmenities(bodyText),
		Currency:     "USD",
	}
	if spec.Accommodates == nil {
		warnings = append(warnings, "Could not extract guest capacity")
	}
	if spec.Bedrooms == nil {
		warnings = append(warnings, "Could not extract bedroom count")
	}

	typeText := bodyText
	for _, ln := range topLines(bodyText, 80) {
		l := strings.ToLower(ln)
		if strings.Contains(l, "entire") || strings.Contains(l, "private room") || strings.Contains(l, "shared room") ||
			strings.Contains(ln, "整套") || strings.Contains(ln, "獨立房間") || strings.Contains(ln, "合住房間") {
			typeText = ln
			break
		}
	}
	spec.PropertyType = services.NormalizePropertyType(typeText)

	head := bodyText
	if len(head) > 3000 {
		head = head[:3000]
	}
	if m := ratingReviewRegex.FindStringSubmatch(head); len(m) == 3 {
		if r, err := strconv.ParseFloat(m[1], 64); err == nil && r >= 2.5 && r <= 5 {
			spec.Rating = &r
		}
		if n, err := strconv.Atoi(m[2]); err == nil {
			spec.Reviews = &n
		}
	}

	applyJSONLD(doc, spec, &location)
	spec.Location = location
	if spec.Location == "" {
		warnings = append(warnings, "Could not extract location from listing page")
	}
	return spec, warnings, nil
}

// subtitleHints collects short text lines following the page heading
func subtitleHints(doc *goquery.Document) []string {
	var out []string
	h1 := doc.Find("h1").First()
	if h1.Length() == 0 {
		return out
	}
	sib := h1.Next()
	if sib.Length() == 0 {
		sib = h1.Parent().Next()
	}
	for i := 0; i < 6 && sib.Length() > 0; i++ {
		if t := firstLine(services.CleanText(sib.Text())); len(t) > 3 && len(t) < 200 {
			out = append(out, t)
		}
		sib = sib.Next()
	}

	container := h1.Closest("section")
	if container.Length() == 0 {
		container = h1.Closest("div[data-section-id]")
	}
	if container.Length() == 0 {
		container = h1.Parent()
	}
	container.Find("span, div, h2, h3").Each(func(_ int, el *goquery.Selection) {
		t := firstLine(services.CleanText(el.Text()))
		if len(t) > 5 && len(t) < 150 &&
			(strings.Contains(strings.ToLower(t), " in ") || strings.Contains(t, "位於") || strings.Contains(t, "·")) {
			out = append(out, t)
		}
	})
	return out
}

func locationFromSubtitles(lines []string) string {
	for _, ln := range lines {
		for _, re := range subtitleLocationRegexes {
			if m := re.FindStringSubmatch(ln); len(m) == 2 {
				if loc := services.CleanLocation(m[1]); len([]rune(loc)) >= 3 {
					return loc
				}
			}
		}
	}
	return ""
}

// locationFromBreadcrumbs keeps the two most specific breadcrumb parts
func locationFromBreadcrumbs(doc *goquery.Document) string {
	var parts []string
	doc.Find(`nav[aria-label*="readcrumb"] a, ol[role="list"] a[href*="/s/"], nav a[href*="/s/"]`).Each(func(_ int, a *goquery.Selection) {
		t := services.CleanText(a.Text())
		l := strings.ToLower(t)
		if len(t) > 1 && !strings.Contains(l, "airbnb") && l != "home" {
			parts = append(parts, t)
		}
	})
	if len(parts) == 0 {
		return ""
	}
	var flat []string
	for _, p := range strings.Split(strings.Join(parts, ", "), ",") {
		if p = strings.TrimSpace(p); p != "" {
			flat = append(flat, p)
		}
	}
	if len(flat) >= 2 {
		return strings.Join(flat[len(flat)-2:], ", ")
	}
	if len(flat) == 1 {
		return flat[0]
	}
	return ""
}

// locationFromMeta reads "Name - vacation rental in City, State" style
// titles from og:title and the document title
func locationFromMeta(texts ...string) string {
	for _, text := range texts {
		text = services.CleanText(text)
		if text == "" {
			continue
		}
		if m := metaLocationRegex.FindStringSubmatch(text); len(m) == 2 {
			if loc := services.CleanLocation(m[1]); len([]rune(loc)) >= 3 {
				return loc
			}
		}
		for _, part := range metaSplitRegex.Split(text, -1) {
			part = strings.TrimSpace(part)
			if strings.Contains(part, ",") && len(part) >= 5 && len(part) <= 80 && !metaNoiseRegex.MatchString(part) {
				return part
			}
		}
	}
	return ""
}

type ldAddress struct {
	Locality string `json:"addressLocality"`
	Region   string `json:"addressRegion"`
	Country  any    `json:"addressCountry"`
}

type ldRating struct {
	RatingValue any `json:"ratingValue"`
	ReviewCount any `json:"reviewCount"`
}

type ldItem struct {
	Type            any             `json:"@type"`
	Name            string          `json:"name"`
	Address         json.RawMessage `json:"address"`
	AggregateRating json.RawMessage `json:"aggregateRating"`
}

// applyJSONLD enriches the spec from the first lodging block in the page's
// structured data. A JSON-LD locality replaces heuristic locations.
func applyJSONLD(doc *goquery.Document, spec *models.ListingSpec, location *string) {
	var items []ldItem
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, sc *goquery.Selection) {
		raw := []byte(strings.TrimSpace(sc.Text()))
		if len(raw) == 0 {
			return
		}
		var many []ldItem
		if err := json.Unmarshal(raw, &many); err == nil {
			items = append(items, many...)
			return
		}
		var one ldItem
		if err := json.Unmarshal(raw, &one); err == nil {
			items = append(items, one)
		}
	})

	for _, it := range items {
		if !isLodging(it.Type) {
			continue
		}
		if spec.Title == "" {
			spec.Title = services.CleanText(it.Name)
		}
		var addr ldAddress
		if json.Unmarshal(it.Address, &addr) == nil {
			var parts []string
			for _, p := range []string{addr.Locality, addr.Region, stringOf(addr.Country)} {
				if p = strings.TrimSpace(p); p != "" {
					parts = append(parts, p)
				}
			}
			if len(parts) > 0 && (*location == "" || strings.TrimSpace(addr.Locality) != "") {
				*location = strings.Join(parts, ", ")
			}
		}
		var agg ldRating
		if json.Unmarshal(it.AggregateRating, &agg) == nil {
			if spec.Rating == nil {
				if f, err := strconv.ParseFloat(stringOf(agg.RatingValue), 64); err == nil && f > 0 {
					spec.Rating = &f
				}
			}
			if spec.Reviews == nil {
				if f, err := strconv.ParseFloat(stringOf(agg.ReviewCount), 64); err == nil && f > 0 {
					n := int(f)
					spec.Reviews = &n
				}
			}
		}
		return
	}
}

func isLodging(t any) bool {
	var names []string
	switch v := t.(type) {
	case string:
		names = []string{v}
	case []any:
		for _, x := range v {
			names = append(names, stringOf(x))
		}
	}
	for _, n := range names {
		for _, lt := range lodgingTypes {
			if strings.Contains(n, lt) {
				return true
			}
		}
	}
	return false
}

// stringOf renders JSON scalars; objects such as {"name": "US"} yield their name
func stringOf(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case map[string]any:
		if n, ok := x["name"].(string); ok {
			return n
		}
	}
	return ""
}

func firstLine(s string) string {
	for _, ln := range strings.Split(s, "\n") {
		if ln = strings.TrimSpace(ln); ln != "" {
			return ln
		}
	}
	return ""
}

func topLines(s string, n int) []string {
	var out []string
	for _, ln := range strings.Split(s, "\n") {
		if len(out) >= n {
			break
		}
		if ln = strings.TrimSpace(ln); ln != "" {
			out = append(out, ln)
		}
	}
	return out
}

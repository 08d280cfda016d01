package airbnb

import (
	"testing"
	"time"

	"airbnb-pricer/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const roomURL = "https://www.airbnb.com/rooms/42"

func TestParseListingPageSubtitle(t *testing.T) {
	html := `<html><head><title>Sunny Loft - Airbnb</title></head><body>
<section><h1>Sunny Loft</h1><h2>Entire rental unit in Austin, Texas, United States</h2></section>
</body></html>`
	body := "Sunny Loft\nEntire rental unit in Austin, Texas, United States\n4 guests · 2 bedrooms · 2 beds · 1 bath\n4.91 · 120 reviews\nWifi\nKitchen"

	spec, warnings, err := ParseListingPage(roomURL, html, body)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, roomURL, spec.URL)
	assert.Equal(t, "Sunny Loft", spec.Title)
	assert.Equal(t, "Austin, Texas, United States", spec.Location)
	assert.Equal(t, "entire_home", spec.PropertyType)
	assert.Equal(t, 4, *spec.Accommodates)
	assert.Equal(t, 2, *spec.Bedrooms)
	assert.Equal(t, 2, *spec.Beds)
	assert.Equal(t, 1.0, *spec.Baths)
	assert.Equal(t, 4.91, *spec.Rating)
	assert.Equal(t, 120, *spec.Reviews)
	assert.Equal(t, []string{"wifi", "kitchen"}, spec.Amenities)
	assert.Nil(t, spec.NightlyPrice)
}

func TestParseListingPageJSONLD(t *testing.T) {
	html := `<html><head>
<script type="application/ld+json">{"@type":"BreadcrumbList","name":"crumbs"}</script>
<script type="application/ld+json">{"@type":["VacationRental"],"name":"Alfama flat",
 "address":{"addressLocality":"Lisbon","addressRegion":"Lisboa","addressCountry":{"name":"Portugal"}},
 "aggregateRating":{"ratingValue":"4.8","reviewCount":35}}</script>
</head><body><nav aria-label="Breadcrumbs"><a href="/s/Portugal">Portugal</a><a href="/s/Lisbon">Lisbon area</a></nav>
<h1>Alfama flat</h1></body></html>`

	spec, _, err := ParseListingPage(roomURL, html, "Alfama flat\n2 guests")
	require.NoError(t, err)
	assert.Equal(t, "Lisbon, Lisboa, Portugal", spec.Location, "structured data wins over breadcrumbs")
	assert.Equal(t, 4.8, *spec.Rating)
	assert.Equal(t, 35, *spec.Reviews)
}

func TestParseListingPageBreadcrumbs(t *testing.T) {
	html := `<html><body><nav aria-label="Breadcrumbs"><a href="/">Airbnb</a><a href="/s/Portugal">Portugal</a><a href="/s/Lisbon">Lisbon</a></nav>
<h1>Alfama flat</h1></body></html>`

	spec, _, err := ParseListingPage(roomURL, html, "Alfama flat")
	require.NoError(t, err)
	assert.Equal(t, "Portugal, Lisbon", spec.Location)
}

func TestParseListingPageMetaFallback(t *testing.T) {
	html := `<html><head><meta property="og:title" content="Cottage · Hood River, Oregon · ★4.97 · 2 bedrooms"></head><body><div>no heading</div></body></html>`

	spec, warnings, err := ParseListingPage(roomURL, html, "Riverside cottage\nHosted by Sam")
	require.NoError(t, err)
	assert.Equal(t, "Riverside cottage", spec.Title)
	assert.Equal(t, "Hood River, Oregon", spec.Location)
	assert.Contains(t, warnings, "Title extracted from body text fallback")
	assert.Contains(t, warnings, "Could not extract guest capacity")
	assert.Contains(t, warnings, "Could not extract bedroom count")
}

func TestParseListingPageWithoutLocation(t *testing.T) {
	spec, warnings, err := ParseListingPage(roomURL, `<html><body><h1>Mystery</h1></body></html>`, "Mystery")
	require.NoError(t, err)
	assert.Equal(t, "", spec.Location)
	assert.Contains(t, warnings, "Could not extract location from listing page")
}

func TestBuildSearchURL(t *testing.T) {
	q := models.SearchQuery{
		Origin:   "https://www.airbnb.com/",
		Location: "Austin, TX",
		Checkin:  time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
		Checkout: time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC),
		Adults:   3,
	}
	assert.Equal(t, "https://www.airbnb.com/s/Austin%2C%20TX/homes?checkin=2026-05-01&checkout=2026-05-02&adults=3", BuildSearchURL(q))

	q.Origin = ""
	assert.Contains(t, BuildSearchURL(q), defaultOrigin+"/s/")
}

func TestHTTPBase(t *testing.T) {
	assert.Equal(t, "http://chrome:9222", httpBase("ws://chrome:9222/devtools/browser/abc"))
	assert.Equal(t, "https://chrome.example", httpBase("wss://chrome.example"))
	assert.Equal(t, "http://localhost:9222", httpBase("http://localhost:9222"))
}

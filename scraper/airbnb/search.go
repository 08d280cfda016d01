package airbnb

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"airbnb-pricer/models"
	"airbnb-pricer/utils"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"github.com/sirupsen/logrus"
)

const (
	searchTimeout   = 45 * time.Second
	scrollPause     = 600 * time.Millisecond
	scrollDeltaY    = 1600
	maxIdleRounds   = 3
	defaultOrigin   = "https://www.airbnb.com"
	searchDayLayout = models.DayLayout
)

// collectCardsJS returns every listing card on a search results page,
// one entry per room id
const collectCardsJS = `
(function() {
	var roots = []
		.concat(Array.from(document.querySelectorAll('div[data-testid="card-container"]')))
		.concat(Array.from(document.querySelectorAll('div[data-testid^="listing-card"]')))
		.concat(Array.from(document.querySelectorAll('a[href*="/rooms/"]')).map(function(a) {
			return a.closest('div[data-testid],div') || a;
		}));
	var seen = {};
	var cards = [];
	roots.forEach(function(root) {
		if (!root) return;
		var a = root.querySelector('a[href*="/rooms/"]');
		if (!a) return;
		var href = a.getAttribute('href') || '';
		var abs = href.indexOf('http') === 0 ? href : location.origin + href;
		var m = abs.match(/\/rooms\/(\d+)/);
		var roomId = m ? m[1] : abs;
		if (seen[roomId]) return;
		seen[roomId] = true;

		var text = (root.innerText || '').trim();
		var aria = a.getAttribute('aria-label') || '';
		var title = aria || (text.split('\n').find(function(x) { return x.trim().length > 6; }) || '');

		var prices = Array.from(root.querySelectorAll('[data-testid*="price"],span,div'))
			.map(function(el) { return (el.innerText || '').trim(); })
			.filter(function(t) { return t && (t.indexOf('$') !== -1 || t.indexOf('每晚') !== -1 || t.indexOf('晚') !== -1); });
		prices.sort(function(x, y) { return x.length - y.length; });
		var priceText = prices.find(function(t) { return t.indexOf('$') !== -1; }) || (prices[0] || '');

		var rating = null, reviews = null;
		var rm = text.match(/(\d\.\d\d|\d\.\d)\s*(?:\(|·|・)?\s*(\d+)?/);
		if (rm) {
			var r = parseFloat(rm[1]);
			if (!isNaN(r) && r >= 2.5 && r <= 5.0) rating = r;
			if (rm[2]) {
				var n = parseInt(rm[2], 10);
				if (!isNaN(n)) reviews = n;
			}
		}
		cards.push({room_id: roomId, url: abs, title: title, text: text, price_text: priceText, rating: rating, reviews: reviews});
	});
	return cards;
})()
`

// BuildSearchURL returns the search results URL for a location and stay
func BuildSearchURL(q models.SearchQuery) string {
	origin := strings.TrimRight(q.Origin, "/")
	if origin == "" {
		origin = defaultOrigin
	}
	return fmt.Sprintf("%s/s/%s/homes?checkin=%s&checkout=%s&adults=%d",
		origin, url.PathEscape(q.Location),
		q.Checkin.Format(searchDayLayout), q.Checkout.Format(searchDayLayout), q.Adults)
}

// SearchAndCollectCards loads a search results page and scrolls it,
// collecting cards until maxIdleRounds rounds add nothing new, MaxCards
// cards are held or MaxRounds rounds have run.
func (s *Scraper) SearchAndCollectCards(ctx context.Context, q models.SearchQuery) ([]models.Card, error) {
	tabCtx, cancel := s.tab(ctx, searchTimeout)
	defer cancel()

	searchURL := BuildSearchURL(q)
	log := s.logger.WithField("checkin", q.Checkin.Format(searchDayLayout))
	log.Infof("Search: %s", searchURL)

	err := chromedp.Run(tabCtx,
		chromedp.Navigate(searchURL),
		chromedp.Sleep(700*time.Millisecond),
	)
	if err != nil {
		return nil, fmt.Errorf("load search page: %w", err)
	}
	// Dismiss any modal; failure is harmless
	_ = chromedp.Run(tabCtx, chromedp.KeyEvent(kb.Escape))

	return s.scrollAndCollect(tabCtx, q, log)
}

func (s *Scraper) scrollAndCollect(ctx context.Context, q models.SearchQuery, log logrus.FieldLogger) ([]models.Card, error) {
	tracker := utils.NewKeyTracker()
	var cards []models.Card
	idle := 0

	for round := 1; round <= max(1, q.MaxRounds); round++ {
		var batch []models.Card
		if err := chromedp.Run(ctx,
			chromedp.Sleep(400*time.Millisecond),
			chromedp.Evaluate(collectCardsJS, &batch),
		); err != nil {
			if ctx.Err() != nil {
				return cards, fmt.Errorf("collect cards: %w", err)
			}
			log.Debugf("Card extraction failed in round %d: %v", round, err)
		}

		added := 0
		for _, c := range batch {
			key := c.RoomID
			if key == "" {
				key = c.URL
			}
			if key != "" && tracker.Add(key) {
				cards = append(cards, c)
				added++
			}
		}
		log.WithFields(logrus.Fields{"round": round, "new": added, "total": len(cards)}).Debug("Scan")

		if added == 0 {
			idle++
		} else {
			idle = 0
		}
		if idle >= maxIdleRounds || (q.MaxCards > 0 && len(cards) >= q.MaxCards) {
			break
		}

		if err := s.rateLimiter.Wait(ctx); err != nil {
			return cards, err
		}
		_ = chromedp.Run(ctx,
			input.DispatchMouseEvent(input.MouseWheel, 640, 450).WithDeltaX(0).WithDeltaY(scrollDeltaY),
			chromedp.Sleep(scrollPause),
		)
	}
	return cards, nil
}

package airbnb

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"airbnb-pricer/config"
	"airbnb-pricer/utils"

	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"
)

const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Scraper renders Airbnb pages through one Chrome instance, either a local
// headless browser or a remote one reached over the DevTools protocol. Each
// operation runs in its own tab; a worker uses one tab at a time.
type Scraper struct {
	cfg         *config.Config
	logger      logrus.FieldLogger
	rateLimiter *utils.RateLimiter
	httpClient  *http.Client

	mu          sync.Mutex
	browserCtx  context.Context
	cancelAlloc context.CancelFunc
	cancelCtx   context.CancelFunc
}

// NewScraper creates a new Scraper. The browser is started lazily.
func NewScraper(cfg *config.Config, logger logrus.FieldLogger) *Scraper {
	return &Scraper{
		cfg:         cfg,
		logger:      logger.WithField("component", "scraper"),
		rateLimiter: utils.NewRateLimiter(cfg.RateLimit),
		httpClient:  &http.Client{Timeout: 2 * time.Second},
	}
}

// browser returns the shared browser context, starting it on first use
func (s *Scraper) browser() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.browserCtx != nil {
		return s.browserCtx
	}

	var allocCtx context.Context
	if s.cfg.CDPURL != "" {
		allocCtx, s.cancelAlloc = chromedp.NewRemoteAllocator(context.Background(), s.cfg.CDPURL)
	} else {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("disable-blink-features", "AutomationControlled"),
			chromedp.Flag("log-level", "3"),
			chromedp.UserAgent(userAgent),
			chromedp.WindowSize(1280, 900),
		)
		allocCtx, s.cancelAlloc = chromedp.NewExecAllocator(context.Background(), opts...)
	}
	s.browserCtx, s.cancelCtx = chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	return s.browserCtx
}

// tab opens a fresh tab bound to ctx: cancelling ctx closes the tab.
func (s *Scraper) tab(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	tabCtx, cancelTab := chromedp.NewContext(s.browser())
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, timeout)
	stop := context.AfterFunc(ctx, cancelTab)
	return tabCtx, func() {
		stop()
		cancelTimeout()
		cancelTab()
	}
}

// Ping checks that the page renderer is reachable. A remote endpoint is
// checked over its /json/version route; a local browser is started.
func (s *Scraper) Ping(ctx context.Context) error {
	if s.cfg.CDPURL == "" {
		pctx, cancel := context.WithTimeout(ctx, s.cfg.CDPConnectTimeout)
		defer cancel()
		errc := make(chan error, 1)
		go func() { errc <- chromedp.Run(s.browser()) }()
		select {
		case err := <-errc:
			if err != nil {
				return fmt.Errorf("start browser: %w", err)
			}
			return nil
		case <-pctx.Done():
			return fmt.Errorf("start browser: %w", pctx.Err())
		}
	}

	versionURL := strings.TrimRight(httpBase(s.cfg.CDPURL), "/") + "/json/version"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, versionURL, nil)
	if err != nil {
		return fmt.Errorf("build CDP version request: %w", err)
	}
	req.Header.Set("User-Agent", "airbnb-pricer-worker/1.0")
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("CDP unavailable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("CDP unavailable: HTTP %d", resp.StatusCode)
	}
	return nil
}

// Close shuts the browser down
func (s *Scraper) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelCtx != nil {
		s.cancelCtx()
	}
	if s.cancelAlloc != nil {
		s.cancelAlloc()
	}
	s.browserCtx = nil
}

// httpBase turns a ws:// DevTools URL into its http:// equivalent
func httpBase(cdpURL string) string {
	switch {
	case strings.HasPrefix(cdpURL, "ws://"):
		cdpURL = "http://" + strings.TrimPrefix(cdpURL, "ws://")
	case strings.HasPrefix(cdpURL, "wss://"):
		cdpURL = "https://" + strings.TrimPrefix(cdpURL, "wss://")
	}
	if i := strings.Index(cdpURL, "/devtools/"); i != -1 {
		cdpURL = cdpURL[:i]
	}
	return cdpURL
}

package airbnb

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"airbnb-pricer/config"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestPingRemoteEndpoint(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/json/version" || !healthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"Browser":"Chrome/120"}`))
	}))
	defer srv.Close()

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	s := NewScraper(&config.Config{CDPURL: srv.URL, RateLimit: time.Millisecond}, logger)
	defer s.Close()

	assert.NoError(t, s.Ping(context.Background()))

	healthy.Store(false)
	assert.ErrorContains(t, s.Ping(context.Background()), "HTTP 503")

	srv.Close()
	assert.ErrorContains(t, s.Ping(context.Background()), "CDP unavailable")
}

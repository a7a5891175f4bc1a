package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/aluiziolira/go-scrape-catalog/config"
	"github.com/gocolly/colly/v2"
)

// Page is a fetched listing page.
type Page struct {
	URL        *url.URL
	StatusCode int
	Body       []byte
	Attempts   int
}

// Fetcher retrieves listing pages. Implementations return a *FetchError on
// failure.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*Page, error)
}

// CollyFetcher fetches pages through a synchronous colly collector. The
// collector's limit rule sleeps for cfg.Delay after every request, so each
// Fetch returns only once the politeness delay has elapsed.
type CollyFetcher struct {
	cfg       *config.Config
	collector *colly.Collector
	metrics   *Metrics
}

// NewCollyFetcher builds a fetcher restricted to the host of cfg.BaseURL.
func NewCollyFetcher(cfg *config.Config, metrics *Metrics) (*CollyFetcher, error) {
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("base url must include a host")
	}

	collector := colly.NewCollector(
		colly.AllowedDomains(parsed.Hostname()),
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)

	collector.SetRequestTimeout(cfg.Timeout)
	collector.IgnoreRobotsTxt = !cfg.RespectRobotsTxt
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 1,
		Delay:       cfg.Delay,
		RandomDelay: cfg.RandomDelay,
	}); err != nil {
		return nil, fmt.Errorf("configure rate limits: %w", err)
	}

	return &CollyFetcher{
		cfg:       cfg,
		collector: collector,
		metrics:   metrics,
	}, nil
}

// WithTransport swaps the HTTP transport used by the collector.
func (f *CollyFetcher) WithTransport(rt http.RoundTripper) {
	f.collector.WithTransport(rt)
}

// Fetch retrieves rawURL, retrying transient failures with exponential
// backoff up to cfg.MaxRetries times.
func (f *CollyFetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, &FetchError{URL: rawURL, Kind: KindCanceled, Attempts: attempt - 1, Err: err}
		}

		page, fetchErr := f.fetchOnce(rawURL)
		if fetchErr == nil {
			page.Attempts = attempt
			return page, nil
		}
		fetchErr.Attempts = attempt
		f.metrics.IncError(string(fetchErr.Kind))

		if !fetchErr.Temporary() || attempt > f.cfg.MaxRetries {
			return nil, fetchErr
		}

		delay := f.backoff(attempt)
		f.metrics.IncRetries()
		slog.Warn("retrying page fetch",
			slog.String("url", rawURL),
			slog.String("category", string(fetchErr.Kind)),
			slog.Int("attempt", attempt),
			slog.Duration("backoff", delay),
		)
		if err := sleepContext(ctx, delay); err != nil {
			return nil, &FetchError{URL: rawURL, Kind: KindCanceled, Attempts: attempt, Err: err}
		}
	}
}

func (f *CollyFetcher) fetchOnce(rawURL string) (*Page, *FetchError) {
	c := f.collector.Clone()

	var (
		page       *Page
		statusCode int
		start      time.Time
	)
	c.OnRequest(func(r *colly.Request) {
		start = time.Now()
		f.metrics.IncRequest("started")
	})
	c.OnResponse(func(r *colly.Response) {
		f.metrics.IncRequest("completed")
		f.metrics.ObserveDuration(time.Since(start))
		page = &Page{
			URL:        r.Request.URL,
			StatusCode: r.StatusCode,
			Body:       r.Body,
		}
	})
	c.OnError(func(r *colly.Response, err error) {
		f.metrics.IncRequest("failed")
		if r != nil {
			statusCode = r.StatusCode
		}
	})

	if err := c.Visit(rawURL); err != nil {
		switch {
		case errors.Is(err, colly.ErrForbiddenDomain), errors.Is(err, colly.ErrRobotsTxtBlocked):
			return nil, &FetchError{URL: rawURL, Kind: KindForbidden, Err: err}
		}
		return nil, classifyError(rawURL, err, statusCode)
	}
	if page == nil {
		return nil, &FetchError{URL: rawURL, Kind: KindOther, Err: errors.New("no response received")}
	}
	return page, nil
}

func (f *CollyFetcher) backoff(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}

	base := f.cfg.RetryBackoff
	if base <= 0 {
		base = 100 * time.Millisecond
	}

	delay := base * time.Duration(1<<(attempt-1))
	if max := f.cfg.RetryBackoffMax; max > 0 && delay > max {
		delay = max
	}
	return delay
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Package scraper drives the page-by-page traversal of the catalog.
package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/aluiziolira/go-scrape-catalog/config"
	"github.com/aluiziolira/go-scrape-catalog/models"
	"github.com/aluiziolira/go-scrape-catalog/parser"
	"github.com/aluiziolira/go-scrape-catalog/pipeline"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Scraper walks listing pages sequentially, following "next" links.
type Scraper struct {
	cfg     *config.Config
	fetcher Fetcher
	Metrics *Metrics
}

// NewScraper builds a scraper backed by a colly fetcher configured from cfg.
func NewScraper(cfg *config.Config) (*Scraper, error) {
	metrics := NewMetrics()
	fetcher, err := NewCollyFetcher(cfg, metrics)
	if err != nil {
		return nil, err
	}
	return NewScraperWithFetcher(cfg, fetcher, metrics), nil
}

// NewScraperWithFetcher builds a scraper around an existing fetcher.
func NewScraperWithFetcher(cfg *config.Config, fetcher Fetcher, metrics *Metrics) *Scraper {
	return &Scraper{
		cfg:     cfg,
		fetcher: fetcher,
		Metrics: metrics,
	}
}

// Run traverses the catalog starting at cfg.BaseURL and hands every record
// to p in page-then-entry order. The returned result is never nil: when a
// page cannot be fetched or ctx is cancelled, traversal stops, the records
// collected so far are kept, and the terminating error is returned with it.
func (s *Scraper) Run(ctx context.Context, p *pipeline.Pipeline) (*models.ScrapeResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	result := &models.ScrapeResult{
		StartTime:    time.Now(),
		ErrorsByType: make(map[string]int),
	}
	defer func() {
		result.Records = p.Records()
		result.EndTime = time.Now()
	}()

	visited, err := lru.New[string, struct{}](s.cfg.VisitedCacheSize)
	if err != nil {
		return result, fmt.Errorf("create visited cache: %w", err)
	}

	cursor := models.NewPageCursor(s.cfg.BaseURL)
	for {
		if cursor.Number > s.cfg.MaxPages {
			slog.Warn("max pages reached, stopping",
				slog.Int("max_pages", s.cfg.MaxPages),
				slog.String("next_url", cursor.URL),
			)
			result.StopReason = models.StopMaxPages
			return result, nil
		}
		key := visitKey(cursor.URL)
		if visited.Contains(key) {
			slog.Warn("next link points at a visited page, stopping",
				slog.Int("page", cursor.Number),
				slog.String("url", cursor.URL),
			)
			result.StopReason = models.StopCycle
			return result, nil
		}
		visited.Add(key, struct{}{})

		next, err := s.scrapePage(ctx, cursor, p, result)
		if err != nil {
			s.recordFailure(cursor, err, p, result)
			return result, err
		}
		cursor.Next = next
		if !cursor.HasNext() {
			result.StopReason = models.StopLastPage
			return result, nil
		}
		cursor = cursor.Advance()
	}
}

func (s *Scraper) scrapePage(ctx context.Context, cursor models.PageCursor, p *pipeline.Pipeline, result *models.ScrapeResult) (string, error) {
	page, err := s.fetcher.Fetch(ctx, cursor.URL)
	countAttempts(page, err, result)
	if err != nil {
		return "", err
	}

	pageURL := page.URL
	if pageURL == nil {
		if pageURL, err = url.Parse(cursor.URL); err != nil {
			return "", &FetchError{URL: cursor.URL, Kind: KindParse, Err: err}
		}
	}
	extracted, err := parser.ExtractPage(bytes.NewReader(page.Body), pageURL)
	if err != nil {
		s.Metrics.IncError(string(KindParse))
		return "", &FetchError{URL: cursor.URL, Kind: KindParse, Err: err}
	}

	result.PageCount++
	result.EntryCount += len(extracted.Entries)
	s.Metrics.IncPages()

	records := extracted.Records()
	warnings := extracted.Warnings()
	slog.Info("page fetched",
		slog.Int("page", cursor.Number),
		slog.String("url", cursor.URL),
		slog.String("category", extracted.Category),
		slog.Int("entries", len(extracted.Entries)),
		slog.Int("records", len(records)),
	)

	for _, w := range warnings {
		slog.Warn("skipping listing entry",
			slog.Int("page", cursor.Number),
			slog.Int("entry", w.Index),
			slog.String("reason", w.Reason),
		)
	}
	result.SkippedCount += len(warnings)
	s.Metrics.AddSkipped(len(warnings))

	for _, record := range records {
		slog.Info("record extracted",
			slog.String("title", record.Title),
			slog.String("price", record.Price),
			slog.String("rating", string(record.Rating)),
		)
	}
	if err := p.Process(records...); err != nil {
		return "", fmt.Errorf("process page %d: %w", cursor.Number, err)
	}
	s.Metrics.AddRecords(len(records))

	return extracted.NextURL, nil
}

func (s *Scraper) recordFailure(cursor models.PageCursor, err error, p *pipeline.Pipeline, result *models.ScrapeResult) {
	category := errorTypeLabel(err)
	result.ErrorsByType[category]++
	result.FailedURL = cursor.URL
	result.StopReason = models.StopFetchError
	if category == string(KindCanceled) {
		result.StopReason = models.StopCanceled
	}

	slog.Error("page fetch failed, stopping traversal",
		slog.Int("page", cursor.Number),
		slog.String("url", cursor.URL),
		slog.String("category", category),
		slog.Int("records_kept", p.Len()),
		slog.Any("error", err),
	)
}

// visitKey drops the fragment so "page.html#top" and "page.html" count as
// the same page.
func visitKey(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}

func countAttempts(page *Page, err error, result *models.ScrapeResult) {
	attempts := 1
	var fetchErr *FetchError
	switch {
	case page != nil && page.Attempts > 0:
		attempts = page.Attempts
	case errors.As(err, &fetchErr):
		attempts = fetchErr.Attempts
	}
	if attempts <= 0 {
		return
	}
	result.RequestCount += attempts
	result.RetryCount += attempts - 1
}

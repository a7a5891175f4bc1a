package models

import "time"

// PageCursor tracks the listing page being scraped.
type PageCursor struct {
	URL    string
	Number int
	Next   string
}

// NewPageCursor points at the first listing page.
func NewPageCursor(startURL string) PageCursor {
	return PageCursor{URL: startURL, Number: 1}
}

// HasNext reports whether the current page linked to another one.
func (c PageCursor) HasNext() bool {
	return c.Next != ""
}

// Advance returns the cursor for the page Next points at.
func (c PageCursor) Advance() PageCursor {
	return PageCursor{URL: c.Next, Number: c.Number + 1}
}

// StopReason explains why traversal ended.
type StopReason string

const (
	StopLastPage   StopReason = "last_page"
	StopFetchError StopReason = "fetch_error"
	StopMaxPages   StopReason = "max_pages"
	StopCycle      StopReason = "cycle"
	StopCanceled   StopReason = "canceled"
)

// ScrapeResult holds the overall result of a scraping operation.
type ScrapeResult struct {
	Records      []CatalogRecord
	StartTime    time.Time
	EndTime      time.Time
	PageCount    int
	EntryCount   int
	SkippedCount int
	RequestCount int
	RetryCount   int
	StopReason   StopReason
	FailedURL    string
	ErrorsByType map[string]int
}

// TotalCount is the number of records collected.
func (r *ScrapeResult) TotalCount() int {
	return len(r.Records)
}

// Partial reports whether traversal ended before the last listing page.
func (r *ScrapeResult) Partial() bool {
	return r.StopReason != StopLastPage
}

// Duration is the wall time spent scraping.
func (r *ScrapeResult) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}

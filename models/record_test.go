package models

import (
	"testing"
	"time"
)

func TestRecordValuesRoundTrip(t *testing.T) {
	r := CatalogRecord{
		Title:        "Soumission",
		Price:        "£50.10",
		Rating:       RatingOne,
		Availability: "In stock",
		BookURL:      "https://books.toscrape.com/catalogue/soumission_998/index.html",
		ImageURL:     Unknown,
		Category:     "Fiction",
	}

	values := r.Values()
	if len(values) != len(RecordFields) {
		t.Fatalf("values = %d, want %d", len(values), len(RecordFields))
	}

	got, ok := RecordFromValues(values)
	if !ok {
		t.Fatalf("RecordFromValues rejected %v", values)
	}
	if got != r {
		t.Fatalf("round trip = %+v, want %+v", got, r)
	}

	if _, ok := RecordFromValues(values[:3]); ok {
		t.Fatalf("expected short row to be rejected")
	}
}

func TestRecordComplete(t *testing.T) {
	r := CatalogRecord{Title: "A", Price: Unknown, Rating: RatingUnknown, Availability: Unknown, BookURL: Unknown, ImageURL: Unknown, Category: Unknown}
	if !r.Complete() {
		t.Fatalf("record with sentinel values should be complete")
	}
	r.Category = ""
	if r.Complete() {
		t.Fatalf("record with empty category should be incomplete")
	}
}

func TestRatingStars(t *testing.T) {
	tests := []struct {
		rating Rating
		stars  int
	}{
		{RatingOne, 1},
		{RatingThree, 3},
		{RatingFive, 5},
		{RatingUnknown, 0},
		{Rating("five"), 0},
	}

	for _, tt := range tests {
		if got := tt.rating.Stars(); got != tt.stars {
			t.Errorf("%q.Stars() = %d, want %d", tt.rating, got, tt.stars)
		}
		if got := tt.rating.Known(); got != (tt.stars > 0) {
			t.Errorf("%q.Known() = %v", tt.rating, got)
		}
	}
}

func TestPageCursorAdvance(t *testing.T) {
	c := NewPageCursor("http://example.test/")
	if c.Number != 1 || c.HasNext() {
		t.Fatalf("unexpected first cursor %+v", c)
	}

	c.Next = "http://example.test/page-2.html"
	next := c.Advance()
	if next.Number != 2 || next.URL != c.Next || next.HasNext() {
		t.Fatalf("unexpected advanced cursor %+v", next)
	}
}

func TestScrapeResultPartial(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := &ScrapeResult{
		Records:    make([]CatalogRecord, 4),
		StartTime:  start,
		EndTime:    start.Add(3 * time.Second),
		StopReason: StopLastPage,
	}
	if r.Partial() {
		t.Fatalf("last page result should not be partial")
	}
	if r.TotalCount() != 4 || r.Duration() != 3*time.Second {
		t.Fatalf("unexpected totals %d %v", r.TotalCount(), r.Duration())
	}

	r.StopReason = StopFetchError
	if !r.Partial() {
		t.Fatalf("fetch error result should be partial")
	}
}

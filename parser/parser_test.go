package parser

import (
	"net/url"
	"testing"

	"github.com/aluiziolira/go-scrape-catalog/models"
)

func TestValidateRecord(t *testing.T) {
	complete := models.CatalogRecord{
		Title:        "Test Book",
		Price:        "£10.00",
		Rating:       models.RatingFive,
		Availability: "In stock",
		BookURL:      "http://example.com/book",
		ImageURL:     "http://example.com/book.jpg",
		Category:     "Poetry",
	}

	tests := []struct {
		name    string
		mutate  func(*models.CatalogRecord)
		wantErr bool
	}{
		{
			name:    "valid record",
			mutate:  func(*models.CatalogRecord) {},
			wantErr: false,
		},
		{
			name:    "missing title",
			mutate:  func(r *models.CatalogRecord) { r.Title = "  " },
			wantErr: true,
		},
		{
			name:    "missing price",
			mutate:  func(r *models.CatalogRecord) { r.Price = "" },
			wantErr: true,
		},
		{
			name:    "missing rating",
			mutate:  func(r *models.CatalogRecord) { r.Rating = "" },
			wantErr: true,
		},
		{
			name:    "sentinel values are populated",
			mutate:  func(r *models.CatalogRecord) { r.Rating = models.RatingUnknown; r.Availability = models.Unknown },
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := complete
			tt.mutate(&r)
			err := ValidateRecord(r)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateRecord() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPriceAmount(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected float64
		wantErr  bool
	}{
		{name: "with currency symbol", input: "£51.77", expected: 51.77},
		{name: "with whitespace", input: "  £10.50  ", expected: 10.50},
		{name: "already clean", input: "25.99", expected: 25.99},
		{name: "mis-decoded symbol", input: "Â£13.99", expected: 13.99},
		{name: "thousands separator", input: "$1,250.00", expected: 1250},
		{name: "decimal comma", input: "12,50 €", expected: 12.5},
		{name: "comma thousands without decimals", input: "£1,234", expected: 1234},
		{name: "repeated comma thousands", input: "1,234,567", expected: 1234567},
		{name: "long decimal comma", input: "1,2345", expected: 1.2345},
		{name: "sentinel", input: models.Unknown, wantErr: true},
		{name: "empty string", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := PriceAmount(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("PriceAmount(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && result != tt.expected {
				t.Errorf("PriceAmount(%q) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestParseRating(t *testing.T) {
	tests := []struct {
		input    string
		expected models.Rating
	}{
		{input: "One", expected: models.RatingOne},
		{input: "Two", expected: models.RatingTwo},
		{input: "Three", expected: models.RatingThree},
		{input: "Four", expected: models.RatingFour},
		{input: "Five", expected: models.RatingFive},
		{input: "Zero", expected: models.RatingUnknown},
		{input: "three", expected: models.RatingUnknown},
		{input: "FIVE", expected: models.RatingUnknown},
		{input: "", expected: models.RatingUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseRating(tt.input); got != tt.expected {
				t.Errorf("ParseRating(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestRatingFromClass(t *testing.T) {
	tests := []struct {
		class    string
		expected models.Rating
	}{
		{class: "star-rating Three", expected: models.RatingThree},
		{class: "  star-rating   One ", expected: models.RatingOne},
		{class: "Four star-rating", expected: models.RatingFour},
		{class: "star-rating", expected: models.RatingUnknown},
		{class: "star-rating four", expected: models.RatingUnknown},
		{class: "", expected: models.RatingUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.class, func(t *testing.T) {
			if got := RatingFromClass(tt.class); got != tt.expected {
				t.Errorf("RatingFromClass(%q) = %q, want %q", tt.class, got, tt.expected)
			}
		})
	}
}

func TestNormalizeAvailability(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "with whitespace", input: "  In stock (22 available)  ", expected: "In stock (22 available)"},
		{name: "markup newlines", input: "\n\n    \n        In stock\n    \n", expected: "In stock"},
		{name: "empty string", input: "", expected: models.Unknown},
		{name: "only whitespace", input: " \t\n", expected: models.Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeAvailability(tt.input); got != tt.expected {
				t.Errorf("NormalizeAvailability(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestCategoryFromURL(t *testing.T) {
	tests := []struct {
		raw      string
		expected string
	}{
		{raw: "https://books.toscrape.com/catalogue/category/books/historical-fiction_4/index.html", expected: "Historical Fiction"},
		{raw: "https://books.toscrape.com/catalogue/category/books/poetry_23/page-2.html", expected: "Poetry"},
		{raw: "https://books.toscrape.com/catalogue/category/books/%C3%A9lan-vital_9/index.html", expected: "Élan Vital"},
		{raw: "https://books.toscrape.com/catalogue/page-2.html", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			u, err := url.Parse(tt.raw)
			if err != nil {
				t.Fatalf("parse url: %v", err)
			}
			if got := CategoryFromURL(u); got != tt.expected {
				t.Errorf("CategoryFromURL(%q) = %q, want %q", tt.raw, got, tt.expected)
			}
		})
	}
}

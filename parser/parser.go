package parser

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/aluiziolira/go-scrape-catalog/models"
)

// ValidateRecord ensures every field of the record was populated.
func ValidateRecord(r models.CatalogRecord) error {
	if strings.TrimSpace(r.Title) == "" {
		return fmt.Errorf("record missing title")
	}
	for i, v := range r.Values() {
		if v == "" {
			return fmt.Errorf("record %q missing %s", r.Title, models.RecordFields[i])
		}
	}
	return nil
}

// NormalizeText collapses runs of whitespace and trims the ends.
func NormalizeText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// NormalizeAvailability cleans the stock text, substituting Unknown when empty.
func NormalizeAvailability(text string) string {
	return orUnknown(NormalizeText(text))
}

// ParseRating maps a star-rating label to a Rating. Matching is exact and
// case-sensitive; anything else is RatingUnknown.
func ParseRating(label string) models.Rating {
	r := models.Rating(strings.TrimSpace(label))
	if r.Known() {
		return r
	}
	return models.RatingUnknown
}

// RatingFromClass picks the rating out of a class attribute such as
// "star-rating Three".
func RatingFromClass(class string) models.Rating {
	for _, token := range strings.Fields(class) {
		if r := ParseRating(token); r.Known() {
			return r
		}
	}
	return models.RatingUnknown
}

var amountPattern = regexp.MustCompile(`[0-9]+(?:[.,][0-9]+)*`)

// PriceAmount parses the numeric part of a display price such as "£51.77".
// Extraction keeps prices as display strings; this is for callers that need
// to aggregate them.
//
// When the amount has a dot, commas are thousands separators ("1,234.50").
// Without a dot, a single comma followed by exactly three digits is also a
// thousands separator ("1,234" is 1234), and any other single comma is the
// decimal mark ("12,50" is 12.5).
func PriceAmount(price string) (float64, error) {
	match := amountPattern.FindString(price)
	if match == "" {
		return 0, fmt.Errorf("price %q has no amount", price)
	}
	switch {
	case strings.Contains(match, "."):
		match = strings.ReplaceAll(match, ",", "")
	case strings.Count(match, ",") == 1 && len(match)-strings.Index(match, ",") != 4:
		match = strings.Replace(match, ",", ".", 1)
	default:
		match = strings.ReplaceAll(match, ",", "")
	}
	amount, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", price, err)
	}
	return amount, nil
}

var categoryPathPattern = regexp.MustCompile(`/category/books/([^/]+?)(?:_[0-9]+)?/`)

// CategoryFromURL derives a category name from a category listing path,
// e.g. /catalogue/category/books/historical-fiction_4/index.html.
func CategoryFromURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	m := categoryPathPattern.FindStringSubmatch(u.Path)
	if m == nil {
		return ""
	}
	words := strings.Split(m[1], "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return NormalizeText(strings.Join(words, " "))
}

func orUnknown(s string) string {
	if s == "" {
		return models.Unknown
	}
	return s
}

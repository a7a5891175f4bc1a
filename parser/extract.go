// Package parser turns catalog listing pages into records.
package parser

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/go-scrape-catalog/models"
)

const (
	entrySelector    = "article.product_pod"
	titleSelector    = "h3 a"
	priceSelector    = "p.price_color"
	ratingSelector   = "p.star-rating"
	imageSelector    = "img"
	nextSelector     = "li.next a"
	breadcrumbActive = "ul.breadcrumb li.active"
	pageHeader       = "div.page-header h1"
)

// ParseWarning reports a listing entry that was dropped.
type ParseWarning struct {
	Index  int
	Reason string
}

func (w *ParseWarning) Error() string {
	return fmt.Sprintf("entry %d skipped: %s", w.Index, w.Reason)
}

// EntryResult is the outcome of extracting one listing entry: either a
// record or the warning explaining why the entry was skipped.
type EntryResult struct {
	Record  models.CatalogRecord
	Warning *ParseWarning
}

// Skipped reports whether the entry produced no record.
func (e EntryResult) Skipped() bool {
	return e.Warning != nil
}

// PageResult holds everything extracted from one listing page.
type PageResult struct {
	Entries  []EntryResult
	Category string
	NextURL  string
}

// Records returns the extracted records in page order.
func (p *PageResult) Records() []models.CatalogRecord {
	out := make([]models.CatalogRecord, 0, len(p.Entries))
	for _, e := range p.Entries {
		if !e.Skipped() {
			out = append(out, e.Record)
		}
	}
	return out
}

// Warnings returns the skipped entries in page order.
func (p *PageResult) Warnings() []*ParseWarning {
	var out []*ParseWarning
	for _, e := range p.Entries {
		if e.Skipped() {
			out = append(out, e.Warning)
		}
	}
	return out
}

// ExtractPage parses an HTML listing page fetched from pageURL.
func ExtractPage(body io.Reader, pageURL *url.URL) (*PageResult, error) {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return ExtractDocument(doc, pageURL), nil
}

// ExtractDocument extracts records and the next-page link from doc.
func ExtractDocument(doc *goquery.Document, pageURL *url.URL) *PageResult {
	base := baseURL(doc, pageURL)
	category := pageCategory(doc, pageURL)

	result := &PageResult{Category: category}
	doc.Find(entrySelector).Each(func(i int, s *goquery.Selection) {
		result.Entries = append(result.Entries, extractEntry(i, s, base, category))
	})

	if href, ok := doc.Find(nextSelector).First().Attr("href"); ok {
		result.NextURL = resolve(base, href)
	}
	return result
}

func extractEntry(index int, s *goquery.Selection, base *url.URL, category string) EntryResult {
	link := s.Find(titleSelector).First()
	title := NormalizeText(link.AttrOr("title", ""))
	if title == "" {
		title = NormalizeText(link.Text())
	}
	if title == "" {
		return EntryResult{Warning: &ParseWarning{Index: index, Reason: "missing title"}}
	}

	availability := s.Find("p.instock.availability").First().Text()
	if strings.TrimSpace(availability) == "" {
		availability = s.Find("p.availability").First().Text()
	}

	return EntryResult{Record: models.CatalogRecord{
		Title:        title,
		Price:        orUnknown(NormalizeText(s.Find(priceSelector).First().Text())),
		Rating:       RatingFromClass(s.Find(ratingSelector).First().AttrOr("class", "")),
		Availability: NormalizeAvailability(availability),
		BookURL:      orUnknown(resolve(base, link.AttrOr("href", ""))),
		ImageURL:     orUnknown(resolve(base, s.Find(imageSelector).First().AttrOr("src", ""))),
		Category:     category,
	}}
}

// baseURL honours a <base href> element the same way browsers do.
func baseURL(doc *goquery.Document, pageURL *url.URL) *url.URL {
	href, ok := doc.Find("base[href]").First().Attr("href")
	if !ok || pageURL == nil {
		return pageURL
	}
	parsed, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return pageURL
	}
	return pageURL.ResolveReference(parsed)
}

func pageCategory(doc *goquery.Document, pageURL *url.URL) string {
	if c := NormalizeText(doc.Find(breadcrumbActive).First().Text()); c != "" {
		return c
	}
	if c := NormalizeText(doc.Find(pageHeader).First().Text()); c != "" {
		return c
	}
	return orUnknown(CategoryFromURL(pageURL))
}

func resolve(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if base == nil {
		if parsed.IsAbs() {
			return parsed.String()
		}
		return ""
	}
	return base.ResolveReference(parsed).String()
}

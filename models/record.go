// Package models defines data structures for the scraper.
package models

// Unknown is stored in any optional field the page did not provide.
const Unknown = "Unknown"

// RecordFields lists the output columns (CSV) and keys (JSON) in order.
var RecordFields = []string{
	"title",
	"price",
	"rating",
	"availability",
	"book_url",
	"image_url",
	"category",
}

// CatalogRecord is one listing entry scraped from a catalog page.
type CatalogRecord struct {
	Title        string `json:"title"`
	Price        string `json:"price"`
	Rating       Rating `json:"rating"`
	Availability string `json:"availability"`
	BookURL      string `json:"book_url"`
	ImageURL     string `json:"image_url"`
	Category     string `json:"category"`
}

// Values returns the record fields in RecordFields order.
func (r CatalogRecord) Values() []string {
	return []string{
		r.Title,
		r.Price,
		string(r.Rating),
		r.Availability,
		r.BookURL,
		r.ImageURL,
		r.Category,
	}
}

// RecordFromValues is the inverse of Values. It returns false when the
// slice does not hold exactly one value per field.
func RecordFromValues(values []string) (CatalogRecord, bool) {
	if len(values) != len(RecordFields) {
		return CatalogRecord{}, false
	}
	return CatalogRecord{
		Title:        values[0],
		Price:        values[1],
		Rating:       Rating(values[2]),
		Availability: values[3],
		BookURL:      values[4],
		ImageURL:     values[5],
		Category:     values[6],
	}, true
}

// Complete reports whether every field is populated.
func (r CatalogRecord) Complete() bool {
	for _, v := range r.Values() {
		if v == "" {
			return false
		}
	}
	return true
}

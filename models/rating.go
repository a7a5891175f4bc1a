package models

// Rating is the star rating label used by the catalog markup.
type Rating string

const (
	RatingOne     Rating = "One"
	RatingTwo     Rating = "Two"
	RatingThree   Rating = "Three"
	RatingFour    Rating = "Four"
	RatingFive    Rating = "Five"
	RatingUnknown Rating = Unknown
)

// Ratings holds the known labels in ascending order.
var Ratings = []Rating{RatingOne, RatingTwo, RatingThree, RatingFour, RatingFive}

// Stars converts the label to a 1-5 scale. Unknown ratings return 0.
func (r Rating) Stars() int {
	for i, known := range Ratings {
		if r == known {
			return i + 1
		}
	}
	return 0
}

// Known reports whether r is one of the five catalog labels.
func (r Rating) Known() bool {
	return r.Stars() > 0
}

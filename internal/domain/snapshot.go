package domain

import (
	"math"
	"time"
)

// Place holds the immutable identifiers of the reviewed location.
type Place struct {
	PlaceID       string
	GoogleMapsURL string
}

// MapsURLFor builds the public maps link for a place id.
func MapsURLFor(placeID string) string {
	if placeID == "" {
		return ""
	}
	return "https://www.google.com/maps/place/?q=place_id=" + placeID
}

// Snapshot is the persisted document read by the rendering layer.
type Snapshot struct {
	PlaceID       string   `json:"placeId"`
	GoogleMapsURL string   `json:"googleMapsUrl"`
	Rating        *float64 `json:"rating,omitempty"`
	TotalReviews  int      `json:"totalReviews"`
	LastUpdated   string   `json:"lastUpdated,omitempty"`
	Reviews       []Review `json:"reviews"`
}

// EmptySnapshot is the self-healing default for a missing or corrupt store.
func EmptySnapshot(p Place) Snapshot {
	return Snapshot{
		PlaceID:       p.PlaceID,
		GoogleMapsURL: p.GoogleMapsURL,
		Reviews:       []Review{},
	}
}

// NewSnapshot builds a snapshot around reviews, recomputing the aggregates.
func NewSnapshot(p Place, reviews []Review, at time.Time) Snapshot {
	if reviews == nil {
		reviews = []Review{}
	}
	return Snapshot{
		PlaceID:       p.PlaceID,
		GoogleMapsURL: p.GoogleMapsURL,
		Rating:        AverageRating(reviews),
		TotalReviews:  len(reviews),
		LastUpdated:   at.UTC().Format(time.RFC3339),
		Reviews:       reviews,
	}
}

// AverageRating is the mean of rated reviews rounded to one decimal,
// or nil when nothing is rated.
func AverageRating(reviews []Review) *float64 {
	sum, n := 0, 0
	for _, r := range reviews {
		if r.Rating == nil {
			continue
		}
		sum += *r.Rating
		n++
	}
	if n == 0 {
		return nil
	}
	avg := math.Round(float64(sum)/float64(n)*10) / 10
	return &avg
}

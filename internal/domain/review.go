package domain

// Review is the canonical record persisted in the snapshot, independent of
// the source it came from.
type Review struct {
	ID           string  `json:"id"`
	Author       string  `json:"author"`
	Rating       *int    `json:"rating,omitempty"` // nil = unrated
	Date         string  `json:"date"`             // RFC 3339
	RelativeDate string  `json:"relativeDate,omitempty"`
	Text         string  `json:"text"`
	PhotoURL     *string `json:"photoUrl"`

	// provenance only; never part of identity or ordering
	LocalGuide  *bool `json:"localGuide,omitempty"`
	ReviewCount *int  `json:"reviewCount,omitempty"`
	PhotoCount  *int  `json:"photoCount,omitempty"`
}

// AnonymousAuthor replaces a missing author name.
const AnonymousAuthor = "Anonymous"

// Origin tags which source shape a raw record came from.
type Origin string

const (
	OriginRemote Origin = "serpapi"
	OriginImport Origin = "import"
)

// RawReview is one un-normalized record. It is a closed union of
// RemoteRawReview and ImportedRawReview.
type RawReview interface {
	Origin() Origin
	rawReview()
}

// RemoteRawReview is a record in the review-search API shape
// (review_id, user.{name,thumbnail,local_guide}, iso_date, snippet, ...).
type RemoteRawReview struct {
	Fields map[string]any
}

func (RemoteRawReview) Origin() Origin { return OriginRemote }
func (RemoteRawReview) rawReview()     {}

// ImportedRawReview is a hand-authored record with loosely named fields.
// Fields is nil when the import element was not an object at all.
type ImportedRawReview struct {
	Index  int
	Fields map[string]any
}

func (ImportedRawReview) Origin() Origin { return OriginImport }
func (ImportedRawReview) rawReview()     {}

// Batch is what a source hands to the pipeline.
type Batch struct {
	Records []RawReview

	// upstream's own aggregate; informational, never persisted as-is
	UpstreamRating *float64
	UpstreamTotal  *int
}

package app

import (
	"fmt"
	"time"

	"clinic_reviews/internal/domain"
)

// Normalize maps one raw record of either shape into a canonical Review.
// It is pure: the only outside input is now, used as the date fallback.
func Normalize(raw domain.RawReview, now time.Time) (domain.Review, error) {
	switch r := raw.(type) {
	case domain.RemoteRawReview:
		return mapReview(r.Fields, remoteAliases, domain.OriginRemote, -1, now)
	case *domain.RemoteRawReview:
		return mapReview(r.Fields, remoteAliases, domain.OriginRemote, -1, now)
	case domain.ImportedRawReview:
		return mapReview(r.Fields, importAliases, domain.OriginImport, r.Index, now)
	case *domain.ImportedRawReview:
		return mapReview(r.Fields, importAliases, domain.OriginImport, r.Index, now)
	default:
		return domain.Review{}, &domain.MalformedRecordError{Index: -1, Reason: fmt.Sprintf("unsupported record type %T", raw)}
	}
}

// NormalizeBatch normalizes every record independently, skipping (and
// reporting) the ones that carry no usable signal.
func NormalizeBatch(records []domain.RawReview, now time.Time) ([]domain.Review, []error) {
	out := make([]domain.Review, 0, len(records))
	var skipped []error
	for i, raw := range records {
		rv, err := Normalize(raw, now)
		if err != nil {
			if me, ok := err.(*domain.MalformedRecordError); ok && me.Index < 0 {
				me.Index = i
			}
			skipped = append(skipped, err)
			continue
		}
		out = append(out, rv)
	}
	return out, skipped
}

func mapReview(r map[string]any, aliases map[string][]string, origin domain.Origin, index int, now time.Time) (domain.Review, error) {
	if r == nil {
		return domain.Review{}, &domain.MalformedRecordError{Origin: origin, Index: index, Reason: "record is not an object"}
	}

	var rv domain.Review
	rv.Author = firstNonEmptyAlias(r, aliases, "author")
	rv.Text = firstNonEmptyAlias(r, aliases, "text")
	rv.Rating = clampRating(getFloatFlexible(r, aliases["rating"]...))

	if rv.Author == "" && rv.Text == "" && rv.Rating == nil {
		return domain.Review{}, &domain.MalformedRecordError{Origin: origin, Index: index, Reason: "no author, text or rating"}
	}
	if rv.Author == "" {
		rv.Author = domain.AnonymousAuthor
	}

	rv.PhotoURL = ptrStr(firstNonEmptyAlias(r, aliases, "photo"))

	// Date → absolute if we can parse one; otherwise keep the relative text
	// and stamp the run time.
	iso, unparsed := absoluteDate(r, aliases["date"]...)
	if iso != "" {
		rv.Date = iso
	} else {
		rv.RelativeDate = firstNonEmptyAlias(r, aliases, "relativeDate")
		if rv.RelativeDate == "" {
			rv.RelativeDate = unparsed
		}
		rv.Date = now.UTC().Format(time.RFC3339)
	}

	rv.LocalGuide = firstBoolFlexible(r, aliases["localGuide"]...)
	rv.ReviewCount = firstIntFlexible(r, aliases["reviewCount"]...)
	rv.PhotoCount = firstIntFlexible(r, aliases["photoCount"]...)

	// ID → prefer a durable source id; else derive from author + text.
	if s := firstNonEmptyAlias(r, aliases, "id"); s != "" {
		rv.ID = s
	} else if f := getFloatFlexible(r, aliases["id"]...); f != nil {
		rv.ID = fmt.Sprintf("%.0f", *f)
	} else {
		rv.ID = DerivedID(rv.Author, rv.Text)
	}
	return rv, nil
}

package app

import (
	"context"
	"time"

	"clinic_reviews/internal/domain"
)

// SnapshotCacheKey is where the API caches the parsed snapshot of a place.
func SnapshotCacheKey(placeID string) string { return "snapshot:" + placeID }

// ReviewsQuery filters the published reviews.
type ReviewsQuery struct {
	Limit     int // 0 = all
	MinRating int // 0 = include unrated
}

// ReviewsPage is what the rendering layer receives.
type ReviewsPage struct {
	PlaceID       string          `json:"placeId"`
	GoogleMapsURL string          `json:"googleMapsUrl"`
	Rating        *float64        `json:"rating,omitempty"`
	TotalReviews  int             `json:"totalReviews"`
	LastUpdated   string          `json:"lastUpdated,omitempty"`
	Reviews       []domain.Review `json:"reviews"`
}

// QueryService serves the persisted snapshot read-only.
type QueryService struct {
	store    domain.SnapshotStore
	cache    domain.Cache
	placeID  string
	cacheTTL time.Duration
}

func NewQueryService(s domain.SnapshotStore, c domain.Cache, placeID string, ttl time.Duration) *QueryService {
	return &QueryService{store: s, cache: c, placeID: placeID, cacheTTL: ttl}
}

func (s *QueryService) snapshot(ctx context.Context) (domain.Snapshot, error) {
	key := SnapshotCacheKey(s.placeID)
	var snap domain.Snapshot
	if s.cache != nil {
		if ok, _ := s.cache.Get(ctx, key, &snap); ok {
			return snap, nil
		}
	}
	// a corrupt store is an error here: never publish a document we cannot trust
	snap, err := s.store.Load()
	if err != nil {
		return domain.Snapshot{}, err
	}
	if s.cache != nil && s.cacheTTL > 0 {
		_ = s.cache.Set(ctx, key, snap, int(s.cacheTTL.Seconds()))
	}
	return snap, nil
}

func (s *QueryService) ListReviews(ctx context.Context, q ReviewsQuery) (ReviewsPage, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return ReviewsPage{}, err
	}

	// copy to avoid aliasing the cached snapshot's backing array
	items := make([]domain.Review, 0, len(snap.Reviews))
	for _, r := range snap.Reviews {
		if q.MinRating > 0 && (r.Rating == nil || *r.Rating < q.MinRating) {
			continue
		}
		items = append(items, r)
		if q.Limit > 0 && len(items) == q.Limit {
			break
		}
	}
	return ReviewsPage{
		PlaceID:       snap.PlaceID,
		GoogleMapsURL: snap.GoogleMapsURL,
		Rating:        snap.Rating,
		TotalReviews:  snap.TotalReviews,
		LastUpdated:   snap.LastUpdated,
		Reviews:       items,
	}, nil
}

package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"clinic_reviews/internal/domain"
)

// CachedRemote keeps the last remote batch in a Cache so a dry run followed
// by a real run pays for one API call.
type CachedRemote struct {
	next  domain.RemoteSource
	cache domain.Cache
	key   func(placeID string) string
	ttl   time.Duration
}

func NewCachedRemote(next domain.RemoteSource, cache domain.Cache, ttl time.Duration, key func(placeID string) string) *CachedRemote {
	return &CachedRemote{next: next, cache: cache, ttl: ttl, key: key}
}

// cachedBatch is the serializable form of a remote domain.Batch.
type cachedBatch struct {
	Records        []map[string]any `json:"records"`
	UpstreamRating *float64         `json:"upstream_rating,omitempty"`
	UpstreamTotal  *int             `json:"upstream_total,omitempty"`
}

func (c *CachedRemote) FetchReviews(ctx context.Context, placeID string) (domain.Batch, error) {
	key := c.key(placeID)
	var cb cachedBatch
	if ok, err := c.cache.Get(ctx, key, &cb); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("fetch cache read failed")
	} else if ok {
		log.Info().Str("key", key).Int("records", len(cb.Records)).Msg("using cached remote batch")
		return fromCached(cb), nil
	}

	b, err := c.next.FetchReviews(ctx, placeID)
	if err != nil {
		return domain.Batch{}, err
	}
	if err := c.cache.Set(ctx, key, toCached(b), int(c.ttl.Seconds())); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("fetch cache write failed")
	}
	return b, nil
}

func toCached(b domain.Batch) cachedBatch {
	cb := cachedBatch{
		Records:        make([]map[string]any, 0, len(b.Records)),
		UpstreamRating: b.UpstreamRating,
		UpstreamTotal:  b.UpstreamTotal,
	}
	for _, r := range b.Records {
		if rr, ok := r.(domain.RemoteRawReview); ok {
			cb.Records = append(cb.Records, rr.Fields)
		}
	}
	return cb
}

func fromCached(cb cachedBatch) domain.Batch {
	b := domain.Batch{
		Records:        make([]domain.RawReview, 0, len(cb.Records)),
		UpstreamRating: cb.UpstreamRating,
		UpstreamTotal:  cb.UpstreamTotal,
	}
	for _, f := range cb.Records {
		b.Records = append(b.Records, domain.RemoteRawReview{Fields: f})
	}
	return b
}

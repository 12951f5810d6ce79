package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"clinic_reviews/internal/domain"
)

// Pipeline drives fetch → normalize → merge → persist for one place.
type Pipeline struct {
	place   domain.Place
	remote  domain.RemoteSource
	imports domain.ImportSource
	store   domain.SnapshotStore
	archive domain.ReviewArchive
	cache   domain.Cache
	now     func() time.Time
}

type Option func(*Pipeline)

// WithArchive mirrors every saved snapshot into a ReviewArchive.
func WithArchive(a domain.ReviewArchive) Option { return func(p *Pipeline) { p.archive = a } }

// WithCache evicts the API's cached snapshot after every successful save.
func WithCache(c domain.Cache) Option { return func(p *Pipeline) { p.cache = c } }

// WithClock replaces time.Now; used by tests.
func WithClock(now func() time.Time) Option { return func(p *Pipeline) { p.now = now } }

func NewPipeline(place domain.Place, remote domain.RemoteSource, imports domain.ImportSource, store domain.SnapshotStore, opts ...Option) *Pipeline {
	p := &Pipeline{place: place, remote: remote, imports: imports, store: store, now: time.Now}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Run executes one pipeline run. A returned error means nothing was written,
// except for a PersistenceError where the previous file is still intact.
func (p *Pipeline) Run(ctx context.Context, cfg domain.RunConfig) (domain.Summary, error) {
	sum := domain.Summary{RunID: uuid.NewString(), Source: cfg.Source, Mode: cfg.Mode, DryRun: cfg.DryRun}
	if err := cfg.Validate(); err != nil {
		return sum, err
	}
	logger := log.With().Str("run", sum.RunID).Logger()
	logger.Info().
		Str("source", string(cfg.Source)).
		Str("mode", string(cfg.Mode)).
		Bool("dry_run", cfg.DryRun).
		Str("snapshot", p.store.Path()).
		Msg("review pipeline starting")

	// 1) Obtain raw records from the selected source.
	batch, err := p.fetch(ctx, cfg)
	if err != nil {
		return sum, err
	}
	sum.Fetched = len(batch.Records)
	now := p.now()

	// 2) Normalize each record independently; malformed ones are skipped.
	reviews, skipped := NormalizeBatch(batch.Records, now)
	for _, e := range skipped {
		logger.Warn().Err(e).Msg("skipping record")
	}
	sum.Normalized = len(reviews)
	sum.Skipped = len(skipped)

	// 3) Load prior state; a corrupt file is treated as empty and healed on save.
	prev, err := p.store.Load()
	if err != nil {
		var corrupt *domain.StoreCorruptError
		if !errors.As(err, &corrupt) {
			return sum, err
		}
		logger.Warn().Err(err).Msg("snapshot unreadable, starting from an empty snapshot")
		sum.Healed = true
		sum.Warnings = append(sum.Warnings, "existing snapshot was corrupt and will be replaced")
		prev = domain.EmptySnapshot(p.place)
	}

	// 4) Reconcile.
	res := Merge(prev.Reviews, reviews, cfg.Mode)
	sum.Added, sum.Updated, sum.Kept, sum.Removed = res.Added, res.Updated, res.Kept, res.Removed
	if cfg.Mode == domain.ModeOverwrite && len(reviews) == 0 && len(prev.Reviews) > 0 {
		msg := fmt.Sprintf("overwrite with an empty batch clears all %d stored reviews", len(prev.Reviews))
		logger.Warn().Int("cleared", len(prev.Reviews)).Msg("overwrite with an empty batch")
		sum.Warnings = append(sum.Warnings, msg)
	}

	// 5) Recompute aggregates from what will be stored.
	next := domain.NewSnapshot(p.place, res.Reviews, now)
	sum.Total = next.TotalReviews
	sum.Rating = next.Rating
	if w := upstreamDisagreement(batch, next); w != "" {
		logger.Warn().Msg(w)
		sum.Warnings = append(sum.Warnings, w)
	}

	// 6) Persist or preview.
	if cfg.DryRun {
		sum.Preview = p.store.DryRunPreview(prev, next)
		logger.Info().Int("total", sum.Total).Msg("dry run, snapshot not written")
		return sum, nil
	}
	if err := p.store.Save(next); err != nil {
		return sum, err
	}

	if p.cache != nil {
		if err := p.cache.Del(ctx, SnapshotCacheKey(p.place.PlaceID)); err != nil {
			logger.Warn().Err(err).Msg("snapshot cache eviction failed")
		}
	}
	if p.archive != nil {
		if err := p.archive.UpsertReviews(ctx, p.place.PlaceID, next.Reviews); err != nil {
			logger.Warn().Err(err).Msg("archive mirror failed")
			sum.Warnings = append(sum.Warnings, "archive mirror failed: "+err.Error())
		}
	}

	logger.Info().
		Int("fetched", sum.Fetched).
		Int("normalized", sum.Normalized).
		Int("skipped", sum.Skipped).
		Int("added", sum.Added).
		Int("updated", sum.Updated).
		Int("total", sum.Total).
		Msg("snapshot written")
	return sum, nil
}

func (p *Pipeline) fetch(ctx context.Context, cfg domain.RunConfig) (domain.Batch, error) {
	switch cfg.Source {
	case domain.SourceImport:
		if p.imports == nil {
			return domain.Batch{}, &domain.ConfigurationError{Reason: "no import reader configured"}
		}
		return p.imports.ReadFile(cfg.ImportPath)
	default:
		if p.remote == nil {
			return domain.Batch{}, &domain.ConfigurationError{Reason: "no remote source configured"}
		}
		if p.place.PlaceID == "" {
			return domain.Batch{}, &domain.ConfigurationError{Reason: "place id is required for the remote source"}
		}
		b, err := p.remote.FetchReviews(ctx, p.place.PlaceID)
		if err != nil {
			var se *domain.SourceUnavailableError
			var ce *domain.ConfigurationError
			if errors.As(err, &se) || errors.As(err, &ce) {
				return domain.Batch{}, err
			}
			return domain.Batch{}, &domain.SourceUnavailableError{Source: string(domain.OriginRemote), Err: err}
		}
		return b, nil
	}
}

// upstreamDisagreement reports when the source's own aggregate differs from
// the recomputed one. The recomputed value is always what gets stored.
func upstreamDisagreement(b domain.Batch, next domain.Snapshot) string {
	if b.UpstreamRating == nil || next.Rating == nil {
		return ""
	}
	if math.Abs(*b.UpstreamRating-*next.Rating) <= 0.1 {
		return ""
	}
	return fmt.Sprintf("upstream rating %.1f differs from computed %.1f over %d stored reviews",
		*b.UpstreamRating, *next.Rating, next.TotalReviews)
}

package domain

import "context"

// RemoteSource fetches the latest reviews for a place from the search API.
type RemoteSource interface {
	FetchReviews(ctx context.Context, placeID string) (Batch, error)
}

// ImportSource reads hand-authored review records from a local file.
type ImportSource interface {
	ReadFile(path string) (Batch, error)
}

type SnapshotStore interface {
	Load() (Snapshot, error)
	Save(s Snapshot) error
	DryRunPreview(prev, next Snapshot) string
	Path() string
}

// ReviewArchive mirrors persisted reviews into a queryable store.
type ReviewArchive interface {
	UpsertReviews(ctx context.Context, placeID string, rs []Review) error
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

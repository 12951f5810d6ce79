package app_test

import (
	"context"
	"encoding/json"
	"errors"

	"clinic_reviews/internal/domain"
)

// ---- fakes ----

type fakeStore struct {
	snap    domain.Snapshot
	loadErr error
	saveErr error
	saved   []domain.Snapshot
	loads   int
}

func (f *fakeStore) Load() (domain.Snapshot, error) {
	f.loads++
	if f.loadErr != nil {
		return domain.EmptySnapshot(domain.Place{PlaceID: f.snap.PlaceID}), f.loadErr
	}
	return f.snap, nil
}
func (f *fakeStore) Save(s domain.Snapshot) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, s)
	f.snap = s
	return nil
}
func (f *fakeStore) DryRunPreview(prev, next domain.Snapshot) string { return "preview" }
func (f *fakeStore) Path() string                                    { return "mem://reviews.json" }

type fakeRemote struct {
	batch domain.Batch
	err   error
	calls int
}

func (f *fakeRemote) FetchReviews(ctx context.Context, placeID string) (domain.Batch, error) {
	f.calls++
	return f.batch, f.err
}

type fakeImports struct {
	batch domain.Batch
	err   error
}

func (f *fakeImports) ReadFile(path string) (domain.Batch, error) { return f.batch, f.err }

type fakeArchive struct {
	got []domain.Review
	err error
}

func (f *fakeArchive) UpsertReviews(ctx context.Context, placeID string, rs []domain.Review) error {
	f.got = rs
	return f.err
}

// fakeCache round-trips through JSON like the redis adapter does.
type fakeCache struct {
	store map[string][]byte
	dels  []string
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	b, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}
func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	if c.store == nil {
		c.store = map[string][]byte{}
	}
	b, err := json.Marshal(v)
	c.store[key] = b
	return err
}
func (c *fakeCache) Del(ctx context.Context, key string) error {
	c.dels = append(c.dels, key)
	delete(c.store, key)
	return nil
}

var errBoom = errors.New("boom")

func ptr[T any](v T) *T { return &v }

func rev(id, author string, rating int, text string) domain.Review {
	r := domain.Review{ID: id, Author: author, Text: text, Date: "2024-01-01T00:00:00Z"}
	if rating > 0 {
		r.Rating = &rating
	}
	return r
}

func remote(fields map[string]any) domain.RawReview { return domain.RemoteRawReview{Fields: fields} }

func imported(i int, fields map[string]any) domain.RawReview {
	return domain.ImportedRawReview{Index: i, Fields: fields}
}

package file

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"clinic_reviews/internal/domain"
)

// Store persists the snapshot as one indented JSON document.
type Store struct {
	path  string
	place domain.Place
}

func New(path string, place domain.Place) *Store { return &Store{path: path, place: place} }

func (s *Store) Path() string { return s.path }

// Load reads the snapshot. A missing file yields an empty snapshot and no
// error; an unparsable or invalid one yields an empty snapshot together with
// a *domain.StoreCorruptError.
func (s *Store) Load() (domain.Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Info().Str("path", s.path).Msg("no snapshot yet, starting empty")
		return domain.EmptySnapshot(s.place), nil
	}
	if err != nil {
		return domain.EmptySnapshot(s.place), &domain.StoreCorruptError{Path: s.path, Err: err}
	}

	var snap domain.Snapshot
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&snap); err != nil {
		return domain.EmptySnapshot(s.place), &domain.StoreCorruptError{Path: s.path, Err: fmt.Errorf("decode: %w", err)}
	}
	if err := Validate(snap); err != nil {
		return domain.EmptySnapshot(s.place), &domain.StoreCorruptError{Path: s.path, Err: err}
	}
	if snap.Reviews == nil {
		snap.Reviews = []domain.Review{}
	}
	return snap, nil
}

// Validate checks the invariants every persisted snapshot must hold.
func Validate(snap domain.Snapshot) error {
	seen := make(map[string]struct{}, len(snap.Reviews))
	for i, r := range snap.Reviews {
		if r.ID == "" {
			return fmt.Errorf("review #%d has no id", i)
		}
		if _, dup := seen[r.ID]; dup {
			return fmt.Errorf("duplicate review id %q", r.ID)
		}
		seen[r.ID] = struct{}{}
		if r.Rating != nil && (*r.Rating < 1 || *r.Rating > 5) {
			return fmt.Errorf("review %q rating %d out of range", r.ID, *r.Rating)
		}
	}
	if snap.TotalReviews != len(snap.Reviews) {
		return fmt.Errorf("totalReviews %d does not match %d reviews", snap.TotalReviews, len(snap.Reviews))
	}
	if snap.Rating != nil && (*snap.Rating < 1 || *snap.Rating > 5) {
		return fmt.Errorf("aggregate rating %.2f out of range", *snap.Rating)
	}
	return nil
}

// Save replaces the snapshot atomically: the document is written to a
// temporary file in the same directory and renamed over the target.
func (s *Store) Save(snap domain.Snapshot) error {
	if snap.Reviews == nil {
		snap.Reviews = []domain.Review{}
	}
	if err := Validate(snap); err != nil {
		return &domain.PersistenceError{Path: s.path, Err: err}
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return &domain.PersistenceError{Path: s.path, Err: fmt.Errorf("encode: %w", err)}
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &domain.PersistenceError{Path: s.path, Err: fmt.Errorf("mkdir: %w", err)}
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return &domain.PersistenceError{Path: s.path, Err: fmt.Errorf("create temp: %w", err)}
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return &domain.PersistenceError{Path: s.path, Err: fmt.Errorf("write: %w", err)}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return &domain.PersistenceError{Path: s.path, Err: fmt.Errorf("sync: %w", err)}
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return &domain.PersistenceError{Path: s.path, Err: fmt.Errorf("close: %w", err)}
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return &domain.PersistenceError{Path: s.path, Err: fmt.Errorf("chmod: %w", err)}
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		cleanup()
		return &domain.PersistenceError{Path: s.path, Err: fmt.Errorf("rename: %w", err)}
	}
	log.Info().Str("path", s.path).Int("reviews", snap.TotalReviews).Msg("snapshot saved")
	return nil
}

// DryRunPreview describes what Save(next) would change, without touching disk.
func (s *Store) DryRunPreview(prev, next domain.Snapshot) string {
	before := make(map[string]domain.Review, len(prev.Reviews))
	for _, r := range prev.Reviews {
		before[r.ID] = r
	}
	var added []domain.Review
	var changed, same int
	for _, r := range next.Reviews {
		old, ok := before[r.ID]
		switch {
		case !ok:
			added = append(added, r)
		case sameReview(old, r):
			same++
		default:
			changed++
		}
		delete(before, r.ID)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "preview of %s:\n", s.path)
	fmt.Fprintf(&b, "  added:     %d\n", len(added))
	fmt.Fprintf(&b, "  changed:   %d\n", changed)
	fmt.Fprintf(&b, "  unchanged: %d\n", same)
	fmt.Fprintf(&b, "  removed:   %d\n", len(before))
	fmt.Fprintf(&b, "  total:     %d -> %d\n", prev.TotalReviews, next.TotalReviews)
	fmt.Fprintf(&b, "  rating:    %s -> %s\n", fmtRating(prev.Rating), fmtRating(next.Rating))
	for _, r := range added {
		fmt.Fprintf(&b, "  + %s %s\n", r.Author, stars(r.Rating))
	}
	for _, r := range prev.Reviews {
		if _, gone := before[r.ID]; gone {
			fmt.Fprintf(&b, "  - %s %s\n", r.Author, stars(r.Rating))
		}
	}
	return b.String()
}

func sameReview(a, b domain.Review) bool {
	x, _ := json.Marshal(a)
	y, _ := json.Marshal(b)
	return bytes.Equal(x, y)
}

func fmtRating(r *float64) string {
	if r == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.1f", *r)
}

func stars(r *int) string {
	if r == nil {
		return "(unrated)"
	}
	return strings.Repeat("*", *r)
}

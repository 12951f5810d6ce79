package file_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"clinic_reviews/internal/domain"
	"clinic_reviews/internal/storage/file"
)

var place = domain.Place{PlaceID: "p1", GoogleMapsURL: domain.MapsURLFor("p1")}

func pint(i int) *int { return &i }

func snap(rs ...domain.Review) domain.Snapshot {
	return domain.NewSnapshot(place, rs, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
}

func TestLoad_MissingFileIsEmpty(t *testing.T) {
	s := file.New(filepath.Join(t.TempDir(), "reviews.json"), place)
	got, err := s.Load()
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got.TotalReviews != 0 || got.Reviews == nil || got.PlaceID != "p1" {
		t.Fatalf("unexpected empty snapshot %+v", got)
	}
}

func TestLoad_CorruptFile(t *testing.T) {
	cases := map[string]string{
		"not json":       `{"reviews": [`,
		"duplicate ids":  `{"placeId":"p1","totalReviews":2,"reviews":[{"id":"a","author":"A"},{"id":"a","author":"B"}]}`,
		"bad total":      `{"placeId":"p1","totalReviews":5,"reviews":[]}`,
		"rating too big": `{"placeId":"p1","totalReviews":1,"reviews":[{"id":"a","author":"A","rating":9}]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			p := filepath.Join(t.TempDir(), "reviews.json")
			if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
				t.Fatal(err)
			}
			got, err := file.New(p, place).Load()
			var ce *domain.StoreCorruptError
			if !errors.As(err, &ce) {
				t.Fatalf("expected StoreCorruptError, got %v", err)
			}
			if got.TotalReviews != 0 || got.Reviews == nil {
				t.Fatalf("expected an empty snapshot alongside the error, got %+v", got)
			}
		})
	}
}

func TestSave_RoundTripAndNoTempLeftovers(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "nested", "reviews.json")
	s := file.New(p, place)

	want := snap(
		domain.Review{ID: "a", Author: "Ana", Rating: pint(5), Date: "2024-01-01T00:00:00Z", Text: "Great"},
		domain.Review{ID: "b", Author: "Bob", Date: "2024-01-02T00:00:00Z"},
	)
	if err := s.Save(want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.TotalReviews != 2 || got.Reviews[1].ID != "b" || *got.Rating != 5 {
		t.Fatalf("unexpected round trip %+v", got)
	}

	ents, _ := os.ReadDir(filepath.Dir(p))
	if len(ents) != 1 {
		t.Fatalf("expected only the snapshot in %s, found %d entries", filepath.Dir(p), len(ents))
	}
	data, _ := os.ReadFile(p)
	if !strings.Contains(string(data), `"placeId": "p1"`) || !strings.HasSuffix(string(data), "\n") {
		t.Fatalf("unexpected document:\n%s", data)
	}
}

func TestSave_RejectsInvalidAndKeepsPrevious(t *testing.T) {
	p := filepath.Join(t.TempDir(), "reviews.json")
	s := file.New(p, place)
	if err := s.Save(snap(domain.Review{ID: "a", Author: "Ana"})); err != nil {
		t.Fatalf("save: %v", err)
	}
	before, _ := os.ReadFile(p)

	bad := snap(domain.Review{ID: "a", Author: "Ana"}, domain.Review{ID: "a", Author: "Dup"})
	err := s.Save(bad)
	var pe *domain.PersistenceError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PersistenceError, got %v", err)
	}
	after, _ := os.ReadFile(p)
	if string(before) != string(after) {
		t.Fatalf("failed save modified the previous snapshot")
	}
}

func TestDryRunPreview(t *testing.T) {
	s := file.New(filepath.Join(t.TempDir(), "reviews.json"), place)
	prev := snap(
		domain.Review{ID: "a", Author: "Ana", Rating: pint(5)},
		domain.Review{ID: "b", Author: "Bob", Rating: pint(2)},
	)
	next := snap(
		domain.Review{ID: "a", Author: "Ana", Rating: pint(4)},
		domain.Review{ID: "c", Author: "Cleo", Rating: pint(3)},
	)
	out := s.DryRunPreview(prev, next)
	for _, want := range []string{"added:     1", "changed:   1", "removed:   1", "+ Cleo ***", "- Bob **", "rating:    3.5 -> 3.5"} {
		if !strings.Contains(out, want) {
			t.Fatalf("preview missing %q:\n%s", want, out)
		}
	}
	if _, err := os.Stat(s.Path()); !os.IsNotExist(err) {
		t.Fatalf("preview touched the disk")
	}
}

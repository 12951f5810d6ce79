package app_test

import (
	"reflect"
	"testing"

	"clinic_reviews/internal/app"
	"clinic_reviews/internal/domain"
)

func ids(rs []domain.Review) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.ID
	}
	return out
}

func TestMerge_ReplacesInPlaceAndAppends(t *testing.T) {
	existing := []domain.Review{rev("a", "Ana", 5, "Great"), rev("b", "Bob", 2, "Meh")}
	batch := []domain.Review{rev("b", "Bob", 4, "Better now"), rev("c", "Cleo", 3, "Fine")}

	res := app.Merge(existing, batch, domain.ModeMerge)
	if got := ids(res.Reviews); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("unexpected order %v", got)
	}
	if *res.Reviews[1].Rating != 4 {
		t.Fatalf("expected b replaced by the batch record")
	}
	if res.Added != 1 || res.Updated != 1 || res.Kept != 1 || res.Removed != 0 {
		t.Fatalf("unexpected counts %+v", res)
	}
}

func TestMerge_MatchesAcrossSourcesByIdentityKey(t *testing.T) {
	existing := []domain.Review{rev("serp-1", "José Pérez", 5, "Excelente atención")}
	batch := []domain.Review{rev(app.DerivedID("jose perez", "EXCELENTE  atención"), "jose perez", 5, "EXCELENTE  atención")}

	res := app.Merge(existing, batch, domain.ModeMerge)
	if len(res.Reviews) != 1 || res.Updated != 1 {
		t.Fatalf("expected the import to match the remote record, got %+v", res)
	}
}

func TestMerge_Idempotent(t *testing.T) {
	existing := []domain.Review{rev("a", "Ana", 5, "Great"), rev("b", "Bob", 2, "Meh")}
	batch := []domain.Review{
		rev("b", "Bob", 4, "Great"), // text now collides with a's identity key
		rev("x", "Ana", 5, "Great"),
		rev("c", "Cleo", 3, "Fine"),
	}
	once := app.Merge(existing, batch, domain.ModeMerge).Reviews
	twice := app.Merge(once, batch, domain.ModeMerge).Reviews
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("merge not idempotent:\n once=%v\ntwice=%v", ids(once), ids(twice))
	}
	seen := map[string]bool{}
	for _, r := range twice {
		if seen[r.ID] {
			t.Fatalf("duplicate id %q", r.ID)
		}
		seen[r.ID] = true
	}
}

func TestMerge_EmptyBatch(t *testing.T) {
	existing := []domain.Review{rev("a", "Ana", 5, "Great")}

	res := app.Merge(existing, nil, domain.ModeMerge)
	if len(res.Reviews) != 1 || res.Kept != 1 {
		t.Fatalf("merge with an empty batch must be a no-op, got %+v", res)
	}

	res = app.Merge(existing, nil, domain.ModeOverwrite)
	if len(res.Reviews) != 0 || res.Removed != 1 {
		t.Fatalf("overwrite with an empty batch must clear, got %+v", res)
	}
}

func TestMerge_OverwriteIgnoresExisting(t *testing.T) {
	existing := []domain.Review{rev("a", "Ana", 5, "Great"), rev("b", "Bob", 2, "Meh")}
	batch := []domain.Review{rev("c", "Cleo", 3, "Fine"), rev("a", "Ana", 4, "Great")}

	res := app.Merge(existing, batch, domain.ModeOverwrite)
	if !reflect.DeepEqual(res.Reviews, batch) {
		t.Fatalf("overwrite must return the batch as-is, got %v", ids(res.Reviews))
	}
	if res.Added != 1 || res.Updated != 1 || res.Removed != 1 {
		t.Fatalf("unexpected counts %+v", res)
	}
}

func TestMerge_CollapsesDuplicatesInBatch(t *testing.T) {
	batch := []domain.Review{rev("a", "Ana", 3, "Ok"), rev("b", "Bob", 4, "Good"), rev("a", "Ana", 5, "Ok")}

	for _, mode := range []domain.Mode{domain.ModeOverwrite, domain.ModeMerge} {
		res := app.Merge(nil, batch, mode)
		if got := ids(res.Reviews); !reflect.DeepEqual(got, []string{"a", "b"}) {
			t.Fatalf("%s: unexpected ids %v", mode, got)
		}
		if *res.Reviews[0].Rating != 5 {
			t.Fatalf("%s: later duplicate should win", mode)
		}
	}
}

func TestMerge_FallbackDateKeepsStoredDate(t *testing.T) {
	stored := rev("a", "Ana", 5, "Great")
	incoming := rev("a", "Ana", 5, "Great")
	incoming.Date = "2025-06-01T12:00:00Z"
	incoming.RelativeDate = "a week ago"

	res := app.Merge([]domain.Review{stored}, []domain.Review{incoming}, domain.ModeMerge)
	if res.Reviews[0].Date != stored.Date || res.Reviews[0].RelativeDate != "a week ago" {
		t.Fatalf("unexpected date handling: %+v", res.Reviews[0])
	}
}

// The example from the pipeline docs: one stored 5-star review, a 2-star
// import merged on top.
func TestMerge_AggregateExample(t *testing.T) {
	existing := []domain.Review{rev("a", "Ana", 5, "Great")}
	res := app.Merge(existing, []domain.Review{rev("b", "Bob", 2, "")}, domain.ModeMerge)

	snap := domain.NewSnapshot(domain.Place{PlaceID: "p"}, res.Reviews, now)
	if snap.TotalReviews != 2 || snap.Rating == nil || *snap.Rating != 3.5 {
		t.Fatalf("unexpected aggregate: total=%d rating=%v", snap.TotalReviews, snap.Rating)
	}
}

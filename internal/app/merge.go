package app

import "clinic_reviews/internal/domain"

// MergeResult is the reconciled sequence plus what happened to it.
type MergeResult struct {
	Reviews []domain.Review
	Added   int // batch records with no counterpart in the existing set
	Updated int // batch records that replaced an existing record
	Kept    int // existing records untouched by the batch (merge only)
	Removed int // existing records dropped (overwrite only)
}

// Merge combines the persisted reviews with a normalized batch.
//
// Overwrite returns the batch alone. Merge keeps every existing record, lets
// a colliding batch record replace it in place and appends the rest in batch
// order. Collisions match on id first, then on IdentityKey. Duplicates inside
// the batch collapse onto their first position in both modes, so ids stay
// unique and merging the same batch twice yields the same sequence.
func Merge(existing, batch []domain.Review, mode domain.Mode) MergeResult {
	if mode == domain.ModeMerge && len(batch) == 0 {
		out := make([]domain.Review, len(existing))
		copy(out, existing)
		return MergeResult{Reviews: out, Kept: len(existing)}
	}

	batch = dedupeBatch(batch)
	prior := indexReviews(existing)
	claimed := make(map[int]bool, len(batch))

	if mode != domain.ModeMerge {
		res := MergeResult{Reviews: batch}
		for _, r := range batch {
			if pos, ok := prior.find(r); ok && !claimed[pos] {
				claimed[pos] = true
				res.Updated++
				continue
			}
			res.Added++
		}
		res.Removed = len(existing) - len(claimed)
		return res
	}

	out := make([]domain.Review, 0, len(existing)+len(batch))
	seen := make(map[string]struct{}, len(existing))
	for _, r := range existing {
		// tolerate a store that already holds a duplicate id
		if _, dup := seen[r.ID]; dup {
			continue
		}
		seen[r.ID] = struct{}{}
		out = append(out, r)
	}
	prior = indexReviews(out)

	res := MergeResult{}
	for _, r := range batch {
		pos, ok := prior.find(r)
		if ok && !claimed[pos] {
			claimed[pos] = true
			out[pos] = keepStoredDate(out[pos], r)
			res.Updated++
			continue
		}
		out = append(out, r)
		res.Added++
	}
	res.Kept = len(prior.byID) - len(claimed)
	res.Reviews = out
	return res
}

// dedupeBatch collapses records of one batch that describe the same review.
// The later record wins and takes the earlier one's position.
func dedupeBatch(batch []domain.Review) []domain.Review {
	ix := newReviewIndex(len(batch))
	out := make([]domain.Review, 0, len(batch))
	for _, r := range batch {
		if pos, ok := ix.find(r); ok {
			out[pos] = keepStoredDate(out[pos], r)
			ix.add(r, pos)
			continue
		}
		ix.add(r, len(out))
		out = append(out, r)
	}
	return out
}

// keepStoredDate stops a run-time fallback date from overwriting a date
// already known for the same review.
func keepStoredDate(old, r domain.Review) domain.Review {
	if r.RelativeDate != "" && old.Date != "" {
		r.Date = old.Date
	}
	return r
}

type reviewIndex struct {
	byID  map[string]int
	byKey map[string]int
}

func newReviewIndex(n int) *reviewIndex {
	return &reviewIndex{byID: make(map[string]int, n), byKey: make(map[string]int, n)}
}

func indexReviews(rs []domain.Review) *reviewIndex {
	ix := newReviewIndex(len(rs))
	for i, r := range rs {
		ix.add(r, i)
	}
	return ix
}

func (ix *reviewIndex) add(r domain.Review, pos int) {
	if _, ok := ix.byID[r.ID]; !ok {
		ix.byID[r.ID] = pos
	}
	k := IdentityKey(r.Author, r.Text)
	if _, ok := ix.byKey[k]; !ok {
		ix.byKey[k] = pos
	}
}

func (ix *reviewIndex) find(r domain.Review) (int, bool) {
	if pos, ok := ix.byID[r.ID]; ok {
		return pos, true
	}
	pos, ok := ix.byKey[IdentityKey(r.Author, r.Text)]
	return pos, ok
}

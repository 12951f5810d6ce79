package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"clinic_reviews/internal/domain"
)

// placeholders per review row in insertReviewsPrefix
const reviewCols = 10

// rows per INSERT; keeps well below the 65535 placeholder limit
const chunkSize = 500

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
func valInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}
func valF64(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}
func valBool(p *bool) any {
	if p == nil {
		return nil
	}
	return *p
}
func valEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// valTime parses the RFC 3339 review date; unparsable dates are stored as NULL.
func valTime(s string) any {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return t.UTC()
}

// Repo mirrors the persisted snapshot into MySQL for ad-hoc querying.
type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

// UpsertReviews makes the reviews table for placeID equal to rs, in one
// transaction.
func (r *Repo) UpsertReviews(ctx context.Context, placeID string, rs []domain.Review) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for start := 0; start < len(rs); start += chunkSize {
		end := min(start+chunkSize, len(rs))
		if err := insertChunk(ctx, tx, placeID, rs[start:end]); err != nil {
			return err
		}
	}
	if err := deleteStale(ctx, tx, placeID, rs); err != nil {
		return err
	}
	return tx.Commit()
}

func insertChunk(ctx context.Context, tx *sql.Tx, placeID string, rs []domain.Review) error {
	values := make([]string, 0, len(rs))
	args := make([]any, 0, len(rs)*reviewCols)
	for _, rv := range rs {
		raw, _ := json.Marshal(rv)
		values = append(values, "(?,?,?,?,?,?,?,?,?,?)")
		args = append(args,
			placeID,
			rv.ID,
			rv.Author,
			valInt(rv.Rating),
			valTime(rv.Date),
			valEmpty(rv.RelativeDate),
			rv.Text,
			valStr(rv.PhotoURL),
			valBool(rv.LocalGuide),
			string(raw),
		)
	}
	sqlStr := insertReviewsPrefix + strings.Join(values, ",") + insertReviewsOnDup
	if _, err := tx.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("upsert reviews: %w", err)
	}
	return nil
}

func deleteStale(ctx context.Context, tx *sql.Tx, placeID string, rs []domain.Review) error {
	if len(rs) == 0 {
		_, err := tx.ExecContext(ctx, deletePlaceSQL, placeID)
		return err
	}
	marks := make([]string, len(rs))
	args := make([]any, 0, len(rs)+1)
	args = append(args, placeID)
	for i, rv := range rs {
		marks[i] = "?"
		args = append(args, rv.ID)
	}
	q := deleteStalePrefix + "(" + strings.Join(marks, ",") + ")"
	if _, err := tx.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("delete stale reviews: %w", err)
	}
	return nil
}

// RecordRun appends one row per pipeline run to the audit table.
func (r *Repo) RecordRun(ctx context.Context, placeID string, s domain.Summary, runErr error) error {
	var msg any
	if runErr != nil {
		msg = runErr.Error()
	}
	_, err := r.db.ExecContext(ctx, insertRunSQL,
		s.RunID, placeID, string(s.Source), string(s.Mode), s.DryRun,
		s.Fetched, s.Normalized, s.Skipped, s.Added, s.Updated, s.Total,
		valF64(s.Rating), msg,
	)
	return err
}

// ListReviews reads the mirrored reviews of a place, newest first.
func (r *Repo) ListReviews(ctx context.Context, placeID string) ([]domain.Review, error) {
	rows, err := r.db.QueryContext(ctx, listReviewsSQL, placeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Review
	for rows.Next() {
		var rv domain.Review
		var rating sql.NullInt64
		var at sql.NullTime
		var rel, photo sql.NullString
		var guide sql.NullBool
		if err := rows.Scan(&rv.ID, &rv.Author, &rating, &at, &rel, &rv.Text, &photo, &guide); err != nil {
			return nil, err
		}
		if rating.Valid {
			n := int(rating.Int64)
			rv.Rating = &n
		}
		if at.Valid {
			rv.Date = at.Time.UTC().Format(time.RFC3339)
		}
		rv.RelativeDate = rel.String
		if photo.Valid {
			p := photo.String
			rv.PhotoURL = &p
		}
		if guide.Valid {
			g := guide.Bool
			rv.LocalGuide = &g
		}
		out = append(out, rv)
	}
	return out, rows.Err()
}

package mysql

// Note: `text` is reserved; keep it quoted everywhere.
const insertReviewsPrefix = "INSERT INTO reviews\n  (place_id, review_id, author, rating, reviewed_at, relative_date, `text`, photo_url, local_guide, raw)\nVALUES "

// Use VALUES(col) for broad compatibility. The snapshot is authoritative, so
// every column is overwritten.
const insertReviewsOnDup = " ON DUPLICATE KEY UPDATE\n" +
	"  author        = VALUES(author),\n" +
	"  rating        = VALUES(rating),\n" +
	"  reviewed_at   = VALUES(reviewed_at),\n" +
	"  relative_date = VALUES(relative_date),\n" +
	"  `text`        = VALUES(`text`),\n" +
	"  photo_url     = VALUES(photo_url),\n" +
	"  local_guide   = VALUES(local_guide),\n" +
	"  raw           = VALUES(raw),\n" +
	"  updated_at    = CURRENT_TIMESTAMP\n"

// rows of a place that are no longer in the snapshot; the id list is appended
const deleteStalePrefix = "DELETE FROM reviews WHERE place_id = ? AND review_id NOT IN "

const deletePlaceSQL = `DELETE FROM reviews WHERE place_id = ?`

const insertRunSQL = `
INSERT INTO review_runs
  (run_id, place_id, source, mode, dry_run, fetched, normalized, skipped, added, updated, total, rating, error)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// -----------------------------------------------------------------------------
// READ QUERIES
// -----------------------------------------------------------------------------

const listReviewsSQL = "SELECT review_id, author, rating, reviewed_at, relative_date, `text`, photo_url, local_guide\n" +
	"FROM reviews WHERE place_id = ? ORDER BY reviewed_at DESC, review_id"

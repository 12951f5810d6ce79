// internal/adapters/http_server/handlers.go
package httpserver

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"clinic_reviews/internal/app"
	"clinic_reviews/internal/domain"
)

const maxLimit = 500

// ReviewLister is the read side the handlers need; *app.QueryService satisfies it.
type ReviewLister interface {
	ListReviews(ctx context.Context, q app.ReviewsQuery) (app.ReviewsPage, error)
}

type Handlers struct{ Q ReviewLister }

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Get("/v1/reviews", h.listReviews)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

func parseQuery(r *http.Request) (app.ReviewsQuery, string) {
	var q app.ReviewsQuery
	if ls := r.URL.Query().Get("limit"); ls != "" {
		l, err := strconv.Atoi(ls)
		if err != nil || l <= 0 || l > maxLimit {
			return q, "limit must be an integer between 1 and 500"
		}
		q.Limit = l
	}
	if ms := r.URL.Query().Get("min_rating"); ms != "" {
		m, err := strconv.Atoi(ms)
		if err != nil || m < 1 || m > 5 {
			return q, "min_rating must be an integer between 1 and 5"
		}
		q.MinRating = m
	}
	return q, ""
}

func (h *Handlers) listReviews(w http.ResponseWriter, r *http.Request) {
	q, bad := parseQuery(r)
	if bad != "" {
		writeProblem(w, http.StatusBadRequest, "Invalid query", bad)
		return
	}

	out, err := h.Q.ListReviews(r.Context(), q)
	if err != nil {
		var corrupt *domain.StoreCorruptError
		if errors.As(err, &corrupt) {
			log.Error().Err(err).Msg("snapshot unreadable")
			writeProblem(w, http.StatusServiceUnavailable, "Snapshot unavailable", "the review snapshot cannot be read")
			return
		}
		log.Error().Err(err).Msg("list reviews failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
		return
	}

	etag, body := calcETagAndBody(out)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write listReviews body")
	}
}

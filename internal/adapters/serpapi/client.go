// internal/adapters/serpapi/client.go
package serpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"clinic_reviews/internal/adapters/observability"
	"clinic_reviews/internal/domain"
)

const DefaultBase = "https://serpapi.com"

type Client struct {
	base     string
	hc       *http.Client
	key      string
	lang     string
	maxPages int
	rl       *rate.Limiter
}

type Options struct {
	Lang     string
	MaxPages int
	RPS      int
	Timeout  time.Duration
}

func New(base, key string, o Options) (*Client, error) {
	if key == "" {
		return nil, &domain.ConfigurationError{Reason: "SERPAPI_API_KEY is required for the remote source", Err: ErrMissingAPIKey}
	}
	if base == "" {
		base = DefaultBase
	}
	if o.RPS <= 0 {
		o.RPS = 1
	}
	if o.MaxPages <= 0 {
		o.MaxPages = 1
	}
	if o.Timeout <= 0 {
		o.Timeout = 20 * time.Second
	}
	return &Client{
		base:     strings.TrimRight(base, "/"),
		hc:       &http.Client{Timeout: o.Timeout},
		key:      key,
		lang:     o.Lang,
		maxPages: o.MaxPages,
		rl:       rate.NewLimiter(rate.Limit(o.RPS), 1),
	}, nil
}

var (
	ErrMissingAPIKey = errors.New("serpapi: missing api key")
	ErrNotFound      = errors.New("serpapi: not found")
	ErrUnauthorized  = errors.New("serpapi: unauthorized")
	ErrForbidden     = errors.New("serpapi: forbidden")
	ErrMalformed     = errors.New("serpapi: malformed payload")
)

// response is the part of the google_maps_reviews payload we use.
type response struct {
	Error     string           `json:"error"`
	PlaceInfo *placeInfo       `json:"place_info"`
	Reviews   []map[string]any `json:"reviews"`
	Metadata  struct {
		Status string `json:"status"`
	} `json:"search_metadata"`
	Pagination struct {
		NextPageToken string `json:"next_page_token"`
	} `json:"serpapi_pagination"`
}

type placeInfo struct {
	Rating  *float64 `json:"rating"`
	Reviews *int     `json:"reviews"`
}

// FetchReviews requests up to maxPages result pages, in order. There are no
// retries: any failed page fails the whole fetch.
func (c *Client) FetchReviews(ctx context.Context, placeID string) (domain.Batch, error) {
	var b domain.Batch
	token := ""
	for page := 0; page < c.maxPages; page++ {
		resp, err := c.page(ctx, placeID, token)
		if err != nil {
			return domain.Batch{}, &domain.SourceUnavailableError{Source: string(domain.OriginRemote), Err: err}
		}
		if page == 0 && resp.PlaceInfo != nil {
			b.UpstreamRating = resp.PlaceInfo.Rating
			b.UpstreamTotal = resp.PlaceInfo.Reviews
		}
		for _, r := range resp.Reviews {
			b.Records = append(b.Records, domain.RemoteRawReview{Fields: r})
		}
		token = resp.Pagination.NextPageToken
		if token == "" {
			break
		}
	}
	log.Info().Str("place_id", placeID).Int("records", len(b.Records)).Msg("remote reviews fetched")
	return b, nil
}

func (c *Client) page(ctx context.Context, placeID, token string) (response, error) {
	q := url.Values{}
	q.Set("engine", "google_maps_reviews")
	q.Set("place_id", placeID)
	if c.lang != "" {
		q.Set("hl", c.lang)
	}
	if token != "" {
		q.Set("next_page_token", token)
	}
	q.Set("api_key", c.key)

	var out response
	if err := c.get(ctx, c.base+"/search.json?"+q.Encode(), &out); err != nil {
		return response{}, err
	}
	if out.Error != "" {
		return response{}, fmt.Errorf("api error: %s", out.Error)
	}
	if out.Metadata.Status != "" && !strings.EqualFold(out.Metadata.Status, "Success") {
		return response{}, fmt.Errorf("search status %q", out.Metadata.Status)
	}
	return out, nil
}

// get performs one rate-limited GET and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, u string, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "clinic-reviews/1.0")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observability.ObserveExternal("serpapi", "search", 0, time.Since(start))
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// the URL carries the api key; never surface it
		var ue *url.Error
		if errors.As(err, &ue) {
			return ue.Err
		}
		return err
	}
	defer resp.Body.Close()
	observability.ObserveExternal("serpapi", "search", resp.StatusCode, time.Since(start))

	switch resp.StatusCode {
	case http.StatusOK:
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return nil
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	default:
		// read a small error body for diagnostics
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
}

package movieapi

import (
	"context"
	"net/url"
	"strconv"
	"strings"
)

const defaultOMDbBaseURL = "https://www.omdbapi.com"

// OMDbClient fetches IMDb ratings from the Open Movie Database.
type OMDbClient struct {
	apiKey string
	http   requester
}

// NewOMDbClient creates an OMDb client from cfg.
func NewOMDbClient(cfg Config) *OMDbClient {
	baseURL := cfg.OMDbBaseURL
	if baseURL == "" {
		baseURL = defaultOMDbBaseURL
	}
	return &OMDbClient{
		apiKey: cfg.OMDbAPIKey,
		http:   newRequester("omdb", baseURL, cfg),
	}
}

type omdbResponse struct {
	Response   string `json:"Response"`
	Error      string `json:"Error"`
	IMDbRating string `json:"imdbRating"`
}

// Rating returns the IMDb rating for imdbID. ok is false for "N/A" or an
// unknown id.
func (c *OMDbClient) Rating(ctx context.Context, imdbID string) (float64, bool, error) {
	params := url.Values{
		"i":      []string{imdbID},
		"apikey": []string{c.apiKey},
	}

	var resp omdbResponse
	if err := c.http.get(ctx, "/", params, &resp); err != nil {
		return 0, false, err
	}
	if strings.EqualFold(resp.Response, "False") {
		return 0, false, nil
	}

	raw := strings.TrimSpace(resp.IMDbRating)
	if raw == "" || strings.EqualFold(raw, "N/A") {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, nil
	}
	return v, true, nil
}

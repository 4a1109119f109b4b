// Package movieapi talks to the remote movie databases: TMDB for search,
// credits and details, OMDb for IMDb ratings.
package movieapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"reelist/internal/models"
)

// DefaultLimit caps how many results a search returns.
const DefaultLimit = 16

// ErrNotFound is matched by lookups for movies or people the remote side does not know.
var ErrNotFound = errors.New("not found")

// StatusError reports a non-200 answer from a remote API.
type StatusError struct {
	Service    string
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Service, e.Endpoint, e.StatusCode, e.Body)
}

// Is lets errors.Is(err, ErrNotFound) match 404 answers.
func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// MovieSummary is one search hit.
type MovieSummary struct {
	ID          models.MovieID `json:"id"`
	Title       string         `json:"title"`
	ReleaseDate string         `json:"release_date"`
	Rating      models.Rating  `json:"rating"`
	PosterURL   string         `json:"poster_url"`
	Director    string         `json:"director,omitempty"`
}

// Person is a person search hit.
type Person struct {
	ID   models.MovieID `json:"id"`
	Name string         `json:"name"`
}

// Details is the full record of one movie.
type Details struct {
	ID          models.MovieID `json:"id"`
	Title       string         `json:"title"`
	Overview    string         `json:"overview,omitempty"`
	ReleaseDate string         `json:"release_date"`
	Rating      models.Rating  `json:"rating"`
	PosterURL   string         `json:"poster_url"`
	Runtime     int            `json:"runtime"`
	Genres      []string       `json:"genres"`
	Director    string         `json:"director,omitempty"`
	IMDbID      string         `json:"imdbId,omitempty"`
}

// Client is the lookup surface the application services depend on.
type Client interface {
	// SearchByTitle returns up to limit movies matching text.
	SearchByTitle(ctx context.Context, text string, limit int) ([]MovieSummary, error)

	// SearchByDirector resolves name to the first matching person and
	// returns up to limit movies they directed.
	SearchByDirector(ctx context.Context, name string, limit int) (Person, []MovieSummary, error)

	// Director returns the director of a movie, or "" when none is credited.
	Director(ctx context.Context, id models.MovieID) (string, error)

	// Details fetches runtime, genres, director and IMDb id in one call.
	Details(ctx context.Context, id models.MovieID) (Details, error)

	// ExternalRating returns the IMDb rating for an IMDb id; ok is false
	// when no rating is published or no rating source is configured.
	ExternalRating(ctx context.Context, imdbID string) (rating float64, ok bool, err error)
}

// Config holds configuration for the remote clients.
type Config struct {
	TMDBAPIKey  string
	TMDBBaseURL string
	OMDbAPIKey  string
	OMDbBaseURL string

	RequestTimeout time.Duration
	// RequestsPerSecond bounds outbound calls per client; 0 disables the limit.
	RequestsPerSecond float64
}

// Lookup combines TMDB and an optional OMDb client into a Client.
type Lookup struct {
	*TMDBClient
	omdb *OMDbClient
}

// New builds a Lookup from cfg. It returns nil when no TMDB key is configured.
func New(cfg Config) *Lookup {
	if cfg.TMDBAPIKey == "" {
		return nil
	}
	l := &Lookup{TMDBClient: NewTMDBClient(cfg)}
	if cfg.OMDbAPIKey != "" {
		l.omdb = NewOMDbClient(cfg)
	}
	return l
}

// ExternalRating implements Client.
func (l *Lookup) ExternalRating(ctx context.Context, imdbID string) (float64, bool, error) {
	if l.omdb == nil || imdbID == "" {
		return 0, false, nil
	}
	return l.omdb.Rating(ctx, imdbID)
}

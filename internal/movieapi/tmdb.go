package movieapi

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"reelist/internal/models"
)

const (
	defaultTMDBBaseURL = "https://api.themoviedb.org/3"
	posterBaseURL      = "https://image.tmdb.org/t/p/"
	posterSize         = "w342"
	directorJob        = "Director"
)

// TMDBClient queries The Movie Database.
type TMDBClient struct {
	apiKey string
	http   requester
}

// NewTMDBClient creates a TMDB client from cfg.
func NewTMDBClient(cfg Config) *TMDBClient {
	baseURL := cfg.TMDBBaseURL
	if baseURL == "" {
		baseURL = defaultTMDBBaseURL
	}
	return &TMDBClient{
		apiKey: cfg.TMDBAPIKey,
		http:   newRequester("tmdb", baseURL, cfg),
	}
}

// TMDB response structures
type tmdbMovie struct {
	ID          models.MovieID `json:"id"`
	Title       string         `json:"title"`
	Overview    string         `json:"overview"`
	ReleaseDate string         `json:"release_date"`
	VoteAverage models.Rating  `json:"vote_average"`
	PosterPath  string         `json:"poster_path"`
}

type tmdbMoviePage struct {
	Results []tmdbMovie `json:"results"`
}

type tmdbPersonPage struct {
	Results []struct {
		ID   models.MovieID `json:"id"`
		Name string         `json:"name"`
	} `json:"results"`
}

type tmdbCrewMember struct {
	tmdbMovie
	Name string `json:"name"`
	Job  string `json:"job"`
}

type tmdbCredits struct {
	Crew []tmdbCrewMember `json:"crew"`
}

type tmdbDetails struct {
	tmdbMovie
	Runtime *int `json:"runtime"`
	Genres  []struct {
		Name string `json:"name"`
	} `json:"genres"`
	IMDbID      string      `json:"imdb_id"`
	Credits     tmdbCredits `json:"credits"`
	ExternalIDs struct {
		IMDbID string `json:"imdb_id"`
	} `json:"external_ids"`
}

func (c *TMDBClient) get(ctx context.Context, endpoint string, params url.Values, result interface{}) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.apiKey)
	return c.http.get(ctx, endpoint, params, result)
}

// SearchByTitle searches movies by title.
func (c *TMDBClient) SearchByTitle(ctx context.Context, text string, limit int) ([]MovieSummary, error) {
	params := url.Values{"query": []string{text}}

	var page tmdbMoviePage
	if err := c.get(ctx, "/search/movie", params, &page); err != nil {
		return nil, err
	}

	results := truncate(page.Results, limit)
	movies := make([]MovieSummary, 0, len(results))
	for _, m := range results {
		movies = append(movies, m.summary())
	}
	return movies, nil
}

// SearchByDirector finds the first person matching name and lists the
// movies they are credited as director on.
func (c *TMDBClient) SearchByDirector(ctx context.Context, name string, limit int) (Person, []MovieSummary, error) {
	params := url.Values{"query": []string{name}}

	var people tmdbPersonPage
	if err := c.get(ctx, "/search/person", params, &people); err != nil {
		return Person{}, nil, err
	}
	if len(people.Results) == 0 {
		return Person{}, []MovieSummary{}, nil
	}

	person := Person{ID: people.Results[0].ID, Name: people.Results[0].Name}

	var credits tmdbCredits
	endpoint := fmt.Sprintf("/person/%s/movie_credits", url.PathEscape(person.ID.String()))
	if err := c.get(ctx, endpoint, nil, &credits); err != nil {
		return person, nil, err
	}

	directed := make([]tmdbMovie, 0, len(credits.Crew))
	for _, cm := range credits.Crew {
		if cm.Job == directorJob {
			directed = append(directed, cm.tmdbMovie)
		}
	}

	directed = truncate(directed, limit)
	movies := make([]MovieSummary, 0, len(directed))
	for _, m := range directed {
		s := m.summary()
		s.Director = person.Name
		movies = append(movies, s)
	}
	return person, movies, nil
}

// Director returns the first crew member credited as director.
func (c *TMDBClient) Director(ctx context.Context, id models.MovieID) (string, error) {
	var credits tmdbCredits
	endpoint := fmt.Sprintf("/movie/%s/credits", url.PathEscape(id.String()))
	if err := c.get(ctx, endpoint, nil, &credits); err != nil {
		return "", err
	}
	return credits.director(), nil
}

// Details fetches the movie with its credits and external ids appended.
func (c *TMDBClient) Details(ctx context.Context, id models.MovieID) (Details, error) {
	params := url.Values{"append_to_response": []string{"credits,external_ids"}}

	var d tmdbDetails
	endpoint := fmt.Sprintf("/movie/%s", url.PathEscape(id.String()))
	if err := c.get(ctx, endpoint, params, &d); err != nil {
		return Details{}, err
	}

	genres := make([]string, 0, len(d.Genres))
	for _, g := range d.Genres {
		if name := strings.TrimSpace(g.Name); name != "" {
			genres = append(genres, name)
		}
	}

	imdbID := d.ExternalIDs.IMDbID
	if imdbID == "" {
		imdbID = d.IMDbID
	}

	details := Details{
		ID:          d.ID,
		Title:       d.Title,
		Overview:    d.Overview,
		ReleaseDate: d.ReleaseDate,
		Rating:      d.VoteAverage,
		PosterURL:   PosterURL(d.PosterPath),
		Genres:      genres,
		Director:    d.Credits.director(),
		IMDbID:      imdbID,
	}
	if d.Runtime != nil {
		details.Runtime = *d.Runtime
	}
	if details.ID == "" {
		details.ID = id
	}
	return details, nil
}

// PosterURL builds the image URL for a TMDB poster path; empty path gives "".
func PosterURL(path string) string {
	if path == "" {
		return ""
	}
	return posterBaseURL + posterSize + path
}

func (m tmdbMovie) summary() MovieSummary {
	return MovieSummary{
		ID:          m.ID,
		Title:       m.Title,
		ReleaseDate: m.ReleaseDate,
		Rating:      m.VoteAverage,
		PosterURL:   PosterURL(m.PosterPath),
	}
}

func (c tmdbCredits) director() string {
	for _, cm := range c.Crew {
		if cm.Job == directorJob {
			return cm.Name
		}
	}
	return ""
}

func truncate[T any](items []T, limit int) []T {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if len(items) > limit {
		return items[:limit]
	}
	return items
}

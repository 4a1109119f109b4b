// Package search orchestrates title and director searches against the
// movie lookup client.
package search

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/sync/errgroup"

	"reelist/internal/logging"
	"reelist/internal/models"
	"reelist/internal/movieapi"
)

// Search modes.
const (
	ModeFilm     = "film"
	ModeDirector = "director"
)

// DefaultConcurrency bounds parallel director lookups per search.
const DefaultConcurrency = 4

// Result is the outcome of a search. Director is set in director mode
// when a person matched.
type Result struct {
	Query    string                  `json:"query"`
	Mode     string                  `json:"type"`
	Director *movieapi.Person        `json:"director,omitempty"`
	Movies   []movieapi.MovieSummary `json:"movies"`
}

// Service runs searches and single-movie lookups.
type Service interface {
	Search(ctx context.Context, query, mode string) (Result, error)
	Movie(ctx context.Context, id models.MovieID) (movieapi.Details, error)
}

type service struct {
	lookup      movieapi.Client
	limit       int
	concurrency int
}

// New constructs a search Service. lookup may be nil, in which case every
// search is empty and every movie is not found.
func New(lookup movieapi.Client, concurrency int) Service {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &service{lookup: lookup, limit: movieapi.DefaultLimit, concurrency: concurrency}
}

// Search never fails on remote errors; they are logged and yield an empty
// or partial result.
func (s *service) Search(ctx context.Context, query, mode string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	query = strings.TrimSpace(query)
	mode = strings.TrimSpace(mode)
	if mode != ModeDirector {
		mode = ModeFilm
	}

	res := Result{Query: query, Mode: mode, Movies: []movieapi.MovieSummary{}}
	if query == "" || s.lookup == nil {
		return res, nil
	}

	logger := logging.FromContext(ctx).With().Str("query", query).Str("type", mode).Logger()

	if mode == ModeDirector {
		person, movies, err := s.lookup.SearchByDirector(ctx, query, s.limit)
		if err != nil {
			logger.Warn().Err(err).Msg("director search failed")
			return res, nil
		}
		if person.Name != "" {
			res.Director = &person
		}
		if movies != nil {
			res.Movies = movies
		}
		return res, nil
	}

	movies, err := s.lookup.SearchByTitle(ctx, query, s.limit)
	if err != nil {
		logger.Warn().Err(err).Msg("title search failed")
		return res, nil
	}

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i := range movies {
		i := i
		g.Go(func() error {
			director, err := s.lookup.Director(ctx, movies[i].ID)
			if err != nil {
				logger.Warn().Err(err).Str("movie_id", movies[i].ID.String()).Msg("director lookup failed")
				return nil
			}
			movies[i].Director = director
			return nil
		})
	}
	_ = g.Wait()

	res.Movies = movies
	return res, nil
}

// Movie returns full details for one movie. Any remote failure reads as
// movieapi.ErrNotFound.
func (s *service) Movie(ctx context.Context, id models.MovieID) (movieapi.Details, error) {
	if err := ctx.Err(); err != nil {
		return movieapi.Details{}, err
	}
	if s.lookup == nil || strings.TrimSpace(id.String()) == "" {
		return movieapi.Details{}, movieapi.ErrNotFound
	}

	d, err := s.lookup.Details(ctx, id)
	if err != nil {
		if !errors.Is(err, movieapi.ErrNotFound) {
			logging.FromContext(ctx).Warn().Err(err).Str("movie_id", id.String()).Msg("movie details failed")
		}
		return movieapi.Details{}, movieapi.ErrNotFound
	}
	return d, nil
}

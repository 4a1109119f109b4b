package favorites

import (
	"context"
	"errors"
	"strings"

	"reelist/internal/logging"
	"reelist/internal/models"
	"reelist/internal/movieapi"
	"reelist/internal/store"
)

// ErrMissingMovieID is returned when a favorite is added without an id.
var ErrMissingMovieID = errors.New("movie id is required")

var errUnchanged = errors.New("favorites unchanged")

// Service describes the favorites operations used by HTTP handlers.
type Service interface {
	Add(ctx context.Context, username string, movie movieapi.MovieSummary) (bool, error)
	Remove(ctx context.Context, username string, id models.MovieID) error
	List(ctx context.Context, username, sortKey string, reverse bool) ([]models.FavoriteMovie, error)
	IDs(ctx context.Context, username string) ([]models.MovieID, error)
}

type service struct {
	store   store.UserStore
	details movieapi.Client
}

// New constructs a favorites Service. details may be nil, in which case
// favorites are stored with only the caller-supplied fields.
func New(st store.UserStore, details movieapi.Client) Service {
	return &service{store: st, details: details}
}

// Add appends movie to the user's favorites unless it is already there.
func (s *service) Add(ctx context.Context, username string, movie movieapi.MovieSummary) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	movie.ID = models.MovieID(strings.TrimSpace(movie.ID.String()))
	if movie.ID == "" {
		return false, ErrMissingMovieID
	}

	current, err := s.store.Find(ctx, username)
	if err != nil {
		return false, err
	}
	if current.HasFavorite(movie.ID) {
		return false, nil
	}

	fav := models.FavoriteMovie{
		ID:          movie.ID,
		Title:       movie.Title,
		PosterURL:   movie.PosterURL,
		ReleaseDate: movie.ReleaseDate,
		Rating:      movie.Rating,
		Director:    movie.Director,
	}
	s.fillDetails(ctx, &fav)

	_, err = store.Update(ctx, s.store, username, func(u *models.User) error {
		if u.HasFavorite(fav.ID) {
			return errUnchanged
		}
		u.Favorites = append(u.Favorites, fav.Clone())
		return nil
	})
	if errors.Is(err, errUnchanged) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Remove drops every favorite with the given id; removing an absent id is a no-op.
func (s *service) Remove(ctx context.Context, username string, id models.MovieID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	id = models.MovieID(strings.TrimSpace(id.String()))
	_, err := store.Update(ctx, s.store, username, func(u *models.User) error {
		if !u.HasFavorite(id) {
			return errUnchanged
		}
		kept := make([]models.FavoriteMovie, 0, len(u.Favorites))
		for _, f := range u.Favorites {
			if f.ID != id {
				kept = append(kept, f)
			}
		}
		u.Favorites = kept
		return nil
	})
	if errors.Is(err, errUnchanged) {
		return nil
	}
	return err
}

// List returns the user's favorites ordered by sortKey.
func (s *service) List(ctx context.Context, username, sortKey string, reverse bool) ([]models.FavoriteMovie, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	u, err := s.store.Find(ctx, username)
	if err != nil {
		return nil, err
	}
	return Sort(u.Favorites, sortKey, reverse), nil
}

// IDs returns the favorite ids of the user in insertion order.
func (s *service) IDs(ctx context.Context, username string) ([]models.MovieID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	u, err := s.store.Find(ctx, username)
	if err != nil {
		return nil, err
	}
	return u.FavoriteIDs(), nil
}

func (s *service) fillDetails(ctx context.Context, fav *models.FavoriteMovie) {
	if s.details == nil {
		return
	}

	d, err := s.details.Details(ctx, fav.ID)
	if err != nil {
		logging.FromContext(ctx).Warn().Err(err).Str("movie_id", fav.ID.String()).Msg("fetch details for new favorite")
		return
	}

	fav.Runtime = models.IntPtr(d.Runtime)
	fav.Genres = models.Genres(append([]string{}, d.Genres...))
	if fav.Director == "" {
		fav.Director = d.Director
	}
	fav.IMDbID = d.IMDbID
}

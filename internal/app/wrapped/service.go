package wrapped

import (
	"context"
	"errors"

	"reelist/internal/logging"
	"reelist/internal/models"
	"reelist/internal/movieapi"
	"reelist/internal/store"
)

var errNothingToSave = errors.New("no backfilled values to save")

// DefaultConcurrency bounds parallel remote lookups per request.
const DefaultConcurrency = 4

// Service returns wrapped statistics for a user.
type Service interface {
	Wrapped(ctx context.Context, username string) (Stats, error)
}

type service struct {
	store       store.UserStore
	lookup      movieapi.Client
	concurrency int
}

// New constructs a wrapped Service. lookup may be nil, in which case only
// cached detail fields are used.
func New(st store.UserStore, lookup movieapi.Client, concurrency int) Service {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &service{store: st, lookup: lookup, concurrency: concurrency}
}

// Wrapped fills missing detail fields, persists them, and aggregates.
func (s *service) Wrapped(ctx context.Context, username string) (Stats, error) {
	if err := ctx.Err(); err != nil {
		return Stats{}, err
	}

	u, err := s.store.Find(ctx, username)
	if err != nil {
		return Stats{}, err
	}

	patches := Backfill(ctx, s.lookup, u.Favorites, s.concurrency, NeedsWrappedData)
	if len(patches) == 0 {
		return Compute(u.Favorites), nil
	}

	saved, err := store.Update(ctx, s.store, username, func(fresh *models.User) error {
		if ApplyPatches(fresh.Favorites, patches) == 0 {
			return errNothingToSave
		}
		return nil
	})
	if errors.Is(err, errNothingToSave) {
		ApplyPatches(u.Favorites, patches)
		return Compute(u.Favorites), nil
	}
	if err != nil {
		logging.FromContext(ctx).Warn().Err(err).Msg("persist backfilled favorites")
		ApplyPatches(u.Favorites, patches)
		return Compute(u.Favorites), nil
	}
	return Compute(saved.Favorites), nil
}

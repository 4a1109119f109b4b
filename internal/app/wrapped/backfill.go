package wrapped

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"reelist/internal/logging"
	"reelist/internal/models"
	"reelist/internal/movieapi"
)

// Patch holds detail values fetched for one favorite. Nil or empty fields
// were not fetched.
type Patch struct {
	Runtime    *int
	Genres     models.Genres
	Director   string
	IMDbID     string
	IMDbRating *float64
}

func (p Patch) empty() bool {
	return p.Runtime == nil && p.Genres == nil && p.Director == "" && p.IMDbID == "" && p.IMDbRating == nil
}

// NeedsWrappedData reports whether f is missing anything the statistics use.
func NeedsWrappedData(f models.FavoriteMovie) bool {
	return !f.HasDetails() || f.IMDbRating == nil
}

// NeedsDetails reports whether f is missing any detail field.
func NeedsDetails(f models.FavoriteMovie) bool {
	return !f.Complete()
}

// Backfill fetches missing fields for every favorite selected by need,
// running at most concurrency lookups at once. Lookup failures are logged
// and leave the favorite unpatched.
func Backfill(ctx context.Context, lookup movieapi.Client, favs []models.FavoriteMovie, concurrency int, need func(models.FavoriteMovie) bool) map[models.MovieID]Patch {
	patches := make(map[models.MovieID]Patch)
	if lookup == nil {
		return patches
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(concurrency)

	for _, f := range favs {
		if !need(f) {
			continue
		}
		f := f
		g.Go(func() error {
			p := fetchPatch(ctx, lookup, f)
			if p.empty() {
				return nil
			}
			mu.Lock()
			patches[f.ID] = p
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return patches
}

func fetchPatch(ctx context.Context, lookup movieapi.Client, f models.FavoriteMovie) Patch {
	var p Patch
	logger := logging.FromContext(ctx).With().Str("movie_id", f.ID.String()).Logger()

	imdbID := f.IMDbID
	if !f.Complete() || imdbID == "" {
		d, err := lookup.Details(ctx, f.ID)
		if err != nil {
			logger.Warn().Err(err).Msg("fetch movie details")
		} else {
			if f.Runtime == nil || *f.Runtime == 0 {
				p.Runtime = models.IntPtr(d.Runtime)
			}
			if len(f.Genres) == 0 {
				p.Genres = models.Genres(append([]string{}, d.Genres...))
			}
			if f.Director == "" {
				p.Director = d.Director
			}
			if imdbID == "" && d.IMDbID != "" {
				imdbID = d.IMDbID
				p.IMDbID = d.IMDbID
			}
		}
	}

	if f.IMDbRating == nil && imdbID != "" {
		rating, ok, err := lookup.ExternalRating(ctx, imdbID)
		switch {
		case err != nil:
			logger.Warn().Err(err).Str("imdb_id", imdbID).Msg("fetch imdb rating")
		case ok:
			p.IMDbRating = models.FloatPtr(rating)
		}
	}
	return p
}

// ApplyPatches writes patched fields onto the matching favorites. Values
// already present on a favorite are kept.
func ApplyPatches(favs []models.FavoriteMovie, patches map[models.MovieID]Patch) int {
	applied := 0
	for i := range favs {
		p, ok := patches[favs[i].ID]
		if !ok {
			continue
		}
		f := &favs[i]
		changed := false
		if p.Runtime != nil && (f.Runtime == nil || (*f.Runtime == 0 && *p.Runtime != 0)) {
			f.Runtime = models.IntPtr(*p.Runtime)
			changed = true
		}
		if p.Genres != nil && (f.Genres == nil || (len(f.Genres) == 0 && len(p.Genres) > 0)) {
			f.Genres = append(models.Genres{}, p.Genres...)
			changed = true
		}
		if p.Director != "" && f.Director == "" {
			f.Director = p.Director
			changed = true
		}
		if p.IMDbID != "" && f.IMDbID == "" {
			f.IMDbID = p.IMDbID
			changed = true
		}
		if p.IMDbRating != nil && f.IMDbRating == nil {
			f.IMDbRating = models.FloatPtr(*p.IMDbRating)
			changed = true
		}
		if changed {
			applied++
		}
	}
	return applied
}

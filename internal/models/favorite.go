package models

// FavoriteMovie is a movie saved by a user. Runtime, Genres, IMDbID and
// IMDbRating are cache fields filled lazily; nil means "not fetched yet".
type FavoriteMovie struct {
	ID          MovieID  `json:"id"`
	Title       string   `json:"title"`
	PosterURL   string   `json:"poster_url"`
	ReleaseDate string   `json:"release_date"`
	Rating      Rating   `json:"rating"`
	Director    string   `json:"director,omitempty"`
	Runtime     *int     `json:"runtime,omitempty"`
	Genres      Genres   `json:"genres"`
	IMDbID      string   `json:"imdbId,omitempty"`
	IMDbRating  *float64 `json:"imdbRating,omitempty"`
}

// HasDetails reports whether runtime and genres have been backfilled.
func (f FavoriteMovie) HasDetails() bool {
	return f.Runtime != nil && f.Genres != nil
}

// Complete reports whether every detail field the backfill tool cares about is present.
func (f FavoriteMovie) Complete() bool {
	return f.Runtime != nil && *f.Runtime > 0 && len(f.Genres) > 0 && f.Director != ""
}

// Clone copies the favorite including its pointer and slice fields.
func (f FavoriteMovie) Clone() FavoriteMovie {
	clone := f
	if f.Runtime != nil {
		v := *f.Runtime
		clone.Runtime = &v
	}
	if f.IMDbRating != nil {
		v := *f.IMDbRating
		clone.IMDbRating = &v
	}
	if f.Genres != nil {
		clone.Genres = make(Genres, len(f.Genres))
		copy(clone.Genres, f.Genres)
	}
	return clone
}

// IntPtr is a small helper for optional integer fields.
func IntPtr(v int) *int { return &v }

// FloatPtr is a small helper for optional float fields.
func FloatPtr(v float64) *float64 { return &v }

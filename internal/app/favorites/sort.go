package favorites

import (
	"sort"

	"reelist/internal/models"
)

// Sort keys accepted by List.
const (
	SortRating      = "rating"
	SortReleaseDate = "release_date"
)

// Sort returns a sorted copy of favs. Sorting is stable: with reverse set,
// entries with equal keys keep their insertion order. An unknown key keeps
// insertion order, reversed when reverse is set.
func Sort(favs []models.FavoriteMovie, key string, reverse bool) []models.FavoriteMovie {
	out := make([]models.FavoriteMovie, len(favs))
	copy(out, favs)

	var less func(a, b models.FavoriteMovie) bool
	switch key {
	case SortRating:
		less = func(a, b models.FavoriteMovie) bool { return a.Rating.Float() < b.Rating.Float() }
	case SortReleaseDate:
		less = func(a, b models.FavoriteMovie) bool { return a.ReleaseDate < b.ReleaseDate }
	default:
		if reverse {
			for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
				out[i], out[j] = out[j], out[i]
			}
		}
		return out
	}

	sort.SliceStable(out, func(i, j int) bool {
		if reverse {
			return less(out[j], out[i])
		}
		return less(out[i], out[j])
	})
	return out
}

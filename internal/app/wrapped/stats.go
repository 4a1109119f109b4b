// Package wrapped computes aggregate statistics over a user's favorites,
// fetching missing detail fields on the way.
package wrapped

import (
	"math"

	"reelist/internal/models"
)

// Rating labels keyed on the average IMDb rating.
const (
	LabelExcellent = "You have excellent taste!"
	LabelGood      = "You have good taste!"
	LabelUnique    = "Your taste is... unique."
)

// Stats is the wrapped summary for one user.
type Stats struct {
	TotalMovies     int      `json:"total_movies"`
	TotalMinutes    int      `json:"total_minutes"`
	Hours           int      `json:"hours"`
	Minutes         int      `json:"minutes"`
	MostCommonGenre string   `json:"most_common_genre,omitempty"`
	AverageRating   *float64 `json:"average_rating,omitempty"`
	RatingLabel     string   `json:"rating_label,omitempty"`
}

// Compute aggregates favs. Favorites without runtime, genres or IMDb
// rating simply do not contribute to that statistic.
func Compute(favs []models.FavoriteMovie) Stats {
	stats := Stats{TotalMovies: len(favs)}

	counts := make(map[string]int)
	var order []string
	var ratingSum float64
	var rated int

	for _, f := range favs {
		if f.Runtime != nil {
			stats.TotalMinutes += *f.Runtime
		}
		for _, g := range f.Genres {
			if _, seen := counts[g]; !seen {
				order = append(order, g)
			}
			counts[g]++
		}
		if f.IMDbRating != nil {
			ratingSum += *f.IMDbRating
			rated++
		}
	}

	stats.Hours = stats.TotalMinutes / 60
	stats.Minutes = stats.TotalMinutes % 60

	best := 0
	for _, g := range order {
		if counts[g] > best {
			best = counts[g]
			stats.MostCommonGenre = g
		}
	}

	if rated > 0 {
		avg := math.Round(ratingSum/float64(rated)*100) / 100
		stats.AverageRating = &avg
		stats.RatingLabel = Label(avg)
	}
	return stats
}

// Label returns the qualitative label for an average rating.
func Label(avg float64) string {
	switch {
	case avg >= 8.0:
		return LabelExcellent
	case avg >= 6.0:
		return LabelGood
	default:
		return LabelUnique
	}
}

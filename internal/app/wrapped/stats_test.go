package wrapped

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reelist/internal/models"
)

func TestComputeWatchTimeAndGenre(t *testing.T) {
	favs := []models.FavoriteMovie{
		{ID: "1", Runtime: models.IntPtr(90), Genres: models.Genres{"Drama", "Crime"}},
		{ID: "2", Runtime: models.IntPtr(45), Genres: models.Genres{"Comedy", "Drama"}},
		{ID: "3", Runtime: models.IntPtr(130), Genres: models.Genres{"Drama"}},
	}

	stats := Compute(favs)
	assert.Equal(t, 3, stats.TotalMovies)
	assert.Equal(t, 265, stats.TotalMinutes)
	assert.Equal(t, 4, stats.Hours)
	assert.Equal(t, 25, stats.Minutes)
	assert.Equal(t, "Drama", stats.MostCommonGenre)
	assert.Nil(t, stats.AverageRating)
	assert.Empty(t, stats.RatingLabel)
}

func TestComputeGenreTieKeepsFirstSeen(t *testing.T) {
	favs := []models.FavoriteMovie{
		{ID: "1", Genres: models.Genres{"Horror", "Comedy"}},
		{ID: "2", Genres: models.Genres{"Comedy", "Horror"}},
	}
	assert.Equal(t, "Horror", Compute(favs).MostCommonGenre)
}

func TestComputeAverageRating(t *testing.T) {
	favs := []models.FavoriteMovie{
		{ID: "1", IMDbRating: models.FloatPtr(8.0)},
		{ID: "2", IMDbRating: models.FloatPtr(6.0)},
		{ID: "3"},
	}

	stats := Compute(favs)
	require.NotNil(t, stats.AverageRating)
	assert.Equal(t, 7.0, *stats.AverageRating)
	assert.Equal(t, LabelGood, stats.RatingLabel)
}

func TestComputeRoundsAverage(t *testing.T) {
	favs := []models.FavoriteMovie{
		{ID: "1", IMDbRating: models.FloatPtr(7.1)},
		{ID: "2", IMDbRating: models.FloatPtr(7.2)},
		{ID: "3", IMDbRating: models.FloatPtr(7.2)},
	}

	stats := Compute(favs)
	require.NotNil(t, stats.AverageRating)
	assert.Equal(t, 7.17, *stats.AverageRating)
}

func TestComputeEmpty(t *testing.T) {
	stats := Compute(nil)
	assert.Equal(t, Stats{}, stats)
}

func TestLabel(t *testing.T) {
	tests := []struct {
		avg  float64
		want string
	}{
		{avg: 9.1, want: LabelExcellent},
		{avg: 8.0, want: LabelExcellent},
		{avg: 7.99, want: LabelGood},
		{avg: 6.0, want: LabelGood},
		{avg: 5.99, want: LabelUnique},
		{avg: 0, want: LabelUnique},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, Label(tc.avg), "avg %v", tc.avg)
	}
}

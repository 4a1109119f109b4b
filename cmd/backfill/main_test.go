package main

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reelist/internal/models"
	"reelist/internal/movieapi"
	"reelist/internal/store"
)

type stubLookup struct {
	movieapi.Client
	details map[models.MovieID]movieapi.Details
}

func (s stubLookup) Details(ctx context.Context, id models.MovieID) (movieapi.Details, error) {
	d, ok := s.details[id]
	if !ok {
		return movieapi.Details{}, movieapi.ErrNotFound
	}
	return d, nil
}

func (s stubLookup) ExternalRating(ctx context.Context, imdbID string) (float64, bool, error) {
	return 7.5, imdbID != "", nil
}

func TestBackfillUser(t *testing.T) {
	ctx := context.Background()
	st := store.NewJSONFileStore(filepath.Join(t.TempDir(), "users.json"))
	_, err := st.Upsert(ctx, models.User{Username: "ada", Favorites: []models.FavoriteMovie{
		{ID: "550", Title: "Fight Club"},
		{ID: "999", Title: "Unknown"},
	}})
	require.NoError(t, err)

	lookup := stubLookup{details: map[models.MovieID]movieapi.Details{
		"550": {Runtime: 139, Genres: []string{"Drama"}, Director: "David Fincher", IMDbID: "tt0137523"},
	}}

	n, err := backfillUser(ctx, st, lookup, "ada", 2)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	u, err := st.Find(ctx, "ada")
	require.NoError(t, err)
	require.NotNil(t, u.Favorites[0].Runtime)
	assert.Equal(t, 139, *u.Favorites[0].Runtime)
	require.NotNil(t, u.Favorites[0].IMDbRating)
	assert.Equal(t, 7.5, *u.Favorites[0].IMDbRating)
	assert.Nil(t, u.Favorites[1].Runtime)

	n, err = backfillUser(ctx, st, lookup, "ada", 2)
	require.NoError(t, err)
	assert.Zero(t, n, "complete favorites are left alone")
}

func TestBackfillUnknownUser(t *testing.T) {
	st := store.NewJSONFileStore(filepath.Join(t.TempDir(), "users.json"))

	_, err := backfillUser(context.Background(), st, stubLookup{}, "ghost", 1)
	assert.True(t, errors.Is(err, store.ErrUserNotFound))
}

func TestAllUsernames(t *testing.T) {
	ctx := context.Background()
	st := store.NewJSONFileStore(filepath.Join(t.TempDir(), "users.json"))
	for _, name := range []string{"ada", "grace"} {
		_, err := st.Upsert(ctx, models.User{Username: name})
		require.NoError(t, err)
	}

	names, err := allUsernames(ctx, st)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"ada", "grace"}, names)
}

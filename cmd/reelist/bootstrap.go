package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"reelist/internal/app/favorites"
	"reelist/internal/app/users"
	"reelist/internal/movieapi"
)

const (
	demoUsername = "demo"
	demoPassword = "demo123"
)

var demoFavorites = []movieapi.MovieSummary{
	{ID: "550", Title: "Fight Club", ReleaseDate: "1999-10-15", Rating: "8.4", Director: "David Fincher"},
	{ID: "27205", Title: "Inception", ReleaseDate: "2010-07-15", Rating: "8.4", Director: "Christopher Nolan"},
	{ID: "496243", Title: "Parasite", ReleaseDate: "2019-05-30", Rating: "8.5", Director: "Bong Joon-ho"},
}

// bootstrapDemoData creates the demo account with a few favorites when it does not exist yet.
func bootstrapDemoData(ctx context.Context, userSvc users.Service, favoriteSvc favorites.Service) error {
	if _, err := userSvc.Register(ctx, demoUsername, demoPassword, demoPassword); err != nil {
		if errors.Is(err, users.ErrUserExists) {
			return nil
		}
		return fmt.Errorf("bootstrap demo user: %w", err)
	}

	for _, movie := range demoFavorites {
		if _, err := favoriteSvc.Add(ctx, demoUsername, movie); err != nil {
			return fmt.Errorf("bootstrap demo favorite %q: %w", movie.Title, err)
		}
	}

	log.Info().Str("username", demoUsername).Int("favorites", len(demoFavorites)).Msg("demo account created")
	return nil
}

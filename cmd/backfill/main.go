// Command backfill fills missing movie details on stored favorites.
//
// Usage:
//
//	backfill [-concurrency n] <username>
//	backfill [-concurrency n] -all
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"reelist/internal/app/wrapped"
	"reelist/internal/config"
	"reelist/internal/database"
	"reelist/internal/logging"
	"reelist/internal/models"
	"reelist/internal/movieapi"
	"reelist/internal/store"
)

var errNoChanges = errors.New("no changes")

func main() {
	all := flag.Bool("all", false, "backfill every stored user")
	concurrency := flag.Int("concurrency", wrapped.DefaultConcurrency, "parallel remote lookups")
	flag.Parse()

	if *all == (flag.NArg() == 1) || flag.NArg() > 1 {
		fmt.Fprintln(os.Stderr, "usage: backfill [-concurrency n] <username> | -all")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logging.SetGlobalLogger(logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format}))

	lookup := movieapi.New(movieapi.Config{
		TMDBAPIKey:        cfg.MovieAPI.TMDBAPIKey,
		TMDBBaseURL:       cfg.MovieAPI.TMDBBaseURL,
		OMDbAPIKey:        cfg.MovieAPI.OMDbAPIKey,
		OMDbBaseURL:       cfg.MovieAPI.OMDbBaseURL,
		RequestTimeout:    cfg.MovieAPI.Timeout,
		RequestsPerSecond: cfg.MovieAPI.RequestsPerSecond,
	})
	if lookup == nil {
		log.Fatal().Msg("TMDB_API_KEY is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("open store")
	}
	defer closeStore()

	var usernames []string
	if *all {
		usernames, err = allUsernames(ctx, st)
		if err != nil {
			log.Fatal().Err(err).Msg("list users")
		}
	} else {
		usernames = []string{flag.Arg(0)}
	}

	total := 0
	for _, username := range usernames {
		n, err := backfillUser(ctx, st, lookup, username, *concurrency)
		if err != nil {
			log.Error().Err(err).Str("username", username).Msg("backfill failed")
			continue
		}
		log.Info().Str("username", username).Int("updated", n).Msg("backfill complete")
		total += n
	}
	fmt.Printf("updated %d favorites across %d users\n", total, len(usernames))
}

func openStore(ctx context.Context, cfg *config.Config) (store.UserStore, func(), error) {
	if cfg.Store.Backend != config.BackendPostgres {
		return store.NewJSONFileStore(cfg.Store.UsersFile), func() {}, nil
	}

	db, err := database.Open(ctx, cfg.Database.URL, database.Options{
		MaxWait:      10 * time.Second,
		MaxOpenConns: wrapped.DefaultConcurrency,
	})
	if err != nil {
		return nil, nil, err
	}
	return store.NewPostgres(db), func() { _ = db.Close() }, nil
}

func allUsernames(ctx context.Context, st store.UserStore) ([]string, error) {
	list, err := st.List(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(list))
	for _, u := range list {
		names = append(names, u.Username)
	}
	return names, nil
}

// backfillUser fetches details for incomplete favorites and saves them.
// It returns the number of favorites that changed.
func backfillUser(ctx context.Context, st store.UserStore, lookup movieapi.Client, username string, concurrency int) (int, error) {
	u, err := st.Find(ctx, username)
	if err != nil {
		return 0, err
	}

	patches := wrapped.Backfill(ctx, lookup, u.Favorites, concurrency, wrapped.NeedsDetails)
	if len(patches) == 0 {
		return 0, nil
	}

	changed := 0
	_, err = store.Update(ctx, st, username, func(fresh *models.User) error {
		changed = wrapped.ApplyPatches(fresh.Favorites, patches)
		if changed == 0 {
			return errNoChanges
		}
		return nil
	})
	if errors.Is(err, errNoChanges) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("save %s: %w", username, err)
	}
	return changed, nil
}

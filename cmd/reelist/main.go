package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"reelist/internal/app/favorites"
	"reelist/internal/app/search"
	"reelist/internal/app/users"
	"reelist/internal/app/wrapped"
	"reelist/internal/auth"
	"reelist/internal/config"
	"reelist/internal/database"
	"reelist/internal/http/middleware"
	"reelist/internal/httpapi"
	"reelist/internal/logging"
	"reelist/internal/movieapi"
	"reelist/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logging.SetGlobalLogger(logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	userStore, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	lookup := newMovieLookup(cfg)

	tokens := auth.NewTokenManager(cfg.Security.SessionSecret, cfg.Security.SessionTTL)
	userSvc := users.New(userStore, tokens)
	favoriteSvc := favorites.New(userStore, lookup)
	searchSvc := search.New(lookup, search.DefaultConcurrency)
	wrappedSvc := wrapped.New(userStore, lookup, wrapped.DefaultConcurrency)

	if cfg.BootstrapDemo {
		if err := bootstrapDemoData(ctx, userSvc, favoriteSvc); err != nil {
			return err
		}
	}

	api := httpapi.New(userSvc, favoriteSvc, searchSvc, wrappedSvc, httpapi.Options{
		SessionTTL:    tokens.TTL(),
		SecureCookies: cfg.IsProduction(),
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           newHTTPHandler(cfg, api.Routes()),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("store", cfg.Store.Backend).Msg("reelist listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func openStore(ctx context.Context, cfg *config.Config) (store.UserStore, func(), error) {
	if cfg.Store.Backend == config.BackendPostgres {
		db, err := database.Open(ctx, cfg.Database.URL, database.DefaultOptions)
		if err != nil {
			return nil, nil, err
		}
		return store.NewPostgres(db), func() { _ = db.Close() }, nil
	}
	return store.NewJSONFileStore(cfg.Store.UsersFile), func() {}, nil
}

// newMovieLookup returns nil when no TMDB key is configured so services run without remote lookups.
func newMovieLookup(cfg *config.Config) movieapi.Client {
	l := movieapi.New(movieapi.Config{
		TMDBAPIKey:        cfg.MovieAPI.TMDBAPIKey,
		TMDBBaseURL:       cfg.MovieAPI.TMDBBaseURL,
		OMDbAPIKey:        cfg.MovieAPI.OMDbAPIKey,
		OMDbBaseURL:       cfg.MovieAPI.OMDbBaseURL,
		RequestTimeout:    cfg.MovieAPI.Timeout,
		RequestsPerSecond: cfg.MovieAPI.RequestsPerSecond,
	})
	if l == nil {
		log.Warn().Msg("TMDB_API_KEY not set, movie search disabled")
		return nil
	}
	return l
}

func newHTTPHandler(cfg *config.Config, routes http.Handler) http.Handler {
	var h http.Handler = routes
	h = middleware.CORS(cfg.CORS.AllowedOrigins)(h)
	h = middleware.RequestLogging()(h)
	h = middleware.Recovery()(h)
	return h
}

package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reelist/internal/app/favorites"
	"reelist/internal/app/search"
	"reelist/internal/app/users"
	"reelist/internal/app/wrapped"
	"reelist/internal/auth"
	"reelist/internal/config"
	"reelist/internal/httpapi"
	"reelist/internal/store"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Store: config.StoreConfig{
			Backend:   config.BackendJSON,
			UsersFile: filepath.Join(t.TempDir(), "users.json"),
		},
		Security: config.SecurityConfig{SessionSecret: "0123456789abcdef", SessionTTL: time.Hour},
		CORS:     config.CORSConfig{AllowedOrigins: []string{"http://localhost:5173"}},
	}
}

func TestNewMovieLookupWithoutKeyIsNil(t *testing.T) {
	assert.Nil(t, newMovieLookup(testConfig(t)))
}

func TestBootstrapDemoDataIsIdempotent(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	st, closeStore, err := openStore(ctx, cfg)
	require.NoError(t, err)
	defer closeStore()

	userSvc := users.New(st, auth.NewTokenManager(cfg.Security.SessionSecret, cfg.Security.SessionTTL))
	favoriteSvc := favorites.New(st, nil)

	require.NoError(t, bootstrapDemoData(ctx, userSvc, favoriteSvc))
	require.NoError(t, bootstrapDemoData(ctx, userSvc, favoriteSvc))

	u, err := st.Find(ctx, demoUsername)
	require.NoError(t, err)
	assert.Len(t, u.Favorites, len(demoFavorites))

	_, err = userSvc.Login(ctx, demoUsername, demoPassword)
	assert.NoError(t, err)
}

func TestHTTPHandlerChain(t *testing.T) {
	cfg := testConfig(t)
	st := store.NewJSONFileStore(cfg.Store.UsersFile)
	tokens := auth.NewTokenManager(cfg.Security.SessionSecret, cfg.Security.SessionTTL)

	api := httpapi.New(
		users.New(st, tokens),
		favorites.New(st, nil),
		search.New(nil, 0),
		wrapped.New(st, nil, 0),
		httpapi.Options{SessionTTL: cfg.Security.SessionTTL},
	)
	handler := newHTTPHandler(cfg, api.Routes())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}

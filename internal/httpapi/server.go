package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"reelist/internal/app/search"
	"reelist/internal/app/wrapped"
	"reelist/internal/logging"
	"reelist/internal/models"
	"reelist/internal/movieapi"
	"reelist/internal/store"
)

// UserService captures the account operations needed by the HTTP handlers.
type UserService interface {
	Register(ctx context.Context, username, password, confirm string) (string, error)
	Login(ctx context.Context, username, password string) (string, error)
	Authenticate(ctx context.Context, token string) (string, error)
}

// FavoritesService coordinates favoriting workflows.
type FavoritesService interface {
	Add(ctx context.Context, username string, movie movieapi.MovieSummary) (bool, error)
	Remove(ctx context.Context, username string, id models.MovieID) error
	List(ctx context.Context, username, sortKey string, reverse bool) ([]models.FavoriteMovie, error)
	IDs(ctx context.Context, username string) ([]models.MovieID, error)
}

// SearchService runs movie searches and lookups.
type SearchService interface {
	Search(ctx context.Context, query, mode string) (search.Result, error)
	Movie(ctx context.Context, id models.MovieID) (movieapi.Details, error)
}

// WrappedService computes wrapped statistics.
type WrappedService interface {
	Wrapped(ctx context.Context, username string) (wrapped.Stats, error)
}

// SessionCookieName is the cookie carrying the session token.
const SessionCookieName = "session"

// Options tune session cookie handling.
type Options struct {
	SessionTTL    time.Duration
	SecureCookies bool
}

// Server wires HTTP handlers to the underlying services.
type Server struct {
	users     UserService
	favorites FavoritesService
	search    SearchService
	wrapped   WrappedService
	opts      Options
}

// New configures a Server with the given services.
func New(users UserService, favorites FavoritesService, search SearchService, wrapped WrappedService, opts Options) *Server {
	return &Server{
		users:     users,
		favorites: favorites,
		search:    search,
		wrapped:   wrapped,
		opts:      opts,
	}
}

// Routes exposes the HTTP handlers.
func (s *Server) Routes() http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}).Methods(http.MethodGet)

	router.HandleFunc("/logout", s.handleLogoutRedirect).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/auth/register", s.handleRegister).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)
	api.HandleFunc("/auth/logout", s.handleLogout).Methods(http.MethodPost)

	// Guarded routes are wrapped individually. A subrouter without a matcher
	// reports method mismatches on sibling routes as 404.
	guard := func(h http.HandlerFunc) http.Handler { return s.requireUser(h) }

	api.Handle("/movies/search", guard(s.handleSearch)).Methods(http.MethodGet)
	api.Handle("/movies/{id}", guard(s.handleMovie)).Methods(http.MethodGet)
	api.Handle("/me/favorites", guard(s.handleListFavorites)).Methods(http.MethodGet)
	api.Handle("/me/favorites", guard(s.handleAddFavorite)).Methods(http.MethodPost)
	api.Handle("/me/favorites/{id}", guard(s.handleRemoveFavorite)).Methods(http.MethodDelete)
	api.Handle("/me/wrapped", guard(s.handleWrapped)).Methods(http.MethodGet)

	router.Handle("/add_favorite", guard(s.handleAddFavoriteForm)).Methods(http.MethodPost)
	router.Handle("/remove_favorite", guard(s.handleRemoveFavoriteForm)).Methods(http.MethodPost)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
	})
	api.MethodNotAllowedHandler = router.MethodNotAllowedHandler

	return router
}

type errorResponse struct {
	Error string `json:"error"`
}

type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Added   *bool  `json:"added,omitempty"`
}

// writeServiceError maps service errors onto status codes.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrUserNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "user not found"})
	case errors.Is(err, movieapi.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "movie not found"})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "request cancelled"})
	default:
		logging.FromContext(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

func parseBearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func isXHR(r *http.Request) bool {
	return r.Header.Get("X-Requested-With") == "XMLHttpRequest"
}

// wantsJSON reports whether the caller is an API client rather than a
// browser navigating pages.
func wantsJSON(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") || isXHR(r) {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

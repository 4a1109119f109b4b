package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"reelist/internal/app/favorites"
	"reelist/internal/logging"
	"reelist/internal/models"
	"reelist/internal/movieapi"
	"reelist/internal/store"
)

type favoriteRequest struct {
	ID          models.MovieID `json:"id"`
	Title       string         `json:"title"`
	PosterURL   string         `json:"poster_url"`
	ReleaseDate string         `json:"release_date"`
	Rating      models.Rating  `json:"rating"`
	Director    string         `json:"director"`
}

func (req favoriteRequest) summary() movieapi.MovieSummary {
	return movieapi.MovieSummary{
		ID:          req.ID,
		Title:       strings.TrimSpace(req.Title),
		PosterURL:   strings.TrimSpace(req.PosterURL),
		ReleaseDate: strings.TrimSpace(req.ReleaseDate),
		Rating:      req.Rating,
		Director:    strings.TrimSpace(req.Director),
	}
}

type favoritesResponse struct {
	Favorites []models.FavoriteMovie `json:"favorites"`
}

func (s *Server) handleListFavorites(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	reverse, _ := strconv.ParseBool(query.Get("reverse"))
	favs, err := s.favorites.List(ctx, logging.Username(ctx), query.Get("sort"), reverse)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, favoritesResponse{Favorites: favs})
}

func (s *Server) handleAddFavorite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req favoriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON payload"})
		return
	}

	added, err := s.favorites.Add(ctx, logging.Username(ctx), req.summary())
	if err != nil {
		if errors.Is(err, favorites.ErrMissingMovieID) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{Status: "ok", Added: &added})
}

func (s *Server) handleRemoveFavorite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := models.MovieID(mux.Vars(r)["id"])

	if err := s.favorites.Remove(ctx, logging.Username(ctx), id); err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

// handleAddFavoriteForm serves the page-driven form post. Script callers
// get JSON, plain form posts are redirected back to the search page.
func (s *Server) handleAddFavoriteForm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, statusResponse{Status: "error", Message: "invalid form"})
		return
	}

	req := favoriteRequest{
		ID:          models.MovieID(strings.TrimSpace(r.PostForm.Get("id"))),
		Title:       r.PostForm.Get("title"),
		PosterURL:   r.PostForm.Get("poster_url"),
		ReleaseDate: r.PostForm.Get("release_date"),
		Rating:      models.Rating(strings.TrimSpace(r.PostForm.Get("rating"))),
		Director:    r.PostForm.Get("director"),
	}

	if _, err := s.favorites.Add(ctx, logging.Username(ctx), req.summary()); err != nil {
		s.writeFormError(w, r, err)
		return
	}

	if isXHR(r) {
		writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
		return
	}
	http.Redirect(w, r, "/movies", http.StatusSeeOther)
}

func (s *Server) handleRemoveFavoriteForm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, statusResponse{Status: "error", Message: "invalid form"})
		return
	}

	id := models.MovieID(strings.TrimSpace(r.PostForm.Get("id")))
	if err := s.favorites.Remove(ctx, logging.Username(ctx), id); err != nil {
		if errors.Is(err, store.ErrUserNotFound) && !isXHR(r) {
			http.Redirect(w, r, "/my-list", http.StatusSeeOther)
			return
		}
		s.writeFormError(w, r, err)
		return
	}

	if isXHR(r) {
		writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
		return
	}
	http.Redirect(w, r, "/my-list", http.StatusSeeOther)
}

func (s *Server) writeFormError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrUserNotFound):
		writeJSON(w, http.StatusBadRequest, statusResponse{Status: "error", Message: "User not found"})
	case errors.Is(err, favorites.ErrMissingMovieID):
		writeJSON(w, http.StatusBadRequest, statusResponse{Status: "error", Message: err.Error()})
	default:
		logging.FromContext(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("form request failed")
		writeJSON(w, http.StatusInternalServerError, statusResponse{Status: "error", Message: "internal server error"})
	}
}

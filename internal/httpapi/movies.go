package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"reelist/internal/app/search"
	"reelist/internal/logging"
	"reelist/internal/models"
)

type searchResponse struct {
	search.Result
	FavoriteIDs []models.MovieID `json:"favorite_ids"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	res, err := s.search.Search(ctx, query.Get("q"), query.Get("type"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	ids, err := s.favorites.IDs(ctx, logging.Username(ctx))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, searchResponse{Result: res, FavoriteIDs: ids})
}

func (s *Server) handleMovie(w http.ResponseWriter, r *http.Request) {
	id := models.MovieID(mux.Vars(r)["id"])

	details, err := s.search.Movie(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, details)
}

func (s *Server) handleWrapped(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stats, err := s.wrapped.Wrapped(ctx, logging.Username(ctx))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

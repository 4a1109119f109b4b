package httpapi

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strings"
	"time"

	"reelist/internal/app/users"
	"reelist/internal/auth"
	"reelist/internal/logging"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Confirm  string `json:"confirm"`

	fromForm bool
}

type sessionResponse struct {
	Username string `json:"username"`
	Token    string `json:"token"`
}

// decodeCredentials accepts a JSON body or a classic form post.
func decodeCredentials(r *http.Request) (credentialsRequest, error) {
	var req credentialsRequest

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, err
		}
		return req, nil
	}

	if err := r.ParseForm(); err != nil {
		return req, err
	}
	req.Username = r.PostForm.Get("username")
	req.Password = r.PostForm.Get("password")
	req.Confirm = r.PostForm.Get("confirm")
	req.fromForm = true
	return req, nil
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCredentials(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid payload"})
		return
	}
	// The browser sign-up form always carries a confirmation field.
	if req.fromForm && strings.TrimSpace(req.Confirm) == "" &&
		strings.TrimSpace(req.Username) != "" && strings.TrimSpace(req.Password) != "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: users.ErrPasswordMismatch.Error()})
		return
	}

	token, err := s.users.Register(r.Context(), req.Username, req.Password, req.Confirm)
	if err != nil {
		switch {
		case errors.Is(err, users.ErrUserExists):
			writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
		case errors.Is(err, users.ErrMissingCredentials), errors.Is(err, users.ErrPasswordMismatch):
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		default:
			writeServiceError(w, r, err)
		}
		return
	}

	username, _ := s.users.Authenticate(r.Context(), token)
	s.setSessionCookie(w, token)
	writeJSON(w, http.StatusCreated, sessionResponse{Username: username, Token: token})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCredentials(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid payload"})
		return
	}

	token, err := s.users.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, users.ErrInvalidCredentials) {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
			return
		}
		writeServiceError(w, r, err)
		return
	}

	username, _ := s.users.Authenticate(r.Context(), token)
	s.setSessionCookie(w, token)
	writeJSON(w, http.StatusOK, sessionResponse{Username: username, Token: token})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

func (s *Server) handleLogoutRedirect(w http.ResponseWriter, r *http.Request) {
	s.clearSessionCookie(w)
	http.Redirect(w, r, "/", http.StatusFound)
}

// requireUser resolves the session token from the cookie or the
// Authorization header and stores the username on the request context.
func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := parseBearerToken(r.Header.Get("Authorization"))
		if token == "" {
			if c, err := r.Cookie(SessionCookieName); err == nil {
				token = c.Value
			}
		}

		username, err := s.users.Authenticate(r.Context(), token)
		if err != nil {
			if !errors.Is(err, auth.ErrInvalidToken) {
				logging.FromContext(r.Context()).Warn().Err(err).Msg("authenticate session")
			}
			if wantsJSON(r) {
				writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
				return
			}
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}

		next.ServeHTTP(w, r.WithContext(logging.WithUsername(r.Context(), username)))
	})
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string) {
	ttl := s.opts.SessionTTL
	if ttl <= 0 {
		ttl = auth.DefaultTTL
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(ttl),
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   s.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

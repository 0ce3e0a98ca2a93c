// Package httpapi serves the JSON account API and the git smart-HTTP
// transport on one mux.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/huntiep/valentine/internal/access"
	"github.com/huntiep/valentine/internal/config"
	"github.com/huntiep/valentine/internal/db"
	"github.com/huntiep/valentine/internal/session"
)

type Server struct {
	DB       *db.DB
	Sessions session.Store
	Logger   *slog.Logger
	Config   config.Config
}

// Handler builds the full route table. Git transport routes use path
// wildcards and are registered last-resort: any literal /api route wins
// over /{user}/{repo} by specificity.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/signup", s.handleSignup)
	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("POST /api/logout", s.handleLogout)
	mux.HandleFunc("DELETE /api/user", s.withUser(s.handleDeleteAccount))

	mux.HandleFunc("GET /api/repos", s.withUser(s.handleListRepos))
	mux.HandleFunc("POST /api/repos", s.withUser(s.handleCreateRepo))

	mux.HandleFunc("GET /api/keys", s.withUser(s.handleListKeys))
	mux.HandleFunc("POST /api/keys", s.withUser(s.handleAddKey))
	mux.HandleFunc("DELETE /api/keys/{id}", s.withUser(s.handleDeleteKey))

	mux.HandleFunc("POST /api/admin/login", s.handleAdminLogin)
	mux.HandleFunc("POST /api/admin/logout", s.handleAdminLogout)
	mux.HandleFunc("GET /api/admin/users", s.withAdmin(s.handleAdminListUsers))
	mux.HandleFunc("POST /api/admin/users", s.withAdmin(s.handleAdminCreateUser))
	mux.HandleFunc("DELETE /api/admin/users/{id}", s.withAdmin(s.handleAdminDeleteUser))
	mux.HandleFunc("GET /api/admin/users/{id}/repos", s.withAdmin(s.handleAdminListRepos))
	mux.HandleFunc("GET /api/admin/users/{id}/keys", s.withAdmin(s.handleAdminListKeys))
	mux.HandleFunc("POST /api/admin/users/{id}/keys", s.withAdmin(s.handleAdminAddKey))
	mux.HandleFunc("DELETE /api/admin/users/{id}/keys/{key}", s.withAdmin(s.handleAdminDeleteKey))

	mux.HandleFunc("PATCH /{user}/{repo}", s.withUser(s.handleUpdateRepo))
	mux.HandleFunc("DELETE /{user}/{repo}", s.withUser(s.handleDeleteRepo))

	mux.HandleFunc("GET /{user}/{repo}/info/refs", s.handleInfoRefs)
	mux.HandleFunc("POST /{user}/{repo}/git-upload-pack", s.handleUploadPack)
	mux.HandleFunc("POST /{user}/{repo}/git-receive-pack", s.handleReceivePackRefused)
	mux.HandleFunc("GET /{user}/{repo}/HEAD", s.handleDumbProtocol)
	mux.HandleFunc("GET /{user}/{repo}/objects/", s.handleDumbProtocol)

	var h http.Handler = mux
	if s.Config.Mount != "/" {
		h = http.StripPrefix(s.Config.Mount, mux)
	}
	h = withSecurityHeaders(h)
	h = s.withRequestLog(h)
	h = s.withRecover(h)
	return h
}

func (s *Server) ListenAndServe() error {
	if s.DB == nil {
		return errors.New("db is required")
	}
	if s.Sessions == nil {
		s.Sessions = session.NewDBStore(s.DB)
	}

	addr := s.Config.HTTP.Bind + ":" + strconv.Itoa(s.Config.HTTP.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	s.Logger.Info("http listening", "addr", addr, "mount", s.Config.Mount)
	return srv.ListenAndServe()
}

func (s *Server) sessionTTL() time.Duration {
	return time.Duration(s.Config.Session.TTLHours) * time.Hour
}

// currentUser resolves the session cookie to a user row, or nil when the
// request carries no valid user session.
func (s *Server) currentUser(r *http.Request) (*db.User, error) {
	tok, ok := readSessionCookie(r)
	if !ok {
		return nil, nil
	}
	username, ok, err := s.Sessions.Get(r.Context(), session.KindUser, tok)
	if err != nil || !ok {
		return nil, err
	}
	u, ok, err := s.DB.GetUserByUsername(r.Context(), username)
	if err != nil || !ok {
		return nil, err
	}
	return u, nil
}

// identityFromSession is the HTTP-side Identity Resolver: an optional
// session cookie maps to an identity, absence means anonymous.
func (s *Server) identityFromSession(r *http.Request) (*access.Identity, error) {
	u, err := s.currentUser(r)
	if err != nil || u == nil {
		return nil, err
	}
	return &access.Identity{UserID: u.ID, Username: u.Username}, nil
}

type ctxKey string

const ctxUser ctxKey = "user"

func (s *Server) withUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := s.currentUser(r)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "server error"})
			return
		}
		if u == nil {
			clearSessionCookie(w)
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), ctxUser, u)))
	}
}

func requestUser(r *http.Request) *db.User {
	return r.Context().Value(ctxUser).(*db.User)
}

func (s *Server) withAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tok, ok := readAdminCookie(r)
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
			return
		}
		_, ok, err := s.Sessions.Get(r.Context(), session.KindAdmin, tok)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "server error"})
			return
		}
		if !ok {
			clearAdminCookie(w)
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
			return
		}
		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func setSessionCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     "vt_session",
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(ttl.Seconds()),
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     "vt_session",
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   -1,
	})
}

func readSessionCookie(r *http.Request) (string, bool) {
	c, err := r.Cookie("vt_session")
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

func setAdminCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     "vt_admin",
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(ttl.Seconds()),
	})
}

func clearAdminCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     "vt_admin",
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   -1,
	})
}

func readAdminCookie(r *http.Request) (string, bool) {
	c, err := r.Cookie("vt_admin")
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

func withSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("x-content-type-options", "nosniff")
		w.Header().Set("x-frame-options", "DENY")
		w.Header().Set("referrer-policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

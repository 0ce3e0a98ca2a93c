package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/huntiep/valentine/internal/auth"
	"github.com/huntiep/valentine/internal/gitrepo"
	"github.com/huntiep/valentine/internal/session"
	"github.com/huntiep/valentine/internal/validate"
)

// handleSignup creates an account when self-service signup is enabled.
// The user row is created before the owner directory; a directory
// failure leaves a valid account whose repos are created lazily.
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if !s.Config.Signup {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "signup is disabled"})
		return
	}

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Email    string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if err := validate.Username(req.Username); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if req.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "password is required"})
		return
	}

	h, err := auth.HashPassword(req.Password, auth.DefaultArgon2Params())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "server error"})
		return
	}
	id, err := s.DB.CreateUser(r.Context(), req.Username, h, req.Email)
	if err != nil {
		if isConstraintErr(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "username is taken"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "server error"})
		return
	}
	if err := gitrepo.CreateUserDir(s.Config.RepoDir, req.Username); err != nil {
		s.Logger.Error("owner dir create failed", "username", req.Username, "err", err)
	}

	tok, err := s.Sessions.Create(r.Context(), session.KindUser, req.Username, s.sessionTTL())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "server error"})
		return
	}
	setSessionCookie(w, tok, s.sessionTTL())
	writeJSON(w, http.StatusOK, map[string]any{"id": id})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.Username == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing credentials"})
		return
	}

	ctx := r.Context()
	u, ok, err := s.DB.GetUserByUsername(ctx, req.Username)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "server error"})
		return
	}
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		return
	}
	okPw, err := auth.VerifyPassword(req.Password, u.PassHash)
	if err != nil || !okPw {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		return
	}

	tok, err := s.Sessions.Create(ctx, session.KindUser, u.Username, s.sessionTTL())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "server error"})
		return
	}
	setSessionCookie(w, tok, s.sessionTTL())
	writeJSON(w, http.StatusOK, map[string]string{"ok": "1"})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if tok, ok := readSessionCookie(r); ok {
		_ = s.Sessions.Revoke(r.Context(), tok)
	}
	clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"ok": "1"})
}

// handleDeleteAccount removes the logged-in user. The database cascade
// drops repos and keys first; directory and authorized_keys cleanup
// follow best-effort.
func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	u := requestUser(r)
	ctx := r.Context()

	keys, err := s.DB.ListSSHKeysForUser(ctx, u.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "server error"})
		return
	}
	if err := s.DB.DeleteUser(ctx, u.ID); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "delete failed"})
		return
	}
	for _, k := range keys {
		if err := gitrepo.RemoveAuthorizedKey(s.Config.SSHDir, k.ID); err != nil {
			s.Logger.Error("authorized_keys cleanup failed", "key_id", k.ID, "err", err)
		}
	}
	if err := gitrepo.RemoveUserDir(s.Config.RepoDir, u.Username); err != nil {
		s.Logger.Error("owner dir removal failed", "username", u.Username, "err", err)
	}

	if tok, ok := readSessionCookie(r); ok {
		_ = s.Sessions.Revoke(ctx, tok)
	}
	clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"ok": "1"})
}

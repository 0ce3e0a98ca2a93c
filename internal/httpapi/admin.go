package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/huntiep/valentine/internal/auth"
	"github.com/huntiep/valentine/internal/gitrepo"
	"github.com/huntiep/valentine/internal/session"
	"github.com/huntiep/valentine/internal/validate"
)

func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing credentials"})
		return
	}

	hash, ok, err := s.DB.GetAdminPasswordHash(r.Context())
	if err != nil || !ok {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "admin not configured"})
		return
	}
	okPw, err := auth.VerifyPassword(req.Password, hash)
	if err != nil || !okPw {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		return
	}

	tok, err := s.Sessions.Create(r.Context(), session.KindAdmin, "admin", s.sessionTTL())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "server error"})
		return
	}
	setAdminCookie(w, tok, s.sessionTTL())
	writeJSON(w, http.StatusOK, map[string]string{"ok": "1"})
}

func (s *Server) handleAdminLogout(w http.ResponseWriter, r *http.Request) {
	if tok, ok := readAdminCookie(r); ok {
		_ = s.Sessions.Revoke(r.Context(), tok)
	}
	clearAdminCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"ok": "1"})
}

func (s *Server) handleAdminListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.DB.ListUsers(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "server error"})
		return
	}
	type item struct {
		ID        int64  `json:"id"`
		Username  string `json:"username"`
		Email     string `json:"email"`
		CreatedAt int64  `json:"created_at"`
	}
	out := make([]item, 0, len(users))
	for _, u := range users {
		out = append(out, item{ID: u.ID, Username: u.Username, Email: u.Email, CreatedAt: u.CreatedAt})
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": out})
}

// handleAdminCreateUser ignores the signup config gate; the admin can
// always provision accounts.
func (s *Server) handleAdminCreateUser(w http.ResponseWriter, r *http.Request) {
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
	writeJSON(w, http.StatusOK, map[string]any{"id": id})
}

func (s *Server) handleAdminDeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := adminUserID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	u, found, err := s.DB.GetUserByID(ctx, userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "server error"})
		return
	}
	if !found {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	keys, err := s.DB.ListSSHKeysForUser(ctx, userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "server error"})
		return
	}
	if err := s.DB.DeleteUser(ctx, userID); err != nil {
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
	writeJSON(w, http.StatusOK, map[string]string{"ok": "1"})
}

func (s *Server) handleAdminListRepos(w http.ResponseWriter, r *http.Request) {
	userID, ok := adminUserID(w, r)
	if !ok {
		return
	}
	repos, err := s.DB.ListReposForUser(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "server error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"repos": repos})
}

func (s *Server) handleAdminListKeys(w http.ResponseWriter, r *http.Request) {
	userID, ok := adminUserID(w, r)
	if !ok {
		return
	}
	s.writeKeyList(w, r, userID)
}

func (s *Server) handleAdminAddKey(w http.ResponseWriter, r *http.Request) {
	userID, ok := adminUserID(w, r)
	if !ok {
		return
	}
	s.addKey(w, r, userID)
}

func (s *Server) handleAdminDeleteKey(w http.ResponseWriter, r *http.Request) {
	userID, ok := adminUserID(w, r)
	if !ok {
		return
	}
	keyID, err := strconv.ParseInt(r.PathValue("key"), 10, 64)
	if err != nil || keyID <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid key id"})
		return
	}
	s.deleteKey(w, r, userID, keyID)
}

func adminUserID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid user id"})
		return 0, false
	}
	return id, true
}

package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/huntiep/valentine/internal/db"
	"github.com/huntiep/valentine/internal/gitcmd"
	"github.com/huntiep/valentine/internal/gitrepo"
	"github.com/huntiep/valentine/internal/validate"
)

func (s *Server) handleListRepos(w http.ResponseWriter, r *http.Request) {
	u := requestUser(r)
	repos, err := s.DB.ListReposForUser(r.Context(), u.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "server error"})
		return
	}
	type item struct {
		ID          int64  `json:"id"`
		Name        string `json:"name"`
		Description string `json:"description"`
		Private     bool   `json:"private"`
		CreatedAt   int64  `json:"created_at"`
		LastUpdated int64  `json:"last_updated"`
	}
	out := make([]item, 0, len(repos))
	for _, rp := range repos {
		out = append(out, item{
			ID:          rp.ID,
			Name:        rp.Name,
			Description: rp.Description,
			Private:     rp.Private,
			CreatedAt:   rp.CreatedAt,
			LastUpdated: rp.LastUpdated,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"repos": out})
}

// handleCreateRepo inserts the database row and then initializes the
// bare repository. On init failure the row is rolled back so a retry
// does not hit a unique-name conflict.
func (s *Server) handleCreateRepo(w http.ResponseWriter, r *http.Request) {
	u := requestUser(r)

	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Private     bool   `json:"private"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	name := gitcmd.StripRepoSuffix(req.Name)
	if err := validate.RepoName(name); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	ctx := r.Context()
	id, err := s.DB.CreateRepo(ctx, u.ID, name, req.Description, req.Private)
	if err != nil {
		if isConstraintErr(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "repository already exists"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "server error"})
		return
	}
	if err := gitrepo.InitBare(ctx, s.Config.RepoDir, u.Username, name); err != nil {
		s.Logger.Error("git init failed", "owner", u.Username, "repo", name, "err", err)
		if derr := s.DB.DeleteRepo(ctx, id); derr != nil {
			s.Logger.Error("repo row rollback failed", "repo_id", id, "err", derr)
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "server error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id})
}

// handleUpdateRepo changes description, visibility, or name. Owner only.
func (s *Server) handleUpdateRepo(w http.ResponseWriter, r *http.Request) {
	u := requestUser(r)
	repo, ok := s.ownedRepo(w, r, u.ID)
	if !ok {
		return
	}

	var req struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
		Private     *bool   `json:"private"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx := r.Context()
	desc := repo.Description
	if req.Description != nil {
		desc = *req.Description
	}
	private := repo.Private
	if req.Private != nil {
		private = *req.Private
	}
	if err := s.DB.UpdateRepo(ctx, repo.ID, desc, private); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "update failed"})
		return
	}

	if req.Name != nil {
		newName := gitcmd.StripRepoSuffix(*req.Name)
		if newName != repo.Name {
			if err := validate.RepoName(newName); err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
				return
			}
			if err := s.DB.RenameRepo(ctx, repo.ID, newName); err != nil {
				if isConstraintErr(err) {
					writeJSON(w, http.StatusBadRequest, map[string]string{"error": "repository already exists"})
					return
				}
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "rename failed"})
				return
			}
			if err := gitrepo.MoveRepo(s.Config.RepoDir, u.Username, repo.Name, newName); err != nil {
				s.Logger.Error("repo move failed", "owner", u.Username,
					"from", repo.Name, "to", newName, "err", err)
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "rename failed"})
				return
			}
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"ok": "1"})
}

// handleDeleteRepo drops the row first so the repo stops being served,
// then removes the directory best-effort.
func (s *Server) handleDeleteRepo(w http.ResponseWriter, r *http.Request) {
	u := requestUser(r)
	repo, ok := s.ownedRepo(w, r, u.ID)
	if !ok {
		return
	}
	if err := s.DB.DeleteRepo(r.Context(), repo.ID); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "delete failed"})
		return
	}
	if err := gitrepo.RemoveRepo(s.Config.RepoDir, u.Username, repo.Name); err != nil {
		s.Logger.Error("repo dir removal failed", "owner", u.Username, "repo", repo.Name, "err", err)
	}
	writeJSON(w, http.StatusOK, map[string]string{"ok": "1"})
}

// ownedRepo loads /{user}/{repo} and enforces that the session user is
// the owner. Non-owners get the same 404 as a missing repository.
func (s *Server) ownedRepo(w http.ResponseWriter, r *http.Request, userID int64) (*db.Repo, bool) {
	owner := r.PathValue("user")
	name := gitcmd.StripRepoSuffix(r.PathValue("repo"))

	repo, ok, err := s.DB.GetRepo(r.Context(), owner, name)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "server error"})
		return nil, false
	}
	if !ok || repo.Owner != userID {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return nil, false
	}
	return repo, true
}

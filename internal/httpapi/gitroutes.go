package httpapi

import (
	"compress/gzip"
	"fmt"
	"io"
	"net/http"

	"github.com/huntiep/valentine/internal/access"
	"github.com/huntiep/valentine/internal/gitcmd"
	"github.com/huntiep/valentine/internal/gitrepo"
)

// handleInfoRefs serves the smart-HTTP ref advertisement. The service
// query parameter is checked before anything else: write services and
// dumb-protocol requests are refused with a fixed 403 regardless of
// whether the repository exists.
func (s *Server) handleInfoRefs(w http.ResponseWriter, r *http.Request) {
	service := r.URL.Query().Get("service")
	if service == "" {
		s.refuseDumb(w)
		return
	}
	mode, ok := gitcmd.ModeForVerb(service)
	if !ok || mode != gitcmd.Read {
		w.Header().Set("content-type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprintf(w, "%s does not support %s over HTTP.\n", s.Config.Name, service)
		return
	}

	repo, ok := s.checkRead(w, r)
	if !ok {
		return
	}

	refs, err := gitrepo.AdvertiseRefs(r.Context(), repo)
	if err != nil {
		s.Logger.Error("advertise refs failed", "repo", repo, "err", err)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "application/x-git-upload-pack-advertisement")
	h.Set("Expires", "Fri, 01 Jan 1980 00:00:00 GMT")
	h.Set("Pragma", "no-cache")
	h.Set("Cache-Control", "no-cache, max-age=0, must-revalidate")
	_, _ = w.Write(gitrepo.ServiceAnnouncement(service))
	_, _ = w.Write(refs)
}

// handleUploadPack runs the stateless-RPC fetch exchange. The access
// chain is re-run in full; the protocol keeps no state between the
// advertisement and this call.
func (s *Server) handleUploadPack(w http.ResponseWriter, r *http.Request) {
	repo, ok := s.checkRead(w, r)
	if !ok {
		return
	}

	var body io.Reader = r.Body
	if r.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(r.Body)
		if err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		defer gz.Close()
		body = gz
	}

	w.Header().Set("Content-Type", "application/x-git-upload-pack-result")
	if err := gitrepo.UploadPack(r.Context(), repo, body, w); err != nil {
		s.Logger.Error("upload-pack failed", "repo", repo, "err", err)
		http.Error(w, "server error", http.StatusInternalServerError)
	}
}

func (s *Server) handleReceivePackRefused(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("content-type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusForbidden)
	fmt.Fprintf(w, "%s does not support git-receive-pack over HTTP.\n", s.Config.Name)
}

func (s *Server) handleDumbProtocol(w http.ResponseWriter, r *http.Request) {
	s.refuseDumb(w)
}

func (s *Server) refuseDumb(w http.ResponseWriter) {
	w.Header().Set("content-type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusForbidden)
	fmt.Fprintf(w, "%s does not support the dumb git HTTP protocol. Please upgrade your git client.\n", s.Config.Name)
}

// checkRead resolves the optional session identity and runs the access
// decision for a read of {user}/{repo}. Every denial renders the same
// plain 404, so a private repository is indistinguishable from a missing
// one. On success it returns the repository's filesystem path.
func (s *Server) checkRead(w http.ResponseWriter, r *http.Request) (string, bool) {
	owner := r.PathValue("user")
	name := gitcmd.StripRepoSuffix(r.PathValue("repo"))

	id, err := s.identityFromSession(r)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return "", false
	}

	decision, err := access.NewDecider(s.DB).Decide(r.Context(), id, owner, name, gitcmd.Read)
	if err != nil {
		s.Logger.Error("access check failed", "err", err)
		http.Error(w, "server error", http.StatusInternalServerError)
		return "", false
	}
	if !decision.Allowed {
		s.Logger.Warn("git http denied", "owner", owner, "repo", name,
			"reason", decision.Reason.String())
		http.NotFound(w, r)
		return "", false
	}
	return gitrepo.Path(s.Config.RepoDir, owner, name), true
}

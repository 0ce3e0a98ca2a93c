package httpapi

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/huntiep/valentine/internal/gitrepo"
	"golang.org/x/crypto/ssh"
)

func (s *Server) handleListKeys(w http.ResponseWriter, r *http.Request) {
	u := requestUser(r)
	s.writeKeyList(w, r, u.ID)
}

func (s *Server) handleAddKey(w http.ResponseWriter, r *http.Request) {
	u := requestUser(r)
	s.addKey(w, r, u.ID)
}

func (s *Server) handleDeleteKey(w http.ResponseWriter, r *http.Request) {
	u := requestUser(r)
	keyID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || keyID <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid key id"})
		return
	}
	s.deleteKey(w, r, u.ID, keyID)
}

func (s *Server) writeKeyList(w http.ResponseWriter, r *http.Request, userID int64) {
	keys, err := s.DB.ListSSHKeysForUser(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "server error"})
		return
	}
	type item struct {
		ID          int64  `json:"id"`
		Name        string `json:"name"`
		Fingerprint string `json:"fingerprint"`
		CreatedAt   int64  `json:"created_at"`
	}
	out := make([]item, 0, len(keys))
	for _, k := range keys {
		out = append(out, item{ID: k.ID, Name: k.Name, Fingerprint: k.Fingerprint, CreatedAt: k.CreatedAt})
	}
	writeJSON(w, http.StatusOK, map[string]any{"keys": out})
}

// addKey parses the public key, stores the row and appends the
// forced-command line to authorized_keys. The row comes first so the
// line always carries a real key id.
func (s *Server) addKey(w http.ResponseWriter, r *http.Request, userID int64) {
	var req struct {
		Name      string `json:"name"`
		PublicKey string `json:"public_key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	pub := strings.TrimSpace(req.PublicKey)
	if pub == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "public_key is required"})
		return
	}

	key, comment, _, _, err := ssh.ParseAuthorizedKey([]byte(pub))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid public key"})
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = comment
	}
	fp := Fingerprint(key)

	keyID, err := s.DB.AddSSHKey(r.Context(), userID, name, fp, pub)
	if err != nil {
		if isConstraintErr(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "key already registered"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "server error"})
		return
	}

	if s.Config.BinPath == "" {
		s.Logger.Warn("bin_path not configured, authorized_keys not updated", "key_id", keyID)
	} else {
		line := gitrepo.AuthorizedKeyLine(s.Config.BinPath, s.Config.Path, keyID, pub)
		if err := gitrepo.AppendAuthorizedKey(s.Config.SSHDir, line); err != nil {
			s.Logger.Error("authorized_keys append failed", "key_id", keyID, "err", err)
			if derr := s.DB.DeleteSSHKeyForUser(r.Context(), userID, keyID); derr != nil {
				s.Logger.Error("key row rollback failed", "key_id", keyID, "err", derr)
			}
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "server error"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": keyID, "fingerprint": fp})
}

// deleteKey removes the row and rewrites authorized_keys without the
// key's forced-command line.
func (s *Server) deleteKey(w http.ResponseWriter, r *http.Request, userID, keyID int64) {
	if err := s.DB.DeleteSSHKeyForUser(r.Context(), userID, keyID); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "delete failed"})
		return
	}
	if err := gitrepo.RemoveAuthorizedKey(s.Config.SSHDir, keyID); err != nil {
		s.Logger.Error("authorized_keys rewrite failed", "key_id", keyID, "err", err)
	}
	writeJSON(w, http.StatusOK, map[string]string{"ok": "1"})
}

// Fingerprint returns the hex SHA-256 digest of the key's wire encoding.
func Fingerprint(key ssh.PublicKey) string {
	sum := sha256.Sum256(key.Marshal())
	return hex.EncodeToString(sum[:])
}

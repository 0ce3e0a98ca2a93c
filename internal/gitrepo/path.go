// Package gitrepo is the gateway to bare repositories on disk: canonical
// path construction, repository lifecycle, authorized_keys maintenance,
// and the git transport subprocess calls. Packfile bytes are opaque here;
// the git binaries own the wire protocol.
package gitrepo

import (
	"path/filepath"
	"strings"
)

// Path returns the canonical on-disk location of a bare repository,
// <root>/<owner>/<repo>.git. Every filesystem access in the tree goes
// through this one builder so the ".git" suffix can never diverge
// between entry points.
func Path(root, owner, repo string) string {
	if !strings.HasSuffix(repo, ".git") {
		repo += ".git"
	}
	return filepath.Join(root, owner, repo)
}

// OwnerPath returns the directory holding all of a user's repositories.
func OwnerPath(root, owner string) string {
	return filepath.Join(root, owner)
}

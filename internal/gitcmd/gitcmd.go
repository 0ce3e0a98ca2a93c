// Package gitcmd parses git transport command lines into structured
// requests. It handles the SSH_ORIGINAL_COMMAND grammar
// `<verb> '<owner>/<repo>[.git]'` and the verb-to-access-mode table shared
// with the HTTP routes.
package gitcmd

import (
	"errors"
	"strings"
)

// AccessMode is the authorization strength a git verb requires.
type AccessMode int

const (
	// Read covers fetch/clone/archive operations.
	Read AccessMode = iota
	// Write covers push.
	Write
)

func (m AccessMode) String() string {
	if m == Write {
		return "write"
	}
	return "read"
}

// ModeForVerb maps a git verb to its access mode. Matching is exact and
// case-sensitive; ok is false for anything outside the table.
func ModeForVerb(verb string) (AccessMode, bool) {
	switch verb {
	case "git-upload-pack", "git-upload-archive":
		return Read, true
	case "git-receive-pack":
		return Write, true
	default:
		return 0, false
	}
}

// ErrInvalidPath is returned when the command's repository path does not
// split into an owner and a repository name.
var ErrInvalidPath = errors.New("invalid repository path")

// Command is a parsed transport request.
type Command struct {
	// Verb is the requested git service, e.g. "git-upload-pack".
	Verb string
	// Owner is the repository owner's username.
	Owner string
	// Repo is the repository lookup name with any ".git" suffix stripped.
	Repo string
}

// ParseSSHCommand parses the raw SSH_ORIGINAL_COMMAND value.
//
// The argument is single-quote-wrapped by the git client. Some clients
// inject a slash directly after the opening quote ("git-upload-pack
// ''/owner/repo'"); exactly one occurrence of `'/` is therefore rewritten
// to `'` before the quotes are trimmed.
func ParseSSHCommand(raw string) (Command, error) {
	verb, rest, found := strings.Cut(raw, " ")
	if !found || rest == "" {
		return Command{}, ErrInvalidPath
	}

	rest = strings.Replace(rest, "'/", "'", 1)
	path := strings.Trim(rest, "'")

	owner, repo, found := strings.Cut(path, "/")
	if !found || owner == "" || repo == "" {
		return Command{}, ErrInvalidPath
	}
	repo = strings.TrimSuffix(repo, ".git")
	if repo == "" {
		return Command{}, ErrInvalidPath
	}

	return Command{Verb: verb, Owner: owner, Repo: repo}, nil
}

// StripRepoSuffix removes a trailing ".git" from an HTTP path segment to
// obtain the lookup name.
func StripRepoSuffix(repo string) string {
	return strings.TrimSuffix(repo, ".git")
}

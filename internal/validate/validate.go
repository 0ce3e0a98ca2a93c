// Package validate contains simple input validation helpers.
package validate

import (
	"errors"
	"regexp"
)

// usernameRe enforces a conservative username pattern. Usernames become
// path segments under repo_dir, so separators are excluded outright.
var usernameRe = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]{0,38}$`)

// repoNameRe allows dots for repo names but never leading ones, keeping
// "..", ".git" and hidden names out of the filesystem layout.
var repoNameRe = regexp.MustCompile(`^[a-zA-Z0-9_-][a-zA-Z0-9._-]{0,99}$`)

// Username validates a username for length and allowed characters.
func Username(s string) error {
	if !usernameRe.MatchString(s) {
		return errors.New("invalid username")
	}
	return nil
}

// RepoName validates a repository name. The ".git" suffix is not part of
// the name; callers strip it before lookup.
func RepoName(s string) error {
	if !repoNameRe.MatchString(s) {
		return errors.New("invalid repository name")
	}
	if s == "." || s == ".." {
		return errors.New("invalid repository name")
	}
	return nil
}

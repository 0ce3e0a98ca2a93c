// Package validate tests cover username and repo name rules.
package validate

import "testing"

// TestUsername checks accepted and rejected username forms.
func TestUsername(t *testing.T) {
	for _, s := range []string{"alice", "Bob-2", "a_b", "x"} {
		if err := Username(s); err != nil {
			t.Fatalf("Username(%q): %v", s, err)
		}
	}
	for _, s := range []string{"", "-dash", "a/b", "a b", ".dot", "a..b/c"} {
		if err := Username(s); err == nil {
			t.Fatalf("Username(%q): expected error", s)
		}
	}
}

// TestRepoName checks accepted and rejected repository names.
func TestRepoName(t *testing.T) {
	for _, s := range []string{"project", "my-repo", "v2.0", "a_b"} {
		if err := RepoName(s); err != nil {
			t.Fatalf("RepoName(%q): %v", s, err)
		}
	}
	for _, s := range []string{"", ".hidden", "..", "a/b", "a b"} {
		if err := RepoName(s); err == nil {
			t.Fatalf("RepoName(%q): expected error", s)
		}
	}
}

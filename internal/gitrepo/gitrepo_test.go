// Package gitrepo tests cover path building, pkt-line framing,
// authorized_keys maintenance and the transport subprocess calls. Git
// binaries are replaced by stub scripts on PATH so the tests exercise
// process wiring, not git itself.
package gitrepo

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// stubGit installs an executable shell script named name into a dir that
// is prepended to PATH for the test.
func stubGit(t *testing.T, name, script string) {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

// TestPath verifies the canonical builder always suffixes ".git".
func TestPath(t *testing.T) {
	want := filepath.Join("root", "alice", "project.git")
	if got := Path("root", "alice", "project"); got != want {
		t.Fatalf("Path = %q, want %q", got, want)
	}
	if got := Path("root", "alice", "project.git"); got != want {
		t.Fatalf("Path(.git) = %q, want %q", got, want)
	}
}

// TestServiceAnnouncement checks the exact handshake framing.
func TestServiceAnnouncement(t *testing.T) {
	got := string(ServiceAnnouncement("git-upload-pack"))
	want := "001e# service=git-upload-pack\n0000"
	if got != want {
		t.Fatalf("announcement = %q, want %q", got, want)
	}
}

// TestAuthorizedKeyLine checks the forced-command entry shape.
func TestAuthorizedKeyLine(t *testing.T) {
	line := AuthorizedKeyLine("/usr/local/bin/valentine", "/etc/valentine.yaml", 7, "ssh-ed25519 AAAA alice@host\n")
	want := "command=\"/usr/local/bin/valentine -c '/etc/valentine.yaml' serve key-7\"," +
		"no-port-forwarding,no-X11-forwarding,no-agent-forwarding,no-pty ssh-ed25519 AAAA alice@host\n"
	if line != want {
		t.Fatalf("line = %q, want %q", line, want)
	}
}

// TestAuthorizedKeysAppendRemove filters only the matching key id.
func TestAuthorizedKeysAppendRemove(t *testing.T) {
	dir := t.TempDir()
	l1 := AuthorizedKeyLine("/bin/v", "/etc/v.yaml", 1, "ssh-ed25519 AAA1 a")
	l11 := AuthorizedKeyLine("/bin/v", "/etc/v.yaml", 11, "ssh-ed25519 AA11 b")
	if err := AppendAuthorizedKey(dir, l1); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := AppendAuthorizedKey(dir, l11); err != nil {
		t.Fatalf("append: %v", err)
	}

	if err := RemoveAuthorizedKey(dir, 1); err != nil {
		t.Fatalf("remove: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(dir, "authorized_keys"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	s := string(b)
	if strings.Contains(s, "serve key-1\"") {
		t.Fatalf("key-1 should be gone: %q", s)
	}
	if !strings.Contains(s, "serve key-11\"") {
		t.Fatalf("key-11 should survive: %q", s)
	}
}

// TestRemoveAuthorizedKeyMissingFile treats a missing file as done.
func TestRemoveAuthorizedKeyMissingFile(t *testing.T) {
	if err := RemoveAuthorizedKey(t.TempDir(), 3); err != nil {
		t.Fatalf("remove on missing file: %v", err)
	}
}

// TestAdvertiseRefs captures the stub advertisement output.
func TestAdvertiseRefs(t *testing.T) {
	stubGit(t, "git-upload-pack", `
if [ "$1" = "--stateless-rpc" ] && [ "$2" = "--advertise-refs" ]; then
  printf 'ADVERT'
  exit 0
fi
exit 1
`)
	out, err := AdvertiseRefs(context.Background(), "/tmp/does-not-matter.git")
	if err != nil {
		t.Fatalf("AdvertiseRefs: %v", err)
	}
	if string(out) != "ADVERT" {
		t.Fatalf("out = %q", out)
	}
}

// TestUploadPack feeds the whole body before relaying any output.
func TestUploadPack(t *testing.T) {
	stubGit(t, "git-upload-pack", `
if [ "$1" = "--stateless-rpc" ]; then
  cat > /dev/null
  printf 'PACK'
  exit 0
fi
exit 1
`)
	var w bytes.Buffer
	err := UploadPack(context.Background(), "/tmp/x.git", strings.NewReader("0000"), &w)
	if err != nil {
		t.Fatalf("UploadPack: %v", err)
	}
	if w.String() != "PACK" {
		t.Fatalf("response = %q", w.String())
	}
}

// TestUploadPackFailure surfaces a nonzero subprocess exit.
func TestUploadPackFailure(t *testing.T) {
	stubGit(t, "git-upload-pack", "exit 3\n")
	var w bytes.Buffer
	err := UploadPack(context.Background(), "/tmp/x.git", strings.NewReader(""), &w)
	if err == nil {
		t.Fatalf("expected error")
	}
	if w.Len() != 0 {
		t.Fatalf("no bytes should be relayed on failure")
	}
}

// TestRunVerb wires stdio through to the verb subprocess.
func TestRunVerb(t *testing.T) {
	stubGit(t, "git-upload-pack", "cat\n")
	var out bytes.Buffer
	err := RunVerb(context.Background(), "git-upload-pack", "/tmp/x.git",
		strings.NewReader("hello"), &out, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("RunVerb: %v", err)
	}
	if out.String() != "hello" {
		t.Fatalf("stdout = %q", out.String())
	}
}

// TestRunVerbRejectsUnknownVerb refuses anything outside the verb table.
func TestRunVerbRejectsUnknownVerb(t *testing.T) {
	err := RunVerb(context.Background(), "rm", "/tmp/x.git",
		strings.NewReader(""), &bytes.Buffer{}, &bytes.Buffer{})
	if err == nil {
		t.Fatalf("expected error for unknown verb")
	}
}

// TestInitBareAndRemove covers repo directory lifecycle with a stub git.
func TestInitBareAndRemove(t *testing.T) {
	stubGit(t, "git", `mkdir -p "$4"`+"\n")
	root := t.TempDir()
	ctx := context.Background()

	if err := InitBare(ctx, root, "alice", "project"); err != nil {
		t.Fatalf("InitBare: %v", err)
	}
	if _, err := os.Stat(Path(root, "alice", "project")); err != nil {
		t.Fatalf("repo dir missing: %v", err)
	}
	if err := InitBare(ctx, root, "alice", "project"); err == nil {
		t.Fatalf("expected error for existing repository")
	}

	if err := RemoveRepo(root, "alice", "project"); err != nil {
		t.Fatalf("RemoveRepo: %v", err)
	}
	if _, err := os.Stat(Path(root, "alice", "project")); !os.IsNotExist(err) {
		t.Fatalf("repo dir should be gone")
	}
}

// TestMoveRepo renames the on-disk directory.
func TestMoveRepo(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(Path(root, "alice", "old"), 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := MoveRepo(root, "alice", "old", "new"); err != nil {
		t.Fatalf("MoveRepo: %v", err)
	}
	if _, err := os.Stat(Path(root, "alice", "new")); err != nil {
		t.Fatalf("renamed dir missing: %v", err)
	}
}

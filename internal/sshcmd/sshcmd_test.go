// Package sshcmd tests run the full forced-command state machine against
// a temporary database with stub git binaries on PATH.
package sshcmd

import (
	"bytes"
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/huntiep/valentine/internal/db"

	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) (*db.DB, string) {
	t.Helper()
	path := t.TempDir() + "/test.db"
	d, err := db.Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d, path
}

// backdate rewrites a repo's last_updated through a separate handle so a
// second-resolution bump is observable.
func backdate(t *testing.T, path string, repoID int64) {
	t.Helper()
	s, err := sql.Open("sqlite", "file:"+path)
	if err != nil {
		t.Fatalf("open raw: %v", err)
	}
	defer s.Close()
	if _, err := s.Exec(`UPDATE repos SET last_updated=1 WHERE id=?`, repoID); err != nil {
		t.Fatalf("backdate: %v", err)
	}
}

// stubGit installs shell scripts for the given verbs on PATH. Each writes
// a marker file so tests can tell whether the subprocess ever ran.
func stubGit(t *testing.T, markerDir, script string, verbs ...string) {
	t.Helper()
	dir := t.TempDir()
	for _, v := range verbs {
		p := filepath.Join(dir, v)
		body := "#!/bin/sh\ntouch \"" + filepath.Join(markerDir, v+".ran") + "\"\n" + script
		if err := os.WriteFile(p, []byte(body), 0o755); err != nil {
			t.Fatalf("write stub: %v", err)
		}
	}
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func ranVerb(markerDir, verb string) bool {
	_, err := os.Stat(filepath.Join(markerDir, verb+".ran"))
	return err == nil
}

// seed creates alice with one key and one repo, returning the key and repo ids.
func seed(t *testing.T, d *db.DB, private bool) (keyID, repoID int64) {
	t.Helper()
	ctx := context.Background()
	uid, err := d.CreateUser(ctx, "alice", "hash", "")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	keyID, err = d.AddSSHKey(ctx, uid, "laptop", "fp", "ssh-ed25519 AAAA")
	if err != nil {
		t.Fatalf("AddSSHKey: %v", err)
	}
	repoID, err = d.CreateRepo(ctx, uid, "project", "", private)
	if err != nil {
		t.Fatalf("CreateRepo: %v", err)
	}
	return keyID, repoID
}

func run(t *testing.T, d *db.DB, repoDir, keyArg, command string, hasCommand bool) (code int, stdout, stderr string) {
	t.Helper()
	var out, errb bytes.Buffer
	code = Run(context.Background(), Options{
		DB:         d,
		RepoDir:    repoDir,
		Name:       "Valentine",
		KeyArg:     keyArg,
		Command:    command,
		HasCommand: hasCommand,
		Stdin:      strings.NewReader(""),
		Stdout:     &out,
		Stderr:     &errb,
	})
	return code, out.String(), errb.String()
}

func TestNoCommandPrintsBanner(t *testing.T) {
	d, _ := openTestDB(t)
	code, out, _ := run(t, d, t.TempDir(), "key-1", "", false)
	if code != 0 {
		t.Fatalf("exit = %d, want 0", code)
	}
	if !strings.Contains(out, "does not provide shell access") {
		t.Fatalf("missing banner: %q", out)
	}
}

func TestInvalidPath(t *testing.T) {
	d, _ := openTestDB(t)
	seed(t, d, false)
	code, _, errb := run(t, d, t.TempDir(), "key-1", "git-upload-pack 'noslash'", true)
	if code != 1 || !strings.Contains(errb, "Invalid repository path") {
		t.Fatalf("exit=%d stderr=%q", code, errb)
	}
}

func TestUnknownVerb(t *testing.T) {
	d, _ := openTestDB(t)
	seed(t, d, false)
	code, _, errb := run(t, d, t.TempDir(), "key-1", "rsync '/alice/project'", true)
	if code != 1 || !strings.Contains(errb, "Unknown git command") {
		t.Fatalf("exit=%d stderr=%q", code, errb)
	}
}

func TestBadKeyArg(t *testing.T) {
	d, _ := openTestDB(t)
	code, _, errb := run(t, d, t.TempDir(), "key-x", "git-upload-pack '/alice/project'", true)
	if code != 1 || !strings.Contains(errb, "Internal error") {
		t.Fatalf("exit=%d stderr=%q", code, errb)
	}
}

// TestAnonymousReadPublic: a key id with no owning user still reads a
// public repo, since read on public needs no identity.
func TestAnonymousReadPublic(t *testing.T) {
	d, _ := openTestDB(t)
	seed(t, d, false)
	markers := t.TempDir()
	stubGit(t, markers, "exit 0\n", "git-upload-pack")

	code, _, errb := run(t, d, t.TempDir(), "key-999", "git-upload-pack '/alice/project'", true)
	if code != 0 {
		t.Fatalf("exit=%d stderr=%q", code, errb)
	}
	if !ranVerb(markers, "git-upload-pack") {
		t.Fatalf("upload-pack never ran")
	}
}

// TestWriteDeniedWithoutIdentity: push over an unrecognized key is
// refused before any subprocess is spawned, with the unified denial.
func TestWriteDeniedWithoutIdentity(t *testing.T) {
	d, _ := openTestDB(t)
	seed(t, d, false)
	markers := t.TempDir()
	stubGit(t, markers, "exit 0\n", "git-receive-pack")

	code, _, errb := run(t, d, t.TempDir(), "key-999", "git-receive-pack '/alice/project'", true)
	if code != 1 || !strings.Contains(errb, "Repository does not exist or you do not have access") {
		t.Fatalf("exit=%d stderr=%q", code, errb)
	}
	if ranVerb(markers, "git-receive-pack") {
		t.Fatalf("receive-pack ran despite denial")
	}
}

// TestPrivateReadDeniedLooksLikeMissing: denial on a private repo uses
// the same message as a nonexistent one.
func TestPrivateReadDeniedLooksLikeMissing(t *testing.T) {
	ctx := context.Background()
	d, _ := openTestDB(t)
	seed(t, d, true)
	uid, err := d.CreateUser(ctx, "mallory", "hash", "")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	kid, err := d.AddSSHKey(ctx, uid, "k", "fp2", "ssh-ed25519 BBBB")
	if err != nil {
		t.Fatalf("AddSSHKey: %v", err)
	}

	_, _, deniedPrivate := run(t, d, t.TempDir(), keyArg(kid), "git-upload-pack '/alice/project'", true)
	_, _, deniedMissing := run(t, d, t.TempDir(), keyArg(kid), "git-upload-pack '/alice/nothere'", true)
	if deniedPrivate != deniedMissing {
		t.Fatalf("denials differ: %q vs %q", deniedPrivate, deniedMissing)
	}
}

// TestOwnerPushBumpsTimestamp: a successful push updates last_updated;
// a failed one does not.
func TestOwnerPushBumpsTimestamp(t *testing.T) {
	ctx := context.Background()
	d, path := openTestDB(t)
	keyID, repoID := seed(t, d, true)
	markers := t.TempDir()
	stubGit(t, markers, "exit 0\n", "git-receive-pack")

	backdate(t, path, repoID)
	before := time.Now().Unix()
	code, _, errb := run(t, d, t.TempDir(), keyArg(keyID), "git-receive-pack '/alice/project'", true)
	if code != 0 {
		t.Fatalf("exit=%d stderr=%q", code, errb)
	}
	r, ok, err := d.GetRepo(ctx, "alice", "project")
	if err != nil || !ok {
		t.Fatalf("GetRepo: ok=%v err=%v", ok, err)
	}
	if r.LastUpdated < before {
		t.Fatalf("last_updated not bumped: %d", r.LastUpdated)
	}

	stubGit(t, markers, "exit 3\n", "git-receive-pack")
	backdate(t, path, repoID)
	code, _, _ = run(t, d, t.TempDir(), keyArg(keyID), "git-receive-pack '/alice/project'", true)
	if code != 1 {
		t.Fatalf("exit=%d, want 1 on subprocess failure", code)
	}
	r, _, _ = d.GetRepo(ctx, "alice", "project")
	if r.LastUpdated != 1 {
		t.Fatalf("last_updated bumped after failed push: %d", r.LastUpdated)
	}
}

func keyArg(id int64) string {
	return "key-" + strconv.FormatInt(id, 10)
}

// Package db tests verify database CRUD behavior.
package db

import (
	"context"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()
	d, err := Open(ctx, t.TempDir()+"/test.db")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

// TestUserRepoRoundTrip covers user creation, repo creation and lookup.
func TestUserRepoRoundTrip(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)

	uid, err := d.CreateUser(ctx, "alice", "hash", "a@example.com")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	rid, err := d.CreateRepo(ctx, uid, "project", "demo", true)
	if err != nil {
		t.Fatalf("CreateRepo: %v", err)
	}

	r, ok, err := d.GetRepo(ctx, "alice", "project")
	if err != nil || !ok {
		t.Fatalf("GetRepo: ok=%v err=%v", ok, err)
	}
	if r.ID != rid || r.Owner != uid || !r.Private {
		t.Fatalf("unexpected repo: %+v", r)
	}

	if _, ok, _ := d.GetRepo(ctx, "alice", "missing"); ok {
		t.Fatalf("expected missing repo")
	}
	if _, ok, _ := d.GetRepo(ctx, "nobody", "project"); ok {
		t.Fatalf("expected missing owner")
	}
}

// TestTouchRepoBumpsTimestamp verifies last_updated moves forward.
func TestTouchRepoBumpsTimestamp(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)

	uid, err := d.CreateUser(ctx, "alice", "hash", "")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	rid, err := d.CreateRepo(ctx, uid, "project", "", false)
	if err != nil {
		t.Fatalf("CreateRepo: %v", err)
	}
	// Backdate so a second-resolution bump is observable.
	if _, err := d.sql.ExecContext(ctx, `UPDATE repos SET last_updated=1 WHERE id=?`, rid); err != nil {
		t.Fatalf("backdate: %v", err)
	}
	before := time.Now().Unix()
	if err := d.TouchRepo(ctx, rid); err != nil {
		t.Fatalf("TouchRepo: %v", err)
	}
	r, _, err := d.GetRepo(ctx, "alice", "project")
	if err != nil {
		t.Fatalf("GetRepo: %v", err)
	}
	if r.LastUpdated < before {
		t.Fatalf("last_updated not bumped: %d < %d", r.LastUpdated, before)
	}
}

// TestKeyIdentityLookup resolves a user through an SSH key row id.
func TestKeyIdentityLookup(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)

	uid, err := d.CreateUser(ctx, "bob", "hash", "")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	kid, err := d.AddSSHKey(ctx, uid, "laptop", "ab12", "ssh-ed25519 AAAA bob@laptop")
	if err != nil {
		t.Fatalf("AddSSHKey: %v", err)
	}

	u, ok, err := d.GetUserByKeyID(ctx, kid)
	if err != nil || !ok {
		t.Fatalf("GetUserByKeyID: ok=%v err=%v", ok, err)
	}
	if u.Username != "bob" {
		t.Fatalf("unexpected user: %+v", u)
	}

	if _, ok, _ := d.GetUserByKeyID(ctx, kid+1); ok {
		t.Fatalf("expected miss for unknown key id")
	}

	if err := d.DeleteSSHKeyForUser(ctx, uid, kid); err != nil {
		t.Fatalf("DeleteSSHKeyForUser: %v", err)
	}
	if _, ok, _ := d.GetUserByKeyID(ctx, kid); ok {
		t.Fatalf("expected miss after delete")
	}
}

// TestUserDeleteCascades removes repos and keys with the user.
func TestUserDeleteCascades(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)

	uid, err := d.CreateUser(ctx, "carol", "hash", "")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if _, err := d.CreateRepo(ctx, uid, "project", "", false); err != nil {
		t.Fatalf("CreateRepo: %v", err)
	}
	kid, err := d.AddSSHKey(ctx, uid, "", "fp", "content")
	if err != nil {
		t.Fatalf("AddSSHKey: %v", err)
	}

	if err := d.DeleteUser(ctx, uid); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if _, ok, _ := d.GetRepo(ctx, "carol", "project"); ok {
		t.Fatalf("repo should cascade")
	}
	if _, ok, _ := d.GetUserByKeyID(ctx, kid); ok {
		t.Fatalf("key should cascade")
	}
}

// TestSessions covers create/get/expire/delete.
func TestSessions(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)

	if err := d.CreateSession(ctx, "tok", "user", "alice", time.Hour); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	s, ok, err := d.GetSession(ctx, "tok")
	if err != nil || !ok {
		t.Fatalf("GetSession: ok=%v err=%v", ok, err)
	}
	if s.Username != "alice" || s.Kind != "user" {
		t.Fatalf("unexpected session: %+v", s)
	}

	n, err := d.DeleteExpiredSessions(ctx, time.Now().Add(2*time.Hour).Unix())
	if err != nil {
		t.Fatalf("DeleteExpiredSessions: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 expired session, got %d", n)
	}
	if _, ok, _ := d.GetSession(ctx, "tok"); ok {
		t.Fatalf("session should be gone")
	}
}

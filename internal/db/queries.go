package db

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// nowUnix returns the current Unix timestamp in seconds.
func nowUnix() int64 { return time.Now().Unix() }

// GetConfig fetches a single config key from the database.
// The boolean indicates whether the key exists.
func (d *DB) GetConfig(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := d.sql.QueryRowContext(ctx, "SELECT value FROM config WHERE key = ?", key).Scan(&v)
	if err == nil {
		return v, true, nil
	}
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	return "", false, err
}

// SetConfig upserts a config key/value pair and updates its timestamp.
func (d *DB) SetConfig(ctx context.Context, key, value string) error {
	if key == "" {
		return errors.New("config key is required")
	}
	_, err := d.sql.ExecContext(ctx, `
INSERT INTO config(key, value, updated_at) VALUES(?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at
`, key, value, nowUnix())
	return err
}

// IsInitialized reports whether setup has completed.
func (d *DB) IsInitialized(ctx context.Context) (bool, error) {
	v, ok, err := d.GetConfig(ctx, "initialized")
	if err != nil {
		return false, err
	}
	return ok && v == "1", nil
}

// SetInitialized marks the database as setup-complete.
func (d *DB) SetInitialized(ctx context.Context) error {
	return d.SetConfig(ctx, "initialized", "1")
}

// GetAdminPasswordHash returns the stored admin password hash.
func (d *DB) GetAdminPasswordHash(ctx context.Context) (string, bool, error) {
	return d.GetConfig(ctx, "admin_password_hash")
}

// SetAdminPasswordHash stores the admin password hash.
func (d *DB) SetAdminPasswordHash(ctx context.Context, hash string) error {
	return d.SetConfig(ctx, "admin_password_hash", hash)
}

// CreateUser inserts a new user and returns its database ID.
func (d *DB) CreateUser(ctx context.Context, username, passHash, email string) (int64, error) {
	if username == "" || passHash == "" {
		return 0, errors.New("username and password hash are required")
	}
	now := nowUnix()
	res, err := d.sql.ExecContext(ctx, `
INSERT INTO users(username, password_hash, email, created_at, updated_at)
VALUES(?, ?, ?, ?, ?)
`, username, passHash, email, now, now)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// DeleteUser removes a user; repos and keys cascade.
func (d *DB) DeleteUser(ctx context.Context, id int64) error {
	if id <= 0 {
		return errors.New("invalid user id")
	}
	_, err := d.sql.ExecContext(ctx, `DELETE FROM users WHERE id=?`, id)
	return err
}

func scanUser(row *sql.Row) (*User, bool, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.PassHash, &u.Email, &u.CreatedAt, &u.UpdatedAt)
	if err == nil {
		return &u, true, nil
	}
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	return nil, false, err
}

// GetUserByUsername looks up a user by username.
func (d *DB) GetUserByUsername(ctx context.Context, username string) (*User, bool, error) {
	return scanUser(d.sql.QueryRowContext(ctx, `
SELECT id, username, password_hash, email, created_at, updated_at
FROM users WHERE username=?
`, username))
}

// GetUserByID looks up a user by ID.
func (d *DB) GetUserByID(ctx context.Context, id int64) (*User, bool, error) {
	return scanUser(d.sql.QueryRowContext(ctx, `
SELECT id, username, password_hash, email, created_at, updated_at
FROM users WHERE id=?
`, id))
}

// GetUserByKeyID resolves the user owning the given SSH key row.
// This is the identity lookup behind the forced-command key-<id> token.
func (d *DB) GetUserByKeyID(ctx context.Context, keyID int64) (*User, bool, error) {
	return scanUser(d.sql.QueryRowContext(ctx, `
SELECT u.id, u.username, u.password_hash, u.email, u.created_at, u.updated_at
FROM users u JOIN ssh_keys k ON k.owner = u.id
WHERE k.id=?
`, keyID))
}

// UserExists reports whether a username is taken.
func (d *DB) UserExists(ctx context.Context, username string) (bool, error) {
	var one int
	err := d.sql.QueryRowContext(ctx, `SELECT 1 FROM users WHERE username=?`, username).Scan(&one)
	if err == nil {
		return true, nil
	}
	if err == sql.ErrNoRows {
		return false, nil
	}
	return false, err
}

// ListUsers returns all users sorted by username.
func (d *DB) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := d.sql.QueryContext(ctx, `
SELECT id, username, password_hash, email, created_at, updated_at
FROM users ORDER BY username ASC
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.PassHash, &u.Email, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// CreateRepo inserts a repository row and returns its ID.
func (d *DB) CreateRepo(ctx context.Context, owner int64, name, description string, private bool) (int64, error) {
	if owner <= 0 || name == "" {
		return 0, errors.New("owner and name are required")
	}
	now := nowUnix()
	res, err := d.sql.ExecContext(ctx, `
INSERT INTO repos(owner, name, description, private, created_at, last_updated)
VALUES(?, ?, ?, ?, ?, ?)
`, owner, name, description, boolToInt(private), now, now)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetRepo looks up a repository by owner username and repo name.
func (d *DB) GetRepo(ctx context.Context, username, name string) (*Repo, bool, error) {
	var r Repo
	var private int
	err := d.sql.QueryRowContext(ctx, `
SELECT r.id, r.owner, r.name, r.description, r.private, r.created_at, r.last_updated
FROM repos r JOIN users u ON r.owner = u.id
WHERE u.username=? AND r.name=?
`, username, name).Scan(&r.ID, &r.Owner, &r.Name, &r.Description, &private, &r.CreatedAt, &r.LastUpdated)
	if err == nil {
		r.Private = private != 0
		return &r, true, nil
	}
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	return nil, false, err
}

// ListReposForUser returns a user's repositories sorted by name.
func (d *DB) ListReposForUser(ctx context.Context, owner int64) ([]Repo, error) {
	rows, err := d.sql.QueryContext(ctx, `
SELECT id, owner, name, description, private, created_at, last_updated
FROM repos WHERE owner=? ORDER BY name ASC
`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Repo
	for rows.Next() {
		var r Repo
		var private int
		if err := rows.Scan(&r.ID, &r.Owner, &r.Name, &r.Description, &private, &r.CreatedAt, &r.LastUpdated); err != nil {
			return nil, err
		}
		r.Private = private != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

// UpdateRepo updates a repository's description and visibility.
func (d *DB) UpdateRepo(ctx context.Context, id int64, description string, private bool) error {
	if id <= 0 {
		return errors.New("invalid repo id")
	}
	_, err := d.sql.ExecContext(ctx, `UPDATE repos SET description=?, private=? WHERE id=?`,
		description, boolToInt(private), id)
	return err
}

// RenameRepo changes a repository's name.
func (d *DB) RenameRepo(ctx context.Context, id int64, newName string) error {
	if id <= 0 || newName == "" {
		return errors.New("invalid rename")
	}
	_, err := d.sql.ExecContext(ctx, `UPDATE repos SET name=? WHERE id=?`, newName, id)
	return err
}

// TouchRepo bumps last_updated. Called after every successful write-mode
// transport operation, never before.
func (d *DB) TouchRepo(ctx context.Context, id int64) error {
	if id <= 0 {
		return errors.New("invalid repo id")
	}
	_, err := d.sql.ExecContext(ctx, `UPDATE repos SET last_updated=? WHERE id=?`, nowUnix(), id)
	return err
}

// DeleteRepo removes a repository row.
func (d *DB) DeleteRepo(ctx context.Context, id int64) error {
	if id <= 0 {
		return errors.New("invalid repo id")
	}
	_, err := d.sql.ExecContext(ctx, `DELETE FROM repos WHERE id=?`, id)
	return err
}

// AddSSHKey stores a new SSH key and returns its row ID.
func (d *DB) AddSSHKey(ctx context.Context, owner int64, name, fingerprint, content string) (int64, error) {
	if owner <= 0 {
		return 0, errors.New("invalid user id")
	}
	if fingerprint == "" || content == "" {
		return 0, errors.New("fingerprint and content are required")
	}
	res, err := d.sql.ExecContext(ctx, `
INSERT INTO ssh_keys(owner, name, fingerprint, content, created_at)
VALUES(?, ?, ?, ?, ?)
`, owner, name, fingerprint, content, nowUnix())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListSSHKeysForUser returns all SSH keys for a user.
func (d *DB) ListSSHKeysForUser(ctx context.Context, owner int64) ([]SSHKey, error) {
	rows, err := d.sql.QueryContext(ctx, `
SELECT id, owner, name, fingerprint, content, created_at
FROM ssh_keys WHERE owner=? ORDER BY id ASC
`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SSHKey
	for rows.Next() {
		var k SSHKey
		if err := rows.Scan(&k.ID, &k.Owner, &k.Name, &k.Fingerprint, &k.Content, &k.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

// DeleteSSHKeyForUser deletes a specific SSH key owned by a user.
func (d *DB) DeleteSSHKeyForUser(ctx context.Context, owner, keyID int64) error {
	if owner <= 0 || keyID <= 0 {
		return errors.New("invalid id")
	}
	_, err := d.sql.ExecContext(ctx, `DELETE FROM ssh_keys WHERE id=? AND owner=?`, keyID, owner)
	return err
}

// CreateSession inserts a new session token with expiration.
func (d *DB) CreateSession(ctx context.Context, token, kind, username string, ttl time.Duration) error {
	if token == "" || kind == "" || username == "" {
		return errors.New("invalid session")
	}
	now := nowUnix()
	_, err := d.sql.ExecContext(ctx, `
INSERT INTO sessions(token, kind, username, created_at, expires_at)
VALUES(?, ?, ?, ?, ?)
`, token, kind, username, now, now+int64(ttl.Seconds()))
	return err
}

// GetSession looks up a session by token.
func (d *DB) GetSession(ctx context.Context, token string) (*Session, bool, error) {
	var s Session
	err := d.sql.QueryRowContext(ctx, `
SELECT token, kind, username, created_at, expires_at FROM sessions WHERE token=?
`, token).Scan(&s.Token, &s.Kind, &s.Username, &s.CreatedAt, &s.ExpiresAt)
	if err == nil {
		return &s, true, nil
	}
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	return nil, false, err
}

// DeleteSession removes a session by token.
func (d *DB) DeleteSession(ctx context.Context, token string) error {
	if token == "" {
		return errors.New("token is required")
	}
	_, err := d.sql.ExecContext(ctx, `DELETE FROM sessions WHERE token=?`, token)
	return err
}

// DeleteExpiredSessions deletes sessions that have expired.
func (d *DB) DeleteExpiredSessions(ctx context.Context, nowUnix int64) (int64, error) {
	res, err := d.sql.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, nowUnix)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// boolToInt maps booleans to SQLite-friendly integer flags.
func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

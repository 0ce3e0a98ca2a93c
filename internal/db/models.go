// Package db defines persistence models and query helpers for Valentine.
package db

// User is an account that owns repositories and SSH keys.
type User struct {
	ID        int64
	Username  string
	PassHash  string
	Email     string
	CreatedAt int64
	UpdatedAt int64
}

// Repo is the database record of a bare repository on disk.
// The (Owner, Name) pair is unique; Name never carries the ".git" suffix.
type Repo struct {
	ID          int64
	Owner       int64
	Name        string
	Description string
	Private     bool
	CreatedAt   int64
	LastUpdated int64
}

// SSHKey is a user's public key. Content is the raw authorized-keys value;
// Fingerprint is the hex SHA-256 of the decoded key material. The row id is
// embedded into the forced-command line so SSH sessions resolve identity
// from the id alone.
type SSHKey struct {
	ID          int64
	Owner       int64
	Name        string
	Fingerprint string
	Content     string
	CreatedAt   int64
}

// Session is a login session for web or admin access.
type Session struct {
	Token     string
	Kind      string
	Username  string
	CreatedAt int64
	ExpiresAt int64
}

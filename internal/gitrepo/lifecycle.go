package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
)

// CreateUserDir makes the owner directory under the repository root.
// Called after the user row is inserted; a failure here leaves an orphan
// row, which is preferred over a directory with no owning record.
func CreateUserDir(root, owner string) error {
	return os.MkdirAll(OwnerPath(root, owner), 0o700)
}

// RemoveUserDir recursively deletes a user's repositories. Destructive
// and irreversible; called only after the DB delete succeeded, so a
// failure leaves a harmless orphan directory.
func RemoveUserDir(root, owner string) error {
	return os.RemoveAll(OwnerPath(root, owner))
}

// InitBare creates a new bare repository on disk.
func InitBare(ctx context.Context, root, owner, repo string) error {
	if err := CreateUserDir(root, owner); err != nil {
		return err
	}
	path := Path(root, owner, repo)
	if _, err := os.Stat(path); err == nil {
		return errors.New("repository directory already exists")
	}
	cmd := exec.CommandContext(ctx, "git", "init", "--bare", "--quiet", path)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("git init: %w: %s", err, out)
	}
	return nil
}

// RemoveRepo recursively deletes one repository directory. Called after
// the DB row is gone; the row is authoritative for authorization, so a
// leftover directory is inert.
func RemoveRepo(root, owner, repo string) error {
	return os.RemoveAll(Path(root, owner, repo))
}

// MoveRepo renames a repository directory to match a DB rename.
func MoveRepo(root, owner, oldName, newName string) error {
	return os.Rename(Path(root, owner, oldName), Path(root, owner, newName))
}

// Package setup performs first-run initialization: data directories,
// database creation and the admin password.
package setup

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/huntiep/valentine/internal/auth"
	"github.com/huntiep/valentine/internal/config"
	"github.com/huntiep/valentine/internal/db"
	"golang.org/x/term"
)

type Options struct {
	Config config.Config
}

func Run(ctx context.Context, opt Options) error {
	cfg := opt.Config
	if err := os.MkdirAll(filepath.Dir(cfg.DB.Path), 0o700); err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.RepoDir, 0o700); err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.SSHDir, 0o700); err != nil {
		return err
	}

	d, err := db.Open(ctx, cfg.DB.Path)
	if err != nil {
		return err
	}
	defer d.Close()
	_ = os.Chmod(cfg.DB.Path, 0o600)

	initialized, err := d.IsInitialized(ctx)
	if err != nil {
		return err
	}
	if initialized {
		return errors.New("already initialized")
	}

	adminPass, err := promptPassword("Set initial admin password")
	if err != nil {
		return err
	}
	adminHash, err := auth.HashPassword(adminPass, auth.DefaultArgon2Params())
	if err != nil {
		return err
	}
	if err := d.SetAdminPasswordHash(ctx, adminHash); err != nil {
		return err
	}

	if err := d.SetInitialized(ctx); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "%s initialized at %s\n", cfg.Name, filepath.Dir(cfg.DB.Path))
	return nil
}

func promptPassword(label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		for {
			fmt.Fprintf(os.Stderr, "%s: ", label)
			p1b, err := term.ReadPassword(fd)
			fmt.Fprintln(os.Stderr)
			if err != nil {
				return "", err
			}
			fmt.Fprint(os.Stderr, "Confirm password: ")
			p2b, err := term.ReadPassword(fd)
			fmt.Fprintln(os.Stderr)
			if err != nil {
				return "", err
			}
			p1 := strings.TrimSpace(string(p1b))
			p2 := strings.TrimSpace(string(p2b))
			if p1 == "" {
				fmt.Fprintln(os.Stderr, "password cannot be empty")
				continue
			}
			if p1 != p2 {
				fmt.Fprintln(os.Stderr, "passwords do not match")
				continue
			}
			return p1, nil
		}
	}

	// Non-interactive fallback (e.g. piped input). Echo suppression isn't possible.
	r := bufio.NewReader(os.Stdin)
	for {
		fmt.Fprintf(os.Stderr, "%s: ", label)
		p1, err := r.ReadString('\n')
		if err != nil {
			return "", err
		}
		fmt.Fprint(os.Stderr, "Confirm password: ")
		p2, err := r.ReadString('\n')
		if err != nil {
			return "", err
		}
		p1 = strings.TrimSpace(p1)
		p2 = strings.TrimSpace(p2)
		if p1 == "" {
			fmt.Fprintln(os.Stderr, "password cannot be empty")
			continue
		}
		if p1 != p2 {
			fmt.Fprintln(os.Stderr, "passwords do not match")
			continue
		}
		return p1, nil
	}
}

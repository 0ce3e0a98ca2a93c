package setup

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/huntiep/valentine/internal/auth"
	"github.com/huntiep/valentine/internal/config"
	"github.com/huntiep/valentine/internal/db"
)

type ResetAdminOptions struct {
	Config           config.Config
	AdminPassword    string
	AdminPasswordEnv bool
}

// ResetAdmin replaces the admin password hash in an initialized database.
// It works directly against SQLite; the server need not be running.
func ResetAdmin(ctx context.Context, opt ResetAdminOptions) error {
	d, err := db.Open(ctx, opt.Config.DB.Path)
	if err != nil {
		return err
	}
	defer d.Close()

	initialized, err := d.IsInitialized(ctx)
	if err != nil {
		return err
	}
	if !initialized {
		return errors.New("not initialized; run setup")
	}

	pass, err := resolveAdminPassword("Set admin password", opt.AdminPassword, opt.AdminPasswordEnv)
	if err != nil {
		return err
	}

	h, err := auth.HashPassword(pass, auth.DefaultArgon2Params())
	if err != nil {
		return err
	}
	return d.SetAdminPasswordHash(ctx, h)
}

func resolveAdminPassword(label string, flagValue string, fromEnv bool) (string, error) {
	if flagValue != "" && fromEnv {
		return "", errors.New("choose one of --admin-password or --admin-password-env")
	}
	if fromEnv {
		v := strings.TrimSpace(os.Getenv("VALENTINE_ADMIN_PASSWORD"))
		if v == "" {
			return "", errors.New("VALENTINE_ADMIN_PASSWORD is empty")
		}
		return v, nil
	}
	if flagValue != "" {
		v := strings.TrimSpace(flagValue)
		if v == "" {
			return "", errors.New("admin password is empty")
		}
		return v, nil
	}
	return promptPassword(label)
}

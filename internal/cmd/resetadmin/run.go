// Package resetadmin implements the "valentine reset-admin" subcommand.
// It resets the admin password directly in the SQLite database.
package resetadmin

import (
	"context"
	"flag"

	"github.com/huntiep/valentine/internal/config"
	isetup "github.com/huntiep/valentine/internal/setup"
)

func Run(configPath string, args []string) error {
	fs := flag.NewFlagSet("reset-admin", flag.ContinueOnError)
	var password string
	var passwordEnv bool
	fs.StringVar(&password, "admin-password", "", "set admin password non-interactively")
	fs.BoolVar(&passwordEnv, "admin-password-env", false, "read admin password from VALENTINE_ADMIN_PASSWORD")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	return isetup.ResetAdmin(context.Background(), isetup.ResetAdminOptions{
		Config:           cfg,
		AdminPassword:    password,
		AdminPasswordEnv: passwordEnv,
	})
}

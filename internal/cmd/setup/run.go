// Package setup implements the first-run initialization subcommand.
package setup

import (
	"context"
	"flag"

	"github.com/huntiep/valentine/internal/config"
	isetup "github.com/huntiep/valentine/internal/setup"
)

func Run(configPath string, args []string) error {
	fs := flag.NewFlagSet("setup", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	return isetup.Run(context.Background(), isetup.Options{Config: cfg})
}

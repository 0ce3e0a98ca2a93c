// Package server implements the daemon subcommand.
package server

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/huntiep/valentine/internal/config"
	"github.com/huntiep/valentine/internal/daemon"
	"github.com/huntiep/valentine/internal/logging"
	"github.com/huntiep/valentine/internal/version"
)

func Run(configPath string, args []string) error {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	var logLevel string
	var logJSON bool
	var showVersion bool
	fs.StringVar(&logLevel, "log-level", "", "log level override: debug|info|warning|error")
	fs.BoolVar(&logJSON, "log-json", false, "log in JSON format")
	fs.BoolVar(&showVersion, "version", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if showVersion {
		fmt.Printf("valentine server %s\n", version.Version)
		return nil
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	level := cfg.Log.Level
	if strings.TrimSpace(logLevel) != "" {
		level = logLevel
	}
	lg, err := logging.New(logging.Options{Level: level, JSON: logJSON, DefaultSlog: true})
	if err != nil {
		return err
	}

	return daemon.Run(context.Background(), daemon.Options{
		Config: cfg,
		Logger: lg,
	})
}

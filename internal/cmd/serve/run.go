// Package serve implements the SSH forced-command subcommand.
package serve

import (
	"context"
	"fmt"
	"os"

	"github.com/huntiep/valentine/internal/config"
	"github.com/huntiep/valentine/internal/db"
	"github.com/huntiep/valentine/internal/logging"
	"github.com/huntiep/valentine/internal/sshcmd"
)

// Run executes one transport session and returns the process exit code.
// Stderr reaches the connecting git client, so logging stays at error
// level here.
func Run(configPath string, args []string) int {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "valentine: %v\n", err)
		return 1
	}
	lg, err := logging.New(logging.Options{Level: "error"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "valentine: %v\n", err)
		return 1
	}

	if len(args) != 1 {
		lg.Error("serve expects exactly one key argument", "args", args)
		fmt.Fprintf(os.Stderr, "%s: Internal error\n", cfg.Name)
		return 1
	}

	ctx := context.Background()
	d, err := db.Open(ctx, cfg.DB.Path)
	if err != nil {
		lg.Error("db open failed", "err", err)
		fmt.Fprintf(os.Stderr, "%s: Internal error\n", cfg.Name)
		return 1
	}
	defer d.Close()

	cmdline, hasCommand := os.LookupEnv("SSH_ORIGINAL_COMMAND")
	return sshcmd.Run(ctx, sshcmd.Options{
		DB:         d,
		RepoDir:    cfg.RepoDir,
		Name:       cfg.Name,
		KeyArg:     args[0],
		Command:    cmdline,
		HasCommand: hasCommand,
		Stdin:      os.Stdin,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
		Logger:     lg,
	})
}

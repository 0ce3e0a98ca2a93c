// Package sshcmd implements the SSH forced-command entry point. sshd
// authenticates the key, forces `valentine -c <config> serve key-<id>`,
// and puts the client's real request in SSH_ORIGINAL_COMMAND; this
// package parses that command, resolves the key id to an identity,
// checks access and hands the session streams to the git subprocess.
package sshcmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/huntiep/valentine/internal/access"
	"github.com/huntiep/valentine/internal/db"
	"github.com/huntiep/valentine/internal/gitcmd"
	"github.com/huntiep/valentine/internal/gitrepo"
)

// Options carries everything one serve invocation needs. Command holds
// the SSH_ORIGINAL_COMMAND value; HasCommand is false when the variable
// was absent (interactive SSH login).
type Options struct {
	DB      *db.DB
	RepoDir string
	Name    string

	KeyArg     string
	Command    string
	HasCommand bool

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

// Run executes one SSH transport session and returns the process exit
// code: 0 for success or the no-shell banner, 1 for every failure. There
// are no retries; each failure is terminal for the session.
func Run(ctx context.Context, opt Options) int {
	lg := opt.Logger
	if lg == nil {
		lg = slog.Default()
	}

	if !opt.HasCommand {
		fmt.Fprintf(opt.Stdout, "Hi there, you've successfully authenticated, but %s does not provide shell access.\n", opt.Name)
		fmt.Fprintf(opt.Stdout, "If this is unexpected, please log in with password and setup %s under another user.\n", opt.Name)
		return 0
	}

	keyID, err := parseKeyArg(opt.KeyArg)
	if err != nil {
		lg.Error("bad key argument", "arg", opt.KeyArg, "err", err)
		return fail(opt, "Internal error")
	}

	lg.Info("ssh command", "cmd", opt.Command, "key_id", keyID)

	cmd, err := gitcmd.ParseSSHCommand(opt.Command)
	if err != nil {
		return fail(opt, "Invalid repository path")
	}
	mode, ok := gitcmd.ModeForVerb(cmd.Verb)
	if !ok {
		return fail(opt, "Unknown git command")
	}

	id, err := access.ResolveKeyID(ctx, opt.DB, keyID)
	if err != nil {
		lg.Error("identity lookup failed", "key_id", keyID, "err", err)
		return fail(opt, "Internal error")
	}

	decision, err := access.NewDecider(opt.DB).Decide(ctx, id, cmd.Owner, cmd.Repo, mode)
	if err != nil {
		lg.Error("access check failed", "err", err)
		return fail(opt, "Internal error")
	}
	if !decision.Allowed {
		lg.Warn("access denied", "owner", cmd.Owner, "repo", cmd.Repo,
			"mode", mode.String(), "reason", decision.Reason.String())
		return fail(opt, access.DeniedMessage)
	}

	repoPath := gitrepo.Path(opt.RepoDir, cmd.Owner, cmd.Repo)
	if err := gitrepo.RunVerb(ctx, cmd.Verb, repoPath, opt.Stdin, opt.Stdout, opt.Stderr); err != nil {
		// The wire exchange may already have happened; report and exit.
		lg.Error("git subprocess failed", "verb", cmd.Verb, "repo", repoPath, "err", err)
		return fail(opt, "Internal error")
	}

	if mode == gitcmd.Write {
		if err := opt.DB.TouchRepo(ctx, decision.Repo.ID); err != nil {
			lg.Error("timestamp bump failed", "repo_id", decision.Repo.ID, "err", err)
			return fail(opt, "Internal error")
		}
	}
	return 0
}

// parseKeyArg extracts the row id from the forced-command "key-<id>" token.
func parseKeyArg(arg string) (int64, error) {
	rest, ok := strings.CutPrefix(arg, "key-")
	if !ok {
		return 0, fmt.Errorf("missing key- prefix in %q", arg)
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid key id %q", rest)
	}
	return id, nil
}

// fail prints the fixed user-visible message and yields exit code 1.
func fail(opt Options, msg string) int {
	fmt.Fprintf(opt.Stderr, "%s: %s\n", opt.Name, msg)
	return 1
}

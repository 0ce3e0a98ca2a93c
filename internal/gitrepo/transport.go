package gitrepo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"

	"github.com/huntiep/valentine/internal/gitcmd"
)

// RunVerb executes a git transport verb against a bare repository,
// wiring the caller's streams straight to the subprocess. The process is
// the protocol implementation; this layer only resolves the path and
// owns the process lifecycle. The context kills the child if the client
// goes away.
func RunVerb(ctx context.Context, verb, repoPath string, stdin io.Reader, stdout, stderr io.Writer) error {
	if _, ok := gitcmd.ModeForVerb(verb); !ok {
		return errors.New("unknown git command")
	}
	cmd := exec.CommandContext(ctx, verb, repoPath)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd.Run()
}

// AdvertiseRefs runs the stateless-RPC ref advertisement for the
// info/refs handshake and returns its raw output.
func AdvertiseRefs(ctx context.Context, repoPath string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git-upload-pack", "--stateless-rpc", "--advertise-refs", repoPath)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git-upload-pack --advertise-refs: %w", err)
	}
	return out.Bytes(), nil
}

// UploadPack runs one stateless-RPC fetch round-trip: the whole request
// body is fed to the subprocess and its complete output is written to w
// only afterwards. Relaying output before the request is fully consumed
// can deadlock pipe buffers on large packs, so the ordering is fixed.
func UploadPack(ctx context.Context, repoPath string, body io.Reader, w io.Writer) error {
	cmd := exec.CommandContext(ctx, "git-upload-pack", "--stateless-rpc", repoPath)
	cmd.Stdin = body
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("git-upload-pack --stateless-rpc: %w", err)
	}
	_, err := w.Write(out.Bytes())
	return err
}

package gitrepo

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// restrictions applied to every forced-command entry.
const keyRestrictions = "no-port-forwarding,no-X11-forwarding,no-agent-forwarding,no-pty"

// AuthorizedKeyLine renders the forced-command authorized_keys entry for
// an SSH key row. The embedded key id is the only identity the serve
// subcommand receives; sshd passes the client's real request through
// SSH_ORIGINAL_COMMAND.
func AuthorizedKeyLine(binPath, configPath string, keyID int64, content string) string {
	return fmt.Sprintf("command=\"%s -c '%s' serve key-%d\",%s %s\n",
		binPath, configPath, keyID, keyRestrictions, strings.TrimSpace(content))
}

// AppendAuthorizedKey appends a forced-command line to
// <sshDir>/authorized_keys, creating the directory and file as needed.
func AppendAuthorizedKey(sshDir, line string) error {
	if err := os.MkdirAll(sshDir, 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(authorizedKeysPath(sshDir), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	_, werr := f.WriteString(line)
	cerr := f.Close()
	if werr != nil {
		return werr
	}
	return cerr
}

// RemoveAuthorizedKey rewrites authorized_keys with the lines for keyID
// filtered out. Lines are matched by the literal forced-command token,
// closing quote included, so key-5 never matches key-55. A missing file
// means there is nothing to remove.
func RemoveAuthorizedKey(sshDir string, keyID int64) error {
	path := authorizedKeysPath(sshDir)
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	marker := fmt.Sprintf("serve key-%d\"", keyID)
	var keep []string
	for _, line := range strings.Split(string(b), "\n") {
		if line == "" || strings.Contains(line, marker) {
			continue
		}
		keep = append(keep, line)
	}

	out := ""
	if len(keep) > 0 {
		out = strings.Join(keep, "\n") + "\n"
	}
	return os.WriteFile(path, []byte(out), 0o600)
}

func authorizedKeysPath(sshDir string) string {
	return filepath.Join(sshDir, "authorized_keys")
}

// Command valentine is the entry point for both the daemon and the SSH
// forced-command invocation. The -c flag precedes the subcommand so
// authorized_keys lines can pin the config file:
//
//	valentine -c /etc/valentine.yaml serve key-12
package main

import (
	"fmt"
	"os"

	"github.com/huntiep/valentine/internal/cmd/admin"
	"github.com/huntiep/valentine/internal/cmd/resetadmin"
	"github.com/huntiep/valentine/internal/cmd/serve"
	"github.com/huntiep/valentine/internal/cmd/server"
	"github.com/huntiep/valentine/internal/cmd/setup"
)

const defaultConfig = "./valentine.yaml"

func main() {
	configPath, rest := splitConfigFlag(os.Args[1:])
	if len(rest) == 0 {
		usage()
		os.Exit(1)
	}

	sub, args := rest[0], rest[1:]
	switch sub {
	case "serve":
		// The forced-command path: the exit code is the session result.
		os.Exit(serve.Run(configPath, args))
	case "setup":
		exitOnErr(setup.Run(configPath, args))
	case "reset-admin":
		exitOnErr(resetadmin.Run(configPath, args))
	case "server":
		exitOnErr(server.Run(configPath, args))
	case "admin":
		exitOnErr(admin.Run(configPath, args))
	case "-h", "--help", "help":
		usage()
	default:
		usage()
		fmt.Fprintf(os.Stderr, "unknown subcommand: %s\n", sub)
		os.Exit(1)
	}
}

// splitConfigFlag consumes a leading -c/--config flag, leaving the
// subcommand and its own flags untouched.
func splitConfigFlag(argv []string) (string, []string) {
	if len(argv) >= 2 && (argv[0] == "-c" || argv[0] == "--config") {
		return argv[1], argv[2:]
	}
	return defaultConfig, argv
}

func exitOnErr(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "valentine [-c config.yaml] <setup|reset-admin|server|serve|admin> [flags]")
}

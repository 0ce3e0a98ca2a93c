// Package admin launches the interactive admin TUI.
package admin

import (
	"flag"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/huntiep/valentine/internal/adminapi"
	"github.com/huntiep/valentine/internal/adminui"
	"github.com/huntiep/valentine/internal/config"
)

func Run(configPath string, args []string) error {
	fs := flag.NewFlagSet("admin", flag.ContinueOnError)
	var addr string
	fs.StringVar(&addr, "addr", "", "server address (defaults to the configured bind)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if addr == "" {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		addr = "http://" + cfg.HTTP.Bind + ":" + strconv.Itoa(cfg.HTTP.Port)
	}

	c, err := adminapi.NewClient(adminapi.ClientOptions{Addr: addr})
	if err != nil {
		return err
	}

	p := tea.NewProgram(adminui.New(c, addr), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}

// Package daemon runs the long-lived server process: the HTTP listener
// plus the expired-session sweeper.
package daemon

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/huntiep/valentine/internal/config"
	"github.com/huntiep/valentine/internal/db"
	"github.com/huntiep/valentine/internal/httpapi"
	"github.com/huntiep/valentine/internal/session"
)

const sweepInterval = time.Hour

type Options struct {
	Config config.Config
	Logger *slog.Logger
}

func Run(ctx context.Context, opt Options) error {
	if opt.Logger == nil {
		opt.Logger = slog.Default()
	}

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

	go sweepSessions(ctx, d, opt.Logger)

	api := &httpapi.Server{
		DB:       d,
		Sessions: session.NewDBStore(d),
		Logger:   opt.Logger,
		Config:   opt.Config,
	}
	return api.ListenAndServe()
}

// sweepSessions periodically drops expired session rows.
func sweepSessions(ctx context.Context, d *db.DB, lg *slog.Logger) {
	t := time.NewTicker(sweepInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := d.DeleteExpiredSessions(ctx, time.Now().Unix())
			if err != nil {
				lg.Error("session sweep failed", "err", err)
				continue
			}
			if n > 0 {
				lg.Info("session sweep", "deleted", n)
			}
		}
	}
}

// Package app opens the workspace resources shared by the CLI commands.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"launchpad/internal/config"
	"launchpad/internal/db"
	"launchpad/internal/drafts"
	"launchpad/internal/gateway"
	"launchpad/internal/logging"
	"launchpad/internal/migrate"
	"launchpad/internal/repo"
	"launchpad/internal/session"
)

// Options override values from the workspace config file.
type Options struct {
	Workspace  string
	GatewayURL string
	LogLevel   string
}

// App is an opened workspace: config, database, logger and gateway client.
type App struct {
	Workspace string
	Config    *config.Config
	DB        *sql.DB
	Repo      repo.Repo
	Log       *zap.Logger
	Gateway   *gateway.Client
	Drafts    drafts.Store
}

// Open loads the workspace config (defaults when the file is missing),
// applies overrides, and opens and migrates the workspace database.
func Open(ctx context.Context, opts Options) (*App, error) {
	cfg, err := config.LoadOptional(opts.Workspace)
	if err != nil {
		return nil, err
	}
	if u := strings.TrimSpace(opts.GatewayURL); u != "" {
		cfg.Gateway.BaseURL = u
	}
	if lvl := strings.TrimSpace(opts.LogLevel); lvl != "" {
		cfg.Log.Level = lvl
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log, err := logging.New(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	conn, err := db.Open(db.Config{Workspace: opts.Workspace})
	if err != nil {
		return nil, err
	}
	if err := migrate.Migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate %s: %w", db.Path(opts.Workspace), err)
	}
	r := repo.Repo{DB: conn}
	gw := gateway.New(cfg.Gateway.BaseURL)
	gw.Timeout = cfg.GatewayTimeout()
	a := &App{
		Workspace: opts.Workspace,
		Config:    cfg,
		DB:        conn,
		Repo:      r,
		Log:       log,
		Gateway:   gw,
		Drafts:    drafts.New(r, log),
	}
	log.Debug("workspace opened", zap.String("db", db.Path(opts.Workspace)), zap.String("gateway", cfg.Gateway.BaseURL))
	return a, nil
}

func (a *App) Close() error {
	_ = a.Log.Sync()
	return a.DB.Close()
}

func (a *App) Sessions() session.Store { return a.Repo }

// Session returns the stored session. A missing session is returned as the
// zero Session with no error.
func (a *App) Session(ctx context.Context) (session.Session, error) {
	s, err := a.Repo.LoadSession(ctx)
	if errors.Is(err, session.ErrNoSession) {
		return session.Session{}, nil
	}
	return s, err
}

// DraftsFor returns the drafts of the session user. Drafts saved while nobody
// was logged in stay under the empty owner.
func (a *App) DraftsFor(s session.Session) drafts.Store {
	return a.Drafts.For(s.UserID())
}

// UserDrafts loads the stored session and returns its user's drafts.
func (a *App) UserDrafts(ctx context.Context) (drafts.Store, error) {
	s, err := a.Session(ctx)
	if err != nil {
		return drafts.Store{}, err
	}
	return a.DraftsFor(s), nil
}

// RequireSession returns the stored session if it can make authenticated calls.
func (a *App) RequireSession(ctx context.Context) (session.Session, error) {
	s, err := a.Session(ctx)
	if err != nil {
		return s, err
	}
	return s, s.Require()
}

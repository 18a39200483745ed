// Package commands implements the boardsync CLI subcommands.
package commands

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/c360studio/boardsync/config"
	"github.com/c360studio/boardsync/identity"
	"github.com/c360studio/boardsync/realtime"
	"github.com/c360studio/boardsync/remote"
	"github.com/c360studio/boardsync/session"
)

// App carries the shared state every subcommand needs: config, logger,
// the NATS connection and the user's session. It is populated by Setup
// before any subcommand runs.
type App struct {
	ConfigPath string
	LogLevel   string

	cfg    *config.Config
	logger *slog.Logger
	conn   *nats.Conn
	sess   *session.Session
	notify func(realtime.Notification)
}

// Setup builds the shared runtime state. Wired as the root command's
// PersistentPreRunE.
func (a *App) Setup(cmd *cobra.Command, args []string) error {
	level := slog.LevelInfo
	switch strings.ToLower(a.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	a.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(a.logger)

	cfg, err := a.loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.cfg = cfg

	ident, err := a.identity()
	if err != nil {
		return err
	}

	api := remote.NewClient(cfg.API.BaseURL, ident,
		remote.WithTimeout(cfg.API.Timeout),
		remote.WithLogger(a.logger))

	if cfg.NATS.URL != "" {
		conn, err := nats.Connect(cfg.NATS.URL,
			nats.Name("boardsync/"+ident.UserID()),
			nats.MaxReconnects(-1))
		if err != nil {
			a.logger.Warn("realtime channel unavailable, running offline",
				slog.String("url", cfg.NATS.URL),
				slog.String("error", err.Error()))
		} else {
			a.conn = conn
		}
	}

	sessOpts := []session.Option{
		session.WithNATS(a.conn),
		session.WithLogger(a.logger),
	}
	if a.notify != nil {
		sessOpts = append(sessOpts, session.WithNotify(a.notify))
	}
	sess, err := session.New(cfg, ident, api, sessOpts...)
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	a.sess = sess
	return nil
}

// Teardown releases the session and the realtime connection. Wired as the
// root command's PersistentPostRunE.
func (a *App) Teardown(cmd *cobra.Command, args []string) error {
	if a.sess != nil {
		if err := a.sess.Close(); err != nil {
			a.logger.Warn("close session", slog.String("error", err.Error()))
		}
	}
	if a.conn != nil {
		a.conn.Close()
	}
	return nil
}

// Session returns the active user session.
func (a *App) Session() *session.Session { return a.sess }

// Config returns the loaded configuration.
func (a *App) Config() *config.Config { return a.cfg }

// Logger returns the app logger.
func (a *App) Logger() *slog.Logger { return a.logger }

func (a *App) loadConfig() (*config.Config, error) {
	if a.ConfigPath != "" {
		cfg, err := config.LoadFromFile(a.ConfigPath)
		if err != nil {
			return nil, err
		}
		if err := cfg.ApplyEnv(); err != nil {
			return nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return config.NewLoader(a.logger).Load()
}

func (a *App) identity() (identity.Provider, error) {
	token := a.cfg.API.Token
	if token == "" {
		return nil, fmt.Errorf("no credential: set api.token in the config or BOARDSYNC_TOKEN")
	}
	ident, err := identity.FromToken(token)
	if err != nil {
		// Opaque (non-JWT) tokens still work; the backend resolves the user.
		a.logger.Debug("token is not a JWT, using it opaquely",
			slog.String("error", err.Error()))
		return identity.NewStatic("me", token), nil
	}
	if ident.Expired(time.Now()) {
		return nil, fmt.Errorf("bearer token has expired, sign in again")
	}
	return ident, nil
}

package commands

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/c360studio/boardsync/board"
	"github.com/c360studio/boardsync/config"
	"github.com/c360studio/boardsync/model"
	"github.com/c360studio/boardsync/realtime"
)

// NewWatchCommand returns the `watch` command: it keeps a project's board
// on screen and re-renders it when other clients change something or the
// config file is edited.
func NewWatchCommand(app *App) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch <project-id>",
		Short: "Watch a project's board for changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid := model.ParseID(args[0])

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			// Redraws are coalesced: a notification burst triggers one render.
			dirty := make(chan struct{}, 1)
			markDirty := func() {
				select {
				case dirty <- struct{}{}:
				default:
				}
			}
			app.notify = func(n realtime.Notification) {
				app.Logger().Info("board changed",
					slog.String("summary", n.Summary),
					slog.String("origin", n.Origin))
				markDirty()
			}
			// The session was built by Setup without the hook; rebuild it.
			if err := app.Teardown(cmd, args); err != nil {
				return err
			}
			if err := app.Setup(cmd, args); err != nil {
				return err
			}

			watcher, err := config.NewWatcher(config.NewLoader(app.Logger()).WatchPath(), app.Logger())
			if err != nil {
				return fmt.Errorf("watch config: %w", err)
			}
			if err := watcher.Start(ctx); err != nil {
				return fmt.Errorf("watch config: %w", err)
			}

			render := func() error {
				cols, progress, err := app.Session().Board(ctx, pid, board.Filter{})
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), "\033[2J\033[H")
				renderBoard(cmd.OutOrStdout(), cols, progress)
				return nil
			}
			if err := render(); err != nil {
				return err
			}

			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			for {
				select {
				case <-ctx.Done():
					return nil
				case <-dirty:
					if err := render(); err != nil {
						return err
					}
				case <-ticker.C:
					if err := render(); err != nil {
						return err
					}
				case cfg := <-watcher.Reloads():
					app.Logger().Info("config reloaded",
						slog.String("api_url", cfg.API.BaseURL))
					if err := app.Teardown(cmd, args); err != nil {
						return err
					}
					if err := app.Setup(cmd, args); err != nil {
						return err
					}
					if err := render(); err != nil {
						return err
					}
				}
			}
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 30*time.Second, "Periodic refresh interval")
	return cmd
}

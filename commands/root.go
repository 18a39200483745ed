package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the CLI version, overridden at build time.
var Version = "0.1.0"

// NewRootCommand builds the boardsync command tree.
func NewRootCommand() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:   "boardsync",
		Short: "Optimistic client for collaborative project boards",
		Long: `Boardsync keeps a local cache of your projects and tasks, applies your
changes optimistically before the server confirms them, and listens for
other clients' changes over NATS so your view stays current.`,
		SilenceUsage:       true,
		PersistentPreRunE:  app.Setup,
		PersistentPostRunE: app.Teardown,
	}

	cmd.PersistentFlags().StringVarP(&app.ConfigPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&app.LogLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(NewProjectsCommand(app))
	cmd.AddCommand(NewTasksCommand(app))
	cmd.AddCommand(NewBoardCommand(app))
	cmd.AddCommand(NewWatchCommand(app))
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		// No session needed to print a version.
		PersistentPreRunE:  func(*cobra.Command, []string) error { return nil },
		PersistentPostRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "boardsync version %s\n", Version)
		},
	})

	return cmd
}

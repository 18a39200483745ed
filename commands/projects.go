package commands

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/c360studio/boardsync/model"
	"github.com/c360studio/boardsync/mutation"
	"github.com/c360studio/boardsync/remote"
)

// NewProjectsCommand returns the `projects` command group.
func NewProjectsCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "List and manage projects",
	}
	cmd.AddCommand(newProjectsListCommand(app))
	cmd.AddCommand(newProjectsCreateCommand(app))
	cmd.AddCommand(newProjectsDeleteCommand(app))
	return cmd
}

func newProjectsListCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			projects, err := app.Session().Projects(cmd.Context())
			if err != nil {
				return err
			}
			if len(projects) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No projects.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tSTATUS\tOWNER\tPROGRESS\tDUE")
			for _, p := range projects {
				due := "-"
				if p.DueDate != nil {
					due = p.DueDate.Format("2006-01-02")
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d%%\t%s\n",
					p.ID, p.Title, p.Status, p.Owner, p.Progress, due)
			}
			return w.Flush()
		},
	}
}

func newProjectsCreateCommand(app *App) *cobra.Command {
	var (
		description string
		status      string
		due         string
		members     []string
	)

	cmd := &cobra.Command{
		Use:   "create <title>",
		Short: "Create a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			draft := remote.ProjectDraft{
				Title:       args[0],
				Description: description,
				Status:      status,
				Members:     members,
			}
			if due != "" {
				d, err := time.Parse("2006-01-02", due)
				if err != nil {
					return fmt.Errorf("parse due date: %w", err)
				}
				draft.DueDate = &d
			}

			ticket, err := app.Session().CreateProject(cmd.Context(), draft)
			if err != nil {
				return err
			}
			out, err := ticket.Wait(cmd.Context())
			if err != nil {
				return err
			}
			if out.State != mutation.StateCommitted {
				return fmt.Errorf("create project: %w", out.Err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created project %s (%s)\n", out.Entity.Title, out.Entity.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "Project description")
	cmd.Flags().StringVar(&status, "status", "", "Initial status")
	cmd.Flags().StringVar(&due, "due", "", "Due date (YYYY-MM-DD)")
	cmd.Flags().StringSliceVar(&members, "member", nil, "Member user ID (repeatable)")
	return cmd
}

func newProjectsDeleteCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <project-id>",
		Short: "Delete a project you own",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Deletion checks ownership against the loaded list.
			if _, err := app.Session().Projects(cmd.Context()); err != nil {
				return err
			}
			id := model.ParseID(args[0])
			ticket, err := app.Session().DeleteProject(cmd.Context(), id)
			if err != nil {
				return err
			}
			out, err := ticket.Wait(cmd.Context())
			if err != nil {
				return err
			}
			if out.State != mutation.StateCommitted {
				return fmt.Errorf("delete project: %w", out.Err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted project %s\n", id)
			return nil
		},
	}
}

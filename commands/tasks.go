package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/c360studio/boardsync/board"
	"github.com/c360studio/boardsync/model"
	"github.com/c360studio/boardsync/mutation"
	"github.com/c360studio/boardsync/remote"
)

// NewTasksCommand returns the `tasks` command group.
func NewTasksCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Manage tasks within a project",
	}
	cmd.AddCommand(newTasksAddCommand(app))
	cmd.AddCommand(newTasksMoveCommand(app))
	cmd.AddCommand(newTasksDoneCommand(app))
	cmd.AddCommand(newTasksDeleteCommand(app))
	return cmd
}

// loadProjectScope warms the caches a task mutation depends on.
func loadProjectScope(app *App, cmd *cobra.Command, projectID model.EntityID) error {
	if _, err := app.Session().Projects(cmd.Context()); err != nil {
		return err
	}
	if _, err := app.Session().Tasks(cmd.Context(), projectID); err != nil {
		return err
	}
	return nil
}

func waitTask(cmd *cobra.Command, ticket *mutation.Ticket[model.Task], verb string) (model.Task, error) {
	out, err := ticket.Wait(cmd.Context())
	if err != nil {
		return model.Task{}, err
	}
	if out.State != mutation.StateCommitted {
		return model.Task{}, fmt.Errorf("%s task: %w", verb, out.Err)
	}
	return out.Entity, nil
}

func newTasksAddCommand(app *App) *cobra.Command {
	var (
		description string
		status      string
		assignee    string
		priority    string
		due         string
		tags        []string
	)

	cmd := &cobra.Command{
		Use:   "add <project-id> <title>",
		Short: "Add a task to a project",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid := model.ParseID(args[0])
			if _, err := app.Session().Projects(cmd.Context()); err != nil {
				return err
			}

			draft := remote.TaskDraft{
				ProjectID:   pid,
				Title:       args[1],
				Description: description,
				Status:      model.NormalizeStatus(status),
				Assignee:    assignee,
				Priority:    model.NormalizePriority(priority),
				Tags:        tags,
			}
			if due != "" {
				d, err := time.Parse("2006-01-02", due)
				if err != nil {
					return fmt.Errorf("parse due date: %w", err)
				}
				draft.DueDate = &d
			}

			ticket, err := app.Session().CreateTask(cmd.Context(), draft)
			if err != nil {
				return err
			}
			task, err := waitTask(cmd, ticket, "add")
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added task %s (%s)\n", task.Title, task.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "Task description")
	cmd.Flags().StringVar(&status, "status", "", "Initial column")
	cmd.Flags().StringVarP(&assignee, "assignee", "a", "", "Assignee user ID")
	cmd.Flags().StringVarP(&priority, "priority", "p", "", "Priority (low, medium, high)")
	cmd.Flags().StringVar(&due, "due", "", "Due date (YYYY-MM-DD)")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Tag (repeatable)")
	return cmd
}

func newTasksMoveCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "move <project-id> <task-id> <column>",
		Short: "Move a task to another column",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid := model.ParseID(args[0])
			if err := loadProjectScope(app, cmd, pid); err != nil {
				return err
			}

			move := board.MoveRequest(model.ParseID(args[1]), args[2])
			ticket, err := app.Session().MoveTask(cmd.Context(), pid, move)
			if err != nil {
				return err
			}
			task, err := waitTask(cmd, ticket, "move")
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Moved %s to %s\n", task.Title, task.Status.DisplayName())
			return nil
		},
	}
}

func newTasksDoneCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "done <project-id> <task-id>",
		Short: "Mark a task completed",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid := model.ParseID(args[0])
			if err := loadProjectScope(app, cmd, pid); err != nil {
				return err
			}

			move := board.Move{TaskID: model.ParseID(args[1]), To: model.StatusCompleted}
			ticket, err := app.Session().MoveTask(cmd.Context(), pid, move)
			if err != nil {
				return err
			}
			task, err := waitTask(cmd, ticket, "complete")
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Completed %s\n", task.Title)
			return nil
		},
	}
}

func newTasksDeleteCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <project-id> <task-id>",
		Short: "Delete a task you created",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid := model.ParseID(args[0])
			if err := loadProjectScope(app, cmd, pid); err != nil {
				return err
			}

			id := model.ParseID(args[1])
			ticket, err := app.Session().DeleteTask(cmd.Context(), pid, id)
			if err != nil {
				return err
			}
			if _, err := waitTask(cmd, ticket, "delete"); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted task %s\n", id)
			return nil
		},
	}
}

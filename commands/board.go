package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/c360studio/boardsync/board"
	"github.com/c360studio/boardsync/model"
)

// NewBoardCommand returns the `board` command, which renders a project's
// columns.
func NewBoardCommand(app *App) *cobra.Command {
	var (
		status   string
		assignee string
		tag      string
		query    string
		starred  bool
	)

	cmd := &cobra.Command{
		Use:   "board <project-id>",
		Short: "Show a project's board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid := model.ParseID(args[0])

			filter := board.Filter{
				Assignee: assignee,
				Starred:  starred,
				Tag:      tag,
				Query:    query,
			}
			if status != "" {
				filter.Status = model.NormalizeStatus(status)
			}

			cols, progress, err := app.Session().Board(cmd.Context(), pid, filter)
			if err != nil {
				return err
			}
			renderBoard(cmd.OutOrStdout(), cols, progress)
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Only show one column")
	cmd.Flags().StringVarP(&assignee, "assignee", "a", "", "Filter by assignee")
	cmd.Flags().StringVar(&tag, "tag", "", "Filter by tag glob")
	cmd.Flags().StringVarP(&query, "query", "q", "", "Filter by title/description substring")
	cmd.Flags().BoolVar(&starred, "starred", false, "Only starred tasks")
	return cmd
}

func renderBoard(w io.Writer, cols []board.Column, progress int) {
	fmt.Fprintf(w, "Progress: %d%%\n\n", progress)
	for _, col := range cols {
		fmt.Fprintf(w, "%s (%d)\n", col.Title, len(col.Tasks))
		fmt.Fprintln(w, strings.Repeat("-", len(col.Title)+4))
		for _, t := range col.Tasks {
			marker := " "
			if t.Starred {
				marker = "*"
			}
			line := fmt.Sprintf("%s %s  %s", marker, t.ID, t.Title)
			if t.Assignee != "" {
				line += "  @" + t.Assignee
			}
			if len(t.Tags) > 0 {
				line += "  [" + strings.Join(t.Tags, ", ") + "]"
			}
			fmt.Fprintln(w, line)
		}
		fmt.Fprintln(w)
	}
}

// Package board derives the Kanban column layout from a cached task
// snapshot. Filters are pure predicates over the snapshot; deriving a board
// never mutates the cache.
package board

import (
	"math"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/c360studio/boardsync/model"
)

// Column is one board lane.
type Column struct {
	Status model.CanonicalStatus
	Title  string
	Tasks  []model.Task
}

// Filter narrows the tasks shown on the board. Zero values match everything.
type Filter struct {
	// Status keeps only one column's tasks.
	Status model.CanonicalStatus
	// Assignee keeps tasks assigned to this user.
	Assignee string
	// Starred keeps only starred tasks.
	Starred bool
	// Tag is a doublestar glob matched against each task tag
	// (e.g. "backend/*").
	Tag string
	// Query is a case-insensitive substring search over title,
	// description and tags.
	Query string
}

// Match reports whether the task passes every active predicate.
func (f Filter) Match(t model.Task) bool {
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Assignee != "" && t.Assignee != f.Assignee {
		return false
	}
	if f.Starred && !t.Starred {
		return false
	}
	if f.Tag != "" && !matchTag(f.Tag, t.Tags) {
		return false
	}
	if f.Query != "" && !matchQuery(f.Query, t) {
		return false
	}
	return true
}

func matchTag(pattern string, tags []string) bool {
	for _, tag := range tags {
		if ok, err := doublestar.Match(pattern, tag); err == nil && ok {
			return true
		}
		if tag == pattern {
			return true
		}
	}
	return false
}

func matchQuery(query string, t model.Task) bool {
	q := strings.ToLower(query)
	if strings.Contains(strings.ToLower(t.Title), q) {
		return true
	}
	if strings.Contains(strings.ToLower(t.Description), q) {
		return true
	}
	for _, tag := range t.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}

// Columns groups tasks into board lanes. The well-known To Do and
// In Progress columns always lead, Completed always trails, and custom
// columns appear between them in order of first appearance.
func Columns(tasks []model.Task, f Filter) []Column {
	byStatus := make(map[model.CanonicalStatus][]model.Task)
	var customOrder []model.CanonicalStatus

	for _, t := range tasks {
		if !f.Match(t) {
			continue
		}
		status := model.NormalizeStatus(string(t.Status))
		if _, seen := byStatus[status]; !seen && !status.IsWellKnown() {
			customOrder = append(customOrder, status)
		}
		byStatus[status] = append(byStatus[status], t)
	}

	order := make([]model.CanonicalStatus, 0, 3+len(customOrder))
	order = append(order, model.StatusToDo, model.StatusInProgress)
	order = append(order, customOrder...)
	order = append(order, model.StatusCompleted)

	columns := make([]Column, 0, len(order))
	for _, status := range order {
		columns = append(columns, Column{
			Status: status,
			Title:  status.DisplayName(),
			Tasks:  byStatus[status],
		})
	}
	return columns
}

// Progress computes a project's completion percentage from its tasks:
// round(100 * completed / total), 0 for an empty project.
func Progress(tasks []model.Task) int {
	if len(tasks) == 0 {
		return 0
	}
	completed := 0
	for _, t := range tasks {
		if t.IsCompleted() {
			completed++
		}
	}
	return int(math.Round(100 * float64(completed) / float64(len(tasks))))
}

// SubtaskProgress computes a task's checklist completion percentage.
func SubtaskProgress(t model.Task) int {
	if len(t.Subtasks) == 0 {
		return 0
	}
	done := 0
	for _, st := range t.Subtasks {
		if st.Done {
			done++
		}
	}
	return int(math.Round(100 * float64(done) / float64(len(t.Subtasks))))
}

// Move is a drag-and-drop transition request: a task headed to another
// column.
type Move struct {
	TaskID model.EntityID
	To     model.CanonicalStatus
}

// MoveRequest normalizes a raw column name into a transition request. The
// view model does not wait for the move to commit; the cache already
// reflects the optimistic state when columns are re-derived.
func MoveRequest(taskID model.EntityID, rawColumn string) Move {
	return Move{TaskID: taskID, To: model.NormalizeStatus(rawColumn)}
}

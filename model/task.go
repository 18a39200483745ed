package model

import "time"

// Subtask is a checklist item within a task.
type Subtask struct {
	Description string `json:"description"`
	Done        bool   `json:"done"`
}

// Task is a single board item belonging to a project.
type Task struct {
	ID          EntityID        `json:"id"`
	ProjectID   EntityID        `json:"project_id"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Status      CanonicalStatus `json:"status"`
	Assignee    string          `json:"assignee,omitempty"`
	Priority    Priority        `json:"priority"`
	DueDate     *time.Time      `json:"due_date,omitempty"`
	Tags        []string        `json:"tags,omitempty"`
	Subtasks    []Subtask       `json:"subtasks,omitempty"`
	Attachments int             `json:"attachments,omitempty"`
	Starred     bool            `json:"starred,omitempty"`
	CreatedBy   string          `json:"created_by,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// EntityID returns the task identifier.
func (t Task) EntityID() EntityID { return t.ID }

// Clone returns a deep copy of the task.
func (t Task) Clone() Task {
	out := t
	if t.DueDate != nil {
		due := *t.DueDate
		out.DueDate = &due
	}
	if t.Tags != nil {
		out.Tags = append([]string(nil), t.Tags...)
	}
	if t.Subtasks != nil {
		out.Subtasks = append([]Subtask(nil), t.Subtasks...)
	}
	return out
}

// CanDelete reports whether user may delete the task. Deletion is
// creator-only.
func (t Task) CanDelete(user string) bool {
	return user != "" && t.CreatedBy == user
}

// IsCompleted reports whether the task sits in the completed column.
func (t Task) IsCompleted() bool {
	return t.Status == StatusCompleted
}

// HasTag reports whether the task carries the exact tag.
func (t Task) HasTag(tag string) bool {
	for _, tg := range t.Tags {
		if tg == tag {
			return true
		}
	}
	return false
}

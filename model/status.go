// Package model defines the entity types shared by the cache, the mutation
// executor and the board view: projects, tasks and the canonical status
// vocabulary they are normalized into before entering the cache.
package model

import (
	"strings"
	"unicode"
)

// CanonicalStatus is a board column identifier. The three well-known columns
// use fixed lowercase values; user-defined columns carry their title-cased
// display name.
type CanonicalStatus string

// Well-known task statuses.
const (
	StatusToDo       CanonicalStatus = "todo"
	StatusInProgress CanonicalStatus = "in_progress"
	StatusCompleted  CanonicalStatus = "completed"
)

// Project statuses.
const (
	ProjectPlanning  = "planning"
	ProjectActive    = "active"
	ProjectOnHold    = "on_hold"
	ProjectCompleted = "completed"
)

// Priority is a task priority level.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// statusAliases maps cleaned input to a well-known status.
var statusAliases = map[string]CanonicalStatus{
	"todo":        StatusToDo,
	"to do":       StatusToDo,
	"backlog":     StatusToDo,
	"open":        StatusToDo,
	"in progress": StatusInProgress,
	"inprogress":  StatusInProgress,
	"doing":       StatusInProgress,
	"wip":         StatusInProgress,
	"started":     StatusInProgress,
	"completed":   StatusCompleted,
	"complete":    StatusCompleted,
	"done":        StatusCompleted,
	"finished":    StatusCompleted,
	"closed":      StatusCompleted,
}

// NormalizeStatus folds a raw status string into the canonical vocabulary.
// Case and punctuation variants of the well-known columns map to their fixed
// values. Unrecognized non-empty input becomes a title-cased custom column
// name. Empty input defaults to ToDo. The function is pure, total and
// idempotent.
func NormalizeStatus(raw string) CanonicalStatus {
	cleaned := cleanStatus(raw)
	if cleaned == "" {
		return StatusToDo
	}
	if s, ok := statusAliases[cleaned]; ok {
		return s
	}
	return CanonicalStatus(titleCase(cleaned))
}

// NormalizePriority folds a raw priority string into Low/Medium/High,
// defaulting to Medium.
func NormalizePriority(raw string) Priority {
	switch cleanStatus(raw) {
	case "low", "minor":
		return PriorityLow
	case "high", "urgent", "critical":
		return PriorityHigh
	default:
		return PriorityMedium
	}
}

// NormalizeProjectStatus folds a raw project status into the project
// vocabulary, defaulting to Planning.
func NormalizeProjectStatus(raw string) string {
	switch cleanStatus(raw) {
	case "active", "in progress", "started":
		return ProjectActive
	case "on hold", "onhold", "paused", "blocked":
		return ProjectOnHold
	case "completed", "complete", "done", "finished":
		return ProjectCompleted
	default:
		return ProjectPlanning
	}
}

// DisplayName returns the human-readable column title for a status.
func (s CanonicalStatus) DisplayName() string {
	switch s {
	case StatusToDo:
		return "To Do"
	case StatusInProgress:
		return "In Progress"
	case StatusCompleted:
		return "Completed"
	}
	return string(s)
}

// IsWellKnown reports whether the status is one of the three fixed columns.
func (s CanonicalStatus) IsWellKnown() bool {
	return s == StatusToDo || s == StatusInProgress || s == StatusCompleted
}

// cleanStatus lowercases and strips separator punctuation, collapsing runs
// of separators into single spaces.
func cleanStatus(raw string) string {
	var b strings.Builder
	lastSpace := true
	for _, r := range strings.ToLower(strings.TrimSpace(raw)) {
		switch {
		case r == '-' || r == '_' || r == '/' || r == '.' || unicode.IsSpace(r):
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		default:
			b.WriteRune(r)
			lastSpace = false
		}
	}
	return strings.TrimSpace(b.String())
}

// titleCase uppercases the first letter of each space-separated word.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

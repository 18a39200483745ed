package model

import "testing"

func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		raw      string
		expected CanonicalStatus
	}{
		{"to-do", StatusToDo},
		{"To_Do", StatusToDo},
		{"TODO", StatusToDo},
		{"backlog", StatusToDo},
		{"", StatusToDo},
		{"   ", StatusToDo},
		{"in progress", StatusInProgress},
		{"In-Progress", StatusInProgress},
		{"WIP", StatusInProgress},
		{"doing", StatusInProgress},
		{"done", StatusCompleted},
		{"complete", StatusCompleted},
		{"Completed", StatusCompleted},
		{"FINISHED", StatusCompleted},
		{"design review", "Design Review"},
		{"design-review", "Design Review"},
		{"qa", "Qa"},
		{"Blocked", "Blocked"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := NormalizeStatus(tt.raw)
			if got != tt.expected {
				t.Errorf("NormalizeStatus(%q) = %q, want %q", tt.raw, got, tt.expected)
			}
		})
	}
}

func TestNormalizeStatusIdempotent(t *testing.T) {
	inputs := []string{"to-do", "done", "WIP", "design review", "Blocked", "", "qa/testing", "in_progress"}
	for _, raw := range inputs {
		once := NormalizeStatus(raw)
		twice := NormalizeStatus(string(once))
		if once != twice {
			t.Errorf("NormalizeStatus not idempotent for %q: first %q, second %q", raw, once, twice)
		}
	}
}

func TestNormalizePriority(t *testing.T) {
	tests := []struct {
		raw      string
		expected Priority
	}{
		{"low", PriorityLow},
		{"HIGH", PriorityHigh},
		{"urgent", PriorityHigh},
		{"medium", PriorityMedium},
		{"", PriorityMedium},
		{"whatever", PriorityMedium},
	}
	for _, tt := range tests {
		if got := NormalizePriority(tt.raw); got != tt.expected {
			t.Errorf("NormalizePriority(%q) = %q, want %q", tt.raw, got, tt.expected)
		}
	}
}

func TestNormalizeProjectStatus(t *testing.T) {
	tests := []struct {
		raw      string
		expected string
	}{
		{"active", ProjectActive},
		{"On-Hold", ProjectOnHold},
		{"paused", ProjectOnHold},
		{"done", ProjectCompleted},
		{"", ProjectPlanning},
		{"unknown", ProjectPlanning},
	}
	for _, tt := range tests {
		if got := NormalizeProjectStatus(tt.raw); got != tt.expected {
			t.Errorf("NormalizeProjectStatus(%q) = %q, want %q", tt.raw, got, tt.expected)
		}
	}
}

func TestDisplayName(t *testing.T) {
	if got := StatusToDo.DisplayName(); got != "To Do" {
		t.Errorf("DisplayName() = %q, want %q", got, "To Do")
	}
	if got := CanonicalStatus("Design Review").DisplayName(); got != "Design Review" {
		t.Errorf("DisplayName() = %q, want %q", got, "Design Review")
	}
}

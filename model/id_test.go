package model

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestNewTemporaryID(t *testing.T) {
	id := NewTemporaryID()
	if !id.IsTemporary() {
		t.Error("NewTemporaryID() should be temporary")
	}
	if !strings.HasPrefix(id.String(), TemporaryPrefix) {
		t.Errorf("temporary ID %q missing prefix %q", id.String(), TemporaryPrefix)
	}
	if id.Equal(NewTemporaryID()) {
		t.Error("two temporary IDs should not be equal")
	}
}

func TestParseID(t *testing.T) {
	if id := ParseID("tmp-abc"); !id.IsTemporary() {
		t.Error("ParseID(tmp-abc) should be temporary")
	}
	if id := ParseID("p42"); id.IsTemporary() {
		t.Error("ParseID(p42) should be persisted")
	}
	if !ParseID("").IsZero() {
		t.Error("empty ID should be zero")
	}
}

func TestEntityIDJSON(t *testing.T) {
	type wrapper struct {
		ID EntityID `json:"id"`
	}

	data, err := json.Marshal(wrapper{ID: PersistedID("t1")})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `{"id":"t1"}` {
		t.Errorf("Marshal() = %s, want %s", data, `{"id":"t1"}`)
	}

	var w wrapper
	if err := json.Unmarshal([]byte(`{"id":"tmp-xyz"}`), &w); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if !w.ID.IsTemporary() {
		t.Error("round-tripped temporary ID lost its flag")
	}
	if w.ID.String() != "tmp-xyz" {
		t.Errorf("round-tripped ID = %q, want %q", w.ID.String(), "tmp-xyz")
	}
}

func TestTaskClone(t *testing.T) {
	task := Task{
		ID:       PersistedID("t1"),
		Title:    "original",
		Tags:     []string{"backend"},
		Subtasks: []Subtask{{Description: "step", Done: false}},
	}
	clone := task.Clone()
	clone.Tags[0] = "frontend"
	clone.Subtasks[0].Done = true

	if task.Tags[0] != "backend" {
		t.Error("Clone() shares the tags slice")
	}
	if task.Subtasks[0].Done {
		t.Error("Clone() shares the subtasks slice")
	}
}

func TestProjectPermissions(t *testing.T) {
	p := Project{ID: PersistedID("p1"), Owner: "alice", Members: []string{"bob"}}

	if !p.IsMember("alice") || !p.IsMember("bob") {
		t.Error("owner and member should both be members")
	}
	if p.IsMember("carol") || p.IsMember("") {
		t.Error("non-members should not be members")
	}
	if !p.CanDelete("alice") {
		t.Error("owner should be able to delete")
	}
	if p.CanDelete("bob") {
		t.Error("member should not be able to delete")
	}
}

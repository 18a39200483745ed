package model

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

// TemporaryPrefix marks client-generated identifiers that have not yet been
// confirmed by the backend. The mutation executor's commit step is the only
// place a temporary ID is replaced by a persisted one.
const TemporaryPrefix = "tmp-"

// EntityID identifies a project or task. It is either temporary
// (client-generated, awaiting a create confirmation) or persisted
// (assigned by the backend).
type EntityID struct {
	value     string
	temporary bool
}

// NewTemporaryID generates a fresh client-local identifier.
func NewTemporaryID() EntityID {
	return EntityID{value: TemporaryPrefix + uuid.New().String(), temporary: true}
}

// PersistedID wraps a server-assigned identifier.
func PersistedID(id string) EntityID {
	return EntityID{value: id}
}

// ParseID classifies a raw identifier string by its prefix.
func ParseID(raw string) EntityID {
	if strings.HasPrefix(raw, TemporaryPrefix) {
		return EntityID{value: raw, temporary: true}
	}
	return EntityID{value: raw}
}

// String returns the raw identifier.
func (id EntityID) String() string { return id.value }

// IsTemporary reports whether the identifier is client-generated.
func (id EntityID) IsTemporary() bool { return id.temporary }

// IsZero reports whether the identifier is unset.
func (id EntityID) IsZero() bool { return id.value == "" }

// Equal compares identifiers by raw value.
func (id EntityID) Equal(other EntityID) bool { return id.value == other.value }

// MarshalJSON encodes the identifier as its raw string.
func (id EntityID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.value)
}

// UnmarshalJSON decodes a raw string and re-derives the temporary flag.
func (id *EntityID) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*id = ParseID(raw)
	return nil
}

package model

import "time"

// Project is a container for related tasks with a shared team.
type Project struct {
	ID          EntityID   `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Owner       string     `json:"owner"`
	Members     []string   `json:"members,omitempty"`
	Progress    int        `json:"progress"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// EntityID returns the project identifier.
func (p Project) EntityID() EntityID { return p.ID }

// Clone returns a deep copy of the project.
func (p Project) Clone() Project {
	out := p
	if p.DueDate != nil {
		due := *p.DueDate
		out.DueDate = &due
	}
	if p.Members != nil {
		out.Members = append([]string(nil), p.Members...)
	}
	return out
}

// IsMember reports whether user is the owner or a team member.
func (p Project) IsMember(user string) bool {
	if user == "" {
		return false
	}
	if p.Owner == user {
		return true
	}
	for _, m := range p.Members {
		if m == user {
			return true
		}
	}
	return false
}

// CanDelete reports whether user may delete the project. Deletion is
// owner-only.
func (p Project) CanDelete(user string) bool {
	return user != "" && p.Owner == user
}

package models

import (
	"time"
)

// ProjectList is a user-curated favorites list. It holds project references
// only; removing a list never touches the projects.
type ProjectList struct {
	ID        int64     `json:"id"`
	Owner     OwnerRef  `json:"owner"`
	Name      string    `json:"name"`
	IsPublic  bool      `json:"is_public"`
	Projects  []int64   `json:"projects"`
	CreatedAt time.Time `json:"created_at"`

	// Derived client-side, not sent by the backend
	ProjectCount int `json:"project_count"`
}

// ListInput is the body for creating or editing a list.
type ListInput struct {
	Name     *string `json:"name,omitempty"`
	IsPublic *bool   `json:"is_public,omitempty"`
}

package models

import (
	"time"
)

// UserProfile is a marketplace user as returned by the backend, with the
// profile picture reference resolved to a displayable URL when one exists.
type UserProfile struct {
	ID                int64     `json:"id"`
	Username          string    `json:"username"`
	Bio               string    `json:"bio"`
	ProfilePicture    int64     `json:"profile_picture"`               // <= 1 means default avatar
	ProfilePictureURL *string   `json:"profile_picture_url,omitempty"` // filled client-side
	CreatedAt         time.Time `json:"created_at"`
}

// Reputation aggregates every rating received across a user's public projects.
type Reputation struct {
	ProjectCount int     `json:"project_count"`
	RatingCount  int     `json:"rating_count"`
	Average      float64 `json:"average"`
}

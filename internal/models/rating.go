package models

import (
	"time"
)

const (
	MinScore = 1
	MaxScore = 5
)

// Rating is one user's score for one project. The backend keeps at most one
// row per (user, project) pair.
type Rating struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user"`
	ProjectID int64     `json:"project"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}

// RatingSummary is always derived from the live rating rows of a project.
type RatingSummary struct {
	Average float64 `json:"average_rating"`
	Count   int     `json:"rating_count"`
}

package models

import (
	"html/template"
	"time"
)

type Comment struct {
	ID        int64     `json:"id"`
	Content   string    `json:"content"`
	UserID    int64     `json:"user"`
	ProjectID int64     `json:"project"`
	ParentID  *int64    `json:"parent,omitempty"` // nil or 0 for top-level comments
	CreatedAt time.Time `json:"created_at"`
}

// IsTopLevel reports whether the comment has no parent. A zero parent id is
// how the backend encodes "no parent" on older rows.
func (c Comment) IsTopLevel() bool {
	return c.ParentID == nil || *c.ParentID == 0
}

// CommentWithUser is a comment decorated with its resolved author and its
// direct replies. Built per request, never persisted.
type CommentWithUser struct {
	Comment
	User        *UserProfile       `json:"user_profile"`
	ContentHTML template.HTML      `json:"content_html"`
	Replies     []*CommentWithUser `json:"replies"`
}

// CommentRequest is the body for posting a comment or a reply.
type CommentRequest struct {
	Content  string `json:"content"`
	ParentID *int64 `json:"parent_id,omitempty"`
}

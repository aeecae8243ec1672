package api

import (
	"context"
	"fmt"
	"net/http"

	"maderalink/internal/models"
)

// FetchProjectComments returns the flat comment set of a project, unpaginated.
func (c *Client) FetchProjectComments(ctx context.Context, projectID int64) ([]models.Comment, error) {
	var comments []models.Comment
	if err := c.get(ctx, fmt.Sprintf("/projects/%d/comments", projectID), nil, "", &comments); err != nil {
		return nil, fmt.Errorf("fetch comments of project %d: %w", projectID, err)
	}
	return comments, nil
}

func (c *Client) CreateComment(ctx context.Context, token string, projectID int64, req models.CommentRequest) (*models.Comment, error) {
	body := map[string]any{
		"project": projectID,
		"content": req.Content,
	}
	if req.ParentID != nil && *req.ParentID != 0 {
		body["parent"] = *req.ParentID
	}
	var comment models.Comment
	if err := c.doJSON(ctx, http.MethodPost, "/comments", nil, token, body, &comment); err != nil {
		return nil, fmt.Errorf("create comment on project %d: %w", projectID, err)
	}
	return &comment, nil
}

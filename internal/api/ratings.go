package api

import (
	"context"
	"fmt"
	"net/http"

	"maderalink/internal/models"
)

// FetchProjectRatings returns every rating row of a project.
func (c *Client) FetchProjectRatings(ctx context.Context, projectID int64) ([]models.Rating, error) {
	var ratings []models.Rating
	if err := c.get(ctx, fmt.Sprintf("/projects/%d/ratings", projectID), nil, "", &ratings); err != nil {
		return nil, fmt.Errorf("fetch ratings of project %d: %w", projectID, err)
	}
	return ratings, nil
}

// CreateRating fails with an error matching apperrors.ErrDuplicateRating when
// the user already rated the project.
func (c *Client) CreateRating(ctx context.Context, token string, projectID int64, score int) (*models.Rating, error) {
	body := map[string]any{"project": projectID, "score": score}
	var r models.Rating
	if err := c.doJSON(ctx, http.MethodPost, "/ratings", nil, token, body, &r); err != nil {
		return nil, fmt.Errorf("rate project %d: %w", projectID, err)
	}
	return &r, nil
}

func (c *Client) UpdateRating(ctx context.Context, token string, ratingID int64, score int) (*models.Rating, error) {
	body := map[string]any{"score": score}
	var r models.Rating
	if err := c.doJSON(ctx, http.MethodPatch, fmt.Sprintf("/ratings/%d", ratingID), nil, token, body, &r); err != nil {
		return nil, fmt.Errorf("update rating %d: %w", ratingID, err)
	}
	return &r, nil
}

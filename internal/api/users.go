package api

import (
	"context"
	"fmt"

	"maderalink/internal/models"
)

// FetchUser resolves a user by id. Unknown ids fail with an error matching
// apperrors.ErrNotFound.
func (c *Client) FetchUser(ctx context.Context, id int64) (*models.UserProfile, error) {
	var u models.UserProfile
	if err := c.get(ctx, fmt.Sprintf("/users/%d", id), nil, "", &u); err != nil {
		return nil, fmt.Errorf("fetch user %d: %w", id, err)
	}
	return &u, nil
}

func (c *Client) FetchCurrentUser(ctx context.Context, token string) (*models.UserProfile, error) {
	var u models.UserProfile
	if err := c.get(ctx, "/users/me", nil, token, &u); err != nil {
		return nil, fmt.Errorf("fetch current user: %w", err)
	}
	return &u, nil
}

// FetchProfilePictureURL resolves a picture reference to a displayable URL.
// Ids <= 1 mean "default avatar" and return nil without calling the backend.
func (c *Client) FetchProfilePictureURL(ctx context.Context, pictureID int64) (*string, error) {
	if pictureID <= 1 {
		return nil, nil
	}
	var body struct {
		URL string `json:"url"`
	}
	if err := c.get(ctx, fmt.Sprintf("/profile-pictures/%d", pictureID), nil, "", &body); err != nil {
		return nil, fmt.Errorf("fetch profile picture %d: %w", pictureID, err)
	}
	if body.URL == "" {
		return nil, nil
	}
	return &body.URL, nil
}

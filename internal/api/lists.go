package api

import (
	"context"
	"fmt"
	"net/http"

	"maderalink/internal/models"
)

func (c *Client) FetchUserLists(ctx context.Context, token string, userID int64) ([]models.ProjectList, error) {
	var lists []models.ProjectList
	if err := c.get(ctx, fmt.Sprintf("/users/%d/lists", userID), nil, token, &lists); err != nil {
		return nil, fmt.Errorf("fetch lists of user %d: %w", userID, err)
	}
	return lists, nil
}

func (c *Client) FetchList(ctx context.Context, token string, id int64) (*models.ProjectList, error) {
	var l models.ProjectList
	if err := c.get(ctx, fmt.Sprintf("/lists/%d", id), nil, token, &l); err != nil {
		return nil, fmt.Errorf("fetch list %d: %w", id, err)
	}
	return &l, nil
}

func (c *Client) CreateList(ctx context.Context, token string, in models.ListInput) (*models.ProjectList, error) {
	var l models.ProjectList
	if err := c.doJSON(ctx, http.MethodPost, "/lists", nil, token, in, &l); err != nil {
		return nil, fmt.Errorf("create list: %w", err)
	}
	return &l, nil
}

func (c *Client) UpdateList(ctx context.Context, token string, id int64, in models.ListInput) (*models.ProjectList, error) {
	var l models.ProjectList
	if err := c.doJSON(ctx, http.MethodPatch, fmt.Sprintf("/lists/%d", id), nil, token, in, &l); err != nil {
		return nil, fmt.Errorf("update list %d: %w", id, err)
	}
	return &l, nil
}

func (c *Client) DeleteList(ctx context.Context, token string, id int64) error {
	if err := c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/lists/%d", id), nil, token, nil, nil); err != nil {
		return fmt.Errorf("delete list %d: %w", id, err)
	}
	return nil
}

func (c *Client) AddProjectToList(ctx context.Context, token string, listID, projectID int64) error {
	path := fmt.Sprintf("/lists/%d/projects/%d", listID, projectID)
	if err := c.doJSON(ctx, http.MethodPut, path, nil, token, nil, nil); err != nil {
		return fmt.Errorf("add project %d to list %d: %w", projectID, listID, err)
	}
	return nil
}

func (c *Client) RemoveProjectFromList(ctx context.Context, token string, listID, projectID int64) error {
	path := fmt.Sprintf("/lists/%d/projects/%d", listID, projectID)
	if err := c.doJSON(ctx, http.MethodDelete, path, nil, token, nil, nil); err != nil {
		return fmt.Errorf("remove project %d from list %d: %w", projectID, listID, err)
	}
	return nil
}

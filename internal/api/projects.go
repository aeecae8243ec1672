package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"

	"maderalink/internal/models"
)

// SearchProjects calls the full-text/tag search endpoint. Empty term and
// filters return the whole catalog, private projects included; callers filter
// visibility themselves.
func (c *Client) SearchProjects(ctx context.Context, term string, filters map[string]string) ([]models.Project, error) {
	query := url.Values{}
	if term != "" {
		query.Set("q", term)
	}
	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if filters[k] != "" {
			query.Set(k, filters[k])
		}
	}

	var projects []models.Project
	if err := c.get(ctx, "/projects/search", query, "", &projects); err != nil {
		return nil, fmt.Errorf("search projects: %w", err)
	}
	return projects, nil
}

func (c *Client) FetchProject(ctx context.Context, token string, id int64) (*models.Project, error) {
	var p models.Project
	if err := c.get(ctx, fmt.Sprintf("/projects/%d", id), nil, token, &p); err != nil {
		return nil, fmt.Errorf("fetch project %d: %w", id, err)
	}
	return &p, nil
}

// FetchUserProjects lists a user's projects. The backend includes private
// ones only when token belongs to that user.
func (c *Client) FetchUserProjects(ctx context.Context, token string, userID int64) ([]models.Project, error) {
	var projects []models.Project
	if err := c.get(ctx, fmt.Sprintf("/users/%d/projects", userID), nil, token, &projects); err != nil {
		return nil, fmt.Errorf("fetch projects of user %d: %w", userID, err)
	}
	return projects, nil
}

func (c *Client) CreateProject(ctx context.Context, token string, in models.ProjectInput) (*models.Project, error) {
	var p models.Project
	if err := c.doJSON(ctx, http.MethodPost, "/projects", nil, token, in, &p); err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	return &p, nil
}

func (c *Client) UpdateProject(ctx context.Context, token string, id int64, in models.ProjectInput) (*models.Project, error) {
	var p models.Project
	if err := c.doJSON(ctx, http.MethodPatch, fmt.Sprintf("/projects/%d", id), nil, token, in, &p); err != nil {
		return nil, fmt.Errorf("update project %d: %w", id, err)
	}
	return &p, nil
}

func (c *Client) DeleteProject(ctx context.Context, token string, id int64) error {
	if err := c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/projects/%d", id), nil, token, nil, nil); err != nil {
		return fmt.Errorf("delete project %d: %w", id, err)
	}
	return nil
}

package services

import (
	"context"

	"golang.org/x/sync/errgroup"

	"maderalink/internal/models"
	"maderalink/internal/session"
)

// UserPage is a public profile: the user, their reputation and the projects
// the viewer may see.
type UserPage struct {
	User       *models.UserProfile `json:"user"`
	Reputation models.Reputation   `json:"reputation"`
	Projects   []models.Project    `json:"projects"`
	IsSelf     bool                `json:"is_self"`
}

type ProfileService struct {
	users    UserResolver
	projects *ProjectService
	ratings  *RatingService
}

func NewProfileService(users UserResolver, projects *ProjectService, ratings *RatingService) *ProfileService {
	return &ProfileService{users: users, projects: projects, ratings: ratings}
}

func (s *ProfileService) Page(ctx context.Context, sess *session.Session, userID int64) (*UserPage, error) {
	page := &UserPage{IsSelf: sess.Owns(userID)}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		u, err := s.users.ResolveUser(gctx, userID)
		page.User = u
		return err
	})
	g.Go(func() error {
		projects, err := s.projects.UserProjects(gctx, sess, userID)
		if err != nil {
			return err
		}
		page.Projects = projects
		rep, err := s.ratings.reputationOf(gctx, projects)
		page.Reputation = rep
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return page, nil
}

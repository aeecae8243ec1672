package services

import (
	"context"
	"html/template"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"maderalink/internal/apperrors"
	"maderalink/internal/models"
	"maderalink/internal/session"
	"maderalink/internal/utils"
)

type ProjectAPI interface {
	FetchProject(ctx context.Context, token string, id int64) (*models.Project, error)
	FetchUserProjects(ctx context.Context, token string, userID int64) ([]models.Project, error)
	CreateProject(ctx context.Context, token string, in models.ProjectInput) (*models.Project, error)
	UpdateProject(ctx context.Context, token string, id int64, in models.ProjectInput) (*models.Project, error)
	DeleteProject(ctx context.Context, token string, id int64) error
}

type CommentAPI interface {
	FetchProjectComments(ctx context.Context, projectID int64) ([]models.Comment, error)
	CreateComment(ctx context.Context, token string, projectID int64, req models.CommentRequest) (*models.Comment, error)
}

// ProjectDetail is everything the project page shows.
type ProjectDetail struct {
	Project         *models.Project           `json:"project"`
	Owner           *models.UserProfile       `json:"owner"`
	Rating          models.RatingSummary      `json:"rating"`
	MyRating        int                       `json:"my_rating"`
	Comments        []*models.CommentWithUser `json:"comments"`
	DescriptionHTML template.HTML             `json:"description_html"`
	IsOwner         bool                      `json:"is_owner"`
}

type ProjectService struct {
	projects ProjectAPI
	comments CommentAPI
	ratings  RatingAPI
	users    UserResolver
	tree     *CommentTreeBuilder
	log      *zap.Logger
}

func NewProjectService(projects ProjectAPI, comments CommentAPI, ratings RatingAPI, users UserResolver, tree *CommentTreeBuilder, log *zap.Logger) *ProjectService {
	return &ProjectService{
		projects: projects,
		comments: comments,
		ratings:  ratings,
		users:    users,
		tree:     tree,
		log:      log.Named("projects"),
	}
}

// Get fetches a project the session may see. Private projects of other users
// are reported as not found.
func (s *ProjectService) Get(ctx context.Context, sess *session.Session, id int64) (*models.Project, error) {
	p, err := s.projects.FetchProject(ctx, sess.Token(), id)
	if err != nil {
		return nil, err
	}
	if !p.IsPublic && !sess.Owns(p.Owner.OwnerID()) {
		return nil, apperrors.NewNotFoundError("project not found")
	}
	return p, nil
}

// Detail assembles the project page. Owner, ratings and comments are fetched
// concurrently once the project itself is known.
func (s *ProjectService) Detail(ctx context.Context, sess *session.Session, id int64) (*ProjectDetail, error) {
	p, err := s.Get(ctx, sess, id)
	if err != nil {
		return nil, err
	}

	html := utils.SanitizeRichText(p.Description)
	shown := *p
	shown.Description = string(html)
	d := &ProjectDetail{
		Project:         &shown,
		DescriptionHTML: html,
		IsOwner:         sess.Owns(p.Owner.OwnerID()),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		owner, err := s.owner(gctx, p)
		d.Owner = owner
		return err
	})
	g.Go(func() error {
		ratings, err := s.ratings.FetchProjectRatings(gctx, p.ID)
		if err != nil {
			return err
		}
		d.Rating = Summarize(ratings)
		d.MyRating = ScoreOf(ratings, sess.UserID)
		return nil
	})
	g.Go(func() error {
		tree, err := s.commentTree(gctx, p.ID)
		d.Comments = tree
		return err
	})
	if err := g.Wait(); err != nil {
		s.log.Error("Project detail failed", zap.Int64("project_id", id), zap.Error(err))
		return nil, err
	}
	return d, nil
}

// owner prefers the embedded owner record but still resolves its picture.
func (s *ProjectService) owner(ctx context.Context, p *models.Project) (*models.UserProfile, error) {
	if u, ok := p.Owner.Embedded(); ok && u.ProfilePicture <= 1 {
		cp := *u
		return &cp, nil
	}
	return s.users.ResolveUser(ctx, p.Owner.OwnerID())
}

func (s *ProjectService) commentTree(ctx context.Context, projectID int64) ([]*models.CommentWithUser, error) {
	comments, err := s.comments.FetchProjectComments(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return s.tree.Build(ctx, comments)
}

// Comments returns the comment forest of a project the session may see.
func (s *ProjectService) Comments(ctx context.Context, sess *session.Session, projectID int64) ([]*models.CommentWithUser, error) {
	if _, err := s.Get(ctx, sess, projectID); err != nil {
		return nil, err
	}
	return s.commentTree(ctx, projectID)
}

// Rating returns the live summary and the caller's own score.
func (s *ProjectService) Rating(ctx context.Context, sess *session.Session, projectID int64) (models.RatingSummary, int, error) {
	if _, err := s.Get(ctx, sess, projectID); err != nil {
		return models.RatingSummary{}, 0, err
	}
	ratings, err := s.ratings.FetchProjectRatings(ctx, projectID)
	if err != nil {
		return models.RatingSummary{}, 0, err
	}
	return Summarize(ratings), ScoreOf(ratings, sess.UserID), nil
}

// AddComment posts a comment or a reply and returns it decorated with its
// author. A reply's parent must be a comment of the same project.
func (s *ProjectService) AddComment(ctx context.Context, sess *session.Session, projectID int64, req models.CommentRequest) (*models.CommentWithUser, error) {
	if err := sess.RequireUser(); err != nil {
		return nil, err
	}
	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		return nil, apperrors.NewValidationError("comment cannot be empty")
	}
	if _, err := s.Get(ctx, sess, projectID); err != nil {
		return nil, err
	}
	if req.ParentID != nil && *req.ParentID == 0 {
		req.ParentID = nil
	}
	if req.ParentID != nil {
		if err := s.checkParent(ctx, projectID, *req.ParentID); err != nil {
			return nil, err
		}
	}

	c, err := s.comments.CreateComment(ctx, sess.Token(), projectID, req)
	if err != nil {
		return nil, err
	}
	author, err := s.users.ResolveUser(ctx, c.UserID)
	if err != nil {
		if s.tree.Placeholder == nil {
			return nil, err
		}
		author = s.tree.Placeholder(c.UserID, err)
	}
	return &models.CommentWithUser{
		Comment:     *c,
		User:        author,
		ContentHTML: utils.RenderMarkdown(c.Content),
		Replies:     []*models.CommentWithUser{},
	}, nil
}

func (s *ProjectService) checkParent(ctx context.Context, projectID, parentID int64) error {
	comments, err := s.comments.FetchProjectComments(ctx, projectID)
	if err != nil {
		return err
	}
	for _, c := range comments {
		if c.ID == parentID {
			return nil
		}
	}
	return apperrors.NewValidationError("the comment you are replying to does not exist")
}

// owned fetches a project and checks the session owns it. The backend
// enforces the same rule; this only turns the request away early.
func (s *ProjectService) owned(ctx context.Context, sess *session.Session, id int64) (*models.Project, error) {
	if err := sess.RequireUser(); err != nil {
		return nil, err
	}
	p, err := s.Get(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	if !sess.Owns(p.Owner.OwnerID()) {
		return nil, apperrors.NewForbiddenError("only the owner can change this project")
	}
	return p, nil
}

func (s *ProjectService) SetVisibility(ctx context.Context, sess *session.Session, id int64, public bool) (*models.Project, error) {
	p, err := s.owned(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	if p.IsPublic != public {
		if p, err = s.projects.UpdateProject(ctx, sess.Token(), id, models.ProjectInput{IsPublic: &public}); err != nil {
			return nil, err
		}
	}
	shown := forBrowser(*p)
	return &shown, nil
}

// Delete removes a project. Lists referencing it are not touched.
func (s *ProjectService) Delete(ctx context.Context, sess *session.Session, id int64) error {
	if _, err := s.owned(ctx, sess, id); err != nil {
		return err
	}
	if err := s.projects.DeleteProject(ctx, sess.Token(), id); err != nil {
		return err
	}
	s.log.Info("Project deleted", zap.Int64("project_id", id), zap.Int64("user_id", sess.UserID))
	return nil
}

// UserProjects lists a user's projects; private ones only for their owner.
func (s *ProjectService) UserProjects(ctx context.Context, sess *session.Session, userID int64) ([]models.Project, error) {
	projects, err := s.projects.FetchUserProjects(ctx, sess.Token(), userID)
	if err != nil {
		return nil, err
	}
	out := make([]models.Project, 0, len(projects))
	for _, p := range projects {
		if p.IsPublic || sess.Owns(p.Owner.OwnerID()) {
			out = append(out, forBrowser(p))
		}
	}
	return out, nil
}

// forBrowser returns p with its description sanitized. Editor HTML is only
// sent out in this form.
func forBrowser(p models.Project) models.Project {
	p.Description = string(utils.SanitizeRichText(p.Description))
	return p
}

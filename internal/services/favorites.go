package services

import (
	"context"
	"slices"
	"strings"

	"go.uber.org/zap"

	"maderalink/internal/apperrors"
	"maderalink/internal/models"
	"maderalink/internal/session"
)

type ListAPI interface {
	FetchUserLists(ctx context.Context, token string, userID int64) ([]models.ProjectList, error)
	FetchList(ctx context.Context, token string, id int64) (*models.ProjectList, error)
	CreateList(ctx context.Context, token string, in models.ListInput) (*models.ProjectList, error)
	UpdateList(ctx context.Context, token string, id int64, in models.ListInput) (*models.ProjectList, error)
	DeleteList(ctx context.Context, token string, id int64) error
	AddProjectToList(ctx context.Context, token string, listID, projectID int64) error
	RemoveProjectFromList(ctx context.Context, token string, listID, projectID int64) error
}

const maxListName = 100

// FavoriteService manages the user's favorite lists. Lists only reference
// projects; nothing here ever changes a project.
type FavoriteService struct {
	api ListAPI
	log *zap.Logger
}

func NewFavoriteService(api ListAPI, log *zap.Logger) *FavoriteService {
	return &FavoriteService{api: api, log: log.Named("favorites")}
}

func withCount(l *models.ProjectList) *models.ProjectList {
	if l.Projects == nil {
		l.Projects = []int64{}
	}
	l.ProjectCount = len(l.Projects)
	return l
}

func visible(sess *session.Session, l *models.ProjectList) bool {
	return l.IsPublic || sess.Owns(l.Owner.OwnerID())
}

// UserLists returns the lists of userID the session may see.
func (s *FavoriteService) UserLists(ctx context.Context, sess *session.Session, userID int64) ([]models.ProjectList, error) {
	lists, err := s.api.FetchUserLists(ctx, sess.Token(), userID)
	if err != nil {
		return nil, err
	}
	out := make([]models.ProjectList, 0, len(lists))
	for i := range lists {
		if visible(sess, &lists[i]) {
			out = append(out, *withCount(&lists[i]))
		}
	}
	return out, nil
}

func (s *FavoriteService) MyLists(ctx context.Context, sess *session.Session) ([]models.ProjectList, error) {
	if err := sess.RequireUser(); err != nil {
		return nil, err
	}
	return s.UserLists(ctx, sess, sess.UserID)
}

// Get returns a list. Private lists of other users are not found.
func (s *FavoriteService) Get(ctx context.Context, sess *session.Session, id int64) (*models.ProjectList, error) {
	l, err := s.api.FetchList(ctx, sess.Token(), id)
	if err != nil {
		return nil, err
	}
	if !visible(sess, l) {
		return nil, apperrors.NewNotFoundError("list not found")
	}
	return withCount(l), nil
}

func validName(name *string) error {
	if name == nil {
		return nil
	}
	*name = strings.TrimSpace(*name)
	if *name == "" {
		return apperrors.NewValidationError("list name cannot be empty")
	}
	if len([]rune(*name)) > maxListName {
		return apperrors.NewValidationError("list name is too long")
	}
	return nil
}

func (s *FavoriteService) Create(ctx context.Context, sess *session.Session, in models.ListInput) (*models.ProjectList, error) {
	if err := sess.RequireUser(); err != nil {
		return nil, err
	}
	if in.Name == nil {
		return nil, apperrors.NewValidationError("list name cannot be empty")
	}
	if err := validName(in.Name); err != nil {
		return nil, err
	}
	l, err := s.api.CreateList(ctx, sess.Token(), in)
	if err != nil {
		return nil, err
	}
	return withCount(l), nil
}

// owned fetches a list and checks the session owns it.
func (s *FavoriteService) owned(ctx context.Context, sess *session.Session, id int64) (*models.ProjectList, error) {
	if err := sess.RequireUser(); err != nil {
		return nil, err
	}
	l, err := s.Get(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	if !sess.Owns(l.Owner.OwnerID()) {
		return nil, apperrors.NewForbiddenError("only the owner can change this list")
	}
	return l, nil
}

func (s *FavoriteService) Update(ctx context.Context, sess *session.Session, id int64, in models.ListInput) (*models.ProjectList, error) {
	if err := validName(in.Name); err != nil {
		return nil, err
	}
	l, err := s.owned(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	if in == (models.ListInput{}) {
		return l, nil
	}
	updated, err := s.api.UpdateList(ctx, sess.Token(), id, in)
	if err != nil {
		return nil, err
	}
	return withCount(updated), nil
}

// Delete removes the list only; its projects stay where they are.
func (s *FavoriteService) Delete(ctx context.Context, sess *session.Session, id int64) error {
	if _, err := s.owned(ctx, sess, id); err != nil {
		return err
	}
	return s.api.DeleteList(ctx, sess.Token(), id)
}

// AddProject attaches a project reference. Adding a project already in the
// list changes nothing.
func (s *FavoriteService) AddProject(ctx context.Context, sess *session.Session, listID, projectID int64) (*models.ProjectList, error) {
	l, err := s.owned(ctx, sess, listID)
	if err != nil {
		return nil, err
	}
	if slices.Contains(l.Projects, projectID) {
		return l, nil
	}
	if err := s.api.AddProjectToList(ctx, sess.Token(), listID, projectID); err != nil {
		return nil, err
	}
	l.Projects = append(l.Projects, projectID)
	return withCount(l), nil
}

func (s *FavoriteService) RemoveProject(ctx context.Context, sess *session.Session, listID, projectID int64) (*models.ProjectList, error) {
	l, err := s.owned(ctx, sess, listID)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(l.Projects, projectID) {
		return l, nil
	}
	if err := s.api.RemoveProjectFromList(ctx, sess.Token(), listID, projectID); err != nil {
		return nil, err
	}
	l.Projects = slices.DeleteFunc(l.Projects, func(id int64) bool { return id == projectID })
	return withCount(l), nil
}

package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"maderalink/internal/apperrors"
	"maderalink/internal/models"
	"maderalink/internal/session"
)

type RatingAPI interface {
	FetchProjectRatings(ctx context.Context, projectID int64) ([]models.Rating, error)
	CreateRating(ctx context.Context, token string, projectID int64, score int) (*models.Rating, error)
	UpdateRating(ctx context.Context, token string, ratingID int64, score int) (*models.Rating, error)
}

type UserProjectSource interface {
	FetchUserProjects(ctx context.Context, token string, userID int64) ([]models.Project, error)
}

// reputationFanout bounds concurrent rating fetches per reputation request.
const reputationFanout = 8

// Summarize averages live rating rows. No rows give a zero summary.
func Summarize(ratings []models.Rating) models.RatingSummary {
	if len(ratings) == 0 {
		return models.RatingSummary{}
	}
	total := 0
	for _, r := range ratings {
		total += r.Score
	}
	return models.RatingSummary{
		Average: float64(total) / float64(len(ratings)),
		Count:   len(ratings),
	}
}

// ScoreOf returns the score userID gave, 0 when they have not rated.
func ScoreOf(ratings []models.Rating, userID int64) int {
	if r := findRating(ratings, userID); r != nil {
		return r.Score
	}
	return 0
}

func findRating(ratings []models.Rating, userID int64) *models.Rating {
	if userID == 0 {
		return nil
	}
	for i := range ratings {
		if ratings[i].UserID == userID {
			return &ratings[i]
		}
	}
	return nil
}

type RatingService struct {
	api      RatingAPI
	projects UserProjectSource
	log      *zap.Logger
}

func NewRatingService(api RatingAPI, projects UserProjectSource, log *zap.Logger) *RatingService {
	return &RatingService{api: api, projects: projects, log: log.Named("ratings")}
}

// Summary computes the project's rating from its live rows.
func (s *RatingService) Summary(ctx context.Context, projectID int64) (models.RatingSummary, error) {
	ratings, err := s.api.FetchProjectRatings(ctx, projectID)
	if err != nil {
		return models.RatingSummary{}, err
	}
	return Summarize(ratings), nil
}

// Rate records the caller's score, updating their existing rating when the
// backend reports one, and returns the recomputed summary.
func (s *RatingService) Rate(ctx context.Context, sess *session.Session, projectID int64, score int) (models.RatingSummary, error) {
	if err := sess.RequireUser(); err != nil {
		return models.RatingSummary{}, err
	}
	if score < models.MinScore || score > models.MaxScore {
		return models.RatingSummary{}, apperrors.NewValidationError(
			fmt.Sprintf("score must be between %d and %d", models.MinScore, models.MaxScore))
	}

	_, err := s.api.CreateRating(ctx, sess.Token(), projectID, score)
	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrDuplicateRating):
		if err := s.update(ctx, sess, projectID, score); err != nil {
			return models.RatingSummary{}, err
		}
	default:
		return models.RatingSummary{}, err
	}

	return s.Summary(ctx, projectID)
}

func (s *RatingService) update(ctx context.Context, sess *session.Session, projectID int64, score int) error {
	ratings, err := s.api.FetchProjectRatings(ctx, projectID)
	if err != nil {
		return err
	}
	existing := findRating(ratings, sess.UserID)
	if existing == nil {
		return fmt.Errorf("rating of user %d on project %d reported as duplicate but not found: %w",
			sess.UserID, projectID, apperrors.ErrDuplicateRating)
	}
	s.log.Debug("Updating existing rating", zap.Int64("rating_id", existing.ID), zap.Int("score", score))
	_, err = s.api.UpdateRating(ctx, sess.Token(), existing.ID, score)
	return err
}

// Reputation aggregates every rating across the user's public projects.
func (s *RatingService) Reputation(ctx context.Context, userID int64) (models.Reputation, error) {
	projects, err := s.projects.FetchUserProjects(ctx, "", userID)
	if err != nil {
		return models.Reputation{}, err
	}
	return s.reputationOf(ctx, projects)
}

func (s *RatingService) reputationOf(ctx context.Context, projects []models.Project) (models.Reputation, error) {
	var public []models.Project
	for _, p := range projects {
		if p.IsPublic {
			public = append(public, p)
		}
	}

	perProject := make([][]models.Rating, len(public))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(reputationFanout)
	for i, p := range public {
		g.Go(func() error {
			ratings, err := s.api.FetchProjectRatings(gctx, p.ID)
			if err != nil {
				return err
			}
			perProject[i] = ratings
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return models.Reputation{}, err
	}

	var all []models.Rating
	for _, rs := range perProject {
		all = append(all, rs...)
	}
	summary := Summarize(all)
	return models.Reputation{
		ProjectCount: len(public),
		RatingCount:  summary.Count,
		Average:      summary.Average,
	}, nil
}

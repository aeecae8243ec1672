package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"maderalink/internal/models"
	"maderalink/internal/utils"
)

// UserResolver fetches a user with the profile picture resolved to a URL.
type UserResolver interface {
	ResolveUser(ctx context.Context, userID int64) (*models.UserProfile, error)
}

type UserSource interface {
	FetchUser(ctx context.Context, id int64) (*models.UserProfile, error)
	FetchProfilePictureURL(ctx context.Context, pictureID int64) (*string, error)
}

// ProfileResolver is the UserResolver backed by the REST API. Users are
// fetched every time; picture URLs are cached by picture id.
type ProfileResolver struct {
	src      UserSource
	pictures *utils.Cache[int64, *string]
	log      *zap.Logger
}

func NewProfileResolver(src UserSource, pictures *utils.Cache[int64, *string], log *zap.Logger) *ProfileResolver {
	return &ProfileResolver{src: src, pictures: pictures, log: log.Named("users")}
}

// ResolveUser fails when the user cannot be fetched. A picture that cannot be
// resolved falls back to the default avatar.
func (r *ProfileResolver) ResolveUser(ctx context.Context, userID int64) (*models.UserProfile, error) {
	u, err := r.src.FetchUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve user %d: %w", userID, err)
	}
	profile := *u
	profile.ProfilePictureURL = r.pictureURL(ctx, u.ProfilePicture)
	return &profile, nil
}

func (r *ProfileResolver) pictureURL(ctx context.Context, pictureID int64) *string {
	if pictureID <= 1 {
		return nil
	}
	if r.pictures != nil {
		if url, ok := r.pictures.Get(pictureID); ok {
			return url
		}
	}
	url, err := r.src.FetchProfilePictureURL(ctx, pictureID)
	if err != nil {
		r.log.Warn("Profile picture lookup failed", zap.Int64("picture_id", pictureID), zap.Error(err))
		return nil
	}
	if r.pictures != nil {
		r.pictures.Set(pictureID, url)
	}
	return url
}

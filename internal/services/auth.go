package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"maderalink/internal/apperrors"
	"maderalink/internal/models"
	"maderalink/internal/session"
)

type CurrentUserSource interface {
	FetchCurrentUser(ctx context.Context, token string) (*models.UserProfile, error)
}

// AuthService signs users in against the auth provider with the password
// grant.
type AuthService struct {
	oauth *oauth2.Config
	users CurrentUserSource
	http  *http.Client
	log   *zap.Logger
}

func NewAuthService(tokenURL, clientID, clientSecret string, users CurrentUserSource, log *zap.Logger) *AuthService {
	return &AuthService{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		users: users,
		log:   log.Named("auth"),
	}
}

// WithHTTPClient sets the client used for token requests.
func (s *AuthService) WithHTTPClient(hc *http.Client) *AuthService {
	s.http = hc
	return s
}

// Login exchanges credentials for an access token and returns the session
// handle for browser session sid.
func (s *AuthService) Login(ctx context.Context, sid, username, password string) (*session.Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, apperrors.NewValidationError("username and password are required")
	}
	if s.http != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, s.http)
	}

	tok, err := s.oauth.PasswordCredentialsToken(ctx, username, password)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil && re.Response.StatusCode < 500 {
			s.log.Info("Login rejected", zap.String("username", username), zap.Int("status", re.Response.StatusCode))
			return nil, &apperrors.CustomError{Err: apperrors.ErrUnauthenticated, Message: "invalid username or password"}
		}
		return nil, fmt.Errorf("request token: %w", err)
	}

	sess := &session.Session{
		ID:          sid,
		AccessToken: tok.AccessToken,
		Expiry:      tok.Expiry,
	}

	if id, name, ok := claimsOf(tok.AccessToken); ok {
		sess.UserID, sess.Username = id, name
	}
	if sess.UserID == 0 || sess.Username == "" {
		me, err := s.users.FetchCurrentUser(ctx, tok.AccessToken)
		if err != nil {
			return nil, fmt.Errorf("fetch signed-in user: %w", err)
		}
		sess.UserID, sess.Username = me.ID, me.Username
	}

	s.log.Info("User signed in", zap.Int64("user_id", sess.UserID))
	return sess, nil
}

// claimsOf reads the user id and name from a JWT access token without
// verifying it. The values are only used for display and UX guards; the
// backend verifies the token on every call.
func claimsOf(accessToken string) (int64, string, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return 0, "", false
	}

	var id int64
	if sub, err := claims.GetSubject(); err == nil && sub != "" {
		id, _ = strconv.ParseInt(sub, 10, 64)
	}
	if id == 0 {
		if v, ok := claims["user_id"].(float64); ok {
			id = int64(v)
		}
	}
	if id == 0 {
		return 0, "", false
	}

	name, _ := claims["username"].(string)
	return id, name, true
}

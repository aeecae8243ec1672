package middleware

import (
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"maderalink/internal/apperrors"
	"maderalink/internal/session"
)

const SessionKey = "session"

// Cookie keys.
const (
	keySID      = "sid"
	keyUserID   = "user_id"
	keyUsername = "username"
	keyToken    = "access_token"
	keyExpiry   = "expiry"
)

// LoadSession builds the request's *session.Session from the cookie. Every
// browser gets a stable sid, signed in or not.
func LoadSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		store := sessions.Default(c)

		sid, _ := store.Get(keySID).(string)
		if sid == "" {
			sid = uuid.New().String()
			store.Set(keySID, sid)
			if err := store.Save(); err != nil {
				Log(c).Warn("Failed to save new session")
			}
		}

		sess := session.Anonymous(sid)
		if userID, ok := store.Get(keyUserID).(int64); ok && userID != 0 {
			sess.UserID = userID
			sess.Username, _ = store.Get(keyUsername).(string)
			sess.AccessToken, _ = store.Get(keyToken).(string)
			if exp, ok := store.Get(keyExpiry).(int64); ok && exp > 0 {
				sess.Expiry = time.Unix(exp, 0)
			}
		}

		c.Set(SessionKey, sess)
		c.Next()
	}
}

// CurrentSession returns the handle set by LoadSession.
func CurrentSession(c *gin.Context) *session.Session {
	if v, ok := c.Get(SessionKey); ok {
		if sess, ok := v.(*session.Session); ok {
			return sess
		}
	}
	return session.Anonymous("")
}

// AuthRequired rejects requests without a usable access token.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !CurrentSession(c).Authenticated() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "please sign in first"})
			return
		}
		c.Next()
	}
}

// maxCookieToken bounds the access token kept in the session cookie. The
// cookie store rejects encoded values over 4096 bytes and encoding about
// doubles the size.
const maxCookieToken = 1800

// ErrTokenTooLarge is returned by SaveLogin when the provider's token does not
// fit in the session cookie.
var ErrTokenTooLarge = &apperrors.CustomError{
	Err:     apperrors.ErrUnauthenticated,
	Message: "the sign-in token is too large to keep in the session cookie",
}

// SaveLogin stores a signed-in session in the cookie.
func SaveLogin(c *gin.Context, sess *session.Session) error {
	if len(sess.AccessToken) > maxCookieToken {
		return ErrTokenTooLarge
	}
	store := sessions.Default(c)
	store.Set(keySID, sess.ID)
	store.Set(keyUserID, sess.UserID)
	store.Set(keyUsername, sess.Username)
	store.Set(keyToken, sess.AccessToken)
	if !sess.Expiry.IsZero() {
		store.Set(keyExpiry, sess.Expiry.Unix())
	} else {
		store.Delete(keyExpiry)
	}
	c.Set(SessionKey, sess)
	return store.Save()
}

// ClearLogin drops the credentials but keeps the sid.
func ClearLogin(c *gin.Context) error {
	store := sessions.Default(c)
	store.Delete(keyUserID)
	store.Delete(keyUsername)
	store.Delete(keyToken)
	store.Delete(keyExpiry)
	if v, ok := c.Get(SessionKey); ok {
		if sess, ok := v.(*session.Session); ok {
			c.Set(SessionKey, session.Anonymous(sess.ID))
		}
	}
	return store.Save()
}

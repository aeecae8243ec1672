package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"maderalink/internal/apperrors"
	"maderalink/internal/middleware"
	"maderalink/internal/services"
)

type AuthHandler struct {
	auth    *services.AuthService
	catalog *services.CatalogService
}

func NewAuthHandler(auth *services.AuthService, catalog *services.CatalogService) *AuthHandler {
	return &AuthHandler{auth: auth, catalog: catalog}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		respondError(c, apperrors.NewValidationError("username and password are required"))
		return
	}

	sid := middleware.CurrentSession(c).ID
	sess, err := h.auth.Login(c.Request.Context(), sid, req.Username, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := middleware.SaveLogin(c, sess); err != nil {
		respondError(c, err)
		return
	}

	middleware.Log(c).Info("User signed in", zap.Int64("user_id", sess.UserID))
	c.JSON(http.StatusOK, gin.H{"user_id": sess.UserID, "username": sess.Username})
}

// Logout drops the credentials and the visitor's catalog state.
func (h *AuthHandler) Logout(c *gin.Context) {
	sess := middleware.CurrentSession(c)
	if err := middleware.ClearLogin(c); err != nil {
		respondError(c, err)
		return
	}
	h.catalog.Forget(sess)
	c.Status(http.StatusNoContent)
}

func (h *AuthHandler) Me(c *gin.Context) {
	sess := middleware.CurrentSession(c)
	if !sess.Authenticated() {
		c.JSON(http.StatusOK, gin.H{"authenticated": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"authenticated": true,
		"user_id":       sess.UserID,
		"username":      sess.Username,
	})
}

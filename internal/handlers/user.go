package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"maderalink/internal/middleware"
	"maderalink/internal/services"
)

type UserHandler struct {
	profiles *services.ProfileService
}

func NewUserHandler(profiles *services.ProfileService) *UserHandler {
	return &UserHandler{profiles: profiles}
}

// Profile returns the user, their reputation and the projects the viewer may see.
func (h *UserHandler) Profile(c *gin.Context) {
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}
	page, err := h.profiles.Page(c.Request.Context(), middleware.CurrentSession(c), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

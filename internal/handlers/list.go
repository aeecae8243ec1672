package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"maderalink/internal/middleware"
	"maderalink/internal/models"
	"maderalink/internal/services"
	"maderalink/internal/session"
)

type ListHandler struct {
	favorites *services.FavoriteService
}

func NewListHandler(favorites *services.FavoriteService) *ListHandler {
	return &ListHandler{favorites: favorites}
}

func (h *ListHandler) Mine(c *gin.Context) {
	lists, err := h.favorites.MyLists(c.Request.Context(), middleware.CurrentSession(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lists": lists})
}

func (h *ListHandler) OfUser(c *gin.Context) {
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}
	lists, err := h.favorites.UserLists(c.Request.Context(), middleware.CurrentSession(c), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lists": lists})
}

func (h *ListHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	l, err := h.favorites.Get(c.Request.Context(), middleware.CurrentSession(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, l)
}

func (h *ListHandler) Create(c *gin.Context) {
	var in models.ListInput
	if !bindJSON(c, &in) {
		return
	}
	l, err := h.favorites.Create(c.Request.Context(), middleware.CurrentSession(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, l)
}

func (h *ListHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var in models.ListInput
	if !bindJSON(c, &in) {
		return
	}
	l, err := h.favorites.Update(c.Request.Context(), middleware.CurrentSession(c), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, l)
}

func (h *ListHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.favorites.Delete(c.Request.Context(), middleware.CurrentSession(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ListHandler) AddProject(c *gin.Context) {
	h.changeProject(c, h.favorites.AddProject)
}

func (h *ListHandler) RemoveProject(c *gin.Context) {
	h.changeProject(c, h.favorites.RemoveProject)
}

func (h *ListHandler) changeProject(c *gin.Context, op func(ctx context.Context, sess *session.Session, listID, projectID int64) (*models.ProjectList, error)) {
	listID, ok := pathID(c, "id")
	if !ok {
		return
	}
	projectID, ok := pathID(c, "projectID")
	if !ok {
		return
	}
	l, err := op(c.Request.Context(), middleware.CurrentSession(c), listID, projectID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, l)
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"maderalink/internal/apperrors"
	"maderalink/internal/middleware"
	"maderalink/internal/models"
	"maderalink/internal/services"
)

type ProjectHandler struct {
	projects *services.ProjectService
	ratings  *services.RatingService
	drafts   *services.DraftService
}

func NewProjectHandler(projects *services.ProjectService, ratings *services.RatingService, drafts *services.DraftService) *ProjectHandler {
	return &ProjectHandler{projects: projects, ratings: ratings, drafts: drafts}
}

func (h *ProjectHandler) Detail(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	d, err := h.projects.Detail(c.Request.Context(), middleware.CurrentSession(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *ProjectHandler) Comments(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	tree, err := h.projects.Comments(c.Request.Context(), middleware.CurrentSession(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": tree})
}

func (h *ProjectHandler) AddComment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req models.CommentRequest
	if !bindJSON(c, &req) {
		return
	}
	comment, err := h.projects.AddComment(c.Request.Context(), middleware.CurrentSession(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

func (h *ProjectHandler) Rating(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	summary, mine, err := h.projects.Rating(c.Request.Context(), middleware.CurrentSession(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rating": summary, "my_rating": mine})
}

type rateRequest struct {
	Score int `json:"score"`
}

func (h *ProjectHandler) Rate(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req rateRequest
	if !bindJSON(c, &req) {
		return
	}
	summary, err := h.ratings.Rate(c.Request.Context(), middleware.CurrentSession(c), id, req.Score)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rating": summary, "my_rating": req.Score})
}

type visibilityRequest struct {
	IsPublic *bool `json:"is_public"`
}

func (h *ProjectHandler) SetVisibility(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req visibilityRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.IsPublic == nil {
		respondError(c, apperrors.NewValidationError("is_public is required"))
		return
	}
	p, err := h.projects.SetVisibility(c.Request.Context(), middleware.CurrentSession(c), id, *req.IsPublic)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *ProjectHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.projects.Delete(c.Request.Context(), middleware.CurrentSession(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Edit opens an edit draft seeded from the project.
func (h *ProjectHandler) Edit(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	d, err := h.drafts.FromProject(c.Request.Context(), middleware.CurrentSession(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

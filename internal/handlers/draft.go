package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"maderalink/internal/apperrors"
	"maderalink/internal/middleware"
	"maderalink/internal/models"
	"maderalink/internal/services"
)

// DraftHandler serves the create/edit project form.
type DraftHandler struct {
	drafts *services.DraftService
}

func NewDraftHandler(drafts *services.DraftService) *DraftHandler {
	return &DraftHandler{drafts: drafts}
}

func (h *DraftHandler) Create(c *gin.Context) {
	d, err := h.drafts.New(c.Request.Context(), middleware.CurrentSession(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

func (h *DraftHandler) List(c *gin.Context) {
	drafts, err := h.drafts.List(c.Request.Context(), middleware.CurrentSession(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if drafts == nil {
		drafts = []models.ProjectDraft{}
	}
	c.JSON(http.StatusOK, gin.H{"drafts": drafts})
}

func (h *DraftHandler) Get(c *gin.Context) {
	d, err := h.drafts.Get(c.Request.Context(), middleware.CurrentSession(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *DraftHandler) Update(c *gin.Context) {
	var fields models.DraftFields
	if !bindJSON(c, &fields) {
		return
	}
	d, err := h.drafts.Update(c.Request.Context(), middleware.CurrentSession(c), c.Param("id"), fields)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// StageFile takes a multipart "file" field for the kind in the path.
func (h *DraftHandler) StageFile(c *gin.Context) {
	kind := models.FileKind(c.Param("kind"))
	if !kind.Valid() {
		respondError(c, apperrors.NewValidationError("unknown file kind"))
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		respondError(c, apperrors.NewValidationError("choose a file to upload"))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	d, err := h.drafts.Stage(c.Request.Context(), middleware.CurrentSession(c), c.Param("id"), kind, header.Filename, contentType, file)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *DraftHandler) RemoveFile(c *gin.Context) {
	d, err := h.drafts.RemoveFile(c.Request.Context(), middleware.CurrentSession(c), c.Param("id"), c.Param("fileID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

type reorderRequest struct {
	From *int `json:"from"`
	To   *int `json:"to"`
}

func (h *DraftHandler) ReorderGallery(c *gin.Context) {
	var req reorderRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.From == nil || req.To == nil {
		respondError(c, apperrors.NewValidationError("from and to are required"))
		return
	}
	d, err := h.drafts.ReorderGallery(c.Request.Context(), middleware.CurrentSession(c), c.Param("id"), *req.From, *req.To)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *DraftHandler) Publish(c *gin.Context) {
	p, err := h.drafts.Publish(c.Request.Context(), middleware.CurrentSession(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *DraftHandler) Discard(c *gin.Context) {
	if err := h.drafts.Discard(c.Request.Context(), middleware.CurrentSession(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

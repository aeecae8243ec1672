package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"maderalink/internal/middleware"
	"maderalink/internal/services"
)

type CatalogHandler struct {
	catalog *services.CatalogService
}

func NewCatalogHandler(catalog *services.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

func (h *CatalogHandler) Show(c *gin.Context) {
	c.JSON(http.StatusOK, h.catalog.View(c.Request.Context(), middleware.CurrentSession(c)))
}

type searchRequest struct {
	Term string `json:"term"`
}

// Search replaces the search term. The term is used verbatim.
func (h *CatalogHandler) Search(c *gin.Context) {
	var req searchRequest
	if !bindJSON(c, &req) {
		return
	}
	c.JSON(http.StatusOK, h.catalog.Search(c.Request.Context(), middleware.CurrentSession(c), req.Term))
}

type filterRequest struct {
	Value string `json:"value"`
}

// SetFilter sets one category; an empty value clears it.
func (h *CatalogHandler) SetFilter(c *gin.Context) {
	var req filterRequest
	if !bindJSON(c, &req) {
		return
	}
	view := h.catalog.SetFilter(c.Request.Context(), middleware.CurrentSession(c), c.Param("category"), req.Value)
	c.JSON(http.StatusOK, view)
}

func (h *CatalogHandler) Reload(c *gin.Context) {
	c.JSON(http.StatusOK, h.catalog.Reload(c.Request.Context(), middleware.CurrentSession(c)))
}

package router

import (
	"github.com/gin-gonic/gin"

	"maderalink/internal/handlers"
	"maderalink/internal/middleware"
)

type Handlers struct {
	Auth    *handlers.AuthHandler
	Catalog *handlers.CatalogHandler
	Project *handlers.ProjectHandler
	Draft   *handlers.DraftHandler
	List    *handlers.ListHandler
	User    *handlers.UserHandler
}

// RegisterRoutes mounts the JSON API. LoadSession must already be in the
// engine's middleware chain.
func RegisterRoutes(r *gin.Engine, h Handlers) {
	api := r.Group("/api")

	// Public routes
	api.POST("/login", h.Auth.Login)
	api.POST("/logout", h.Auth.Logout)
	api.GET("/me", h.Auth.Me)

	api.GET("/catalog", h.Catalog.Show)
	api.PUT("/catalog/search", h.Catalog.Search)
	api.PUT("/catalog/filters/:category", h.Catalog.SetFilter)
	api.POST("/catalog/reload", h.Catalog.Reload)

	api.GET("/projects/:id", h.Project.Detail)
	api.GET("/projects/:id/comments", h.Project.Comments)
	api.GET("/projects/:id/rating", h.Project.Rating)

	api.GET("/users/:id", h.User.Profile)
	api.GET("/users/:id/lists", h.List.OfUser)

	// Protected routes
	authorized := api.Group("")
	authorized.Use(middleware.AuthRequired())
	{
		authorized.POST("/projects/:id/comments", h.Project.AddComment)
		authorized.PUT("/projects/:id/rating", h.Project.Rate)
		authorized.PATCH("/projects/:id/visibility", h.Project.SetVisibility)
		authorized.DELETE("/projects/:id", h.Project.Delete)
		authorized.POST("/projects/:id/edit", h.Project.Edit)

		authorized.GET("/lists", h.List.Mine)
		authorized.POST("/lists", h.List.Create)
		authorized.GET("/lists/:id", h.List.Get)
		authorized.PATCH("/lists/:id", h.List.Update)
		authorized.DELETE("/lists/:id", h.List.Delete)
		authorized.PUT("/lists/:id/projects/:projectID", h.List.AddProject)
		authorized.DELETE("/lists/:id/projects/:projectID", h.List.RemoveProject)
	}

	drafts := api.Group("/drafts")
	drafts.Use(middleware.AuthRequired())
	{
		drafts.GET("", h.Draft.List)
		drafts.POST("", h.Draft.Create)
		drafts.GET("/:id", h.Draft.Get)
		drafts.PATCH("/:id", h.Draft.Update)
		drafts.DELETE("/:id", h.Draft.Discard)
		drafts.POST("/:id/files/:kind", h.Draft.StageFile)
		drafts.DELETE("/:id/files/:fileID", h.Draft.RemoveFile)
		drafts.PUT("/:id/gallery/order", h.Draft.ReorderGallery)
		drafts.POST("/:id/publish", h.Draft.Publish)
	}
}

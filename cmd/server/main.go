package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"maderalink/internal/api"
	"maderalink/internal/config"
	"maderalink/internal/db"
	"maderalink/internal/handlers"
	"maderalink/internal/logger"
	"maderalink/internal/middleware"
	"maderalink/internal/router"
	"maderalink/internal/services"
	"maderalink/internal/storage"
	"maderalink/internal/utils"
)

const (
	pictureCacheSize = 2048
	pictureCacheTTL  = time.Hour
	janitorInterval  = time.Hour
	shutdownTimeout  = 10 * time.Second
)

func main() {
	configPath := os.Getenv("CONFIG_FILE")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zl, err := logger.NewLogger(cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zl.Sync()

	if err := run(cfg, zl); err != nil {
		zl.Fatal("Server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, zl *zap.Logger) error {
	backend := api.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout, zl)

	// Database
	gdb, err := db.Open(cfg.Database.DSN, zl)
	if err != nil {
		return err
	}
	draftStore := db.NewDraftStore(gdb)

	files, err := storage.NewLocalStorage(cfg.Storage.StagingDir, cfg.Storage.MaxFileSize, zl)
	if err != nil {
		return err
	}

	pictures, err := utils.NewCache[int64, *string](pictureCacheSize, pictureCacheTTL, false)
	if err != nil {
		return err
	}

	// Services
	users := services.NewProfileResolver(backend, pictures, zl)
	tree := services.NewCommentTreeBuilder(users, zl)
	ratings := services.NewRatingService(backend, backend, zl)
	projects := services.NewProjectService(backend, backend, backend, users, tree, zl)
	profiles := services.NewProfileService(users, projects, ratings)
	favorites := services.NewFavoriteService(backend, zl)
	drafts := services.NewDraftService(draftStore, files, backend, backend, zl)
	auth := services.NewAuthService(cfg.TokenURL(), cfg.Auth.ClientID, cfg.Auth.ClientSecret, backend, zl)
	catalog, err := services.NewCatalogService(backend, cfg.Catalog.MaxSessions, cfg.Catalog.IdleTTL, zl)
	if err != nil {
		return err
	}

	janitor := services.NewDraftJanitor(draftStore, files, cfg.Storage.DraftTTL, janitorInterval, zl)
	janitor.Start()
	defer janitor.Stop()

	// Gin
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()

	keys := [][]byte{[]byte(cfg.Session.AuthKey)}
	if cfg.Session.EncryptionKey != "" {
		keys = append(keys, []byte(cfg.Session.EncryptionKey))
	}
	store := cookie.NewStore(keys...)
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   cfg.Session.MaxAge,
		Secure:   cfg.Session.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	r.Use(middleware.RequestLogger(zl))
	r.Use(gin.Recovery())
	r.Use(sessions.Sessions(cfg.Session.Name, store))
	r.Use(middleware.LoadSession())

	router.RegisterRoutes(r, router.Handlers{
		Auth:    handlers.NewAuthHandler(auth, catalog),
		Catalog: handlers.NewCatalogHandler(catalog),
		Project: handlers.NewProjectHandler(projects, ratings, drafts),
		Draft:   handlers.NewDraftHandler(drafts),
		List:    handlers.NewListHandler(favorites),
		User:    handlers.NewUserHandler(profiles),
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	errCh := make(chan error, 1)
	go func() {
		zl.Info("MaderaLink server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zl.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

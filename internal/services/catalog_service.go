package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"maderalink/internal/models"
	"maderalink/internal/session"
	"maderalink/internal/utils"
)

const (
	excerptLength = 160

	// sharedCatalogTTL is how long one full catalog fetch serves the loads
	// of every session.
	sharedCatalogTTL = 30 * time.Second
)

// CatalogView is what the catalog page shows for one session.
type CatalogView struct {
	Snapshot
	Projects []models.ProjectCard `json:"projects"`
	Error    string               `json:"error,omitempty"`
}

// sharedCatalog sits between the engines and the backend. A successful full
// catalog fetch is reused by every engine for sharedCatalogTTL; failures are
// not shared. Concurrent misses wait for a single fetch.
type sharedCatalog struct {
	source ProjectSource
	mu     sync.Mutex
	cache  *utils.Cache[struct{}, []models.Project]
}

func (c *sharedCatalog) SearchProjects(ctx context.Context, term string, filters map[string]string) ([]models.Project, error) {
	if term != "" || len(filters) > 0 {
		return c.source.SearchProjects(ctx, term, filters)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if projects, ok := c.cache.Get(struct{}{}); ok {
		return projects, nil
	}
	projects, err := c.source.SearchProjects(ctx, "", nil)
	if err != nil {
		return nil, err
	}
	c.cache.Set(struct{}{}, projects)
	return projects, nil
}

func (c *sharedCatalog) invalidate() {
	c.cache.Delete(struct{}{})
}

// CatalogService keeps one Engine per browser session that searched or
// filtered. Idle engines are dropped after the configured TTL.
type CatalogService struct {
	shared  *sharedCatalog
	engines *utils.Cache[string, *Engine]
	log     *zap.Logger
}

func NewCatalogService(source ProjectSource, maxSessions int, idleTTL time.Duration, log *zap.Logger) (*CatalogService, error) {
	engines, err := utils.NewCache[string, *Engine](maxSessions, idleTTL, true)
	if err != nil {
		return nil, err
	}
	shared, err := utils.NewCache[struct{}, []models.Project](1, sharedCatalogTTL, false)
	if err != nil {
		return nil, err
	}
	return &CatalogService{
		shared:  &sharedCatalog{source: source, cache: shared},
		engines: engines,
		log:     log,
	}, nil
}

func (s *CatalogService) newEngine() *Engine {
	return NewEngine(s.shared, s.log)
}

// Engine returns the session's engine, creating it and loading the catalog on
// first use.
func (s *CatalogService) Engine(ctx context.Context, sess *session.Session) *Engine {
	e := s.engines.GetOrCreate(sess.ID, s.newEngine)
	// The error stays on the engine and is reported through the view.
	_ = e.Load(ctx)
	return e
}

// View shows the session's catalog. A session without a term, filters or a
// load failure has nothing to remember, so it is served from a throwaway
// engine and takes no slot.
func (s *CatalogService) View(ctx context.Context, sess *session.Session) CatalogView {
	if e, ok := s.engines.Get(sess.ID); ok {
		_ = e.Load(ctx)
		return buildView(e.Snapshot())
	}
	e := s.newEngine()
	if err := e.Load(ctx); err != nil && e.Err() != nil {
		// Kept so the failure stays until the user reloads.
		e = s.engines.GetOrCreate(sess.ID, func() *Engine { return e })
	}
	return buildView(e.Snapshot())
}

func (s *CatalogService) Search(ctx context.Context, sess *session.Session, term string) CatalogView {
	e := s.Engine(ctx, sess)
	e.SetSearchTerm(term)
	return buildView(e.Snapshot())
}

func (s *CatalogService) SetFilter(ctx context.Context, sess *session.Session, category, value string) CatalogView {
	e := s.Engine(ctx, sess)
	e.SetFilterCategory(category, value)
	return buildView(e.Snapshot())
}

// Reload is the user-triggered retry after a failed load, or a refresh. It
// always reaches the backend.
func (s *CatalogService) Reload(ctx context.Context, sess *session.Session) CatalogView {
	e := s.engines.GetOrCreate(sess.ID, s.newEngine)
	s.shared.invalidate()
	_ = e.Reload(ctx)
	return buildView(e.Snapshot())
}

// Forget drops the session's engine, used on logout.
func (s *CatalogService) Forget(sess *session.Session) {
	s.engines.Delete(sess.ID)
}

func buildView(snap Snapshot) CatalogView {
	view := CatalogView{Snapshot: snap, Projects: make([]models.ProjectCard, 0, len(snap.Projects))}
	for _, p := range snap.Projects {
		view.Projects = append(view.Projects, models.ProjectCard{
			Project: forBrowser(p),
			Excerpt: utils.PlainText(p.Description, excerptLength),
		})
	}
	if snap.Err != nil {
		view.Error = "the catalog could not be loaded, try reloading"
	}
	return view
}

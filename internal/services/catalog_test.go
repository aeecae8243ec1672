package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maderalink/internal/models"
	"maderalink/internal/session"
)

func catalogFixture() []models.Project {
	return []models.Project{
		{ID: 1, Title: "Mesa Nórdica", Description: "Mesa de comedor en roble", Styles: []string{"Nórdico", "Minimalista"}, Materials: []string{"Roble"}, IsPublic: true},
		{ID: 2, Title: "Silla Vintage", Description: "Silla restaurada", Styles: []string{"Vintage"}, Materials: []string{"Pino", "Roble"}, IsPublic: true},
		{ID: 3, Title: "Estantería secreta", Description: "mesa oculta", Styles: []string{"Industrial"}, Materials: []string{"Metal"}, IsPublic: false},
	}
}

func ids(projects []models.Project) []int64 {
	out := make([]int64, 0, len(projects))
	for _, p := range projects {
		out = append(out, p.ID)
	}
	return out
}

func loadedEngine(t *testing.T) *Engine {
	t.Helper()
	e := NewEngine(nil, testLog)
	e.SetProjects(catalogFixture())
	return e
}

func TestEngineExcludesPrivateProjects(t *testing.T) {
	e := loadedEngine(t)
	assert.Equal(t, []int64{1, 2}, ids(e.FilteredProjects()))

	e.SetSearchTerm("mesa")
	assert.Equal(t, []int64{1}, ids(e.FilteredProjects()), "private project matching the term stays hidden")
}

func TestEngineSearch(t *testing.T) {
	tests := []struct {
		term string
		want []int64
	}{
		{"", []int64{1, 2}},
		{"MESA", []int64{1}},
		{"restaurada", []int64{2}},
		{"roble", []int64{1}},
		{"sofá", []int64{}},
		{" mesa", []int64{}},
	}
	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			e := loadedEngine(t)
			e.SetSearchTerm(tt.term)
			assert.Equal(t, tt.want, ids(e.FilteredProjects()))
		})
	}
}

func TestEngineFilters(t *testing.T) {
	e := loadedEngine(t)

	e.SetFilterCategory(FilterMaterial, "Roble")
	assert.Equal(t, []int64{1, 2}, ids(e.FilteredProjects()))

	e.SetFilterCategory(FilterStyle, "Vintage")
	assert.Equal(t, []int64{2}, ids(e.FilteredProjects()))

	e.SetSearchTerm("mesa")
	assert.Empty(t, e.FilteredProjects())

	e.SetSearchTerm("")
	e.SetFilterCategory(FilterStyle, "")
	assert.Equal(t, []int64{1, 2}, ids(e.FilteredProjects()))

	e.SetFilterCategory("color", "rojo")
	assert.Equal(t, []int64{1, 2}, ids(e.FilteredProjects()), "unknown categories do not constrain")
}

func TestFilterOptionsFirstSeenOrder(t *testing.T) {
	e := loadedEngine(t)
	e.SetSearchTerm("silla")

	opts := e.FilterOptions()
	assert.Equal(t, []string{"Nórdico", "Minimalista", "Vintage"}, opts.Styles)
	assert.Equal(t, []string{"Roble", "Pino"}, opts.Materials)
}

func TestFilterProjectsIsPure(t *testing.T) {
	all := catalogFixture()
	out := FilterProjects(all, "mesa", map[string]string{FilterStyle: "Industrial"})
	assert.Equal(t, []int64{3}, ids(out))
	assert.Len(t, all, 3)
	assert.Empty(t, CollectFilterOptions(nil).Styles)
}

func TestEngineMemoizes(t *testing.T) {
	e := loadedEngine(t)
	e.FilteredProjects()
	e.FilteredProjects()
	e.Snapshot()
	assert.Equal(t, 1, e.filterRuns)

	e.SetSearchTerm("")
	e.SetFilterCategory(FilterStyle, "")
	e.FilteredProjects()
	assert.Equal(t, 1, e.filterRuns, "no-op changes keep the cache")

	e.SetSearchTerm("silla")
	e.FilteredProjects()
	assert.Equal(t, 2, e.filterRuns)

	e.SetProjects(catalogFixture())
	e.FilteredProjects()
	assert.Equal(t, 3, e.filterRuns)
}

func TestEngineLoadsOnceAndKeepsError(t *testing.T) {
	fb := newFakeBackend()
	fb.searchErr = errors.New("backend down")
	e := NewEngine(fb, testLog)

	require.Error(t, e.Load(context.Background()))
	require.Error(t, e.Load(context.Background()))
	assert.Equal(t, 1, fb.searchCalls, "no automatic retry")
	assert.Error(t, e.Err())
	assert.Empty(t, e.FilteredProjects())
	assert.Empty(t, e.FilterOptions().Styles)

	fb.searchErr = nil
	for _, p := range catalogFixture() {
		fb.addProject(p)
	}
	require.NoError(t, e.Reload(context.Background()))
	assert.NoError(t, e.Err())
	assert.Equal(t, []int64{1, 2}, ids(e.FilteredProjects()))
	assert.Equal(t, 2, fb.searchCalls)
}

func TestEngineConcurrentUse(t *testing.T) {
	e := loadedEngine(t)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%2 == 0 {
				e.SetSearchTerm("mesa")
			} else {
				e.SetFilterCategory(FilterMaterial, "Roble")
			}
			e.Snapshot()
		}()
	}
	wg.Wait()
	assert.Equal(t, []int64{1}, ids(e.FilteredProjects()))
}

func TestCatalogServiceKeepsEnginePerSession(t *testing.T) {
	fb := newFakeBackend()
	for _, p := range catalogFixture() {
		fb.addProject(p)
	}
	svc, err := NewCatalogService(fb, 10, time.Minute, testLog)
	require.NoError(t, err)
	ctx := context.Background()
	a, b := session.Anonymous("a"), session.Anonymous("b")

	view := svc.Search(ctx, a, "silla")
	assert.Equal(t, []int64{2}, cardIDs(view))
	assert.Equal(t, "Silla restaurada", view.Projects[0].Excerpt)
	assert.Equal(t, 2, view.Total)

	assert.Equal(t, []int64{1, 2}, cardIDs(svc.View(ctx, b)))
	assert.Equal(t, []int64{2}, cardIDs(svc.View(ctx, a)))
	assert.Equal(t, 1, fb.searchCalls, "sessions share one catalog load")

	svc.Forget(a)
	assert.Equal(t, []int64{1, 2}, cardIDs(svc.View(ctx, a)))
}

func TestCatalogServiceReportsLoadError(t *testing.T) {
	fb := newFakeBackend()
	fb.searchErr = errors.New("down")
	svc, err := NewCatalogService(fb, 10, time.Minute, testLog)
	require.NoError(t, err)
	sess := session.Anonymous("s")

	view := svc.View(context.Background(), sess)
	assert.NotEmpty(t, view.Error)
	assert.Empty(t, view.Projects)

	fb.searchErr = nil
	fb.addProject(catalogFixture()[0])
	view = svc.Reload(context.Background(), sess)
	assert.Empty(t, view.Error)
	assert.Equal(t, []int64{1}, cardIDs(view))
}

func cardIDs(v CatalogView) []int64 {
	out := make([]int64, 0, len(v.Projects))
	for _, p := range v.Projects {
		out = append(out, p.ID)
	}
	return out
}

func TestEngineIgnoresAbandonedLoad(t *testing.T) {
	fb := newFakeBackend()
	for _, p := range catalogFixture() {
		fb.addProject(p)
	}
	e := NewEngine(fb, testLog)

	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, e.Load(canceled), context.Canceled)
	assert.NoError(t, e.Err(), "a client disconnect is not a load failure")

	require.NoError(t, e.Load(context.Background()))
	assert.Equal(t, []int64{1, 2}, ids(e.FilteredProjects()))
	assert.Equal(t, 2, fb.searchCalls)
}

func TestCatalogServiceRecoversFromCanceledFirstRequest(t *testing.T) {
	fb := newFakeBackend()
	for _, p := range catalogFixture() {
		fb.addProject(p)
	}
	svc, err := NewCatalogService(fb, 10, time.Minute, testLog)
	require.NoError(t, err)
	sess := session.Anonymous("s")

	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	svc.Search(canceled, sess, "mesa")

	view := svc.View(context.Background(), sess)
	assert.Empty(t, view.Error)
	assert.Equal(t, []int64{1}, cardIDs(view))
}

func TestCatalogViewWithoutStateTakesNoSlot(t *testing.T) {
	fb := newFakeBackend()
	for _, p := range catalogFixture() {
		fb.addProject(p)
	}
	svc, err := NewCatalogService(fb, 2, time.Minute, testLog)
	require.NoError(t, err)
	ctx := context.Background()

	kept := session.Anonymous("kept")
	svc.Search(ctx, kept, "silla")
	for i := 0; i < 5; i++ {
		view := svc.View(ctx, session.Anonymous(fmt.Sprintf("visitor-%d", i)))
		assert.Equal(t, []int64{1, 2}, cardIDs(view))
	}
	assert.Equal(t, 1, svc.engines.Len())
	assert.Equal(t, 1, fb.searchCalls)
	assert.Equal(t, []int64{2}, cardIDs(svc.View(ctx, kept)), "visitors do not evict real sessions")
}

func TestCatalogReloadBypassesSharedCatalog(t *testing.T) {
	fb := newFakeBackend()
	fb.addProject(catalogFixture()[0])
	svc, err := NewCatalogService(fb, 10, time.Minute, testLog)
	require.NoError(t, err)
	ctx := context.Background()
	sess := session.Anonymous("s")

	assert.Equal(t, []int64{1}, cardIDs(svc.View(ctx, sess)))
	fb.addProject(catalogFixture()[1])
	assert.Equal(t, []int64{1}, cardIDs(svc.View(ctx, session.Anonymous("t"))), "served from the shared load")
	assert.Equal(t, []int64{1, 2}, cardIDs(svc.Reload(ctx, sess)))
	assert.Equal(t, 2, fb.searchCalls)
}

func TestCatalogCardsCarrySanitizedDescription(t *testing.T) {
	fb := newFakeBackend()
	fb.addProject(models.Project{ID: 1, Title: "Mesa", Description: `<p>Roble</p><script>x()</script>`, IsPublic: true})
	svc, err := NewCatalogService(fb, 10, time.Minute, testLog)
	require.NoError(t, err)

	view := svc.View(context.Background(), session.Anonymous("s"))
	require.Len(t, view.Projects, 1)
	assert.NotContains(t, view.Projects[0].Description, "<script>")
	assert.Equal(t, "Roble", view.Projects[0].Excerpt)
}

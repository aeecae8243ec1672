package services

import (
	"context"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"

	"maderalink/internal/models"
)

// Filter categories understood by the catalog. Any other category is stored
// but constrains nothing.
const (
	FilterStyle    = "style"
	FilterMaterial = "material"
)

type ProjectSource interface {
	SearchProjects(ctx context.Context, term string, filters map[string]string) ([]models.Project, error)
}

type FilterOptions struct {
	Styles    []string `json:"styles"`
	Materials []string `json:"materials"`
}

// FilterProjects returns the projects of all matching term and every filter,
// in their original order. The term matches case-insensitively as a substring
// of the title or the description.
func FilterProjects(all []models.Project, term string, filters map[string]string) []models.Project {
	needle := strings.ToLower(term)
	out := make([]models.Project, 0, len(all))
	for _, p := range all {
		if !matchesTerm(p, needle) || !matchesFilters(p, filters) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func matchesTerm(p models.Project, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(p.Title), needle) ||
		strings.Contains(strings.ToLower(p.Description), needle)
}

func matchesFilters(p models.Project, filters map[string]string) bool {
	for category, value := range filters {
		switch category {
		case FilterStyle:
			if !slices.Contains(p.Styles, value) {
				return false
			}
		case FilterMaterial:
			if !slices.Contains(p.Materials, value) {
				return false
			}
		}
	}
	return true
}

// CollectFilterOptions lists the distinct style and material tags of all in
// first-seen order.
func CollectFilterOptions(all []models.Project) FilterOptions {
	opts := FilterOptions{Styles: []string{}, Materials: []string{}}
	seenStyle := make(map[string]bool)
	seenMaterial := make(map[string]bool)
	for _, p := range all {
		for _, s := range p.Styles {
			if !seenStyle[s] {
				seenStyle[s] = true
				opts.Styles = append(opts.Styles, s)
			}
		}
		for _, m := range p.Materials {
			if !seenMaterial[m] {
				seenMaterial[m] = true
				opts.Materials = append(opts.Materials, m)
			}
		}
	}
	return opts
}

// Engine holds one browsing session's catalog: the public projects loaded
// once, the search term and the active filters. Derived views are cached and
// recomputed only after one of their inputs changed. Safe for concurrent use.
type Engine struct {
	source ProjectSource
	log    *zap.Logger

	loadMu sync.Mutex // serializes fetches
	mu     sync.Mutex

	attempted  bool
	all        []models.Project
	loadErr    error
	searchTerm string
	filters    map[string]string

	// Generations of the inputs; bumped on every change.
	dataGen  uint64
	queryGen uint64

	filtered        []models.Project
	filteredDataGen uint64
	filteredQuery   uint64
	filteredOK      bool
	filterRuns      int

	options    FilterOptions
	optionsGen uint64
	optionsOK  bool
}

func NewEngine(source ProjectSource, log *zap.Logger) *Engine {
	return &Engine{
		source:  source,
		log:     log.Named("catalog"),
		filters: make(map[string]string),
	}
}

// Load fetches the catalog the first time it is called. Later calls return
// the outcome of that first attempt, including its error.
func (e *Engine) Load(ctx context.Context) error {
	e.loadMu.Lock()
	defer e.loadMu.Unlock()

	e.mu.Lock()
	attempted, err := e.attempted, e.loadErr
	e.mu.Unlock()
	if attempted {
		return err
	}
	return e.fetch(ctx)
}

// Reload fetches the catalog again, replacing the data and clearing a previous
// load error on success.
func (e *Engine) Reload(ctx context.Context) error {
	e.loadMu.Lock()
	defer e.loadMu.Unlock()
	return e.fetch(ctx)
}

func (e *Engine) fetch(ctx context.Context) error {
	projects, err := e.source.SearchProjects(ctx, "", nil)
	if err != nil && ctx.Err() != nil {
		// The caller went away; the backend did not fail. Leave the engine
		// as it was so the next request loads again.
		e.log.Debug("Catalog load abandoned", zap.Error(err))
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.attempted = true
	if err != nil {
		e.log.Error("Catalog load failed", zap.Error(err))
		e.loadErr = err
		e.all = nil
		e.dataGen++
		return err
	}
	e.loadErr = nil
	e.setProjects(projects)
	e.log.Debug("Catalog loaded", zap.Int("public_projects", len(e.all)))
	return nil
}

// SetProjects replaces the data directly. Private projects are discarded.
func (e *Engine) SetProjects(projects []models.Project) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.attempted = true
	e.loadErr = nil
	e.setProjects(projects)
}

func (e *Engine) setProjects(projects []models.Project) {
	public := make([]models.Project, 0, len(projects))
	for _, p := range projects {
		if p.IsPublic {
			public = append(public, p)
		}
	}
	e.all = public
	e.dataGen++
}

func (e *Engine) SetSearchTerm(term string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if term == e.searchTerm {
		return
	}
	e.searchTerm = term
	e.queryGen++
}

// SetFilterCategory constrains category to value. An empty value removes the
// constraint.
func (e *Engine) SetFilterCategory(category, value string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	current, ok := e.filters[category]
	if value == "" {
		if !ok {
			return
		}
		delete(e.filters, category)
	} else {
		if ok && current == value {
			return
		}
		e.filters[category] = value
	}
	e.queryGen++
}

// Err returns the error of the last load attempt.
func (e *Engine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loadErr
}

// FilteredProjects returns the public projects matching the current term and
// filters. Empty while the catalog is not loaded or failed to load.
func (e *Engine) FilteredProjects() []models.Project {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.filteredLocked())
}

func (e *Engine) filteredLocked() []models.Project {
	if !e.filteredOK || e.filteredDataGen != e.dataGen || e.filteredQuery != e.queryGen {
		e.filtered = FilterProjects(e.all, e.searchTerm, e.filters)
		e.filteredDataGen, e.filteredQuery, e.filteredOK = e.dataGen, e.queryGen, true
		e.filterRuns++
	}
	return e.filtered
}

// FilterOptions returns the style and material values present in the whole
// catalog, regardless of the current term and filters.
func (e *Engine) FilterOptions() FilterOptions {
	e.mu.Lock()
	defer e.mu.Unlock()
	opts := e.optionsLocked()
	return FilterOptions{Styles: slices.Clone(opts.Styles), Materials: slices.Clone(opts.Materials)}
}

func (e *Engine) optionsLocked() FilterOptions {
	if !e.optionsOK || e.optionsGen != e.dataGen {
		e.options = CollectFilterOptions(e.all)
		e.optionsGen, e.optionsOK = e.dataGen, true
	}
	return e.options
}

// Snapshot is a consistent view of an engine at one point in time.
type Snapshot struct {
	SearchTerm string            `json:"search_term"`
	Filters    map[string]string `json:"filters"`
	Projects   []models.Project  `json:"-"`
	Options    FilterOptions     `json:"options"`
	Total      int               `json:"total"`
	Err        error             `json:"-"`
}

func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	filters := make(map[string]string, len(e.filters))
	for k, v := range e.filters {
		filters[k] = v
	}
	opts := e.optionsLocked()
	return Snapshot{
		SearchTerm: e.searchTerm,
		Filters:    filters,
		Projects:   slices.Clone(e.filteredLocked()),
		Options:    FilterOptions{Styles: slices.Clone(opts.Styles), Materials: slices.Clone(opts.Materials)},
		Total:      len(e.all),
		Err:        e.loadErr,
	}
}

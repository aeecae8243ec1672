package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"maderalink/internal/apperrors"
	"maderalink/internal/models"
	"maderalink/internal/session"
	"maderalink/internal/utils"
)

var testLog = zap.NewNop()

func signedIn(userID int64) *session.Session {
	return &session.Session{ID: fmt.Sprintf("sid-%d", userID), UserID: userID, AccessToken: fmt.Sprintf("tok-%d", userID)}
}

func ptr[T any](v T) *T { return &v }

// fakeBackend is an in-memory marketplace backend.
type fakeBackend struct {
	mu sync.Mutex

	projects map[int64]*models.Project
	users    map[int64]*models.UserProfile
	pictures map[int64]string
	ratings  []models.Rating
	comments []models.Comment
	lists    map[int64]*models.ProjectList
	uploads  []string

	searchErr   error
	userErr     map[int64]error
	ratingsErr  error
	uploadErr   error
	onUpload    func(filename string)
	searchCalls int
	userCalls   map[int64]int
	pictureHits int
	nextID      int64
	lastUpdate  *models.ProjectInput
	lastCreate  *models.ProjectInput
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		projects:  make(map[int64]*models.Project),
		users:     make(map[int64]*models.UserProfile),
		pictures:  make(map[int64]string),
		lists:     make(map[int64]*models.ProjectList),
		userErr:   make(map[int64]error),
		userCalls: make(map[int64]int),
		nextID:    1000,
	}
}

func (f *fakeBackend) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeBackend) addUser(id int64, name string) {
	f.users[id] = &models.UserProfile{ID: id, Username: name}
}

func (f *fakeBackend) addProject(p models.Project) {
	cp := p
	f.projects[p.ID] = &cp
}

func (f *fakeBackend) SearchProjects(ctx context.Context, term string, filters map[string]string) ([]models.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchCalls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	ids := make([]int64, 0, len(f.projects))
	for id := range f.projects {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([]models.Project, 0, len(ids))
	for _, id := range ids {
		out = append(out, *f.projects[id])
	}
	return out, nil
}

func (f *fakeBackend) FetchProject(ctx context.Context, token string, id int64) (*models.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.projects[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("no project")
	}
	cp := *p
	return &cp, nil
}

func (f *fakeBackend) FetchUserProjects(ctx context.Context, token string, userID int64) ([]models.Project, error) {
	all, _ := f.SearchProjects(ctx, "", nil)
	var out []models.Project
	for _, p := range all {
		if p.Owner.OwnerID() == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeBackend) CreateProject(ctx context.Context, token string, in models.ProjectInput) (*models.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastCreate = &in
	p := &models.Project{ID: f.id(), Title: *in.Title, IsPublic: *in.IsPublic, PortraitImage: *in.PortraitImage, TutorialFile: *in.TutorialFile, GalleryImages: *in.GalleryImages}
	f.projects[p.ID] = p
	cp := *p
	return &cp, nil
}

func (f *fakeBackend) UpdateProject(ctx context.Context, token string, id int64, in models.ProjectInput) (*models.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastUpdate = &in
	p, ok := f.projects[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("no project")
	}
	if in.IsPublic != nil {
		p.IsPublic = *in.IsPublic
	}
	if in.Title != nil {
		p.Title = *in.Title
	}
	if in.GalleryImages != nil {
		p.GalleryImages = *in.GalleryImages
	}
	cp := *p
	return &cp, nil
}

func (f *fakeBackend) DeleteProject(ctx context.Context, token string, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.projects, id)
	return nil
}

func (f *fakeBackend) FetchUser(ctx context.Context, id int64) (*models.UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.userCalls[id]++
	if err := f.userErr[id]; err != nil {
		return nil, err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("no user")
	}
	cp := *u
	return &cp, nil
}

func (f *fakeBackend) FetchCurrentUser(ctx context.Context, token string) (*models.UserProfile, error) {
	var id int64
	if _, err := fmt.Sscanf(token, "tok-%d", &id); err != nil {
		return nil, apperrors.ErrUnauthenticated
	}
	return f.FetchUser(ctx, id)
}

func (f *fakeBackend) FetchProfilePictureURL(ctx context.Context, pictureID int64) (*string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if pictureID <= 1 {
		return nil, nil
	}
	f.pictureHits++
	url, ok := f.pictures[pictureID]
	if !ok {
		return nil, apperrors.NewNotFoundError("no picture")
	}
	return &url, nil
}

func (f *fakeBackend) FetchProjectRatings(ctx context.Context, projectID int64) ([]models.Rating, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ratingsErr != nil {
		return nil, f.ratingsErr
	}
	var out []models.Rating
	for _, r := range f.ratings {
		if r.ProjectID == projectID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeBackend) CreateRating(ctx context.Context, token string, projectID int64, score int) (*models.Rating, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var userID int64
	fmt.Sscanf(token, "tok-%d", &userID)
	for _, r := range f.ratings {
		if r.ProjectID == projectID && r.UserID == userID {
			return nil, fmt.Errorf("backend: %w", apperrors.ErrDuplicateRating)
		}
	}
	r := models.Rating{ID: f.id(), UserID: userID, ProjectID: projectID, Score: score}
	f.ratings = append(f.ratings, r)
	return &r, nil
}

func (f *fakeBackend) UpdateRating(ctx context.Context, token string, ratingID int64, score int) (*models.Rating, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.ratings {
		if f.ratings[i].ID == ratingID {
			f.ratings[i].Score = score
			r := f.ratings[i]
			return &r, nil
		}
	}
	return nil, apperrors.NewNotFoundError("no rating")
}

func (f *fakeBackend) FetchProjectComments(ctx context.Context, projectID int64) ([]models.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Comment
	for _, c := range f.comments {
		if c.ProjectID == projectID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeBackend) CreateComment(ctx context.Context, token string, projectID int64, req models.CommentRequest) (*models.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var userID int64
	fmt.Sscanf(token, "tok-%d", &userID)
	c := models.Comment{ID: f.id(), Content: req.Content, UserID: userID, ProjectID: projectID, ParentID: req.ParentID, CreatedAt: time.Now()}
	f.comments = append(f.comments, c)
	return &c, nil
}

func (f *fakeBackend) FetchUserLists(ctx context.Context, token string, userID int64) ([]models.ProjectList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]int64, 0, len(f.lists))
	for id := range f.lists {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	var out []models.ProjectList
	for _, id := range ids {
		if l := f.lists[id]; l.Owner.OwnerID() == userID {
			cp := *l
			cp.Projects = slices.Clone(l.Projects)
			out = append(out, cp)
		}
	}
	return out, nil
}

func (f *fakeBackend) FetchList(ctx context.Context, token string, id int64) (*models.ProjectList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.lists[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("no list")
	}
	cp := *l
	cp.Projects = slices.Clone(l.Projects)
	return &cp, nil
}

func (f *fakeBackend) CreateList(ctx context.Context, token string, in models.ListInput) (*models.ProjectList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var userID int64
	fmt.Sscanf(token, "tok-%d", &userID)
	l := &models.ProjectList{ID: f.id(), Owner: models.OwnerByID(userID), Name: *in.Name}
	if in.IsPublic != nil {
		l.IsPublic = *in.IsPublic
	}
	f.lists[l.ID] = l
	cp := *l
	return &cp, nil
}

func (f *fakeBackend) UpdateList(ctx context.Context, token string, id int64, in models.ListInput) (*models.ProjectList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l := f.lists[id]
	if in.Name != nil {
		l.Name = *in.Name
	}
	if in.IsPublic != nil {
		l.IsPublic = *in.IsPublic
	}
	cp := *l
	return &cp, nil
}

func (f *fakeBackend) DeleteList(ctx context.Context, token string, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.lists, id)
	return nil
}

func (f *fakeBackend) AddProjectToList(ctx context.Context, token string, listID, projectID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists[listID].Projects = append(f.lists[listID].Projects, projectID)
	return nil
}

func (f *fakeBackend) RemoveProjectFromList(ctx context.Context, token string, listID, projectID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	l := f.lists[listID]
	l.Projects = slices.DeleteFunc(l.Projects, func(id int64) bool { return id == projectID })
	return nil
}

func (f *fakeBackend) UploadFile(ctx context.Context, token string, kind models.FileKind, filename, contentType string, r io.Reader) (string, error) {
	if f.onUpload != nil {
		f.onUpload(filename)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	ref := fmt.Sprintf("files/%s/%s", kind, filename)
	f.uploads = append(f.uploads, ref)
	return ref, nil
}

// memDraftStore is an in-memory DraftStore.
type memDraftStore struct {
	mu     sync.Mutex
	drafts map[string]models.ProjectDraft
}

func newMemDraftStore() *memDraftStore {
	return &memDraftStore{drafts: make(map[string]models.ProjectDraft)}
}

func cloneDraft(d models.ProjectDraft) models.ProjectDraft {
	d.Files = slices.Clone(d.Files)
	d.Dirty = slices.Clone(d.Dirty)
	return d
}

func (m *memDraftStore) Create(ctx context.Context, d *models.ProjectDraft) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d.UpdatedAt = time.Now()
	m.drafts[d.ID] = cloneDraft(*d)
	return nil
}

func (m *memDraftStore) Get(ctx context.Context, id string) (*models.ProjectDraft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drafts[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("draft not found")
	}
	cp := cloneDraft(d)
	return &cp, nil
}

// Modify holds the store lock while fn runs, like the row lock of the real
// store.
func (m *memDraftStore) Modify(ctx context.Context, id string, fn func(d *models.ProjectDraft) error) (*models.ProjectDraft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.drafts[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("draft not found")
	}
	d := cloneDraft(stored)
	if err := fn(&d); err != nil {
		return nil, err
	}
	d.UpdatedAt = time.Now()
	m.drafts[id] = cloneDraft(d)
	return &d, nil
}

func (m *memDraftStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drafts, id)
	return nil
}

func (m *memDraftStore) ListByUser(ctx context.Context, userID int64) ([]models.ProjectDraft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ProjectDraft
	for _, d := range m.drafts {
		if d.UserID == userID {
			out = append(out, cloneDraft(d))
		}
	}
	return out, nil
}

func (m *memDraftStore) ListStale(ctx context.Context, before time.Time, limit int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id, d := range m.drafts {
		if d.UpdatedAt.Before(before) && len(ids) < limit {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// memFiles is an in-memory FileStore.
type memFiles struct {
	mu    sync.Mutex
	data  map[string][]byte
	seq   int
	drops []string
}

func newMemFiles() *memFiles {
	return &memFiles{data: make(map[string][]byte)}
}

func (m *memFiles) Save(draftID, filename string, r io.Reader) (string, int64, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	path := fmt.Sprintf("%s/%d-%s", draftID, m.seq, filename)
	m.data[path] = b
	return path, int64(len(b)), nil
}

func (m *memFiles) Open(path string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.data[path]
	if !ok {
		return nil, fmt.Errorf("no file %s", path)
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (m *memFiles) Delete(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, path)
	return nil
}

func (m *memFiles) DeleteDraft(draftID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drops = append(m.drops, draftID)
	for p := range m.data {
		if len(p) > len(draftID) && p[:len(draftID)+1] == draftID+"/" {
			delete(m.data, p)
		}
	}
	return nil
}

func (m *memFiles) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

func newPictureCache(t interface{ Fatal(...any) }) *utils.Cache[int64, *string] {
	c, err := utils.NewCache[int64, *string](100, time.Hour, false)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

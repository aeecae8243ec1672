package services

import (
	"context"
	"fmt"
	"io"
	"slices"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"maderalink/internal/apperrors"
	"maderalink/internal/models"
	"maderalink/internal/session"
)

type DraftStore interface {
	Create(ctx context.Context, d *models.ProjectDraft) error
	Get(ctx context.Context, id string) (*models.ProjectDraft, error)
	// Modify applies fn to the stored draft and writes the result back.
	// Calls for the same draft are serialized; an error from fn discards
	// the change.
	Modify(ctx context.Context, id string, fn func(d *models.ProjectDraft) error) (*models.ProjectDraft, error)
	Delete(ctx context.Context, id string) error
	ListByUser(ctx context.Context, userID int64) ([]models.ProjectDraft, error)
}

type FileStore interface {
	Save(draftID, filename string, r io.Reader) (string, int64, error)
	Open(path string) (io.ReadCloser, error)
	Delete(path string) error
	DeleteDraft(draftID string) error
}

type FileUploader interface {
	UploadFile(ctx context.Context, token string, kind models.FileKind, filename, contentType string, r io.Reader) (string, error)
}

// Field names recorded in ProjectDraft.Dirty. They match the JSON names of
// models.ProjectInput.
const (
	fieldTitle        = "title"
	fieldDescription  = "description"
	fieldHeight       = "height"
	fieldLength       = "length"
	fieldWidth        = "width"
	fieldStyles       = "style"
	fieldMaterials    = "materials"
	fieldTools        = "tools"
	fieldMainMaterial = "main_material"
	fieldAssemblyTime = "assembly_time"
	fieldEnvironment  = "environment"
	fieldIsPublic     = "is_public"
	fieldPortrait     = "portrait_image"
	fieldGallery      = "gallery_images"
	fieldTutorial     = "tutorial"
)

func fieldOf(kind models.FileKind) string {
	switch kind {
	case models.FilePortrait:
		return fieldPortrait
	case models.FileGallery:
		return fieldGallery
	}
	return fieldTutorial
}

// DraftService keeps the create/edit project form server-side so files can be
// staged before the project is published.
type DraftService struct {
	store    DraftStore
	files    FileStore
	projects ProjectAPI
	uploader FileUploader
	log      *zap.Logger
}

func NewDraftService(store DraftStore, files FileStore, projects ProjectAPI, uploader FileUploader, log *zap.Logger) *DraftService {
	return &DraftService{
		store:    store,
		files:    files,
		projects: projects,
		uploader: uploader,
		log:      log.Named("drafts"),
	}
}

// New starts an empty draft for a new project.
func (s *DraftService) New(ctx context.Context, sess *session.Session) (*models.ProjectDraft, error) {
	if err := sess.RequireUser(); err != nil {
		return nil, err
	}
	d := &models.ProjectDraft{
		ID:       uuid.New().String(),
		UserID:   sess.UserID,
		IsPublic: true,
		Files:    []models.StagedFile{},
	}
	if err := s.store.Create(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// FromProject starts a draft that edits an existing project. The project's
// current assets are recorded as remote references.
func (s *DraftService) FromProject(ctx context.Context, sess *session.Session, projectID int64) (*models.ProjectDraft, error) {
	if err := sess.RequireUser(); err != nil {
		return nil, err
	}
	p, err := s.projects.FetchProject(ctx, sess.Token(), projectID)
	if err != nil {
		return nil, err
	}
	if !sess.Owns(p.Owner.OwnerID()) {
		return nil, apperrors.NewForbiddenError("only the owner can edit this project")
	}

	d := &models.ProjectDraft{
		ID:           uuid.New().String(),
		UserID:       sess.UserID,
		ProjectID:    &p.ID,
		Title:        p.Title,
		Description:  p.Description,
		Height:       float64(p.Height),
		Length:       float64(p.Length),
		Width:        float64(p.Width),
		Styles:       slices.Clone(p.Styles),
		Materials:    slices.Clone(p.Materials),
		Tools:        slices.Clone(p.Tools),
		MainMaterial: p.MainMaterial,
		AssemblyTime: float64(p.AssemblyTime),
		Environment:  p.Environment,
		IsPublic:     p.IsPublic,
		Files:        []models.StagedFile{},
	}
	if p.PortraitImage != "" {
		d.Files = append(d.Files, remoteFile(models.FilePortrait, p.PortraitImage, 0))
	}
	for i, ref := range p.GalleryImages {
		d.Files = append(d.Files, remoteFile(models.FileGallery, ref, i))
	}
	if p.TutorialFile != "" {
		d.Files = append(d.Files, remoteFile(models.FileTutorial, p.TutorialFile, 0))
	}

	if err := s.store.Create(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func remoteFile(kind models.FileKind, ref string, pos int) models.StagedFile {
	name := ref
	if i := strings.LastIndex(ref, "/"); i >= 0 {
		name = ref[i+1:]
	}
	return models.StagedFile{
		ID:        uuid.New().String(),
		Kind:      kind,
		Filename:  name,
		RemoteRef: ref,
		Position:  pos,
	}
}

// Get loads one of the session's drafts. Other users' drafts are not found.
func (s *DraftService) Get(ctx context.Context, sess *session.Session, id string) (*models.ProjectDraft, error) {
	if err := sess.RequireUser(); err != nil {
		return nil, err
	}
	d, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.UserID != sess.UserID {
		return nil, apperrors.NewNotFoundError("draft not found")
	}
	sortFiles(d.Files)
	return d, nil
}

func (s *DraftService) List(ctx context.Context, sess *session.Session) ([]models.ProjectDraft, error) {
	if err := sess.RequireUser(); err != nil {
		return nil, err
	}
	return s.store.ListByUser(ctx, sess.UserID)
}

// modify runs fn on the session's draft under the store's per-draft
// serialization.
func (s *DraftService) modify(ctx context.Context, sess *session.Session, id string, fn func(d *models.ProjectDraft) error) (*models.ProjectDraft, error) {
	if err := sess.RequireUser(); err != nil {
		return nil, err
	}
	d, err := s.store.Modify(ctx, id, func(d *models.ProjectDraft) error {
		if d.UserID != sess.UserID {
			return apperrors.NewNotFoundError("draft not found")
		}
		sortFiles(d.Files)
		return fn(d)
	})
	if err != nil {
		return nil, err
	}
	sortFiles(d.Files)
	return d, nil
}

// Update applies the non-nil fields.
func (s *DraftService) Update(ctx context.Context, sess *session.Session, id string, f models.DraftFields) (*models.ProjectDraft, error) {
	return s.modify(ctx, sess, id, func(d *models.ProjectDraft) error {
		applyFields(d, f)
		return nil
	})
}

func applyFields(d *models.ProjectDraft, f models.DraftFields) {
	set := func(name string, apply func()) {
		apply()
		markDirty(d, name)
	}
	if f.Title != nil {
		set(fieldTitle, func() { d.Title = *f.Title })
	}
	if f.Description != nil {
		set(fieldDescription, func() { d.Description = *f.Description })
	}
	if f.Height != nil {
		set(fieldHeight, func() { d.Height = *f.Height })
	}
	if f.Length != nil {
		set(fieldLength, func() { d.Length = *f.Length })
	}
	if f.Width != nil {
		set(fieldWidth, func() { d.Width = *f.Width })
	}
	if f.Styles != nil {
		set(fieldStyles, func() { d.Styles = cleanTags(*f.Styles) })
	}
	if f.Materials != nil {
		set(fieldMaterials, func() { d.Materials = cleanTags(*f.Materials) })
	}
	if f.Tools != nil {
		set(fieldTools, func() { d.Tools = cleanTags(*f.Tools) })
	}
	if f.MainMaterial != nil {
		set(fieldMainMaterial, func() { d.MainMaterial = *f.MainMaterial })
	}
	if f.AssemblyTime != nil {
		set(fieldAssemblyTime, func() { d.AssemblyTime = *f.AssemblyTime })
	}
	if f.Environment != nil {
		set(fieldEnvironment, func() { d.Environment = *f.Environment })
	}
	if f.IsPublic != nil {
		set(fieldIsPublic, func() { d.IsPublic = *f.IsPublic })
	}
}

// cleanTags trims tags and drops empty and repeated ones, keeping order.
func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t != "" && !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	return out
}

func markDirty(d *models.ProjectDraft, field string) {
	if d.IsEdit() && !slices.Contains(d.Dirty, field) {
		d.Dirty = append(d.Dirty, field)
	}
}

func checkContentType(kind models.FileKind, contentType string) error {
	ct := strings.ToLower(contentType)
	switch kind {
	case models.FilePortrait, models.FileGallery:
		if !strings.HasPrefix(ct, "image/") {
			return apperrors.NewValidationError("only images can be used as project photos")
		}
	case models.FileTutorial:
		if ct != "application/pdf" && !strings.HasPrefix(ct, "image/") && !strings.HasPrefix(ct, "text/") {
			return apperrors.NewValidationError("the tutorial must be a PDF, an image or a text file")
		}
	default:
		return apperrors.NewValidationError("unknown file kind")
	}
	return nil
}

// Stage stores an uploaded file in the draft. Portrait and tutorial replace
// the current one; gallery images are appended.
func (s *DraftService) Stage(ctx context.Context, sess *session.Session, id string, kind models.FileKind, filename, contentType string, r io.Reader) (*models.ProjectDraft, error) {
	if !kind.Valid() {
		return nil, apperrors.NewValidationError("unknown file kind")
	}
	if err := checkContentType(kind, contentType); err != nil {
		return nil, err
	}
	if _, err := s.Get(ctx, sess, id); err != nil {
		return nil, err
	}

	// Bytes are written outside the draft lock so parallel uploads only
	// serialize on the metadata update.
	path, size, err := s.files.Save(id, filename, r)
	if err != nil {
		return nil, err
	}
	staged := models.StagedFile{
		ID:        uuid.New().String(),
		DraftID:   id,
		Kind:      kind,
		Filename:  filename,
		MimeType:  contentType,
		Size:      size,
		LocalPath: path,
	}

	var replaced []models.StagedFile
	d, err := s.modify(ctx, sess, id, func(d *models.ProjectDraft) error {
		replaced = nil
		if kind == models.FileGallery {
			staged.Position = len(filesOf(d.Files, models.FileGallery))
		} else {
			d.Files = slices.DeleteFunc(d.Files, func(f models.StagedFile) bool {
				if f.Kind == kind {
					replaced = append(replaced, f)
					return true
				}
				return false
			})
		}
		d.Files = append(d.Files, staged)
		markDirty(d, fieldOf(kind))
		return nil
	})
	if err != nil {
		_ = s.files.Delete(path)
		return nil, err
	}
	s.dropLocal(replaced)
	return d, nil
}

// RemoveFile takes a file out of the draft. Only gallery images can be
// removed; portrait and tutorial are replaced instead.
func (s *DraftService) RemoveFile(ctx context.Context, sess *session.Session, id, fileID string) (*models.ProjectDraft, error) {
	var removed models.StagedFile
	d, err := s.modify(ctx, sess, id, func(d *models.ProjectDraft) error {
		idx := slices.IndexFunc(d.Files, func(f models.StagedFile) bool { return f.ID == fileID })
		if idx < 0 {
			return apperrors.NewNotFoundError("file not found in draft")
		}
		removed = d.Files[idx]
		if removed.Kind != models.FileGallery {
			return apperrors.NewValidationError("the portrait and the tutorial can only be replaced")
		}
		d.Files = slices.Delete(d.Files, idx, idx+1)
		renumberGallery(d.Files, nil)
		markDirty(d, fieldGallery)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.dropLocal([]models.StagedFile{removed})
	return d, nil
}

// ReorderGallery moves the gallery image at index from to index to.
func (s *DraftService) ReorderGallery(ctx context.Context, sess *session.Session, id string, from, to int) (*models.ProjectDraft, error) {
	return s.modify(ctx, sess, id, func(d *models.ProjectDraft) error {
		gallery := filesOf(d.Files, models.FileGallery)
		if from < 0 || from >= len(gallery) || to < 0 || to >= len(gallery) {
			return apperrors.NewValidationError("gallery position out of range")
		}
		if from == to {
			return nil
		}
		order := make([]string, len(gallery))
		for i, f := range gallery {
			order[i] = f.ID
		}
		renumberGallery(d.Files, moveItem(order, from, to))
		markDirty(d, fieldGallery)
		return nil
	})
}

// moveItem returns a copy of items with the element at from moved to to.
func moveItem[T any](items []T, from, to int) []T {
	out := slices.Clone(items)
	item := out[from]
	out = slices.Delete(out, from, from+1)
	return slices.Insert(out, to, item)
}

// renumberGallery sets gallery positions following order (file ids), or the
// current position order when order is nil.
func renumberGallery(files []models.StagedFile, order []string) {
	if order == nil {
		for _, f := range filesOf(files, models.FileGallery) {
			order = append(order, f.ID)
		}
	}
	pos := make(map[string]int, len(order))
	for i, id := range order {
		pos[id] = i
	}
	for i := range files {
		if files[i].Kind == models.FileGallery {
			files[i].Position = pos[files[i].ID]
		}
	}
}

// filesOf returns the files of kind sorted by position.
func filesOf(files []models.StagedFile, kind models.FileKind) []models.StagedFile {
	var out []models.StagedFile
	for _, f := range files {
		if f.Kind == kind {
			out = append(out, f)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

var kindOrder = map[models.FileKind]int{
	models.FilePortrait: 0,
	models.FileGallery:  1,
	models.FileTutorial: 2,
}

func sortFiles(files []models.StagedFile) {
	sort.SliceStable(files, func(i, j int) bool {
		if files[i].Kind != files[j].Kind {
			return kindOrder[files[i].Kind] < kindOrder[files[j].Kind]
		}
		return files[i].Position < files[j].Position
	})
}

func (s *DraftService) dropLocal(files []models.StagedFile) {
	for _, f := range files {
		if !f.Staged() {
			continue
		}
		if err := s.files.Delete(f.LocalPath); err != nil {
			s.log.Warn("Failed to delete staged file", zap.String("path", f.LocalPath), zap.Error(err))
		}
	}
}

// Publish creates or updates the project from the draft. Only files staged
// locally are uploaded; an edit sends only what changed. The draft is removed
// once the backend accepted the project.
func (s *DraftService) Publish(ctx context.Context, sess *session.Session, id string) (*models.Project, error) {
	d, err := s.Get(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	if err := validateDraft(d); err != nil {
		return nil, err
	}

	d, err = s.uploadStaged(ctx, sess, d)
	if err != nil {
		return nil, err
	}

	var p *models.Project
	if d.IsEdit() {
		in := editInput(d)
		if in.IsEmpty() {
			p, err = s.projects.FetchProject(ctx, sess.Token(), *d.ProjectID)
		} else {
			p, err = s.projects.UpdateProject(ctx, sess.Token(), *d.ProjectID, in)
		}
	} else {
		p, err = s.projects.CreateProject(ctx, sess.Token(), createInput(d))
	}
	if err != nil {
		return nil, err
	}

	s.cleanup(ctx, d.ID)
	s.log.Info("Project published", zap.Int64("project_id", p.ID), zap.Bool("edit", d.IsEdit()))
	shown := forBrowser(*p)
	return &shown, nil
}

func validateDraft(d *models.ProjectDraft) error {
	if strings.TrimSpace(d.Title) == "" {
		return apperrors.NewValidationError("the project needs a title")
	}
	if d.IsEdit() {
		return nil
	}
	if len(filesOf(d.Files, models.FilePortrait)) == 0 {
		return apperrors.NewValidationError("the project needs a portrait image")
	}
	if len(filesOf(d.Files, models.FileTutorial)) == 0 {
		return apperrors.NewValidationError("the project needs a tutorial file")
	}
	return nil
}

// uploadStaged sends every locally staged file and records its remote
// reference. Progress is saved after each upload so a retry skips files that
// already made it. It returns the draft as stored once nothing is left to
// upload, including files staged while the upload ran.
func (s *DraftService) uploadStaged(ctx context.Context, sess *session.Session, d *models.ProjectDraft) (*models.ProjectDraft, error) {
	for {
		pending := slices.DeleteFunc(slices.Clone(d.Files), func(f models.StagedFile) bool { return !f.Staged() })
		if len(pending) == 0 {
			return d, nil
		}
		for _, f := range pending {
			ref, err := s.upload(ctx, sess, &f)
			if err != nil {
				return nil, err
			}
			if err := s.recordUpload(ctx, sess, d.ID, f.ID, ref); err != nil {
				return nil, err
			}
			if err := s.files.Delete(f.LocalPath); err != nil {
				s.log.Warn("Failed to delete uploaded file", zap.String("path", f.LocalPath), zap.Error(err))
			}
		}
		var err error
		if d, err = s.Get(ctx, sess, d.ID); err != nil {
			return nil, err
		}
	}
}

// recordUpload swaps a staged file's local path for its remote reference. A
// file removed from the draft meanwhile is ignored.
func (s *DraftService) recordUpload(ctx context.Context, sess *session.Session, draftID, fileID, ref string) error {
	_, err := s.modify(ctx, sess, draftID, func(d *models.ProjectDraft) error {
		for i := range d.Files {
			if d.Files[i].ID == fileID {
				d.Files[i].RemoteRef, d.Files[i].LocalPath = ref, ""
			}
		}
		return nil
	})
	return err
}

func (s *DraftService) upload(ctx context.Context, sess *session.Session, f *models.StagedFile) (string, error) {
	r, err := s.files.Open(f.LocalPath)
	if err != nil {
		return "", err
	}
	defer r.Close()
	ref, err := s.uploader.UploadFile(ctx, sess.Token(), f.Kind, f.Filename, f.MimeType, r)
	if err != nil {
		return "", fmt.Errorf("upload %s %s: %w", f.Kind, f.Filename, err)
	}
	return ref, nil
}

func refsOf(files []models.StagedFile, kind models.FileKind) []string {
	refs := []string{}
	for _, f := range filesOf(files, kind) {
		refs = append(refs, f.RemoteRef)
	}
	return refs
}

func firstRef(files []models.StagedFile, kind models.FileKind) string {
	if refs := refsOf(files, kind); len(refs) > 0 {
		return refs[0]
	}
	return ""
}

func createInput(d *models.ProjectDraft) models.ProjectInput {
	title := strings.TrimSpace(d.Title)
	portrait := firstRef(d.Files, models.FilePortrait)
	tutorial := firstRef(d.Files, models.FileTutorial)
	gallery := refsOf(d.Files, models.FileGallery)
	styles, materials, tools := nonNil(d.Styles), nonNil(d.Materials), nonNil(d.Tools)
	return models.ProjectInput{
		Title:         &title,
		Description:   &d.Description,
		Height:        &d.Height,
		Length:        &d.Length,
		Width:         &d.Width,
		Styles:        &styles,
		Materials:     &materials,
		Tools:         &tools,
		MainMaterial:  &d.MainMaterial,
		AssemblyTime:  &d.AssemblyTime,
		Environment:   &d.Environment,
		PortraitImage: &portrait,
		GalleryImages: &gallery,
		TutorialFile:  &tutorial,
		IsPublic:      &d.IsPublic,
	}
}

// editInput keeps only the fields marked dirty.
func editInput(d *models.ProjectDraft) models.ProjectInput {
	full := createInput(d)
	var in models.ProjectInput
	for _, field := range d.Dirty {
		switch field {
		case fieldTitle:
			in.Title = full.Title
		case fieldDescription:
			in.Description = full.Description
		case fieldHeight:
			in.Height = full.Height
		case fieldLength:
			in.Length = full.Length
		case fieldWidth:
			in.Width = full.Width
		case fieldStyles:
			in.Styles = full.Styles
		case fieldMaterials:
			in.Materials = full.Materials
		case fieldTools:
			in.Tools = full.Tools
		case fieldMainMaterial:
			in.MainMaterial = full.MainMaterial
		case fieldAssemblyTime:
			in.AssemblyTime = full.AssemblyTime
		case fieldEnvironment:
			in.Environment = full.Environment
		case fieldIsPublic:
			in.IsPublic = full.IsPublic
		case fieldPortrait:
			in.PortraitImage = full.PortraitImage
		case fieldGallery:
			in.GalleryImages = full.GalleryImages
		case fieldTutorial:
			in.TutorialFile = full.TutorialFile
		}
	}
	return in
}

func nonNil(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

// Discard drops the draft and every staged file.
func (s *DraftService) Discard(ctx context.Context, sess *session.Session, id string) error {
	if _, err := s.Get(ctx, sess, id); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.files.DeleteDraft(id); err != nil {
		s.log.Warn("Failed to delete draft files", zap.String("draft_id", id), zap.Error(err))
	}
	return nil
}

func (s *DraftService) cleanup(ctx context.Context, id string) {
	if err := s.store.Delete(ctx, id); err != nil {
		s.log.Warn("Failed to delete published draft", zap.String("draft_id", id), zap.Error(err))
	}
	if err := s.files.DeleteDraft(id); err != nil {
		s.log.Warn("Failed to delete draft files", zap.String("draft_id", id), zap.Error(err))
	}
}

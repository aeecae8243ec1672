package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"maderalink/internal/apperrors"
	"maderalink/internal/models"
)

// DraftStore persists project drafts and their staged files.
type DraftStore struct {
	db *gorm.DB
}

func NewDraftStore(db *gorm.DB) *DraftStore {
	return &DraftStore{db: db}
}

func (s *DraftStore) Create(ctx context.Context, d *models.ProjectDraft) error {
	if err := s.db.WithContext(ctx).Create(d).Error; err != nil {
		return fmt.Errorf("create draft: %w", err)
	}
	return nil
}

// Get loads a draft with its files ordered by kind and position.
func (s *DraftStore) Get(ctx context.Context, id string) (*models.ProjectDraft, error) {
	return load(s.db.WithContext(ctx), id)
}

func load(tx *gorm.DB, id string) (*models.ProjectDraft, error) {
	var d models.ProjectDraft
	err := tx.
		Preload("Files", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("kind, position, created_at")
		}).
		First(&d, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFoundError("draft not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load draft %s: %w", id, err)
	}
	return &d, nil
}

// Modify loads the draft under a row lock, applies fn and writes the draft
// back, replacing its file set with d.Files. Concurrent calls for one draft
// run one after the other. Nothing is written when fn fails.
func (s *DraftStore) Modify(ctx context.Context, id string, fn func(d *models.ProjectDraft) error) (*models.ProjectDraft, error) {
	var out *models.ProjectDraft
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var locked models.ProjectDraft
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").
			First(&locked, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NewNotFoundError("draft not found")
		}
		if err != nil {
			return fmt.Errorf("lock draft %s: %w", id, err)
		}

		d, err := load(tx, id)
		if err != nil {
			return err
		}
		if err := fn(d); err != nil {
			return err
		}
		if err := save(tx, d); err != nil {
			return err
		}
		out = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func save(tx *gorm.DB, d *models.ProjectDraft) error {
	if err := tx.Omit(clause.Associations).Save(d).Error; err != nil {
		return fmt.Errorf("save draft %s: %w", d.ID, err)
	}
	if err := tx.Where("draft_id = ?", d.ID).Delete(&models.StagedFile{}).Error; err != nil {
		return fmt.Errorf("clear files of draft %s: %w", d.ID, err)
	}
	if len(d.Files) == 0 {
		return nil
	}
	for i := range d.Files {
		d.Files[i].DraftID = d.ID
	}
	if err := tx.Create(&d.Files).Error; err != nil {
		return fmt.Errorf("save files of draft %s: %w", d.ID, err)
	}
	return nil
}

func (s *DraftStore) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("draft_id = ?", id).Delete(&models.StagedFile{}).Error; err != nil {
			return fmt.Errorf("delete files of draft %s: %w", id, err)
		}
		if err := tx.Delete(&models.ProjectDraft{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("delete draft %s: %w", id, err)
		}
		return nil
	})
}

// ListByUser returns a user's drafts, newest first, without files.
func (s *DraftStore) ListByUser(ctx context.Context, userID int64) ([]models.ProjectDraft, error) {
	var drafts []models.ProjectDraft
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&drafts).Error
	if err != nil {
		return nil, fmt.Errorf("list drafts of user %d: %w", userID, err)
	}
	return drafts, nil
}

// ListStale returns the ids of drafts not updated since before.
func (s *DraftStore) ListStale(ctx context.Context, before time.Time, limit int) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).
		Model(&models.ProjectDraft{}).
		Where("updated_at < ?", before).
		Order("updated_at").
		Limit(limit).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list stale drafts: %w", err)
	}
	return ids, nil
}

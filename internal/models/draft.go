package models

import (
	"time"
)

type FileKind string

const (
	FilePortrait FileKind = "portrait"
	FileGallery  FileKind = "gallery"
	FileTutorial FileKind = "tutorial"
)

func (k FileKind) Valid() bool {
	switch k {
	case FilePortrait, FileGallery, FileTutorial:
		return true
	}
	return false
}

// ProjectDraft is the server-side state of the create/edit project form.
// ProjectID is set when the draft edits an existing project.
type ProjectDraft struct {
	ID           string       `gorm:"primaryKey;size:36" json:"id"`
	UserID       int64        `gorm:"not null;index" json:"user_id"`
	ProjectID    *int64       `gorm:"index" json:"project_id,omitempty"`
	Title        string       `json:"title"`
	Description  string       `gorm:"type:text" json:"description"`
	Height       float64      `json:"height"`
	Length       float64      `json:"length"`
	Width        float64      `json:"width"`
	Styles       []string     `gorm:"serializer:json;type:text" json:"styles"`
	Materials    []string     `gorm:"serializer:json;type:text" json:"materials"`
	Tools        []string     `gorm:"serializer:json;type:text" json:"tools"`
	MainMaterial string       `json:"main_material"`
	AssemblyTime float64      `json:"assembly_time"`
	Environment  string       `json:"environment"`
	IsPublic     bool         `json:"is_public"`
	Dirty        []string     `gorm:"serializer:json;type:text" json:"-"` // edited field names, edit mode only
	Files        []StagedFile `gorm:"foreignKey:DraftID;constraint:OnDelete:CASCADE;" json:"files"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// IsEdit reports whether publishing updates an existing project.
func (d *ProjectDraft) IsEdit() bool {
	return d.ProjectID != nil
}

// StagedFile is one asset of a draft. LocalPath is set for bytes uploaded
// into the draft and not yet sent to the backend; RemoteRef is set for assets
// that already live on the backend.
type StagedFile struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	DraftID   string    `gorm:"not null;index;size:36" json:"-"`
	Kind      FileKind  `gorm:"size:16;not null" json:"kind"`
	Filename  string    `json:"filename"`
	MimeType  string    `json:"mime_type"`
	Size      int64     `json:"size"`
	LocalPath string    `json:"-"`
	RemoteRef string    `json:"remote_ref,omitempty"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
}

// Staged reports whether the file still has to be uploaded.
func (f StagedFile) Staged() bool {
	return f.LocalPath != ""
}

// DraftFields is a partial update of the form fields. Nil means unchanged.
type DraftFields struct {
	Title        *string   `json:"title"`
	Description  *string   `json:"description"`
	Height       *float64  `json:"height"`
	Length       *float64  `json:"length"`
	Width        *float64  `json:"width"`
	Styles       *[]string `json:"styles"`
	Materials    *[]string `json:"materials"`
	Tools        *[]string `json:"tools"`
	MainMaterial *string   `json:"main_material"`
	AssemblyTime *float64  `json:"assembly_time"`
	Environment  *string   `json:"environment"`
	IsPublic     *bool     `json:"is_public"`
}

package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// OwnerRef is the project owner as sent by the backend: either a bare user id
// or an embedded user object. It is decoded once at the API boundary; callers
// use OwnerID and Embedded instead of looking at the raw payload.
type OwnerRef struct {
	id       int64
	embedded *UserProfile
}

func OwnerByID(id int64) OwnerRef {
	return OwnerRef{id: id}
}

func OwnerEmbedded(u *UserProfile) OwnerRef {
	if u == nil {
		return OwnerRef{}
	}
	return OwnerRef{id: u.ID, embedded: u}
}

func (o OwnerRef) OwnerID() int64 {
	return o.id
}

// Embedded returns the owner record when the backend inlined it.
func (o OwnerRef) Embedded() (*UserProfile, bool) {
	return o.embedded, o.embedded != nil
}

func (o *OwnerRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*o = OwnerRef{}
		return nil
	}
	if data[0] == '{' {
		var u UserProfile
		if err := json.Unmarshal(data, &u); err != nil {
			return fmt.Errorf("decode embedded owner: %w", err)
		}
		*o = OwnerEmbedded(&u)
		return nil
	}
	var id Measure
	if err := id.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("decode owner id: %w", err)
	}
	*o = OwnerByID(int64(id))
	return nil
}

// MarshalJSON always emits the plain id so the backend sees one shape.
func (o OwnerRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.id)
}

// Measure is a numeric field that older project rows store as a string.
// Numbers, numeric strings, "" and null are all accepted.
type Measure float64

func (m *Measure) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*m = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
		if s == "" {
			*m = 0
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid measure %q: %w", s, err)
		}
		*m = Measure(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("invalid measure %s: %w", data, err)
	}
	*m = Measure(f)
	return nil
}

type Project struct {
	ID            int64     `json:"id"`
	Owner         OwnerRef  `json:"owner"`
	Title         string    `json:"title"`
	Description   string    `json:"description"` // editor HTML
	Height        Measure   `json:"height"`
	Length        Measure   `json:"length"`
	Width         Measure   `json:"width"`
	Styles        []string  `json:"style"`
	Materials     []string  `json:"materials"`
	Tools         []string  `json:"tools"`
	MainMaterial  string    `json:"main_material"`
	AssemblyTime  Measure   `json:"assembly_time"` // hours
	Environment   string    `json:"environment"`
	PortraitImage string    `json:"portrait_image"`
	GalleryImages []string  `json:"gallery_images"`
	TutorialFile  string    `json:"tutorial"`
	IsPublic      bool      `json:"is_public"`
	CreatedAt     time.Time `json:"created_at"`
}

// ProjectCard is a catalog entry: the project plus a plain-text excerpt of
// its description.
type ProjectCard struct {
	Project
	Excerpt string `json:"excerpt"`
}

// ProjectInput is the body sent on create and on partial update. Nil fields
// are left out so an edit only touches what changed.
type ProjectInput struct {
	Title         *string   `json:"title,omitempty"`
	Description   *string   `json:"description,omitempty"`
	Height        *float64  `json:"height,omitempty"`
	Length        *float64  `json:"length,omitempty"`
	Width         *float64  `json:"width,omitempty"`
	Styles        *[]string `json:"style,omitempty"`
	Materials     *[]string `json:"materials,omitempty"`
	Tools         *[]string `json:"tools,omitempty"`
	MainMaterial  *string   `json:"main_material,omitempty"`
	AssemblyTime  *float64  `json:"assembly_time,omitempty"`
	Environment   *string   `json:"environment,omitempty"`
	PortraitImage *string   `json:"portrait_image,omitempty"`
	GalleryImages *[]string `json:"gallery_images,omitempty"`
	TutorialFile  *string   `json:"tutorial,omitempty"`
	IsPublic      *bool     `json:"is_public,omitempty"`
}

// IsEmpty reports whether the input would change nothing.
func (in ProjectInput) IsEmpty() bool {
	return in == ProjectInput{}
}

package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"maderalink/internal/apperrors"
	"maderalink/internal/models"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 5*time.Second, zap.NewNop())
}

func TestSearchProjectsQueryAndDecoding(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/projects/search", r.URL.Path)
		assert.Equal(t, "mesa", r.URL.Query().Get("q"))
		assert.Equal(t, "Nórdico", r.URL.Query().Get("style"))
		assert.Empty(t, r.Header.Get("Authorization"))
		io.WriteString(w, `[
			{"id": 1, "owner": 7, "title": "Mesa Nórdica", "height": "75,5", "length": 120, "width": null, "style": ["Nórdico"], "is_public": true},
			{"id": 2, "owner": {"id": 9, "username": "ana"}, "title": "Silla Vintage", "assembly_time": "", "is_public": false}
		]`)
	})

	projects, err := c.SearchProjects(context.Background(), "mesa", map[string]string{"style": "Nórdico", "material": ""})
	require.NoError(t, err)
	require.Len(t, projects, 2)

	assert.Equal(t, int64(7), projects[0].Owner.OwnerID())
	_, embedded := projects[0].Owner.Embedded()
	assert.False(t, embedded)
	assert.InDelta(t, 75.5, float64(projects[0].Height), 0.001)
	assert.Equal(t, models.Measure(120), projects[0].Length)
	assert.Equal(t, models.Measure(0), projects[0].Width)

	owner, ok := projects[1].Owner.Embedded()
	require.True(t, ok)
	assert.Equal(t, "ana", owner.Username)
	assert.Equal(t, int64(9), projects[1].Owner.OwnerID())
}

func TestBearerTokenSentOnlyWhenGiven(t *testing.T) {
	var auth atomic.Value
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		auth.Store(r.Header.Get("Authorization"))
		io.WriteString(w, `{"id": 3, "title": "Banco"}`)
	})

	_, err := c.FetchProject(context.Background(), "tok-1", 3)
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-1", auth.Load())

	_, err = c.FetchProject(context.Background(), "", 3)
	require.NoError(t, err)
	assert.Equal(t, "", auth.Load())
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		target error
	}{
		{"not found", http.StatusNotFound, `{"detail": "Not found."}`, apperrors.ErrNotFound},
		{"forbidden", http.StatusForbidden, ``, apperrors.ErrForbidden},
		{"unauthenticated", http.StatusUnauthorized, `plain text`, apperrors.ErrUnauthenticated},
		{"validation", http.StatusUnprocessableEntity, `{"message": "title required"}`, apperrors.ErrValidation},
		{"duplicate by code", http.StatusConflict, `{"code": "duplicate_rating", "message": "nope"}`, apperrors.ErrDuplicateRating},
		{"duplicate by bare error", http.StatusConflict, `{"error": "duplicate_rating"}`, apperrors.ErrDuplicateRating},
		{"duplicate by wording", http.StatusBadRequest, `{"detail": "You have already rated this project"}`, apperrors.ErrDuplicateRating},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})
			_, err := c.CreateRating(context.Background(), "tok", 1, 4)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.target)

			var apiErr *Error
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, "/ratings", apiErr.Path)
		})
	}
}

func TestServerErrorIsNotASentinel(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	_, err := c.FetchUser(context.Background(), 1)
	require.Error(t, err)
	assert.False(t, IsDuplicateRating(err))
	assert.NotErrorIs(t, err, apperrors.ErrNotFound)
}

func TestFetchProfilePictureURL(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/profile-pictures/5", r.URL.Path)
		io.WriteString(w, `{"url": "https://cdn.test/5.png"}`)
	})

	for _, id := range []int64{0, 1} {
		url, err := c.FetchProfilePictureURL(context.Background(), id)
		require.NoError(t, err)
		assert.Nil(t, url)
	}
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))

	url, err := c.FetchProfilePictureURL(context.Background(), 5)
	require.NoError(t, err)
	require.NotNil(t, url)
	assert.Equal(t, "https://cdn.test/5.png", *url)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestCreateCommentOmitsTopLevelParent(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		io.WriteString(w, `{"id": 10, "content": "hola", "user": 7, "project": 3}`)
	})

	zero := int64(0)
	comment, err := c.CreateComment(context.Background(), "tok", 3, models.CommentRequest{Content: "hola", ParentID: &zero})
	require.NoError(t, err)
	assert.Equal(t, int64(10), comment.ID)
	assert.True(t, comment.IsTopLevel())
	assert.NotContains(t, got, "parent")
	assert.Equal(t, float64(3), got["project"])
}

func TestUpdateProjectSendsOnlySetFields(t *testing.T) {
	var raw string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		b, _ := io.ReadAll(r.Body)
		raw = string(b)
		io.WriteString(w, `{"id": 4, "is_public": false}`)
	})

	private := false
	_, err := c.UpdateProject(context.Background(), "tok", 4, models.ProjectInput{IsPublic: &private})
	require.NoError(t, err)
	assert.JSONEq(t, `{"is_public": false}`, raw)
}

func TestDeleteNoContent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNoContent)
	})
	assert.NoError(t, c.DeleteList(context.Background(), "tok", 2))
}

func TestUploadFileMultipart(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/files", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "tutorial", r.FormValue("kind"))

		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, "guia.pdf", hdr.Filename)
		assert.Equal(t, "application/pdf", hdr.Header.Get("Content-Type"))
		b, _ := io.ReadAll(f)
		assert.Equal(t, "%PDF-1.4", string(b))

		io.WriteString(w, `{"id": "file-123"}`)
	})

	ref, err := c.UploadFile(context.Background(), "tok", models.FileTutorial, "guia.pdf", "application/pdf", strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, "file-123", ref)
}

package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"testing"

	"board-ai-go/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentLifecycle(t *testing.T) {
	s := newTestServer(t, nil)
	tok := s.login(t, "a@acme.com", "Acme")

	w := s.upload(t, tok, "notes.txt", "hello", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	uploaded := decode[[]model.Document](t, w)
	require.Len(t, uploaded, 1)

	w = s.doJSON(t, http.MethodGet, "/api/v1/documents/list", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	docs := decode[[]model.Document](t, w)
	require.Len(t, docs, 1)
	require.NotNil(t, docs[0].Content)
	assert.Equal(t, "hello", *docs[0].Content)
	assert.Equal(t, "notes", docs[0].Type)
	assert.Equal(t, "/notes.txt", docs[0].Path)

	id := strconv.FormatUint(uint64(docs[0].ID), 10)

	w = s.doJSON(t, http.MethodGet, "/api/v1/documents/download/"+id, tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hello", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), `filename=notes.txt`)

	w = s.doJSON(t, http.MethodDelete, "/api/v1/documents/"+id, tok, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.doJSON(t, http.MethodGet, "/api/v1/documents/list", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]model.Document](t, w))

	w = s.doJSON(t, http.MethodGet, "/api/v1/documents/"+id, tok, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDocumentsAreTenantScoped(t *testing.T) {
	s := newTestServer(t, nil)
	acme := s.login(t, "a@acme.com", "Acme")
	globex := s.login(t, "g@globex.com", "Globex")

	w := s.upload(t, acme, "plan.md", "# secret", nil)
	require.Equal(t, http.StatusOK, w.Code)
	id := decode[[]model.Document](t, w)[0].ID
	path := fmt.Sprintf("/api/v1/documents/%d", id)

	assert.Equal(t, http.StatusNotFound, s.doJSON(t, http.MethodGet, path, globex, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.doJSON(t, http.MethodDelete, path, globex, nil).Code)

	w = s.doJSON(t, http.MethodGet, "/api/v1/documents/list", globex, nil)
	assert.Empty(t, decode[[]model.Document](t, w))

	assert.Equal(t, http.StatusOK, s.doJSON(t, http.MethodGet, path, acme, nil).Code)
}

func TestFolders(t *testing.T) {
	s := newTestServer(t, nil)
	tok := s.login(t, "a@acme.com", "Acme")

	w := s.doJSON(t, http.MethodPost, "/api/v1/documents/folders", tok, map[string]any{"name": "Board"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	folder := decode[model.Document](t, w)
	assert.True(t, folder.IsFolder)
	assert.Nil(t, folder.Content)
	assert.Equal(t, "/Board", folder.Path)

	w = s.upload(t, tok, "minutes.txt", "agenda", map[string]string{"parent_id": strconv.FormatUint(uint64(folder.ID), 10)})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	child := decode[[]model.Document](t, w)[0]
	assert.Equal(t, "/Board/minutes.txt", child.Path)

	folderPath := fmt.Sprintf("/api/v1/documents/%d", folder.ID)
	w = s.doJSON(t, http.MethodDelete, folderPath, tok, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.doJSON(t, http.MethodDelete, fmt.Sprintf("/api/v1/documents/%d", child.ID), tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = s.doJSON(t, http.MethodDelete, folderPath, tok, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	t.Run("parent must be a folder", func(t *testing.T) {
		w := s.upload(t, tok, "a.txt", "a", nil)
		require.Equal(t, http.StatusOK, w.Code)
		fileID := decode[[]model.Document](t, w)[0].ID

		w = s.upload(t, tok, "b.txt", "b", map[string]string{"parent_id": strconv.FormatUint(uint64(fileID), 10)})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestUploadValidation(t *testing.T) {
	s := newTestServer(t, nil)
	tok := s.login(t, "a@acme.com", "Acme")

	w := s.upload(t, tok, "photo.png", "\x89PNG", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.upload(t, tok, "notes.txt", "hello", map[string]string{"parent_id": "abc"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.doJSON(t, http.MethodGet, "/api/v1/documents/not-a-number", tok, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOriginalAndSearchUnavailable(t *testing.T) {
	s := newTestServer(t, nil)
	tok := s.login(t, "a@acme.com", "Acme")

	w := s.upload(t, tok, "notes.txt", "hello", nil)
	require.Equal(t, http.StatusOK, w.Code)
	id := decode[[]model.Document](t, w)[0].ID

	w = s.doJSON(t, http.MethodGet, fmt.Sprintf("/api/v1/documents/%d/original", id), tok, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.doJSON(t, http.MethodGet, "/api/v1/documents/search", tok, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.doJSON(t, http.MethodGet, "/api/v1/documents/search?q=hello", tok, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

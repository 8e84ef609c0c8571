package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func doJSON(handler http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func signupAndLogin(t *testing.T, handler http.Handler, username string) string {
	body := fmt.Sprintf(`{"username": %q, "email": %q, "password": "password123"}`, username, username+"@example.com")
	rec := doJSON(handler, http.MethodPost, "/auth/signup", "", body)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(handler, http.MethodPost, "/auth/login", "", fmt.Sprintf(`{"username": %q, "password": "password123"}`, username))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp tokenResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "bearer", resp.TokenType)
	assert.NotEmpty(t, resp.AccessToken)
	return resp.AccessToken
}

func TestSignupValidation(t *testing.T) {
	srv, tearDown := newTestServer(t, defaultRateConfig())
	defer tearDown()
	handler := srv.Handler()

	rec := doJSON(handler, http.MethodPost, "/auth/signup", "", `{"username": "", "password": "password123"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(handler, http.MethodPost, "/auth/signup", "", `{"username": "alice", "password": "short"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(handler, http.MethodPost, "/auth/signup", "", `{"username": "alice", "password": "password123"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)

	// A taken username is a validation failure, not a conflict.
	rec = doJSON(handler, http.MethodPost, "/auth/signup", "", `{"username": "alice", "password": "password123"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "already taken")
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	srv, tearDown := newTestServer(t, defaultRateConfig())
	defer tearDown()
	handler := srv.Handler()

	_ = signupAndLogin(t, handler, "alice")

	rec := doJSON(handler, http.MethodPost, "/auth/login", "", `{"username": "alice", "password": "wrongpassword"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(handler, http.MethodPost, "/auth/login", "", `{"username": "nobody", "password": "password123"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// createVisualization runs the pipeline and returns the new record's ID.
func createVisualization(t *testing.T, handler http.Handler, text string) uint {
	rec := postForm(handler, "/visualize", visualizeForm("tiny-gpt2", text, "head"))
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	rec = doJSON(handler, http.MethodGet, "/api/visualizations?pageSize=1", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	var list visualizationList
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.NotEmpty(t, list.Visualizations)
	return list.Visualizations[0].ID
}

func TestListVisualizations(t *testing.T) {
	srv, tearDown := newTestServer(t, defaultRateConfig())
	defer tearDown()
	handler := srv.Handler()

	createVisualization(t, handler, "the quick brown fox")
	createVisualization(t, handler, "pack my box with jugs")

	rec := doJSON(handler, http.MethodGet, "/api/visualizations", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	var list visualizationList
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, int64(2), list.Total)
	assert.Len(t, list.Visualizations, 2)

	// Search.
	rec = doJSON(handler, http.MethodGet, "/api/visualizations?q=quick", "", "")
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, int64(1), list.Total)
	assert.Contains(t, list.Visualizations[0].InputText, "quick")

	// Pagination.
	rec = doJSON(handler, http.MethodGet, "/api/visualizations?page=2&pageSize=1", "", "")
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, int64(2), list.Total)
	assert.Len(t, list.Visualizations, 1)

	// Bad parameters.
	rec = doJSON(handler, http.MethodGet, "/api/visualizations?page=0", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = doJSON(handler, http.MethodGet, "/api/visualizations?pageSize=1000", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExport(t *testing.T) {
	srv, tearDown := newTestServer(t, defaultRateConfig())
	defer tearDown()
	handler := srv.Handler()

	id := createVisualization(t, handler, "hello world")

	rec := doJSON(handler, http.MethodGet, fmt.Sprintf("/api/visualizations/%d/export", id), "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	var exported struct {
		ModelName  string          `json:"model_name"`
		Tokens     []string        `json:"tokens"`
		Attentions [][][][]float64 `json:"attentions"`
	}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &exported))
	assert.Equal(t, "tiny-gpt2", exported.ModelName)
	assert.NotEmpty(t, exported.Tokens)
	assert.NotEmpty(t, exported.Attentions)

	rec = doJSON(handler, http.MethodGet, fmt.Sprintf("/api/visualizations/%d/export?format=csv", id), "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rec.Body.String(), "layer,head,query_index,key_index,query_token,key_token,weight")

	rec = doJSON(handler, http.MethodGet, fmt.Sprintf("/api/visualizations/%d/export?format=xml", id), "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(handler, http.MethodGet, "/api/visualizations/99999/export", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAnnotationLifecycle(t *testing.T) {
	srv, tearDown := newTestServer(t, defaultRateConfig())
	defer tearDown()
	handler := srv.Handler()

	vizID := createVisualization(t, handler, "hello world")
	owner := signupAndLogin(t, handler, "alice")
	other := signupAndLogin(t, handler, "bob")

	annotationsPath := fmt.Sprintf("/api/visualizations/%d/annotations", vizID)

	// Creating requires auth.
	rec := doJSON(handler, http.MethodPost, annotationsPath, "", `{"content": "interesting", "start_token": 0, "end_token": 1}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(handler, http.MethodPost, annotationsPath, owner, `{"content": "interesting", "start_token": 0, "end_token": 1}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	var created annotationResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "interesting", created.Content)
	assert.Equal(t, "alice", created.Username)
	assert.False(t, created.UpdatedAt.IsZero())

	// Out-of-range token span.
	rec = doJSON(handler, http.MethodPost, annotationsPath, owner, `{"content": "bad", "start_token": 0, "end_token": 9999}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Anyone can list, and entries carry the author's name.
	rec = doJSON(handler, http.MethodGet, annotationsPath, "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "interesting")
	assert.Contains(t, rec.Body.String(), `"username":"alice"`)

	annotationPath := fmt.Sprintf("/api/annotations/%d", created.ID)

	// Only the owner can update.
	rec = doJSON(handler, http.MethodPatch, annotationPath, other, `{"content": "hijacked"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(handler, http.MethodPatch, annotationPath, owner, `{"content": "updated"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "updated")

	// Only the owner can delete.
	rec = doJSON(handler, http.MethodDelete, annotationPath, other, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(handler, http.MethodDelete, annotationPath, owner, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(handler, http.MethodDelete, annotationPath, owner, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

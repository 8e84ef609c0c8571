package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/transformerzoo/zoo-server/server/internal/auth"
	"github.com/transformerzoo/zoo-server/server/internal/store"
	"gorm.io/gorm"
)

const maxAnnotationLength = 1000

type annotationRequest struct {
	Content    string `json:"content"`
	StartToken int    `json:"start_token"`
	EndToken   int    `json:"end_token"`
}

type annotationResponse struct {
	ID              uint      `json:"id"`
	VisualizationID uint      `json:"visualization_id"`
	UserID          uint      `json:"user_id"`
	Username        string    `json:"username"`
	Content         string    `json:"content"`
	StartToken      int       `json:"start_token"`
	EndToken        int       `json:"end_token"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func toAnnotationResponse(a *store.Annotation) annotationResponse {
	return annotationResponse{
		ID:              a.ID,
		VisualizationID: a.VisualizationID,
		UserID:          a.UserID,
		Username:        a.User.Username,
		Content:         a.Content,
		StartToken:      a.StartToken,
		EndToken:        a.EndToken,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

func (s *S) handleListAnnotations(w http.ResponseWriter, r *http.Request) {
	v, ok := s.visualizationFromPath(w, r)
	if !ok {
		return
	}
	as, err := s.store.ListAnnotationsByVisualizationID(v.ID)
	if err != nil {
		s.logger.Error(err, "Failed to list annotations", "visualizationID", v.ID)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	resp := make([]annotationResponse, 0, len(as))
	for _, a := range as {
		resp = append(resp, toAnnotationResponse(a))
	}
	writeJSON(w, http.StatusOK, map[string]any{"annotations": resp})
}

func (s *S) handleCreateAnnotation(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	v, ok := s.visualizationFromPath(w, r)
	if !ok {
		return
	}

	var req annotationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}
	if len(req.Content) > maxAnnotationLength {
		writeError(w, http.StatusBadRequest, "content is too long")
		return
	}

	var tokens []string
	if err := json.Unmarshal(v.Tokens, &tokens); err != nil {
		s.logger.Error(err, "Failed to decode stored tokens", "id", v.ID)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if req.StartToken < 0 || req.EndToken < req.StartToken || req.EndToken >= len(tokens) {
		writeError(w, http.StatusBadRequest, "token range is out of bounds")
		return
	}

	a := &store.Annotation{
		VisualizationID: v.ID,
		UserID:          user.ID,
		Content:         req.Content,
		StartToken:      req.StartToken,
		EndToken:        req.EndToken,
	}
	if err := s.store.CreateAnnotation(a); err != nil {
		s.logger.Error(err, "Failed to create annotation", "visualizationID", v.ID)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	a.User = *user
	writeJSON(w, http.StatusCreated, toAnnotationResponse(a))
}

// annotationForUpdate loads the annotation and checks that the caller
// owns it. Non-owners get a 403 regardless of the operation.
func (s *S) annotationForUpdate(w http.ResponseWriter, r *http.Request) (*store.Annotation, bool) {
	user, _ := auth.UserFromContext(r.Context())

	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid annotation ID")
		return nil, false
	}
	a, err := s.store.GetAnnotationByID(uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "annotation not found")
			return nil, false
		}
		s.logger.Error(err, "Failed to load annotation", "id", id)
		writeError(w, http.StatusInternalServerError, "internal error")
		return nil, false
	}
	if a.UserID != user.ID {
		writeError(w, http.StatusForbidden, "not the annotation owner")
		return nil, false
	}
	return a, true
}

func (s *S) handleUpdateAnnotation(w http.ResponseWriter, r *http.Request) {
	a, ok := s.annotationForUpdate(w, r)
	if !ok {
		return
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}
	if len(req.Content) > maxAnnotationLength {
		writeError(w, http.StatusBadRequest, "content is too long")
		return
	}

	if err := s.store.UpdateAnnotationContent(a.ID, req.Content); err != nil {
		s.logger.Error(err, "Failed to update annotation", "id", a.ID)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	// Reload so the response carries the new updated_at.
	updated, err := s.store.GetAnnotationByID(a.ID)
	if err != nil {
		s.logger.Error(err, "Failed to reload annotation", "id", a.ID)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, toAnnotationResponse(updated))
}

func (s *S) handleDeleteAnnotation(w http.ResponseWriter, r *http.Request) {
	a, ok := s.annotationForUpdate(w, r)
	if !ok {
		return
	}
	if err := s.store.DeleteAnnotation(a.ID); err != nil {
		s.logger.Error(err, "Failed to delete annotation", "id", a.ID)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

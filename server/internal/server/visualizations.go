package server

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/transformerzoo/zoo-server/server/internal/store"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type visualizationSummary struct {
	ID         uint      `json:"id"`
	ShareToken string    `json:"share_token"`
	URL        string    `json:"url"`
	ModelName  string    `json:"model_name"`
	InputText  string    `json:"input_text"`
	ViewType   string    `json:"view_type"`
	CreatedAt  time.Time `json:"created_at"`
}

type visualizationList struct {
	Visualizations []visualizationSummary `json:"visualizations"`
	Total          int64                  `json:"total"`
	Page           int                    `json:"page"`
	PageSize       int                    `json:"page_size"`
}

func (s *S) handleListVisualizations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page := 1
	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "page must be a positive integer")
			return
		}
		page = n
	}
	pageSize := defaultPageSize
	if v := q.Get("pageSize"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxPageSize {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("pageSize must be between 1 and %d", maxPageSize))
			return
		}
		pageSize = n
	}

	vs, total, err := s.store.ListVisualizations(q.Get("q"), (page-1)*pageSize, pageSize)
	if err != nil {
		s.logger.Error(err, "Failed to list visualizations")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	resp := visualizationList{
		Visualizations: make([]visualizationSummary, 0, len(vs)),
		Total:          total,
		Page:           page,
		PageSize:       pageSize,
	}
	for _, v := range vs {
		resp.Visualizations = append(resp.Visualizations, visualizationSummary{
			ID:         v.ID,
			ShareToken: v.ShareToken,
			URL:        "/viz/" + v.ShareToken,
			ModelName:  v.ModelName,
			InputText:  v.InputText,
			ViewType:   v.ViewType,
			CreatedAt:  v.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *S) visualizationFromPath(w http.ResponseWriter, r *http.Request) (*store.Visualization, bool) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid visualization ID")
		return nil, false
	}
	v, err := s.store.GetVisualizationByID(uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "visualization not found")
			return nil, false
		}
		s.logger.Error(err, "Failed to load visualization", "id", id)
		writeError(w, http.StatusInternalServerError, "internal error")
		return nil, false
	}
	return v, true
}

func (s *S) handleExport(w http.ResponseWriter, r *http.Request) {
	v, ok := s.visualizationFromPath(w, r)
	if !ok {
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	switch format {
	case "json":
		s.exportJSON(w, v)
	case "csv":
		s.exportCSV(w, v)
	default:
		writeError(w, http.StatusBadRequest, "format must be \"json\" or \"csv\"")
	}
}

func (s *S) exportJSON(w http.ResponseWriter, v *store.Visualization) {
	resp := map[string]any{
		"id":         v.ID,
		"model_name": v.ModelName,
		"input_text": v.InputText,
		"view_type":  v.ViewType,
		"created_at": v.CreatedAt,
		"tokens":     json.RawMessage(v.Tokens),
		"attentions": json.RawMessage(v.Attentions),
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=visualization-%d.json", v.ID))
	writeJSON(w, http.StatusOK, resp)
}

func (s *S) exportCSV(w http.ResponseWriter, v *store.Visualization) {
	var tokens []string
	var attentions [][][][]float64
	if err := json.Unmarshal(v.Tokens, &tokens); err != nil {
		s.logger.Error(err, "Failed to decode stored tokens", "id", v.ID)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if err := json.Unmarshal(v.Attentions, &attentions); err != nil {
		s.logger.Error(err, "Failed to decode stored attentions", "id", v.ID)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=visualization-%d.csv", v.ID))

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"layer", "head", "query_index", "key_index", "query_token", "key_token", "weight"})
	for l, layer := range attentions {
		for h, head := range layer {
			for q, row := range head {
				for k, weight := range row {
					_ = cw.Write([]string{
						strconv.Itoa(l),
						strconv.Itoa(h),
						strconv.Itoa(q),
						strconv.Itoa(k),
						tokenAt(tokens, q),
						tokenAt(tokens, k),
						strconv.FormatFloat(weight, 'f', 6, 64),
					})
				}
			}
		}
	}
	cw.Flush()
}

func tokenAt(tokens []string, i int) string {
	if i < 0 || i >= len(tokens) {
		return ""
	}
	return tokens[i]
}

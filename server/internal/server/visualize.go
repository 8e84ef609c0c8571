package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/transformerzoo/zoo-server/pkg/tensor"
	"github.com/transformerzoo/zoo-server/pkg/transformer"
	"github.com/transformerzoo/zoo-server/server/internal/auth"
	"github.com/transformerzoo/zoo-server/server/internal/cache"
	"github.com/transformerzoo/zoo-server/server/internal/rate"
	"github.com/transformerzoo/zoo-server/server/internal/registry"
	"github.com/transformerzoo/zoo-server/server/internal/store"
	"github.com/transformerzoo/zoo-server/server/internal/validation"
	"github.com/transformerzoo/zoo-server/server/internal/viz"
	"gorm.io/gorm"
)

// vizPayload is the computed result of a forward pass. It is what the
// cache stores, so a hit skips the model entirely but still carries
// everything needed to persist a new shareable record.
type vizPayload struct {
	Tokens     []string        `json:"tokens"`
	Attentions [][][][]float64 `json:"attentions"`
	HTML       string          `json:"html"`
}

func (s *S) handleVisualize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}
	modelName := r.PostFormValue("model_name")
	viewType := r.PostFormValue("view_type")
	if viewType == "" {
		viewType = "head"
	}

	if err := validation.ModelName(modelName); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	text, err := validation.InputText(r.PostFormValue("input_text"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validation.ViewType(viewType); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Authenticated users are limited per user; anonymous submissions
	// share a limit per client address.
	user, authed := auth.UserFromContext(ctx)
	limitKey := "ip:" + clientIP(r)
	if authed {
		limitKey = "user:" + strconv.FormatUint(uint64(user.ID), 10)
	}
	res, err := s.limiter.Take(ctx, limitKey)
	if err != nil {
		s.logger.Error(err, "Rate limiter failed", "key", limitKey)
		writeError(w, http.StatusInternalServerError, "rate limiter unavailable")
		return
	}
	rate.SetRateLimitHTTPHeaders(w, res)
	if !res.Allowed {
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
		return
	}

	cacheKey := cache.Key(modelName, text, viewType)
	payload, ok := s.cachedPayload(r, cacheKey)
	if ok {
		s.metrics.IncCacheHits()
	} else {
		s.metrics.IncCacheMisses()
		payload, err = s.computeVisualization(r, modelName, text, viewType)
		if err != nil {
			s.writeComputeError(w, err)
			return
		}
		if b, err := json.Marshal(payload); err == nil {
			s.cache.Set(ctx, cacheKey, string(b))
		}
	}

	v, err := s.persistVisualization(modelName, text, viewType, payload, user)
	if err != nil {
		s.logger.Error(err, "Failed to persist visualization")
		writeError(w, http.StatusInternalServerError, "failed to save visualization")
		return
	}

	s.metrics.ObserveVisualizationLatency(modelName, time.Since(start))
	http.Redirect(w, r, "/viz/"+v.ShareToken, http.StatusSeeOther)
}

func (s *S) cachedPayload(r *http.Request, key string) (*vizPayload, bool) {
	raw, ok := s.cache.Get(r.Context(), key)
	if !ok {
		return nil, false
	}
	var p vizPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		s.logger.Error(err, "Dropping undecodable cache entry", "key", key)
		return nil, false
	}
	return &p, true
}

func (s *S) computeVisualization(r *http.Request, modelName, text, viewType string) (*vizPayload, error) {
	model, err := s.runtime.Acquire(r.Context(), modelName)
	if err != nil {
		return nil, err
	}

	ids := s.tokenizer.Encode(text)
	ids = transformer.Truncate(ids, min(s.maxInputTokens, model.Config().SeqLen))

	out, err := model.Forward(ids)
	if err != nil {
		return nil, err
	}

	tokens := s.tokenizer.Tokens(ids)
	attn := flattenAttentions(out.Attentions)
	page, err := viz.Render(viewType, viz.Input{
		ModelName:  modelName,
		Text:       text,
		Tokens:     tokens,
		Attentions: attn,
	})
	if err != nil {
		return nil, err
	}
	return &vizPayload{
		Tokens:     tokens,
		Attentions: attn,
		HTML:       page,
	}, nil
}

func (s *S) writeComputeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, registry.ErrModelNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, registry.ErrModelTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
	default:
		s.logger.Error(err, "Visualization failed")
		writeError(w, http.StatusInternalServerError, "failed to compute visualization")
	}
}

func (s *S) persistVisualization(
	modelName, text, viewType string,
	payload *vizPayload,
	user *store.User,
) (*store.Visualization, error) {
	tokens, err := json.Marshal(payload.Tokens)
	if err != nil {
		return nil, err
	}
	attn, err := json.Marshal(payload.Attentions)
	if err != nil {
		return nil, err
	}

	v := &store.Visualization{
		ShareToken: uuid.NewString(),
		ModelName:  modelName,
		InputText:  text,
		ViewType:   viewType,
		Tokens:     tokens,
		Attentions: attn,
		HTML:       payload.HTML,
	}
	if user != nil {
		v.UserID = &user.ID
	}
	if err := s.store.CreateVisualization(v); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *S) handleSharedVisualization(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("shareToken")
	v, err := s.store.GetVisualizationByShareToken(token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "visualization not found", http.StatusNotFound)
			return
		}
		s.logger.Error(err, "Failed to load visualization", "shareToken", token)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(v.HTML))
}

func (s *S) handleUnload(w http.ResponseWriter, r *http.Request) {
	if name, ok := s.runtime.Evict(); ok {
		s.logger.Info("Unloaded model on request", "model", name)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// flattenAttentions converts per-head weight tensors to plain nested
// slices, indexed [layer][head][query][key].
func flattenAttentions(attns [][]*tensor.T) [][][][]float64 {
	out := make([][][][]float64, len(attns))
	for l, layer := range attns {
		out[l] = make([][][]float64, len(layer))
		for h, head := range layer {
			n := head.Shape()[0]
			m := make([][]float64, n)
			for q := 0; q < n; q++ {
				m[q] = head.Row(q)
			}
			out[l][h] = m
		}
	}
	return out
}

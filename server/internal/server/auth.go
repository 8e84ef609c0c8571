package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/transformerzoo/zoo-server/server/internal/auth"
	"github.com/transformerzoo/zoo-server/server/internal/store"
	"gorm.io/gorm"
)

const minPasswordLength = 8

type signupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func (s *S) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" {
		writeError(w, http.StatusBadRequest, "username is required")
		return
	}
	if len(req.Password) < minPasswordLength {
		writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	if _, err := s.store.GetUserByUsername(req.Username); err == nil {
		writeError(w, http.StatusBadRequest, "username already taken")
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error(err, "Failed to check username", "username", req.Username)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error(err, "Failed to hash password")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	u := &store.User{
		Username:       req.Username,
		Email:          strings.TrimSpace(req.Email),
		HashedPassword: hashed,
	}
	if err := s.store.CreateUser(u); err != nil {
		s.logger.Error(err, "Failed to create user", "username", req.Username)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.logger.Info("User signed up", "username", u.Username, "userID", u.ID)
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":       u.ID,
		"username": u.Username,
	})
}

func (s *S) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	u, err := s.store.GetUserByUsername(strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeError(w, http.StatusUnauthorized, "incorrect username or password")
			return
		}
		s.logger.Error(err, "Failed to load user", "username", req.Username)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !auth.VerifyPassword(req.Password, u.HashedPassword) {
		writeError(w, http.StatusUnauthorized, "incorrect username or password")
		return
	}

	token, err := s.authn.IssueToken(u.ID)
	if err != nil {
		s.logger.Error(err, "Failed to issue token", "userID", u.ID)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
	})
}

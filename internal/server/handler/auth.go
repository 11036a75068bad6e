package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/xela07ax/sentinel-server/internal/domain"
)

// AuthService Описываем, что нам нужно от слоя аутентификации
type AuthService interface {
	Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error)
	ChangeUsername(ctx context.Context, newUsername string) (*domain.ChangeResponse, error)
	ChangePassword(ctx context.Context, newPassword string) (*domain.ChangeResponse, error)
	Me() (*domain.AdminAccount, error)
}

type AuthHandler struct {
	service AuthService
}

func NewAuthHandler(s AuthService) *AuthHandler {
	return &AuthHandler{service: s}
}

// Login — POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.service.Login(r.Context(), req)
	if err != nil {
		// Не уточняем, что именно неверно (логин или пароль), защита от перебора
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Me — GET /api/auth/me: текущая учетка (без хэша и ключа).
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	acc, err := h.service.Me()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "account unavailable")
		return
	}
	writeJSON(w, http.StatusOK, acc)
}

// ChangeID — PUT /api/auth/id: смена логина с ротацией api_key.
func (h *AuthHandler) ChangeID(w http.ResponseWriter, r *http.Request) {
	var req domain.ChangeIDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.service.ChangeUsername(r.Context(), req.NewUsername)
	if err != nil {
		h.writeChangeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ChangePassword — PUT /api/auth/password: смена пароля с ротацией api_key.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req domain.ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.service.ChangePassword(r.Context(), req.NewPassword)
	if err != nil {
		h.writeChangeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) writeChangeError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrInvalidCredentials) {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeError(w, http.StatusBadRequest, err.Error())
}

package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/xela07ax/sentinel-server/internal/domain"
)

// SettingsService Описываем, что нам нужно от слоя настроек
type SettingsService interface {
	Get(ctx context.Context) (*domain.Settings, error)
	Update(ctx context.Context, cfg domain.SettingsConfig, expectedVersion int) (*domain.Settings, error)
}

type SettingsHandler struct {
	service SettingsService
}

func NewSettingsHandler(s SettingsService) *SettingsHandler {
	return &SettingsHandler{service: s}
}

// Get — GET /api/settings.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, err := h.service.Get(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load settings")
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// Update — PUT /api/settings. Клиент присылает конфиг и версию, с которой
// работал; несовпадение версии — 409, дашборд перечитывает и повторяет.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Config  domain.SettingsConfig `json:"config"`
		Version int                   `json:"version"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := h.service.Update(r.Context(), req.Config, req.Version)
	if err != nil {
		if errors.Is(err, domain.ErrVersionConflict) {
			writeError(w, http.StatusConflict, "settings were changed by someone else, reload and retry")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

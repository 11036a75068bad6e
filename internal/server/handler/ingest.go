package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/xela07ax/sentinel-server/internal/domain"
)

// Inspector Описываем, что нам нужно от конвейера инспекции
type Inspector interface {
	Inspect(ctx context.Context, item *domain.InboundItem) *domain.ServerOut
}

type IngestHandler struct {
	inspector Inspector
}

func NewIngestHandler(ins Inspector) *IngestHandler {
	return &IngestHandler{inspector: ins}
}

// Inspect — POST /api/logs: агент присылает промпт (и вложение),
// сервер отвечает вердиктом.
func (h *IngestHandler) Inspect(w http.ResponseWriter, r *http.Request) {
	var item domain.InboundItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if item.Prompt == "" && item.Attachment == nil {
		writeError(w, http.StatusBadRequest, "empty request: prompt or attachment required")
		return
	}

	out := h.inspector.Inspect(r.Context(), &item)
	writeJSON(w, http.StatusOK, out)
}

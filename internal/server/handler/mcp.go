package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/xela07ax/sentinel-server/internal/domain"
)

// McpService Описываем, что нам нужно от слоя MCP-снапшотов
type McpService interface {
	Ingest(ctx context.Context, in *domain.McpInbound) (*domain.McpInResponse, error)
	Summary(ctx context.Context) (*domain.McpConfigSummary, error)
}

type McpHandler struct {
	service McpService
}

func NewMcpHandler(s McpService) *McpHandler {
	return &McpHandler{service: s}
}

// Ingest — POST /api/mcp: агент загружает снапшот MCP-конфига.
func (h *McpHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var in domain.McpInbound
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if in.Status != domain.McpStatusActivate && in.Status != domain.McpStatusDelete {
		writeError(w, http.StatusBadRequest, "status must be activate or delete")
		return
	}

	resp, err := h.service.Ingest(r.Context(), &in)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store snapshot")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ConfigSummary — GET /api/mcp/config_summary: сводка для дашборда.
func (h *McpHandler) ConfigSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.service.Summary(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to build mcp summary")
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

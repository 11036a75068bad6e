package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/xela07ax/sentinel-server/internal/domain"
)

// QueryService Описываем, что нам нужно от слоя выборок
type QueryService interface {
	Logs(ctx context.Context, f domain.LogFilter) ([]domain.LogRecord, error)
	Summary(ctx context.Context) (*domain.DashboardSummary, error)
	ReasonTop(ctx context.Context, limit int) ([]domain.ReasonEntry, error)
	ReasonSummary(ctx context.Context) (*domain.ReasonSummary, error)
	NetworkSummary(ctx context.Context) (*domain.NetworkSummary, error)
}

type QueryHandler struct {
	service QueryService
}

func NewQueryHandler(s QueryService) *QueryHandler {
	return &QueryHandler{service: s}
}

// logEntry — запись журнала в админ-выдаче. Значения сущностей наружу не
// уходят, только метки: внешнее поле затеняет entities вложенной записи.
type logEntry struct {
	domain.LogRecord
	Entities []domain.EntityKind `json:"entities"`
}

func sanitizeLogs(records []domain.LogRecord) []logEntry {
	out := make([]logEntry, 0, len(records))
	for _, rec := range records {
		kinds := make([]domain.EntityKind, 0, len(rec.Entities))
		for _, e := range rec.Entities {
			kinds = append(kinds, domain.EntityKind{Label: e.Label})
		}
		out = append(out, logEntry{LogRecord: rec, Entities: kinds})
	}
	return out
}

// GetLogs — GET /api/logs: выборка журнала с фильтрами.
// Параметры: host, action, has_sensitive, limit, offset.
func (h *QueryHandler) GetLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := domain.LogFilter{
		Host:   q.Get("host"),
		Action: q.Get("action"),
	}
	if v := q.Get("has_sensitive"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "has_sensitive must be a boolean")
			return
		}
		f.HasSensitive = &b
	}
	f.Limit, _ = strconv.Atoi(q.Get("limit"))
	f.Offset, _ = strconv.Atoi(q.Get("offset"))

	logs, err := h.service.Logs(r.Context(), f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch logs")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"logs": sanitizeLogs(logs)})
}

// GetSummary — GET /api/summary: все агрегаты главной страницы.
func (h *QueryHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.service.Summary(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to build summary")
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// GetReasonTop5 — GET /api/reason/top5: свежие проанализированные утечки.
func (h *QueryHandler) GetReasonTop5(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.ReasonTop(r.Context(), 5)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch reason entries")
		return
	}
	if entries == nil {
		entries = []domain.ReasonEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}

// GetReasonSummary — GET /api/reason/summary.
func (h *QueryHandler) GetReasonSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.service.ReasonSummary(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to build reason summary")
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// GetNetworkSummary — GET /api/network/summary.
func (h *QueryHandler) GetNetworkSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.service.NetworkSummary(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to build network summary")
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

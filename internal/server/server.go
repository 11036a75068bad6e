package server

import (
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/xela07ax/sentinel-server/internal/infra"
	"github.com/xela07ax/sentinel-server/internal/server/handler"
)

// Server — HTTP-поверхность: прием запросов агентов, админ-API дашборда,
// статика SPA и /metrics.
type Server struct {
	router *chi.Mux
	logger *zap.Logger
	cfg    *infra.Config

	verifier KeyVerifier

	// Обработчики бизнес-доменов
	ingestHandler   *handler.IngestHandler   // POST /api/logs, агенты
	queryHandler    *handler.QueryHandler    // summary / logs / reason / network
	settingsHandler *handler.SettingsHandler // /api/settings
	authHandler     *handler.AuthHandler     // /api/auth/*
	mcpHandler      *handler.McpHandler      // /api/mcp*

	metricsRegistry *prometheus.Registry
}

// NewServer инициализирует роутер со всеми зависимостями.
func NewServer(
	cfg *infra.Config,
	logger *zap.Logger,
	verifier KeyVerifier,
	ingestH *handler.IngestHandler,
	queryH *handler.QueryHandler,
	settingsH *handler.SettingsHandler,
	authH *handler.AuthHandler,
	mcpH *handler.McpHandler,
	reg *prometheus.Registry,
) *Server {
	s := &Server{
		router:          chi.NewRouter(),
		logger:          logger.Named("http"),
		cfg:             cfg,
		verifier:        verifier,
		ingestHandler:   ingestH,
		queryHandler:    queryH,
		settingsHandler: settingsH,
		authHandler:     authH,
		mcpHandler:      mcpH,
		metricsRegistry: reg,
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() {
	r := s.router

	// --- 1. Глобальные инфраструктурные Middleware (для всех) ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(SecurityHeaders)

	// --- 2. ПУБЛИЧНЫЕ РОУТЫ (агенты и логин) ---
	r.Group(func(r chi.Router) {
		// Агенты ходят без ключа: инспекция промптов и MCP-снапшоты
		r.Post("/api/logs", s.ingestHandler.Inspect)
		r.Post("/api/mcp", s.mcpHandler.Ingest)

		// Логин должен быть доступен без ключа
		r.Post("/api/auth/login", s.authHandler.Login)

		r.Get("/api/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})
	})

	// --- 3. ЗАЩИЩЕННЫЙ ПЕРИМЕТР (X-Admin-Key либо Bearer) ---
	r.Group(func(r chi.Router) {
		r.Use(AdminOnly(s.verifier, s.logger))

		r.Get("/api/summary", s.queryHandler.GetSummary)
		r.Get("/api/logs", s.queryHandler.GetLogs)

		r.Get("/api/settings", s.settingsHandler.Get)
		r.Put("/api/settings", s.settingsHandler.Update)

		r.Get("/api/auth/me", s.authHandler.Me)
		r.Put("/api/auth/id", s.authHandler.ChangeID)
		r.Put("/api/auth/password", s.authHandler.ChangePassword)

		r.Get("/api/reason/top5", s.queryHandler.GetReasonTop5)
		r.Get("/api/reason/summary", s.queryHandler.GetReasonSummary)
		r.Get("/api/network/summary", s.queryHandler.GetNetworkSummary)

		r.Get("/api/mcp/config_summary", s.mcpHandler.ConfigSummary)
	})

	// --- 4. Мониторинг ---
	if s.metricsRegistry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.metricsRegistry, promhttp.HandlerOpts{}))
	}

	// --- 5. Статика дашборда (SPA) ---
	s.mountDashboard()
}

// mountDashboard раздает собранный дашборд из каталога, если он существует.
// Сервер полноценно работает и без статики (API-only режим).
func (s *Server) mountDashboard() {
	dir := s.cfg.Server.DashboardDir
	if dir == "" {
		return
	}
	if st, err := os.Stat(dir); err != nil || !st.IsDir() {
		s.logger.Warn("dashboard dir not found, static serving disabled", zap.String("dir", dir))
		return
	}

	fs := http.FileServer(http.Dir(dir))
	s.router.Handle("/*", fs)
	s.logger.Info("dashboard static mounted", zap.String("dir", dir))
}

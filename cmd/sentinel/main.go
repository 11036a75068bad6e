package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/xela07ax/sentinel-server/internal/audit"
	"github.com/xela07ax/sentinel-server/internal/detect"
	"github.com/xela07ax/sentinel-server/internal/engine"
	"github.com/xela07ax/sentinel-server/internal/infra"
	"github.com/xela07ax/sentinel-server/internal/reason"
	"github.com/xela07ax/sentinel-server/internal/repository/postgres"
	"github.com/xela07ax/sentinel-server/internal/server"
	"github.com/xela07ax/sentinel-server/internal/server/handler"
	"github.com/xela07ax/sentinel-server/internal/service"
)

func main() {
	// 1. Конфигурация и логгер
	cfg, err := infra.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := infra.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	// Контекст для управления жизненным циклом фоновых горутин
	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. Инфраструктура и ресурсы
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(appCtx).Err(); err != nil {
		logger.Fatal("redis unavailable", zap.Error(err))
	}

	repo, err := postgres.NewRepo(appCtx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("postgres init failed", zap.Error(err))
	}
	defer repo.Close()

	if err := repo.Ping(appCtx); err != nil {
		logger.Fatal("postgres unavailable", zap.Error(err))
	}
	if err := repo.Migrate(appCtx); err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}

	// 3. Метрики
	reg := prometheus.NewRegistry()
	metrics := engine.NewMetrics(reg)

	// 4. Детекция: regex + LLM-сайдкар за reliability-обвязкой
	var sidecar detect.SidecarAnalyzer
	var sidecarWrapper *detect.ReliabilityWrapper
	if cfg.Detect.LLMBaseURL != "" {
		client := detect.NewSidecarClient(cfg.Detect.LLMBaseURL, cfg.Detect.LLMTimeout)
		sidecarWrapper = detect.NewReliabilityWrapper(client, cfg.Detect)
		sidecar = sidecarWrapper
		logger.Info("llm sidecar enabled", zap.String("base_url", cfg.Detect.LLMBaseURL))
	} else {
		logger.Warn("llm sidecar disabled, regex-only detection")
	}
	detector := detect.NewDetector(sidecar, logger)

	// 5. Журнал: асинхронный пакетный писатель
	recorder := audit.NewRecorder(repo, logger,
		cfg.Engine.AuditBufferSize, cfg.Engine.AuditBatchSize, cfg.Engine.AuditFlushInterval,
		audit.WithOverflowHook(func() {
			metrics.ErrorTotal.WithLabelValues("overflow").Inc()
		}),
	)
	recorder.Start()

	// 6. Control Plane: кэш настроек и учетка админа
	settingsCache := engine.NewSettingsCache(repo, rdb, logger)
	if err := settingsCache.Refresh(appCtx); err != nil {
		logger.Fatal("settings load failed", zap.Error(err))
	}
	go settingsCache.StartListener(appCtx)

	authService := service.NewAuthService(repo, rdb, cfg.Auth, logger)
	if err := authService.Bootstrap(appCtx); err != nil {
		logger.Fatal("admin bootstrap failed", zap.Error(err))
	}
	go authService.StartListener(appCtx)

	// 7. Сборка конвейера инспекции
	analyzer := reason.NewAnalyzer(repo, sidecar, logger)
	inspector := engine.NewInspector(
		detector,
		engine.NewAttachmentStore(cfg.Server.DownloadsDir),
		settingsCache,
		engine.NoopSimilarity{},
		recorder,
		analyzer,
		metrics,
		logger,
	)

	// 8. Сервисы и HTTP-поверхность
	settingsService := service.NewSettingsService(repo, rdb, logger)
	queryService := service.NewQueryService(repo, rdb, cfg.Engine.SummaryCacheTTL, logger)
	mcpService := service.NewMcpService(repo, logger)

	srv := server.NewServer(
		cfg,
		logger,
		authService,
		handler.NewIngestHandler(inspector),
		handler.NewQueryHandler(queryService),
		handler.NewSettingsHandler(settingsService),
		handler.NewAuthHandler(authService),
		handler.NewMcpHandler(mcpService),
		reg,
	)

	httpSrv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      srv.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Фоновая публикация gauge-метрик (буфер аудита, предохранитель сайдкара)
	go func() {
		t := time.NewTicker(5 * time.Second)
		defer t.Stop()
		for {
			select {
			case <-appCtx.Done():
				return
			case <-t.C:
				metrics.AuditBufferFill.Set(float64(recorder.Pending()))
				if sidecarWrapper != nil {
					if sidecarWrapper.State() == gobreaker.StateClosed {
						metrics.BreakerState.Set(0)
					} else {
						metrics.BreakerState.Set(1)
					}
				}
			}
		}
	}()

	// 9. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("sentinel server started", zap.String("addr", httpSrv.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	<-stop // Ждем сигнал
	logger.Info("sentinel server stopping...")

	// Даем 5 секунд на завершение запросов
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}

	// Останавливаем фоновые слушатели и дописываем журнал на диск
	cancel()
	recorder.Stop()

	logger.Info("sentinel server exited properly")
}

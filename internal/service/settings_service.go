package service

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xela07ax/sentinel-server/internal/domain"
	"github.com/xela07ax/sentinel-server/internal/infra"
)

// SettingsRepository — чтение и версионная запись серверной политики.
type SettingsRepository interface {
	GetSettings(ctx context.Context) (*domain.Settings, error)
	UpdateSettings(ctx context.Context, cfg domain.SettingsConfig, expectedVersion int) (*domain.Settings, error)
}

// SettingsService — GET/PUT /api/settings. Запись идет через оптимистичную
// блокировку; успешное обновление рассылается всем инстансам через Redis.
type SettingsService struct {
	repo   SettingsRepository
	rdb    *redis.Client
	logger *zap.Logger
}

func NewSettingsService(repo SettingsRepository, rdb *redis.Client, logger *zap.Logger) *SettingsService {
	return &SettingsService{repo: repo, rdb: rdb, logger: logger.Named("settings")}
}

func (s *SettingsService) Get(ctx context.Context) (*domain.Settings, error) {
	return s.repo.GetSettings(ctx)
}

// Update применяет новую политику. При несовпадении версии возвращает
// domain.ErrVersionConflict — хендлер превратит его в 409.
func (s *SettingsService) Update(ctx context.Context, cfg domain.SettingsConfig, expectedVersion int) (*domain.Settings, error) {
	if err := validateSettings(cfg); err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateSettings(ctx, cfg, expectedVersion)
	if err != nil {
		return nil, err
	}

	// Сигнал всем инстансам перечитать политику в память
	if err := s.rdb.Publish(ctx, infra.RedisChanSettingsUpdate, "updated").Err(); err != nil {
		s.logger.Error("settings update signal failed", zap.Error(err))
	}

	s.logger.Info("settings updated",
		zap.String("response_method", updated.Config.ResponseMethod),
		zap.Int("version", updated.Version))
	return updated, nil
}

func validateSettings(cfg domain.SettingsConfig) error {
	switch cfg.ResponseMethod {
	case domain.ResponseMask, domain.ResponseAllow, domain.ResponseBlock:
		return nil
	default:
		return fmt.Errorf("settings: unknown response_method %q", cfg.ResponseMethod)
	}
}

package engine

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xela07ax/sentinel-server/internal/domain"
	"github.com/xela07ax/sentinel-server/internal/infra"
)

// SettingsRepository описывает контракт хранилища настроек.
type SettingsRepository interface {
	GetSettings(ctx context.Context) (*domain.Settings, error)
}

// SettingsCache — in-memory снапшот серверной политики. Горячий путь
// инспекции читает только память; Postgres опрашивается при старте и по
// широковещательному сигналу из Redis (PUT /api/settings на любом инстансе).
type SettingsCache struct {
	mu      sync.RWMutex
	current domain.SettingsConfig
	version int

	repo   SettingsRepository // Используется только для Refresh()
	rdb    *redis.Client
	logger *zap.Logger
}

func NewSettingsCache(repo SettingsRepository, rdb *redis.Client, logger *zap.Logger) *SettingsCache {
	return &SettingsCache{
		current: domain.DefaultSettings(),
		repo:    repo,
		rdb:     rdb,
		logger:  logger.Named("settings-cache"),
	}
}

// Snapshot отдает копию актуальной политики. Только RAM, без блокировок БД.
func (c *SettingsCache) Snapshot() domain.SettingsConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Version — версия политики в кэше (диагностика рассинхрона).
func (c *SettingsCache) Version() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// Refresh выполняет «холодную загрузку» настроек из Postgres в память.
func (c *SettingsCache) Refresh(ctx context.Context) error {
	s, err := c.repo.GetSettings(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.current = s.Config
	c.version = s.Version
	c.mu.Unlock()

	c.logger.Info("settings cache refreshed", zap.Int("version", s.Version))
	return nil
}

// StartListener держит подписку на сигнал обновления настроек.
// Блокирующий вызов — запускать в отдельной горутине.
func (c *SettingsCache) StartListener(ctx context.Context) {
	ListenResilient(ctx, c.rdb, c.logger, infra.RedisChanSettingsUpdate,
		func() error { return c.Refresh(ctx) },
		func(payload string) {
			// Payload не важен: сигнал означает "перечитай целиком"
			if err := c.Refresh(ctx); err != nil {
				c.logger.Error("settings refresh on signal failed", zap.Error(err))
			}
		},
	)
}

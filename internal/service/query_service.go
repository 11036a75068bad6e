package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xela07ax/sentinel-server/internal/domain"
	"github.com/xela07ax/sentinel-server/internal/infra"
)

// QueryRepository — агрегатные выборки дашборда.
type QueryRepository interface {
	QueryLogs(ctx context.Context, f domain.LogFilter) ([]domain.LogRecord, error)
	DashboardSummary(ctx context.Context) (*domain.DashboardSummary, error)
	ReasonTop(ctx context.Context, limit int) ([]domain.ReasonEntry, error)
	ReasonSummary(ctx context.Context) (*domain.ReasonSummary, error)
	NetworkSummary(ctx context.Context) (*domain.NetworkSummary, error)
}

// QueryService отдает данные страниц дашборда. Тяжелые агрегаты
// (/api/summary, /api/network/summary) кэшируются в Redis с коротким TTL:
// дашборд опрашивает их поллингом, а Postgres ходит по журналу целиком.
type QueryService struct {
	repo     QueryRepository
	rdb      *redis.Client
	cacheTTL time.Duration
	logger   *zap.Logger
}

func NewQueryService(repo QueryRepository, rdb *redis.Client, cacheTTL time.Duration, logger *zap.Logger) *QueryService {
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}
	return &QueryService{repo: repo, rdb: rdb, cacheTTL: cacheTTL, logger: logger.Named("query")}
}

// Logs — выборка журнала без кэша (фильтры слишком разнообразны).
func (s *QueryService) Logs(ctx context.Context, f domain.LogFilter) ([]domain.LogRecord, error) {
	return s.repo.QueryLogs(ctx, f)
}

// Summary — главная страница дашборда, через Redis-кэш.
func (s *QueryService) Summary(ctx context.Context) (*domain.DashboardSummary, error) {
	return cached(ctx, s, infra.RedisKeySummaryCache, s.repo.DashboardSummary)
}

// NetworkSummary — страница сети, через Redis-кэш.
func (s *QueryService) NetworkSummary(ctx context.Context) (*domain.NetworkSummary, error) {
	return cached(ctx, s, infra.RedisKeyNetworkCache, s.repo.NetworkSummary)
}

// ReasonTop — свежие проанализированные утечки. Данные пишутся асинхронным
// анализатором, кэшировать нечего — выборка и так точечная.
func (s *QueryService) ReasonTop(ctx context.Context, limit int) ([]domain.ReasonEntry, error) {
	return s.repo.ReasonTop(ctx, limit)
}

func (s *QueryService) ReasonSummary(ctx context.Context) (*domain.ReasonSummary, error) {
	return s.repo.ReasonSummary(ctx)
}

// cached — generic-обертка cache-aside: Redis -> Postgres -> Redis.
// Отказ Redis не фатален, запрос уходит напрямую в базу.
func cached[T any](ctx context.Context, s *QueryService, key string, load func(context.Context) (*T, error)) (*T, error) {
	if s.rdb != nil {
		raw, err := s.rdb.Get(ctx, key).Bytes()
		if err == nil {
			var v T
			if jerr := json.Unmarshal(raw, &v); jerr == nil {
				return &v, nil
			}
			// Битый кэш перезапишем свежим значением ниже
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	v, err := load(ctx)
	if err != nil {
		return nil, err
	}

	if s.rdb != nil {
		if raw, jerr := json.Marshal(v); jerr == nil {
			if err := s.rdb.Set(ctx, key, raw, s.cacheTTL).Err(); err != nil {
				s.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
			}
		}
	}
	return v, nil
}

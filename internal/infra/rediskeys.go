package infra

import "fmt"

const (
	// RedisNamespace Базовый префикс для изоляции данных проекта в Redis
	RedisNamespace = "sentinel"
)

// Ключи кэша
var (
	// RedisKeySummaryCache — сериализованный ответ /api/summary (короткий TTL)
	RedisKeySummaryCache = GetCacheKey("summary")
	// RedisKeyNetworkCache — сериализованный ответ /api/network/summary
	RedisKeyNetworkCache = GetCacheKey("network_summary")
)

// Каналы Pub/Sub (события)
const (
	// RedisChanSettingsUpdate — широковещательная инвалидация кэша настроек.
	// Любой инстанс, получив сигнал, перечитывает settings из Postgres.
	RedisChanSettingsUpdate = RedisNamespace + ":settings:update"

	// RedisChanAuthUpdate — ротация админ-ключа (сброс сессий на всех инстансах)
	RedisChanAuthUpdate = RedisNamespace + ":auth:update"
)

// GetCacheKey Генератор ключей кэша для динамических ресурсов
func GetCacheKey(resource string) string {
	return fmt.Sprintf("%s:cache:%s", RedisNamespace, resource)
}

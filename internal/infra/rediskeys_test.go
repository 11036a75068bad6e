package infra

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCacheKeys(t *testing.T) {
	assert.Equal(t, "sentinel:cache:summary", RedisKeySummaryCache)
	assert.Equal(t, "sentinel:cache:network_summary", RedisKeyNetworkCache)
	assert.Equal(t, RedisKeySummaryCache, GetCacheKey("summary"))
}

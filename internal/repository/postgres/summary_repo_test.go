package postgres

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncateRunes(t *testing.T) {
	// Корейский промпт длиннее лимита: срез не должен рвать руны
	long := strings.Repeat("주민등록번호 유출 ", 30)
	got := truncateRunes(long, recentPromptLimit)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, recentPromptLimit+3, utf8.RuneCountInString(got))
	assert.True(t, strings.HasSuffix(got, "..."))

	// Короткие и ровно-лимитные строки не трогаем
	assert.Equal(t, "짧은 문장", truncateRunes("짧은 문장", recentPromptLimit))
	exact := strings.Repeat("가", recentPromptLimit)
	assert.Equal(t, exact, truncateRunes(exact, recentPromptLimit))
}

func TestIPBand(t *testing.T) {
	assert.Equal(t, "203.0.*", IPBand("203.0.113.5"))
	assert.Equal(t, "10.0.*", IPBand("10.0.0.1"))

	// Не-IPv4 остаются как есть
	assert.Equal(t, "fe80::1", IPBand("fe80::1"))
	assert.Equal(t, "", IPBand(""))
	assert.Equal(t, "host.example", IPBand("host.example"))
}

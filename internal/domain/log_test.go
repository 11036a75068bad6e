package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInboundItem_PCNameAliases(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"legacy upper", `{"prompt": "x", "PCName": "LEGACY"}`, "LEGACY"},
		{"camel", `{"prompt": "x", "pcName": "CAMEL"}`, "CAMEL"},
		{"snake", `{"prompt": "x", "pc_name": "SNAKE"}`, "SNAKE"},
		// PCName > pcName > pc_name
		{"priority", `{"prompt": "x", "PCName": "A", "pcName": "B", "pc_name": "C"}`, "A"},
		{"missing", `{"prompt": "x"}`, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var item InboundItem
			require.NoError(t, json.Unmarshal([]byte(tc.body), &item))
			assert.Equal(t, tc.want, item.PCName)
			assert.Equal(t, "x", item.Prompt)
		})
	}
}

func TestServiceEnabled(t *testing.T) {
	cfg := DefaultSettings()

	assert.True(t, cfg.ServiceEnabled("llm", "gpt"))

	cfg.ServiceFilters["llm"]["gpt"] = false
	assert.False(t, cfg.ServiceEnabled("llm", "gpt"))

	// Неизвестные группа/сервис — fail-safe: инспектируем
	assert.True(t, cfg.ServiceEnabled("llm", "brand-new-llm"))
	assert.True(t, cfg.ServiceEnabled("unknown-group", "x"))
}

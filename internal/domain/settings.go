package domain

import "time"

// Режимы реакции сервера на найденные чувствительные данные
const (
	ResponseMask  = "mask"  // заменить сущности токенами, пропустить
	ResponseAllow = "allow" // только журналировать
	ResponseBlock = "block" // запретить запрос целиком
)

// SettingsConfig — серверная политика, влияет на все запросы агентов.
type SettingsConfig struct {
	ResponseMethod string `json:"response_method"` // mask | allow | block

	// Фильтры сервисов: выключенный сервис не инспектируется вовсе.
	// Структура совпадает с settings.js дашборда:
	//   llm: { gpt, gemini, claude, deepseek, groq }
	//   mcp: { gpt_desktop, claude_desktop, vscode_copilot }
	ServiceFilters map[string]map[string]bool `json:"service_filters"`
}

// DefaultSettings возвращает конфигурацию по умолчанию (все фильтры включены).
func DefaultSettings() SettingsConfig {
	return SettingsConfig{
		ResponseMethod: ResponseMask,
		ServiceFilters: map[string]map[string]bool{
			"llm": {
				"gpt":      true,
				"gemini":   true,
				"claude":   true,
				"deepseek": true,
				"groq":     true,
			},
			"mcp": {
				"gpt_desktop":    true,
				"claude_desktop": true,
				"vscode_copilot": true,
			},
		},
	}
}

// ServiceEnabled сообщает, инспектируется ли сервис service группы group.
// Неизвестный сервис считается включенным (fail-safe: лучше лишний раз
// проверить, чем пропустить утечку).
func (c SettingsConfig) ServiceEnabled(group, service string) bool {
	m, ok := c.ServiceFilters[group]
	if !ok {
		return true
	}
	enabled, ok := m[service]
	if !ok {
		return true
	}
	return enabled
}

// Settings — снапшот настроек с версией для оптимистичной блокировки.
type Settings struct {
	Config    SettingsConfig `json:"config"`
	Version   int            `json:"version"`
	UpdatedAt time.Time      `json:"updated_at"`
}

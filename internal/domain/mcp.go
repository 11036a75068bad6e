package domain

import (
	"encoding/json"
	"time"
)

// Статусы снапшота MCP-конфига
const (
	McpStatusActivate = "activate" // файл существует, снапшот всего конфига
	McpStatusDelete   = "delete"   // файл конфига удален
)

// Область работы MCP-сервера
const (
	McpScopeLocal    = "local"    // процесс или локальный/приватный HTTP
	McpScopeExternal = "external" // внешний домен либо публичный IP
	McpScopeDeleted  = "deleted"  // строка события удаления файла
)

// Типы MCP-серверов
const (
	McpServerProcess = "process"
	McpServerHTTP    = "http"
)

// McpInbound — загрузка снапшота MCP-конфига агентом (POST /api/mcp).
type McpInbound struct {
	Time      string `json:"time"`
	PublicIP  string `json:"public_ip,omitempty"`
	PrivateIP string `json:"private_ip,omitempty"`
	Host      string `json:"host,omitempty"`    // например "claude"
	PCName    string `json:"pc_name,omitempty"` // имя машины агента
	Status    string `json:"status"`            // activate / delete
	FilePath  string `json:"file_path"`

	// Полное содержимое конфиг-файла как прислал агент
	ConfigRaw json.RawMessage `json:"config_raw,omitempty"`
}

// McpServerConf — описание одного сервера внутри mcpServers.
type McpServerConf struct {
	Type    string            `json:"type,omitempty"`
	Command string            `json:"command,omitempty"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
	URL     string            `json:"url,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

// McpConfigEntry — одна строка журнала: MCP-сервер внутри снапшота.
// Один snapshot_id объединяет все строки одной передачи.
type McpConfigEntry struct {
	ID int64 `json:"id"`

	SnapshotID string `json:"snapshot_id"`
	AgentTime  string `json:"agent_time"`
	PublicIP   string `json:"public_ip"`
	PrivateIP  string `json:"private_ip"`
	Host       string `json:"host"`
	PCName     string `json:"pc_name"`
	Status     string `json:"status"`
	FilePath   string `json:"file_path"`
	McpScope   string `json:"mcp_scope"`

	ConfigRaw json.RawMessage `json:"config_raw"`

	McpName    string          `json:"mcp_name,omitempty"`
	ServerType string          `json:"server_type,omitempty"`
	Command    string          `json:"command,omitempty"`
	Args       json.RawMessage `json:"args,omitempty"`
	Env        json.RawMessage `json:"env,omitempty"`
	URL        string          `json:"url,omitempty"`
	Headers    json.RawMessage `json:"headers,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// McpInResponse — подтверждение приема снапшота.
type McpInResponse struct {
	SnapshotID string `json:"snapshot_id"`
	Stored     int    `json:"stored"` // количество строк
	McpScope   string `json:"mcp_scope"`
}

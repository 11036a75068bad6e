package domain

// DashboardSummary — все данные главной страницы дашборда одним ответом.
type DashboardSummary struct {
	TotalSensitive int64            `json:"total_sensitive"`
	TypeRatio      map[string]int64 `json:"type_ratio"`
	TypeBlocked    map[string]int64 `json:"type_blocked"`
	HourlyAttempts [24]int64        `json:"hourly_attempts"`
	RecentLogs     []RecentLog      `json:"recent_logs"`
	IPBandBlocked  map[string]int64 `json:"ip_band_blocked"`
}

// ReasonSummary — агрегаты страницы Reason.
type ReasonSummary struct {
	ByIntent   map[string]int64 `json:"by_intent"`   // intentional / negligent / unknown
	ByCategory map[string]int64 `json:"by_category"` // risk_category -> count
	Total      int64            `json:"total"`
}

// ReasonEntry — одна строка топа Reason-страницы.
type ReasonEntry struct {
	RequestID    string `json:"request_id"`
	Time         string `json:"time"`
	Host         string `json:"host"`
	Hostname     string `json:"hostname"`
	Reason       string `json:"reason"`
	ReasonType   string `json:"reason_type"`
	RiskCategory string `json:"risk_category"`
	RiskPattern  string `json:"risk_pattern"`
}

// NetworkSummary — агрегаты по сетевым источникам запросов.
type NetworkSummary struct {
	// Срезы по публичным /16-диапазонам: "203.0.*"
	BandAttempts map[string]int64 `json:"band_attempts"`
	BandBlocked  map[string]int64 `json:"band_blocked"`
	// Целевые LLM-хосты по популярности
	TopHosts []HostCount `json:"top_hosts"`
}

type HostCount struct {
	Host  string `json:"host"`
	Count int64  `json:"count"`
}

// McpConfigSummary — сводка по последним MCP-снапшотам (по одному на
// пару host+pc_name).
type McpConfigSummary struct {
	TotalSnapshots  int64            `json:"total_snapshots"`
	ByScope         map[string]int64 `json:"by_scope"`  // local / external / deleted
	ByStatus        map[string]int64 `json:"by_status"` // activate / delete
	ExternalServers []McpServerInfo  `json:"external_servers"`
}

// McpServerInfo — внешний MCP-сервер, найденный в актуальных снапшотах.
type McpServerInfo struct {
	Host    string `json:"host"`
	PCName  string `json:"pc_name"`
	McpName string `json:"mcp_name"`
	URL     string `json:"url"`
}

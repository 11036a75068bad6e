package service

import (
	"context"
	"encoding/json"
	"net"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xela07ax/sentinel-server/internal/domain"
)

// McpRepository — журнал снапшотов MCP-конфигов.
type McpRepository interface {
	InsertMcpEntries(ctx context.Context, entries []domain.McpConfigEntry) error
	McpSummary(ctx context.Context) (*domain.McpConfigSummary, error)
}

// McpService принимает снапшоты MCP-конфигов агентов и строит сводку.
// Снапшот — полное содержимое конфиг-файла; каждая строка журнала
// описывает один сервер, snapshot_id связывает строки одной передачи.
type McpService struct {
	repo   McpRepository
	logger *zap.Logger
}

func NewMcpService(repo McpRepository, logger *zap.Logger) *McpService {
	return &McpService{repo: repo, logger: logger.Named("mcp")}
}

// Ingest разбирает снапшот и пишет его строки в журнал.
func (s *McpService) Ingest(ctx context.Context, in *domain.McpInbound) (*domain.McpInResponse, error) {
	snapshotID := uuid.NewString()

	entries, scope := buildEntries(snapshotID, in)
	if err := s.repo.InsertMcpEntries(ctx, entries); err != nil {
		return nil, err
	}

	s.logger.Info("mcp snapshot stored",
		zap.String("snapshot_id", snapshotID),
		zap.String("host", in.Host),
		zap.String("pc_name", in.PCName),
		zap.String("scope", scope),
		zap.Int("servers", len(entries)))

	return &domain.McpInResponse{
		SnapshotID: snapshotID,
		Stored:     len(entries),
		McpScope:   scope,
	}, nil
}

func (s *McpService) Summary(ctx context.Context) (*domain.McpConfigSummary, error) {
	return s.repo.McpSummary(ctx)
}

// buildEntries раскладывает снапшот на строки и вычисляет его область.
// Область принадлежит снапшоту, а не отдельному серверу: сводка считает
// машины, и один внешний сервер делает внешним весь конфиг. Поэтому
// вычисленная область штампуется в каждую строку; событие удаления
// перекрывает ее значением deleted, пустой конфиг дает строку-заглушку.
func buildEntries(snapshotID string, in *domain.McpInbound) ([]domain.McpConfigEntry, string) {
	base := domain.McpConfigEntry{
		SnapshotID: snapshotID,
		AgentTime:  in.Time,
		PublicIP:   in.PublicIP,
		PrivateIP:  in.PrivateIP,
		Host:       in.Host,
		PCName:     in.PCName,
		Status:     in.Status,
		FilePath:   in.FilePath,
		ConfigRaw:  in.ConfigRaw,
	}

	var cfg struct {
		McpServers map[string]domain.McpServerConf `json:"mcpServers"`
	}
	if len(in.ConfigRaw) > 0 {
		// Нечитаемый конфиг журналируем как есть, строкой-заглушкой
		_ = json.Unmarshal(in.ConfigRaw, &cfg)
	}

	scope := domain.McpScopeLocal
	entries := make([]domain.McpConfigEntry, 0, len(cfg.McpServers))
	for name, srv := range cfg.McpServers {
		e := base
		e.McpName = name
		e.ServerType = serverType(srv)
		e.Command = srv.Command
		e.URL = srv.URL

		if serverScope(e.ServerType, srv.URL) == domain.McpScopeExternal {
			scope = domain.McpScopeExternal
		}
		if len(srv.Args) > 0 {
			e.Args, _ = json.Marshal(srv.Args)
		}
		if len(srv.Env) > 0 {
			e.Env, _ = json.Marshal(srv.Env)
		}
		if len(srv.Headers) > 0 {
			e.Headers, _ = json.Marshal(srv.Headers)
		}
		entries = append(entries, e)
	}
	if len(entries) == 0 {
		entries = append(entries, base)
	}
	if in.Status == domain.McpStatusDelete {
		scope = domain.McpScopeDeleted
	}
	for i := range entries {
		entries[i].McpScope = scope
	}
	return entries, scope
}

// serverType определяет тип сервера: явное поле type, иначе по наличию
// url (http) или command (process).
func serverType(srv domain.McpServerConf) string {
	switch strings.ToLower(srv.Type) {
	case "http", "sse", "streamable-http":
		return domain.McpServerHTTP
	case "stdio", "process":
		return domain.McpServerProcess
	}
	if srv.URL != "" {
		return domain.McpServerHTTP
	}
	return domain.McpServerProcess
}

// serverScope: процессы всегда локальны; HTTP-серверы делятся по хосту URL.
func serverScope(sType, rawURL string) string {
	if sType != domain.McpServerHTTP {
		return domain.McpScopeLocal
	}
	if isLocalURL(rawURL) {
		return domain.McpScopeLocal
	}
	return domain.McpScopeExternal
}

// isLocalURL: localhost, loopback и приватные диапазоны считаются
// локальной сетью, все прочее — внешним миром.
func isLocalURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		// Непонятный URL считаем внешним: сводка должна его подсветить
		return false
	}

	host := u.Hostname()
	if strings.EqualFold(host, "localhost") {
		return true
	}

	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast()
}

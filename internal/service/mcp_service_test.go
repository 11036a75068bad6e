package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xela07ax/sentinel-server/internal/domain"
)

type memMcpRepo struct {
	entries []domain.McpConfigEntry
}

func (m *memMcpRepo) InsertMcpEntries(_ context.Context, entries []domain.McpConfigEntry) error {
	m.entries = append(m.entries, entries...)
	return nil
}

func (m *memMcpRepo) McpSummary(context.Context) (*domain.McpConfigSummary, error) {
	return &domain.McpConfigSummary{}, nil
}

func entryByName(t *testing.T, entries []domain.McpConfigEntry, name string) domain.McpConfigEntry {
	t.Helper()
	for _, e := range entries {
		if e.McpName == name {
			return e
		}
	}
	t.Fatalf("entry %q not found", name)
	return domain.McpConfigEntry{}
}

func TestMcpIngest_ProcessAndHTTPServers(t *testing.T) {
	repo := &memMcpRepo{}
	svc := NewMcpService(repo, zap.NewNop())

	raw := json.RawMessage(`{
		"mcpServers": {
			"fs": {"command": "npx", "args": ["-y", "server-filesystem"]},
			"local-api": {"type": "http", "url": "http://localhost:3001/mcp"},
			"cloud": {"url": "https://mcp.example.com/sse", "headers": {"X-Key": "v"}}
		}
	}`)

	resp, err := svc.Ingest(context.Background(), &domain.McpInbound{
		Host:      "claude",
		PCName:    "dev-pc",
		Status:    domain.McpStatusActivate,
		FilePath:  "C:/Users/dev/claude_desktop_config.json",
		ConfigRaw: raw,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, resp.Stored)
	// Хоть один внешний сервер — снапшот external
	assert.Equal(t, domain.McpScopeExternal, resp.McpScope)
	require.Len(t, repo.entries, 3)

	fs := entryByName(t, repo.entries, "fs")
	assert.Equal(t, domain.McpServerProcess, fs.ServerType)
	assert.Equal(t, "npx", fs.Command)

	local := entryByName(t, repo.entries, "local-api")
	assert.Equal(t, domain.McpServerHTTP, local.ServerType)

	cloud := entryByName(t, repo.entries, "cloud")
	assert.Equal(t, domain.McpServerHTTP, cloud.ServerType)

	// Область принадлежит снапшоту и штампуется в каждую строку:
	// сводка считает машины, а не отдельные серверы
	for _, e := range repo.entries {
		assert.Equal(t, domain.McpScopeExternal, e.McpScope, e.McpName)
	}

	// Все строки одной передачи связаны одним snapshot_id
	assert.Equal(t, fs.SnapshotID, cloud.SnapshotID)
	assert.Equal(t, resp.SnapshotID, fs.SnapshotID)
}

func TestMcpIngest_LocalOnlySnapshot(t *testing.T) {
	repo := &memMcpRepo{}
	svc := NewMcpService(repo, zap.NewNop())

	// Приватные и loopback-адреса не делают конфиг внешним
	raw := json.RawMessage(`{"mcpServers": {
		"lan": {"url": "http://192.168.1.20:8080/mcp"},
		"loop": {"url": "http://127.0.0.1:9000"}
	}}`)

	resp, err := svc.Ingest(context.Background(), &domain.McpInbound{
		Host: "claude", PCName: "pc", Status: domain.McpStatusActivate, ConfigRaw: raw,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.McpScopeLocal, resp.McpScope)
	for _, e := range repo.entries {
		assert.Equal(t, domain.McpScopeLocal, e.McpScope, e.McpName)
	}
}

func TestMcpIngest_PublicServerMarksWholeSnapshot(t *testing.T) {
	repo := &memMcpRepo{}
	svc := NewMcpService(repo, zap.NewNop())

	raw := json.RawMessage(`{"mcpServers": {
		"lan": {"url": "http://192.168.1.20:8080/mcp"},
		"pub": {"url": "http://8.8.8.8/mcp"}
	}}`)

	resp, err := svc.Ingest(context.Background(), &domain.McpInbound{
		Host: "claude", PCName: "pc", Status: domain.McpStatusActivate, ConfigRaw: raw,
	})
	require.NoError(t, err)

	// Единственный публичный сервер тянет external на весь снапшот
	assert.Equal(t, domain.McpScopeExternal, resp.McpScope)
	assert.Equal(t, domain.McpScopeExternal, entryByName(t, repo.entries, "lan").McpScope)
	assert.Equal(t, domain.McpScopeExternal, entryByName(t, repo.entries, "pub").McpScope)
}

func TestMcpIngest_DeleteEvent(t *testing.T) {
	repo := &memMcpRepo{}
	svc := NewMcpService(repo, zap.NewNop())

	resp, err := svc.Ingest(context.Background(), &domain.McpInbound{
		Host:     "claude",
		PCName:   "pc",
		Status:   domain.McpStatusDelete,
		FilePath: "C:/cfg.json",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, resp.Stored)
	assert.Equal(t, domain.McpScopeDeleted, resp.McpScope)
	require.Len(t, repo.entries, 1)
	assert.Equal(t, domain.McpScopeDeleted, repo.entries[0].McpScope)
	assert.Empty(t, repo.entries[0].McpName)
}

func TestMcpIngest_DeleteWithServers(t *testing.T) {
	repo := &memMcpRepo{}
	svc := NewMcpService(repo, zap.NewNop())

	// Агент прислал удаление вместе с последним содержимым файла:
	// серверы журналируются построчно, но область у всех deleted
	raw := json.RawMessage(`{"mcpServers": {
		"fs": {"command": "npx"},
		"cloud": {"url": "https://mcp.example.com/sse"}
	}}`)

	resp, err := svc.Ingest(context.Background(), &domain.McpInbound{
		Host: "claude", PCName: "pc", Status: domain.McpStatusDelete,
		FilePath: "C:/cfg.json", ConfigRaw: raw,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, resp.Stored)
	assert.Equal(t, domain.McpScopeDeleted, resp.McpScope)
	require.Len(t, repo.entries, 2)
	for _, e := range repo.entries {
		assert.Equal(t, domain.McpScopeDeleted, e.McpScope, e.McpName)
	}
}

func TestMcpIngest_EmptyConfig(t *testing.T) {
	repo := &memMcpRepo{}
	svc := NewMcpService(repo, zap.NewNop())

	resp, err := svc.Ingest(context.Background(), &domain.McpInbound{
		Host: "claude", PCName: "pc", Status: domain.McpStatusActivate,
	})
	require.NoError(t, err)

	// Пустой конфиг журналируется строкой-заглушкой
	assert.Equal(t, 1, resp.Stored)
	assert.Equal(t, domain.McpScopeLocal, resp.McpScope)
}

func TestServerScope_UnparsableURLIsExternal(t *testing.T) {
	assert.Equal(t, domain.McpScopeExternal, serverScope(domain.McpServerHTTP, "::bad::"))
	assert.Equal(t, domain.McpScopeLocal, serverScope(domain.McpServerProcess, ""))
}

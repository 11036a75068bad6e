package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/xela07ax/sentinel-server/internal/domain"
)

const mcpNumFields = 17

// InsertMcpEntries пишет все строки одного снапшота пакетно, как и журнал.
func (r *Repo) InsertMcpEntries(ctx context.Context, entries []domain.McpConfigEntry) error {
	if len(entries) == 0 {
		return nil
	}

	placeholderStr := ""
	vals := make([]interface{}, 0, len(entries)*mcpNumFields)

	for i, e := range entries {
		p := i * mcpNumFields
		ph := make([]string, mcpNumFields)
		for j := range ph {
			ph[j] = fmt.Sprintf("$%d", p+j+1)
		}
		placeholderStr += "(" + strings.Join(ph, ", ") + "),"

		vals = append(vals,
			e.SnapshotID, e.AgentTime, e.PublicIP, e.PrivateIP,
			e.Host, e.PCName, e.Status, e.FilePath, e.McpScope,
			nilIfEmpty(e.ConfigRaw),
			e.McpName, e.ServerType, e.Command,
			nilIfEmpty(e.Args), nilIfEmpty(e.Env), e.URL, nilIfEmpty(e.Headers),
		)
	}

	query := fmt.Sprintf(`INSERT INTO mcp_config_entries
		(snapshot_id, agent_time, public_ip, private_ip,
		 host, pc_name, status, file_path, mcp_scope, config_raw,
		 mcp_name, server_type, command, args, env, url, headers)
		VALUES %s`,
		strings.TrimSuffix(placeholderStr, ","),
	)

	_, err := r.pool.Exec(ctx, query, vals...)
	return err
}

// JSONB-колонки не принимают пустой []byte, нужен настоящий NULL
func nilIfEmpty(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return b
}

// McpSummary собирает сводку по АКТУАЛЬНЫМ снапшотам: для каждой пары
// (host, pc_name) учитывается только последний snapshot_id.
func (r *Repo) McpSummary(ctx context.Context) (*domain.McpConfigSummary, error) {
	sum := &domain.McpConfigSummary{
		ByScope:  map[string]int64{},
		ByStatus: map[string]int64{},
	}

	// latest — последний снапшот каждой машины; entries — его строки
	const latestCTE = `
		WITH latest AS (
			SELECT DISTINCT ON (host, pc_name) snapshot_id
			FROM mcp_config_entries
			ORDER BY host, pc_name, created_at DESC
		), entries AS (
			SELECT e.* FROM mcp_config_entries e
			JOIN latest l ON l.snapshot_id = e.snapshot_id
		)`

	err := r.pool.QueryRow(ctx, latestCTE+
		`SELECT COUNT(DISTINCT snapshot_id) FROM entries`).Scan(&sum.TotalSnapshots)
	if err != nil {
		return nil, fmt.Errorf("postgres: mcp summary total: %w", err)
	}

	rows, err := r.pool.Query(ctx, latestCTE+
		`SELECT mcp_scope, status, COUNT(*) FROM entries GROUP BY mcp_scope, status`)
	if err != nil {
		return nil, fmt.Errorf("postgres: mcp summary groups: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var scope, status string
		var n int64
		if err := rows.Scan(&scope, &status, &n); err != nil {
			return nil, err
		}
		sum.ByScope[scope] += n
		sum.ByStatus[status] += n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Область штампуется на уровне снапшота, поэтому external-строки
	// включают и процессные серверы той же машины: наружу показываем
	// только строки с URL
	ext, err := r.pool.Query(ctx, latestCTE+`
		SELECT host, pc_name, mcp_name, url FROM entries
		WHERE mcp_scope = $1 AND url <> ''
		ORDER BY host, pc_name, mcp_name`, domain.McpScopeExternal)
	if err != nil {
		return nil, fmt.Errorf("postgres: mcp external servers: %w", err)
	}
	defer ext.Close()

	for ext.Next() {
		var s domain.McpServerInfo
		if err := ext.Scan(&s.Host, &s.PCName, &s.McpName, &s.URL); err != nil {
			return nil, err
		}
		sum.ExternalServers = append(sum.ExternalServers, s)
	}
	return sum, ext.Err()
}

package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xela07ax/sentinel-server/internal/domain"
)

// Количество колонок пакетной вставки в log_records
const logNumFields = 20

// WriteBatch пишет пачку записей журнала одним INSERT.
// Вызывается пакетным писателем аудита, не горячим путем инспекции.
func (r *Repo) WriteBatch(ctx context.Context, records []domain.LogRecord) error {
	if len(records) == 0 {
		return nil
	}

	// Динамически строим запрос для пакетной вставки
	placeholderStr := ""
	vals := make([]interface{}, 0, len(records)*logNumFields)

	for i, rec := range records {
		p := i * logNumFields
		ph := make([]string, logNumFields)
		for j := range ph {
			ph[j] = fmt.Sprintf("$%d", p+j+1)
		}
		placeholderStr += "(" + strings.Join(ph, ", ") + "),"

		entities, _ := json.Marshal(rec.Entities)
		var attMeta []byte
		if rec.Attachment != nil {
			// Содержимое файла в базу не кладем, только метаданные
			attMeta, _ = json.Marshal(domain.Attachment{
				Format: rec.Attachment.Format,
				Size:   rec.Attachment.Size,
			})
		}

		vals = append(vals,
			rec.RequestID, rec.Time, rec.PublicIP, rec.PrivateIP,
			rec.Host, rec.Hostname, rec.Prompt, rec.Interface, attMeta,
			rec.ModifiedPrompt, rec.HasSensitive, entities, rec.ProcessingMs,
			rec.FileBlocked, rec.Allow, rec.Action,
			rec.RiskCategory, rec.RiskPattern,
			rec.Reason, rec.ReasonType,
		)
	}

	query := fmt.Sprintf(`INSERT INTO log_records
		(request_id, agent_time, public_ip, private_ip,
		 host, hostname, prompt, interface, attachment_meta,
		 modified_prompt, has_sensitive, entities, processing_ms,
		 file_blocked, allow_request, action,
		 risk_category, risk_pattern, reason, reason_type)
		VALUES %s ON CONFLICT (request_id) DO NOTHING`,
		strings.TrimSuffix(placeholderStr, ","),
	)

	_, err := r.pool.Exec(ctx, query, vals...)
	return err
}

const logSelectColumns = `request_id, agent_time, public_ip, private_ip,
	host, hostname, prompt, interface,
	modified_prompt, has_sensitive, entities, processing_ms,
	file_blocked, allow_request, action,
	risk_category, risk_pattern, reason, reason_type, created_at`

func scanLogRecord(row interface{ Scan(...any) error }) (domain.LogRecord, error) {
	var rec domain.LogRecord
	var entities []byte
	err := row.Scan(
		&rec.RequestID, &rec.Time, &rec.PublicIP, &rec.PrivateIP,
		&rec.Host, &rec.Hostname, &rec.Prompt, &rec.Interface,
		&rec.ModifiedPrompt, &rec.HasSensitive, &entities, &rec.ProcessingMs,
		&rec.FileBlocked, &rec.Allow, &rec.Action,
		&rec.RiskCategory, &rec.RiskPattern, &rec.Reason, &rec.ReasonType,
		&rec.CreatedAt,
	)
	if err != nil {
		return rec, err
	}
	if len(entities) > 0 {
		_ = json.Unmarshal(entities, &rec.Entities)
	}
	return rec, nil
}

// QueryLogs — выборка журнала с фильтрами дашборда, новые первыми.
func (r *Repo) QueryLogs(ctx context.Context, f domain.LogFilter) ([]domain.LogRecord, error) {
	var conds []string
	var args []interface{}

	if f.Host != "" {
		args = append(args, f.Host)
		conds = append(conds, fmt.Sprintf("host = $%d", len(args)))
	}
	if f.Action != "" {
		args = append(args, f.Action)
		conds = append(conds, fmt.Sprintf("action = $%d", len(args)))
	}
	if f.HasSensitive != nil {
		args = append(args, *f.HasSensitive)
		conds = append(conds, fmt.Sprintf("has_sensitive = $%d", len(args)))
	}

	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}

	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	args = append(args, limit)
	limitPos := len(args)
	args = append(args, f.Offset)
	offsetPos := len(args)

	query := fmt.Sprintf(`SELECT %s FROM log_records %s
		ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		logSelectColumns, where, limitPos, offsetPos)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: query logs: %w", err)
	}
	defer rows.Close()

	var out []domain.LogRecord
	for rows.Next() {
		rec, err := scanLogRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// RecentPrompts — последние записи пары (host, hostname) для контекста
// Reason-анализа. Новые первыми.
func (r *Repo) RecentPrompts(ctx context.Context, host, hostname string, limit int) ([]domain.LogRecord, error) {
	if limit <= 0 {
		limit = 5
	}
	query := fmt.Sprintf(`SELECT %s FROM log_records
		WHERE host = $1 AND hostname = $2
		ORDER BY created_at DESC LIMIT $3`, logSelectColumns)

	rows, err := r.pool.Query(ctx, query, host, hostname, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: recent prompts: %w", err)
	}
	defer rows.Close()

	var out []domain.LogRecord
	for rows.Next() {
		rec, err := scanLogRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// UpdateReason дописывает результат Reason-анализа.
// found=false означает, что пакетный писатель еще не доставил строку.
func (r *Repo) UpdateReason(ctx context.Context, requestID, reason, reasonType string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE log_records SET reason = $1, reason_type = $2 WHERE request_id = $3`,
		reason, reasonType, requestID)
	if err != nil {
		return false, fmt.Errorf("postgres: update reason: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

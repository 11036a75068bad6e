package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/xela07ax/sentinel-server/internal/domain"
)

// Максимальная длина prompt в таблице дашборда
const recentPromptLimit = 120

// DashboardSummary собирает все агрегаты главной страницы за один проход.
// Результат кэшируется сервисным слоем в Redis, поэтому здесь допустимы
// несколько последовательных запросов.
func (r *Repo) DashboardSummary(ctx context.Context) (*domain.DashboardSummary, error) {
	sum := &domain.DashboardSummary{
		TypeRatio:     map[string]int64{},
		TypeBlocked:   map[string]int64{},
		IPBandBlocked: map[string]int64{},
	}

	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM log_records WHERE has_sensitive`).Scan(&sum.TotalSensitive)
	if err != nil {
		return nil, fmt.Errorf("postgres: summary total: %w", err)
	}

	// Распределение меток сущностей: общее и только по блокировкам.
	// jsonb_array_elements разворачивает колонку entities в строки.
	rows, err := r.pool.Query(ctx, `
		SELECT ent->>'label',
		       COUNT(*),
		       COUNT(*) FILTER (WHERE action IN ($1, $2))
		FROM log_records, jsonb_array_elements(entities) AS ent
		GROUP BY 1`, domain.ActionBlock, domain.ActionBlockSimilar)
	if err != nil {
		return nil, fmt.Errorf("postgres: summary labels: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var label string
		var total, blocked int64
		if err := rows.Scan(&label, &total, &blocked); err != nil {
			return nil, err
		}
		sum.TypeRatio[label] = total
		if blocked > 0 {
			sum.TypeBlocked[label] = blocked
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Блокировки файлов без текстовой сущности (схожесть содержимого) не
	// попадают в разбор entities выше, считаем их отдельной меткой
	var similar int64
	err = r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM log_records
		WHERE file_blocked AND jsonb_array_length(entities) = 0`).Scan(&similar)
	if err != nil {
		return nil, fmt.Errorf("postgres: summary file_similar: %w", err)
	}
	if similar > 0 {
		sum.TypeBlocked["FILE_SIMILAR"] = similar
	}

	// Запросы по часам суток, серверное время. Считаем весь трафик,
	// а не только чувствительный: график показывает активность агентов
	hours, err := r.pool.Query(ctx, `
		SELECT EXTRACT(HOUR FROM created_at)::int, COUNT(*)
		FROM log_records GROUP BY 1`)
	if err != nil {
		return nil, fmt.Errorf("postgres: summary hours: %w", err)
	}
	defer hours.Close()

	for hours.Next() {
		var h int
		var n int64
		if err := hours.Scan(&h, &n); err != nil {
			return nil, err
		}
		if h >= 0 && h < 24 {
			sum.HourlyAttempts[h] = n
		}
	}
	if err := hours.Err(); err != nil {
		return nil, err
	}

	// Блокировки по диапазонам публичных IP ("203.0.*")
	bands, err := r.pool.Query(ctx, `
		SELECT public_ip, COUNT(*) FROM log_records
		WHERE action IN ($1, $2) AND public_ip <> ''
		GROUP BY public_ip`, domain.ActionBlock, domain.ActionBlockSimilar)
	if err != nil {
		return nil, fmt.Errorf("postgres: summary ip bands: %w", err)
	}
	defer bands.Close()

	for bands.Next() {
		var ip string
		var n int64
		if err := bands.Scan(&ip, &n); err != nil {
			return nil, err
		}
		sum.IPBandBlocked[IPBand(ip)] += n
	}
	if err := bands.Err(); err != nil {
		return nil, err
	}

	recent, err := r.recentLogs(ctx, 20)
	if err != nil {
		return nil, err
	}
	sum.RecentLogs = recent

	return sum, nil
}

// recentLogs — последние записи для таблицы дашборда. Значения сущностей
// срезаются до меток, prompt обрезается.
func (r *Repo) recentLogs(ctx context.Context, limit int) ([]domain.RecentLog, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT agent_time, host, hostname, public_ip, action,
		       has_sensitive, file_blocked, entities, prompt
		FROM log_records ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: recent logs: %w", err)
	}
	defer rows.Close()

	out := make([]domain.RecentLog, 0, limit)
	for rows.Next() {
		var rl domain.RecentLog
		var rawEnt []byte
		if err := rows.Scan(&rl.Time, &rl.Host, &rl.Hostname, &rl.PublicIP,
			&rl.Action, &rl.HasSensitive, &rl.FileBlocked, &rawEnt, &rl.Prompt); err != nil {
			return nil, err
		}

		var ents []domain.Entity
		_ = json.Unmarshal(rawEnt, &ents)
		for _, e := range ents {
			rl.Entities = append(rl.Entities, domain.EntityKind{Label: e.Label})
		}

		rl.Prompt = truncateRunes(rl.Prompt, recentPromptLimit)
		out = append(out, rl)
	}
	return out, rows.Err()
}

// ReasonTop — последние проанализированные утечки для страницы Reason.
func (r *Repo) ReasonTop(ctx context.Context, limit int) ([]domain.ReasonEntry, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := r.pool.Query(ctx, `
		SELECT request_id, agent_time, host, hostname,
		       reason, reason_type, risk_category, risk_pattern
		FROM log_records
		WHERE reason_type <> ''
		ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: reason top: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ReasonEntry, 0, limit)
	for rows.Next() {
		var e domain.ReasonEntry
		if err := rows.Scan(&e.RequestID, &e.Time, &e.Host, &e.Hostname,
			&e.Reason, &e.ReasonType, &e.RiskCategory, &e.RiskPattern); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ReasonSummary — распределение утечек по намерению и категориям риска.
func (r *Repo) ReasonSummary(ctx context.Context) (*domain.ReasonSummary, error) {
	sum := &domain.ReasonSummary{
		ByIntent:   map[string]int64{},
		ByCategory: map[string]int64{},
	}

	rows, err := r.pool.Query(ctx, `
		SELECT reason_type, risk_category, COUNT(*)
		FROM log_records WHERE reason_type <> ''
		GROUP BY reason_type, risk_category`)
	if err != nil {
		return nil, fmt.Errorf("postgres: reason summary: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var intent, category string
		var n int64
		if err := rows.Scan(&intent, &category, &n); err != nil {
			return nil, err
		}
		sum.ByIntent[intent] += n
		if category != "" {
			sum.ByCategory[category] += n
		}
		sum.Total += n
	}
	return sum, rows.Err()
}

// NetworkSummary — агрегаты по источникам запросов и целевым хостам.
func (r *Repo) NetworkSummary(ctx context.Context) (*domain.NetworkSummary, error) {
	sum := &domain.NetworkSummary{
		BandAttempts: map[string]int64{},
		BandBlocked:  map[string]int64{},
	}

	rows, err := r.pool.Query(ctx, `
		SELECT public_ip,
		       COUNT(*),
		       COUNT(*) FILTER (WHERE action IN ($1, $2))
		FROM log_records WHERE public_ip <> ''
		GROUP BY public_ip`, domain.ActionBlock, domain.ActionBlockSimilar)
	if err != nil {
		return nil, fmt.Errorf("postgres: network bands: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ip string
		var total, blocked int64
		if err := rows.Scan(&ip, &total, &blocked); err != nil {
			return nil, err
		}
		band := IPBand(ip)
		sum.BandAttempts[band] += total
		if blocked > 0 {
			sum.BandBlocked[band] += blocked
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	hosts, err := r.pool.Query(ctx, `
		SELECT host, COUNT(*) FROM log_records
		WHERE host <> '' GROUP BY host
		ORDER BY COUNT(*) DESC LIMIT 10`)
	if err != nil {
		return nil, fmt.Errorf("postgres: network hosts: %w", err)
	}
	defer hosts.Close()

	for hosts.Next() {
		var hc domain.HostCount
		if err := hosts.Scan(&hc.Host, &hc.Count); err != nil {
			return nil, err
		}
		sum.TopHosts = append(sum.TopHosts, hc)
	}
	return sum, hosts.Err()
}

// truncateRunes обрезает строку до limit символов, не байт: промпты
// часто на корейском, байтовый срез ломал бы UTF-8 посреди руны.
func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit]) + "..."
}

// IPBand схлопывает IPv4-адрес в диапазон "a.b.*". Адреса другого вида
// возвращаются как есть.
func IPBand(ip string) string {
	parts := strings.Split(ip, ".")
	if len(parts) != 4 {
		return ip
	}
	return parts[0] + "." + parts[1] + ".*"
}

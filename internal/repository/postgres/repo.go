package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/xela07ax/sentinel-server/internal/infra"
)

// Repo — общий доступ к PostgreSQL для всех репозиториев сервера.
// Один pgxpool на процесс; конкретные репозитории (логи, настройки,
// админ, MCP) — методы поверх него.
type Repo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewRepo(ctx context.Context, cfg infra.DatabaseConfig, logger *zap.Logger) (*Repo, error) {
	pc, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("postgres: bad connection string: %w", err)
	}
	pc.MaxConns = cfg.MaxConns
	pc.MinConns = cfg.MinConns

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("postgres: pool init: %w", err)
	}

	return &Repo{pool: pool, logger: logger.Named("postgres")}, nil
}

// Ping проверяет доступность базы при старте.
func (r *Repo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *Repo) Close() {
	r.pool.Close()
}

// Схема создается идемпотентно при каждом старте. Отдельного инструмента
// миграций нет: таблиц четыре, и ALTER-ы пока не требовались.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS log_records (
		request_id      TEXT PRIMARY KEY,
		agent_time      TEXT NOT NULL DEFAULT '',
		public_ip       TEXT NOT NULL DEFAULT '',
		private_ip      TEXT NOT NULL DEFAULT '',
		host            TEXT NOT NULL DEFAULT '',
		hostname        TEXT NOT NULL DEFAULT '',
		prompt          TEXT NOT NULL DEFAULT '',
		interface       TEXT NOT NULL DEFAULT '',
		attachment_meta JSONB,
		modified_prompt TEXT NOT NULL DEFAULT '',
		has_sensitive   BOOLEAN NOT NULL DEFAULT FALSE,
		entities        JSONB NOT NULL DEFAULT '[]',
		processing_ms   BIGINT NOT NULL DEFAULT 0,
		file_blocked    BOOLEAN NOT NULL DEFAULT FALSE,
		allow_request   BOOLEAN NOT NULL DEFAULT TRUE,
		action          TEXT NOT NULL DEFAULT 'allow',
		reason          TEXT NOT NULL DEFAULT '',
		reason_type     TEXT NOT NULL DEFAULT '',
		risk_category   TEXT NOT NULL DEFAULT '',
		risk_pattern    TEXT NOT NULL DEFAULT '',
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_log_records_created ON log_records (created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_log_records_host_pc ON log_records (host, hostname, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_log_records_sensitive ON log_records (has_sensitive) WHERE has_sensitive`,

	`CREATE TABLE IF NOT EXISTS mcp_config_entries (
		id          BIGSERIAL PRIMARY KEY,
		snapshot_id TEXT NOT NULL,
		agent_time  TEXT NOT NULL DEFAULT '',
		public_ip   TEXT NOT NULL DEFAULT '',
		private_ip  TEXT NOT NULL DEFAULT '',
		host        TEXT NOT NULL DEFAULT '',
		pc_name     TEXT NOT NULL DEFAULT '',
		status      TEXT NOT NULL DEFAULT '',
		file_path   TEXT NOT NULL DEFAULT '',
		mcp_scope   TEXT NOT NULL DEFAULT '',
		config_raw  JSONB,
		mcp_name    TEXT NOT NULL DEFAULT '',
		server_type TEXT NOT NULL DEFAULT '',
		command     TEXT NOT NULL DEFAULT '',
		args        JSONB,
		env         JSONB,
		url         TEXT NOT NULL DEFAULT '',
		headers     JSONB,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_mcp_entries_snapshot ON mcp_config_entries (snapshot_id)`,
	`CREATE INDEX IF NOT EXISTS idx_mcp_entries_host_pc ON mcp_config_entries (host, pc_name, created_at DESC)`,

	`CREATE TABLE IF NOT EXISTS settings (
		id         INT PRIMARY KEY,
		config     JSONB NOT NULL,
		version    INT NOT NULL DEFAULT 1,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS admin_account (
		id            INT PRIMARY KEY,
		username      TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		api_key       TEXT NOT NULL,
		version       INT NOT NULL DEFAULT 1,
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// Migrate приводит схему к актуальному виду.
func (r *Repo) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: migrate: %w", err)
		}
	}
	r.logger.Info("schema up to date", zap.Int("statements", len(schema)))
	return nil
}

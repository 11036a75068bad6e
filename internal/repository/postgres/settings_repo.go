package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/xela07ax/sentinel-server/internal/domain"
)

// Настройки — единственная строка с id=1.
const settingsRowID = 1

// GetSettings читает серверную политику; при первом обращении создает
// строку с дефолтами.
func (r *Repo) GetSettings(ctx context.Context) (*domain.Settings, error) {
	s := &domain.Settings{}
	var raw []byte

	err := r.pool.QueryRow(ctx,
		`SELECT config, version, updated_at FROM settings WHERE id = $1`,
		settingsRowID).Scan(&raw, &s.Version, &s.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return r.seedSettings(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get settings: %w", err)
	}

	if err := json.Unmarshal(raw, &s.Config); err != nil {
		return nil, fmt.Errorf("postgres: settings payload corrupted: %w", err)
	}
	return s, nil
}

func (r *Repo) seedSettings(ctx context.Context) (*domain.Settings, error) {
	def := domain.DefaultSettings()
	raw, _ := json.Marshal(def)

	s := &domain.Settings{Config: def}
	// ON CONFLICT закрывает гонку двух инстансов на первом старте
	err := r.pool.QueryRow(ctx, `
		INSERT INTO settings (id, config, version) VALUES ($1, $2, 1)
		ON CONFLICT (id) DO UPDATE SET id = settings.id
		RETURNING version, updated_at`,
		settingsRowID, raw).Scan(&s.Version, &s.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("postgres: seed settings: %w", err)
	}
	return s, nil
}

// UpdateSettings применяет новую политику с оптимистичной блокировкой:
// строка обновляется только если version в базе совпал с ожидаемым.
// При расхождении возвращает domain.ErrVersionConflict.
func (r *Repo) UpdateSettings(ctx context.Context, cfg domain.SettingsConfig, expectedVersion int) (*domain.Settings, error) {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: encode settings: %w", err)
	}

	s := &domain.Settings{Config: cfg}
	err = r.pool.QueryRow(ctx, `
		UPDATE settings
		SET config = $1, version = version + 1, updated_at = NOW()
		WHERE id = $2 AND version = $3
		RETURNING version, updated_at`,
		raw, settingsRowID, expectedVersion).Scan(&s.Version, &s.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrVersionConflict
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: update settings: %w", err)
	}
	return s, nil
}

package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/xela07ax/sentinel-server/internal/domain"
)

// Админ-аккаунт один, id всегда 1.
const adminRowID = 1

// GetAdmin возвращает учетку дашборда или nil, если она еще не создана.
func (r *Repo) GetAdmin(ctx context.Context) (*domain.AdminAccount, error) {
	a := &domain.AdminAccount{}
	err := r.pool.QueryRow(ctx, `
		SELECT id, username, password_hash, api_key, version, updated_at
		FROM admin_account WHERE id = $1`, adminRowID).Scan(
		&a.ID, &a.Username, &a.PasswordHash, &a.APIKey, &a.Version, &a.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get admin: %w", err)
	}
	return a, nil
}

// CreateAdmin создает учетку первого запуска. Гонку двух инстансов
// разруливает ON CONFLICT: выигравшая вставка остается.
func (r *Repo) CreateAdmin(ctx context.Context, username, passwordHash, apiKey string) (*domain.AdminAccount, error) {
	a := &domain.AdminAccount{}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO admin_account (id, username, password_hash, api_key, version)
		VALUES ($1, $2, $3, $4, 1)
		ON CONFLICT (id) DO UPDATE SET id = admin_account.id
		RETURNING id, username, password_hash, api_key, version, updated_at`,
		adminRowID, username, passwordHash, apiKey).Scan(
		&a.ID, &a.Username, &a.PasswordHash, &a.APIKey, &a.Version, &a.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: create admin: %w", err)
	}
	return a, nil
}

// RotateCredentials меняет логин и/или хэш пароля и ВСЕГДА выдает новый
// api_key с инкрементом версии: старые ключи и токены умирают мгновенно.
// Пустые username/passwordHash означают "оставить как есть".
func (r *Repo) RotateCredentials(ctx context.Context, username, passwordHash, newAPIKey string) (*domain.AdminAccount, error) {
	a := &domain.AdminAccount{}
	err := r.pool.QueryRow(ctx, `
		UPDATE admin_account SET
			username      = COALESCE(NULLIF($1, ''), username),
			password_hash = COALESCE(NULLIF($2, ''), password_hash),
			api_key       = $3,
			version       = version + 1,
			updated_at    = NOW()
		WHERE id = $4
		RETURNING id, username, password_hash, api_key, version, updated_at`,
		username, passwordHash, newAPIKey, adminRowID).Scan(
		&a.ID, &a.Username, &a.PasswordHash, &a.APIKey, &a.Version, &a.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("postgres: admin account missing")
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: rotate credentials: %w", err)
	}
	return a, nil
}

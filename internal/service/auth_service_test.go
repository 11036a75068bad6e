package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xela07ax/sentinel-server/internal/domain"
	"github.com/xela07ax/sentinel-server/internal/infra"
)

// memAdminRepo — учетка в памяти, без Postgres.
type memAdminRepo struct {
	acc *domain.AdminAccount
}

func (m *memAdminRepo) GetAdmin(context.Context) (*domain.AdminAccount, error) {
	return m.acc, nil
}

func (m *memAdminRepo) CreateAdmin(_ context.Context, username, passwordHash, apiKey string) (*domain.AdminAccount, error) {
	m.acc = &domain.AdminAccount{
		ID: 1, Username: username, PasswordHash: passwordHash,
		APIKey: apiKey, Version: 1, UpdatedAt: time.Now(),
	}
	return m.acc, nil
}

func (m *memAdminRepo) RotateCredentials(_ context.Context, username, passwordHash, newAPIKey string) (*domain.AdminAccount, error) {
	if username != "" {
		m.acc.Username = username
	}
	if passwordHash != "" {
		m.acc.PasswordHash = passwordHash
	}
	m.acc.APIKey = newAPIKey
	m.acc.Version++
	m.acc.UpdatedAt = time.Now()
	return m.acc, nil
}

func newTestAuth(t *testing.T) (*AuthService, *memAdminRepo) {
	t.Helper()
	repo := &memAdminRepo{}
	// Redis недоступен: сигналы ротации уйдут в лог, сервис должен жить
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	svc := NewAuthService(repo, rdb, infra.AuthConfig{
		BootstrapID: "admin",
		BootstrapPW: "changeme123",
		BypassKey:   "emergency-key",
		JWTSecret:   "test-secret",
		TokenTTL:    time.Hour,
		BcryptCost:  4, // MinCost, тесты не должны жечь CPU
	}, zap.NewNop())
	require.NoError(t, svc.Bootstrap(context.Background()))
	return svc, repo
}

func TestAuth_LoginSuccess(t *testing.T) {
	svc, _ := newTestAuth(t)

	resp, err := svc.Login(context.Background(), domain.LoginRequest{
		Username: "admin", Password: "changeme123",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.APIKey)
	assert.Equal(t, "admin", resp.Username)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.NotEmpty(t, resp.AccessToken)

	assert.True(t, svc.VerifyKey(resp.APIKey))
	assert.True(t, svc.VerifyToken(resp.AccessToken))
}

func TestAuth_LoginWrongPassword(t *testing.T) {
	svc, _ := newTestAuth(t)

	_, err := svc.Login(context.Background(), domain.LoginRequest{
		Username: "admin", Password: "wrong",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestAuth_LoginWrongUsername(t *testing.T) {
	svc, _ := newTestAuth(t)

	_, err := svc.Login(context.Background(), domain.LoginRequest{
		Username: "root", Password: "changeme123",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestAuth_BypassKey(t *testing.T) {
	svc, _ := newTestAuth(t)

	assert.True(t, svc.VerifyKey("emergency-key"))
	assert.False(t, svc.VerifyKey("random"))
	assert.False(t, svc.VerifyKey(""))
}

func TestAuth_RotationInvalidatesOldKeyAndToken(t *testing.T) {
	svc, _ := newTestAuth(t)

	login, err := svc.Login(context.Background(), domain.LoginRequest{
		Username: "admin", Password: "changeme123",
	})
	require.NoError(t, err)

	changed, err := svc.ChangePassword(context.Background(), "newpassword1")
	require.NoError(t, err)
	assert.NotEqual(t, login.APIKey, changed.APIKey)

	// Старый ключ и старый токен мертвы, новый ключ жив
	assert.False(t, svc.VerifyKey(login.APIKey))
	assert.False(t, svc.VerifyToken(login.AccessToken))
	assert.True(t, svc.VerifyKey(changed.APIKey))

	// Логин по новому паролю работает
	_, err = svc.Login(context.Background(), domain.LoginRequest{
		Username: "admin", Password: "newpassword1",
	})
	assert.NoError(t, err)
}

func TestAuth_ChangeUsernameRotatesKey(t *testing.T) {
	svc, _ := newTestAuth(t)

	before, err := svc.Login(context.Background(), domain.LoginRequest{
		Username: "admin", Password: "changeme123",
	})
	require.NoError(t, err)

	changed, err := svc.ChangeUsername(context.Background(), "secops")
	require.NoError(t, err)
	assert.Equal(t, "secops", changed.Username)
	assert.NotEqual(t, before.APIKey, changed.APIKey)

	// Пароль при смене логина сохраняется
	_, err = svc.Login(context.Background(), domain.LoginRequest{
		Username: "secops", Password: "changeme123",
	})
	assert.NoError(t, err)
}

func TestAuth_ShortPasswordRejected(t *testing.T) {
	svc, _ := newTestAuth(t)

	_, err := svc.ChangePassword(context.Background(), "short")
	assert.Error(t, err)
}

func TestAuth_MeHidesSecrets(t *testing.T) {
	svc, _ := newTestAuth(t)

	acc, err := svc.Me()
	require.NoError(t, err)
	assert.Equal(t, "admin", acc.Username)

	// Хэш и ключ помечены json:"-" и не должны утекать в ответ
	raw, err := json.Marshal(acc)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), acc.PasswordHash)
	assert.NotContains(t, string(raw), acc.APIKey)
}

func TestAuth_VerifyTokenGarbage(t *testing.T) {
	svc, _ := newTestAuth(t)
	assert.False(t, svc.VerifyToken("not-a-jwt"))
}

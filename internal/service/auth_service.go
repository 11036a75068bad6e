package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/xela07ax/sentinel-server/internal/domain"
	"github.com/xela07ax/sentinel-server/internal/engine"
	"github.com/xela07ax/sentinel-server/internal/infra"
)

// AdminRepository — хранилище единственной учетки дашборда.
type AdminRepository interface {
	GetAdmin(ctx context.Context) (*domain.AdminAccount, error)
	CreateAdmin(ctx context.Context, username, passwordHash, apiKey string) (*domain.AdminAccount, error)
	RotateCredentials(ctx context.Context, username, passwordHash, newAPIKey string) (*domain.AdminAccount, error)
}

// AuthService — логин, ротация учетных данных и проверка доступа к
// админ-API. Актуальная учетка кэшируется в памяти; сигнал ротации с
// других инстансов приходит через Redis Pub/Sub.
type AuthService struct {
	repo   AdminRepository
	rdb    *redis.Client
	cfg    infra.AuthConfig
	logger *zap.Logger

	mu      sync.RWMutex
	current *domain.AdminAccount
}

func NewAuthService(repo AdminRepository, rdb *redis.Client, cfg infra.AuthConfig, logger *zap.Logger) *AuthService {
	return &AuthService{
		repo:   repo,
		rdb:    rdb,
		cfg:    cfg,
		logger: logger.Named("auth"),
	}
}

// Bootstrap создает учетку первого запуска, если ее еще нет.
// Пустой bootstrap-пароль заменяется случайным (печатается в лог один раз).
func (s *AuthService) Bootstrap(ctx context.Context) error {
	acc, err := s.repo.GetAdmin(ctx)
	if err != nil {
		return err
	}
	if acc == nil {
		password := s.cfg.BootstrapPW
		generated := false
		if password == "" {
			password = newSecret(12)
			generated = true
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost())
		if err != nil {
			return fmt.Errorf("auth: hash bootstrap password: %w", err)
		}

		acc, err = s.repo.CreateAdmin(ctx, s.cfg.BootstrapID, string(hash), newSecret(32))
		if err != nil {
			return err
		}

		if generated {
			// Единственное место, где пароль попадает в лог
			s.logger.Warn("generated bootstrap admin password",
				zap.String("username", acc.Username),
				zap.String("password", password))
		}
		s.logger.Info("admin account created", zap.String("username", acc.Username))
	}

	s.mu.Lock()
	s.current = acc
	s.mu.Unlock()
	return nil
}

// Login проверяет пару логин/пароль и выдает api_key + сессионный JWT.
func (s *AuthService) Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
	acc := s.account()
	if acc == nil {
		return nil, domain.ErrInvalidCredentials
	}

	if subtle.ConstantTimeCompare([]byte(acc.Username), []byte(req.Username)) != 1 {
		// bcrypt все равно считаем: выравнивание времени ответа
		_ = bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(req.Password))
		return nil, domain.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(req.Password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	token, ttl, err := s.issueToken(acc)
	if err != nil {
		return nil, err
	}

	return &domain.LoginResponse{
		APIKey:      acc.APIKey,
		Username:    acc.Username,
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(ttl.Seconds()),
	}, nil
}

// ChangeUsername меняет логин и ротирует api_key.
func (s *AuthService) ChangeUsername(ctx context.Context, newUsername string) (*domain.ChangeResponse, error) {
	newUsername = strings.TrimSpace(newUsername)
	if newUsername == "" {
		return nil, fmt.Errorf("auth: empty username")
	}
	return s.rotate(ctx, newUsername, "")
}

// ChangePassword меняет пароль и ротирует api_key.
func (s *AuthService) ChangePassword(ctx context.Context, newPassword string) (*domain.ChangeResponse, error) {
	if len(newPassword) < 8 {
		return nil, fmt.Errorf("auth: password too short (min 8)")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.bcryptCost())
	if err != nil {
		return nil, fmt.Errorf("auth: hash password: %w", err)
	}
	return s.rotate(ctx, "", string(hash))
}

func (s *AuthService) rotate(ctx context.Context, username, passwordHash string) (*domain.ChangeResponse, error) {
	acc, err := s.repo.RotateCredentials(ctx, username, passwordHash, newSecret(32))
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.current = acc
	s.mu.Unlock()

	// Сигнал другим инстансам: перечитать учетку, сбросить старые сессии
	if err := s.rdb.Publish(ctx, infra.RedisChanAuthUpdate, "rotated").Err(); err != nil {
		s.logger.Error("auth rotation signal failed", zap.Error(err))
	}

	s.logger.Info("admin credentials rotated",
		zap.String("username", acc.Username), zap.Int("version", acc.Version))

	return &domain.ChangeResponse{
		APIKey:    acc.APIKey,
		Username:  acc.Username,
		Version:   acc.Version,
		UpdatedAt: acc.UpdatedAt.Format(time.RFC3339),
	}, nil
}

// Me отдает публичный срез учетки для страницы профиля.
func (s *AuthService) Me() (*domain.AdminAccount, error) {
	acc := s.account()
	if acc == nil {
		return nil, fmt.Errorf("auth: admin account missing")
	}
	cp := *acc
	return &cp, nil
}

// VerifyKey проверяет заголовок X-Admin-Key: аварийный ключ из ENV либо
// актуальный api_key учетки.
func (s *AuthService) VerifyKey(key string) bool {
	if key == "" {
		return false
	}
	if s.cfg.BypassKey != "" &&
		subtle.ConstantTimeCompare([]byte(key), []byte(s.cfg.BypassKey)) == 1 {
		return true
	}
	acc := s.account()
	return acc != nil &&
		subtle.ConstantTimeCompare([]byte(key), []byte(acc.APIKey)) == 1
}

// VerifyToken валидирует сессионный JWT. Токен считается живым, только
// если его key_version совпадает с текущим поколением api_key.
func (s *AuthService) VerifyToken(tokenStr string) bool {
	if s.cfg.JWTSecret == "" {
		return false
	}

	claims := &domain.SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("auth: unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return false
	}

	acc := s.account()
	return acc != nil && claims.KeyVersion == acc.Version
}

func (s *AuthService) issueToken(acc *domain.AdminAccount) (string, time.Duration, error) {
	if s.cfg.JWTSecret == "" {
		// Без секрета работаем только на api_key
		return "", 0, nil
	}

	ttl := s.cfg.TokenTTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}

	claims := domain.SessionClaims{
		Username:   acc.Username,
		KeyVersion: acc.Version,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "sentinel-server",
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
		SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", 0, fmt.Errorf("auth: sign token: %w", err)
	}
	return token, ttl, nil
}

// Refresh перечитывает учетку из Postgres (сигнал ротации с другого инстанса).
func (s *AuthService) Refresh(ctx context.Context) error {
	acc, err := s.repo.GetAdmin(ctx)
	if err != nil {
		return err
	}
	if acc == nil {
		return fmt.Errorf("auth: admin account missing")
	}
	s.mu.Lock()
	s.current = acc
	s.mu.Unlock()
	return nil
}

// StartListener держит подписку на сигнал ротации. Блокирующий вызов.
func (s *AuthService) StartListener(ctx context.Context) {
	engine.ListenResilient(ctx, s.rdb, s.logger, infra.RedisChanAuthUpdate,
		func() error { return s.Refresh(ctx) },
		func(string) {
			if err := s.Refresh(ctx); err != nil {
				s.logger.Error("auth refresh on signal failed", zap.Error(err))
			}
		},
	)
}

func (s *AuthService) account() *domain.AdminAccount {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *AuthService) bcryptCost() int {
	if s.cfg.BcryptCost < bcrypt.MinCost || s.cfg.BcryptCost > bcrypt.MaxCost {
		return bcrypt.DefaultCost
	}
	return s.cfg.BcryptCost
}

// newSecret — криптослучайная hex-строка длиной n байт источника.
func newSecret(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(err) // /dev/urandom недоступен — жить все равно нельзя
	}
	return hex.EncodeToString(b)
}

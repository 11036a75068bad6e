package domain

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrVersionConflict    = errors.New("version conflict")
)

// AdminAccount — единственная учетная запись дашборда (id всегда 1).
// api_key ротируется при каждой смене логина или пароля, что мгновенно
// инвалидирует все выданные ранее ключи и сессионные токены.
type AdminAccount struct {
	ID           int       `json:"-"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // bcrypt, никогда не отдаем наружу
	APIKey       string    `json:"-"`
	Version      int       `json:"version"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SessionClaims — полезная нагрузка сессионного JWT (HS256).
// KeyVersion привязывает токен к поколению api_key: после ротации
// старые токены перестают проходить проверку.
type SessionClaims struct {
	Username   string `json:"username"`
	KeyVersion int    `json:"key_version"`
	jwt.RegisteredClaims
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse — ключ для заголовка X-Admin-Key плюс сессионный JWT.
type LoginResponse struct {
	APIKey      string `json:"api_key"`
	Username    string `json:"username"`
	AccessToken string `json:"access_token,omitempty"`
	TokenType   string `json:"token_type,omitempty"` // Всегда "Bearer"
	ExpiresIn   int64  `json:"expires_in,omitempty"`
}

type ChangeIDRequest struct {
	NewUsername string `json:"new_username"`
}

type ChangePasswordRequest struct {
	NewPassword string `json:"new_password"`
}

// ChangeResponse — результат ротации учетных данных.
type ChangeResponse struct {
	APIKey    string `json:"api_key"`
	Username  string `json:"username"`
	Version   int    `json:"version"`
	UpdatedAt string `json:"updated_at"`
}

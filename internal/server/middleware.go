package server

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// KeyVerifier Описываем, что нам нужно от слоя аутентификации
type KeyVerifier interface {
	VerifyKey(key string) bool
	VerifyToken(token string) bool
}

// AdminOnly пускает дальше только запросы дашборда с действующим
// X-Admin-Key либо сессионным Bearer-токеном.
func AdminOnly(verifier KeyVerifier, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key := r.Header.Get("X-Admin-Key"); key != "" && verifier.VerifyKey(key) {
				next.ServeHTTP(w, r)
				return
			}

			if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
				if verifier.VerifyToken(strings.TrimPrefix(auth, "Bearer ")) {
					next.ServeHTTP(w, r)
					return
				}
			}

			logger.Warn("admin api access denied",
				zap.String("path", r.URL.Path),
				zap.String("remote", r.RemoteAddr))

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
		})
	}
}

// SecurityHeaders — базовая гигиена ответов дашборда.
// CSP разрешает cdn.jsdelivr.net: оттуда дашборд тянет chart.js.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Content-Security-Policy",
			"default-src 'self'; script-src 'self' https://cdn.jsdelivr.net; "+
				"style-src 'self' 'unsafe-inline'; img-src 'self' data:")
		next.ServeHTTP(w, r)
	})
}

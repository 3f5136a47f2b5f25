// pkg/middleware/jwt.go
package middleware

import (
	"context"
	"net/http"
	"strings"

	"signaltrader/pkg/jwt"
)

type contextKey string

// SubjectKey ключ контекста с subject проверенного токена
const SubjectKey contextKey = "subject"

// JWTAuth возвращает middleware, проверяющий Bearer токен
func JWTAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if auth == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			parts := strings.SplitN(auth, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			subject, err := jwt.ParseToken(secret, parts[1])
			if err != nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), SubjectKey, subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Package middlewarectx содержит middleware внутренних маршрутов.
package middlewarectx

import (
	"crypto/hmac"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/speakly/billing-engine/internal/http/response"
)

// AdminTokenHeader — заголовок с токеном внутреннего API.
const AdminTokenHeader = "X-Admin-Token"

// AdminTokenMiddleware закрывает внутренние маршруты общим токеном.
// Пустой настроенный токен запрещает доступ целиком.
func AdminTokenMiddleware(log *slog.Logger, token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(AdminTokenHeader)
			if token == "" || got == "" || !hmac.Equal([]byte(token), []byte(got)) {
				log.Warn("rejected internal api request", slog.String("path", r.URL.Path))
				w.WriteHeader(http.StatusUnauthorized)
				render.JSON(w, r, response.Error("unauthorized"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

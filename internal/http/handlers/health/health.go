// Package health — проверка живости вебхук-сервера.
package health

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/speakly/billing-engine/internal/http/response"
)

// Pinger проверяет доступность хранилища.
type Pinger interface {
	Ping() error
}

// Handler — HTTP-обработчик /health.
type Handler struct {
	log *slog.Logger
	db  Pinger
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, db Pinger) *Handler {
	return &Handler{
		log: log,
		db:  db,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.health"

	if err := h.db.Ping(); err != nil {
		h.log.Error("database ping failed", slog.String("op", op), slog.String("error", err.Error()))
		w.WriteHeader(http.StatusServiceUnavailable)
		render.JSON(w, r, response.Error("database unavailable"))
		return
	}

	w.WriteHeader(http.StatusOK)
	render.JSON(w, r, response.OK())
}

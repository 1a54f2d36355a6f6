// Package revenue отдаёт сумму завершённых платежей за период.
package revenue

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"github.com/speakly/billing-engine/internal/http/response"
	"github.com/speakly/billing-engine/internal/lib/sl"
)

// Repository определяет операции хранилища для отчёта о выручке.
type Repository interface {
	TotalRevenue(ctx context.Context, since time.Time) (int64, error)
}

// Handler — HTTP-обработчик отчёта о выручке.
type Handler struct {
	log  *slog.Logger
	repo Repository
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, repo Repository) *Handler {
	return &Handler{log: log, repo: repo}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.revenue"
	log := h.log.With(slog.String("op", op))

	// Без параметра since считается выручка за всё время.
	var since time.Time
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("since must be RFC3339"))
			return
		}
		since = parsed.UTC()
	}

	total, err := h.repo.TotalRevenue(r.Context(), since)
	if err != nil {
		log.Error("failed to sum revenue", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	w.WriteHeader(http.StatusOK)
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"total": total,
		"since": since,
	}))
}

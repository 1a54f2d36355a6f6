// Package useractivity фиксирует отметку последней активности пользователя.
package useractivity

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"

	"github.com/speakly/billing-engine/internal/http/response"
	"github.com/speakly/billing-engine/internal/lib/clock"
	"github.com/speakly/billing-engine/internal/lib/sl"
)

// Repository определяет операции хранилища для отметки активности.
type Repository interface {
	UpdateLastActive(ctx context.Context, userID int64, now time.Time) error
}

// Handler — HTTP-обработчик отметки активности.
type Handler struct {
	log   *slog.Logger
	repo  Repository
	clock clock.Clock
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, repo Repository, clk clock.Clock) *Handler {
	return &Handler{log: log, repo: repo, clock: clk}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.useractivity"
	log := h.log.With(slog.String("op", op))

	userID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid user id"))
		return
	}

	if err := h.repo.UpdateLastActive(r.Context(), userID, h.clock.Now()); err != nil {
		log.Error("failed to update last active", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	w.WriteHeader(http.StatusOK)
	render.JSON(w, r, response.OK())
}

// Package userblock ставит и снимает блокировку пользователя.
// Блокировку выставляет бот, когда пользователь останавливает его.
package userblock

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"

	"github.com/speakly/billing-engine/internal/http/response"
	"github.com/speakly/billing-engine/internal/lib/sl"
)

// Repository определяет операции хранилища для блокировки.
type Repository interface {
	SetBlocked(ctx context.Context, userID int64, blocked bool) error
}

// Handler — HTTP-обработчик блокировки пользователя.
type Handler struct {
	log  *slog.Logger
	repo Repository
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, repo Repository) *Handler {
	return &Handler{log: log, repo: repo}
}

// Block выставляет блокировку.
func (h *Handler) Block(w http.ResponseWriter, r *http.Request) {
	h.setBlocked(w, r, true)
}

// Unblock снимает блокировку.
func (h *Handler) Unblock(w http.ResponseWriter, r *http.Request) {
	h.setBlocked(w, r, false)
}

func (h *Handler) setBlocked(w http.ResponseWriter, r *http.Request, blocked bool) {
	const op = "handlers.userblock"
	log := h.log.With(slog.String("op", op))

	userID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid user id"))
		return
	}

	if err := h.repo.SetBlocked(r.Context(), userID, blocked); err != nil {
		log.Error("failed to update block flag", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	log.Info("block flag updated",
		slog.Int64("user_id", userID), slog.Bool("blocked", blocked))
	w.WriteHeader(http.StatusOK)
	render.JSON(w, r, response.OK())
}

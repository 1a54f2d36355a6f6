// Package premiumrevoke — ручной отзыв premium (возвраты, злоупотребления).
package premiumrevoke

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"

	"github.com/speakly/billing-engine/internal/http/response"
	"github.com/speakly/billing-engine/internal/lib/sl"
	"github.com/speakly/billing-engine/internal/storage/repository"
)

// Service отзывает premium.
type Service interface {
	RemovePremium(ctx context.Context, userID int64) error
}

// Handler — HTTP-обработчик отзыва premium.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.premiumrevoke"
	log := h.log.With(slog.String("op", op))

	userID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid user id"))
		return
	}

	if err := h.service.RemovePremium(r.Context(), userID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("user not found"))
			return
		}
		log.Error("failed to revoke premium", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to revoke premium"))
		return
	}

	log.Info("premium revoked", slog.Int64("user_id", userID))
	w.WriteHeader(http.StatusOK)
	render.JSON(w, r, response.OK())
}

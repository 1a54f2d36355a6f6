// Package paymenthistory отдаёт историю начислений пользователя.
package paymenthistory

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"

	"github.com/speakly/billing-engine/internal/http/response"
	"github.com/speakly/billing-engine/internal/lib/sl"
	"github.com/speakly/billing-engine/internal/models"
)

// Repository читает историю платежей.
type Repository interface {
	ListPayments(ctx context.Context, userID int64) ([]*models.Payment, error)
}

// Item — одна запись истории в ответе.
type Item struct {
	UID         string    `json:"uid"`
	Amount      int       `json:"amount"`
	Currency    string    `json:"currency"`
	Status      string    `json:"status"`
	DaysGranted int       `json:"days_granted"`
	Source      string    `json:"source"`
	CreatedAt   time.Time `json:"created_at"`
}

// Handler — HTTP-обработчик истории платежей.
type Handler struct {
	log  *slog.Logger
	repo Repository
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, repo Repository) *Handler {
	return &Handler{
		log:  log,
		repo: repo,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.paymenthistory"
	log := h.log.With(slog.String("op", op))

	userID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid user id"))
		return
	}

	payments, err := h.repo.ListPayments(r.Context(), userID)
	if err != nil {
		log.Error("failed to list payments", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	items := make([]Item, 0, len(payments))
	for _, p := range payments {
		items = append(items, Item{
			UID:         p.UID,
			Amount:      p.Amount,
			Currency:    p.Currency,
			Status:      p.Status,
			DaysGranted: p.DaysGranted,
			Source:      p.Source,
			CreatedAt:   p.CreatedAt,
		})
	}

	w.WriteHeader(http.StatusOK)
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"payments": items,
	}))
}

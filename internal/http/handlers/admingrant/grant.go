// Package admingrant — ручное начисление premium-дней (поддержка, промо).
package admingrant

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/speakly/billing-engine/internal/http/response"
	"github.com/speakly/billing-engine/internal/lib/sl"
	"github.com/speakly/billing-engine/internal/models"
	"github.com/speakly/billing-engine/internal/services/credit"
	"github.com/speakly/billing-engine/internal/services/payment"
	"github.com/speakly/billing-engine/internal/storage/repository"
)

// Service начисляет premium-дни с записью в историю платежей.
type Service interface {
	AdminGrant(ctx context.Context, userID int64, days int, source string) (time.Time, error)
}

// Request — тело запроса на начисление.
type Request struct {
	Days   int    `json:"days" validate:"required,gt=0"`
	Source string `json:"source"`
}

// Handler — HTTP-обработчик ручного начисления.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admingrant"
	log := h.log.With(slog.String("op", op))

	userID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid user id"))
		return
	}

	var req Request
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("failed to decode request"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		var validateErrs validator.ValidationErrors
		if errors.As(err, &validateErrs) {
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.ValidationError(validateErrs))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	source := req.Source
	if source == "" {
		source = models.PaymentSourceAdmin
	}

	newUntil, err := h.service.AdminGrant(r.Context(), userID, req.Days, source)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrUserNotFound):
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("user not found"))
		case errors.Is(err, credit.ErrInvalidDays):
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("days must be positive"))
		case errors.Is(err, payment.ErrUnsupportedSource):
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("unsupported source"))
		default:
			log.Error("failed to grant premium days", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("failed to grant days"))
		}
		return
	}

	log.Info("manual grant applied",
		slog.Int64("user_id", userID),
		slog.Int("days", req.Days),
		slog.String("source", source))
	w.WriteHeader(http.StatusOK)
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"premium_until": newUntil,
	}))
}

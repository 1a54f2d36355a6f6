// Package userstatus отдаёт коллабораторам статус подписки пользователя,
// остаток дневных лимитов и реферальную статистику.
package userstatus

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"

	"github.com/speakly/billing-engine/internal/entitlement"
	"github.com/speakly/billing-engine/internal/http/response"
	"github.com/speakly/billing-engine/internal/lib/clock"
	"github.com/speakly/billing-engine/internal/lib/sl"
	"github.com/speakly/billing-engine/internal/models"
	"github.com/speakly/billing-engine/internal/storage/repository"
	"github.com/speakly/billing-engine/internal/storage/usage"
)

// Repository определяет операции хранилища для экрана статуса.
type Repository interface {
	GetUser(ctx context.Context, userID int64) (*models.User, error)
	CountReferrals(ctx context.Context, referrerID int64) (total, subscribed int, err error)
}

// UsageCounter читает дневные счётчики использования.
type UsageCounter interface {
	Count(ctx context.Context, userID int64, kind string, day time.Time) (int, error)
}

// Handler — HTTP-обработчик статуса пользователя.
type Handler struct {
	log        *slog.Logger
	repo       Repository
	usage      UsageCounter
	clock      clock.Clock
	trialDays  int
	textLimit  int
	voiceLimit int
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, repo Repository, counter UsageCounter, clk clock.Clock, trialDays, textLimit, voiceLimit int) *Handler {
	return &Handler{
		log:        log,
		repo:       repo,
		usage:      counter,
		clock:      clk,
		trialDays:  trialDays,
		textLimit:  textLimit,
		voiceLimit: voiceLimit,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.userstatus"
	log := h.log.With(slog.String("op", op))

	userID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid user id"))
		return
	}

	user, err := h.repo.GetUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("user not found"))
			return
		}
		log.Error("failed to load user", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	now := h.clock.Now()
	status := entitlement.Resolve(user, now, h.trialDays)

	data := map[string]any{
		"user_id": user.ID,
		"status":  string(status),
	}
	if user.PremiumUntil != nil {
		data["premium_until"] = user.PremiumUntil
	}

	total, subscribed, err := h.repo.CountReferrals(r.Context(), userID)
	if err != nil {
		log.Error("failed to count referrals", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}
	data["referrals_total"] = total
	data["referrals_subscribed"] = subscribed

	// Остаток лимитов показывается только free-пользователям,
	// premium и trial не ограничены.
	if status == entitlement.StatusFree {
		textUsed, err := h.usage.Count(r.Context(), userID, usage.KindText, now)
		if err != nil {
			log.Error("failed to read text usage", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("internal error"))
			return
		}
		voiceUsed, err := h.usage.Count(r.Context(), userID, usage.KindVoice, now)
		if err != nil {
			log.Error("failed to read voice usage", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("internal error"))
			return
		}
		data["limits"] = map[string]any{
			"text_used":   textUsed,
			"text_limit":  h.textLimit,
			"voice_used":  voiceUsed,
			"voice_limit": h.voiceLimit,
		}
	}

	w.WriteHeader(http.StatusOK)
	render.JSON(w, r, response.StatusOKWithData(data))
}

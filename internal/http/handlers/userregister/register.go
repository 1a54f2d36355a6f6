// Package userregister регистрирует пользователя в биллинге. Вызывается
// ботом при /start, опционально с кодом приглашения из deep-link.
package userregister

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/speakly/billing-engine/internal/http/response"
	"github.com/speakly/billing-engine/internal/lib/sl"
	"github.com/speakly/billing-engine/internal/models"
	"github.com/speakly/billing-engine/internal/storage/repository"
)

// Repository определяет операции хранилища для регистрации.
type Repository interface {
	CreateUser(ctx context.Context, user models.User) (*models.User, error)
	GetUserByReferralCode(ctx context.Context, code string) (*models.User, error)
	CreateReferral(ctx context.Context, referrerID, referredID int64) (bool, error)
}

// Request — тело запроса регистрации. ReferralCode — код пригласившего,
// не собственный код регистрируемого.
type Request struct {
	ID           int64  `json:"id" validate:"required"`
	Username     string `json:"username"`
	FirstName    string `json:"first_name"`
	LanguageCode string `json:"language_code"`
	ReferralCode string `json:"referral_code"`
}

// Handler — HTTP-обработчик регистрации пользователя.
type Handler struct {
	log      *slog.Logger
	repo     Repository
	validate *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, repo Repository) *Handler {
	return &Handler{
		log:      log,
		repo:     repo,
		validate: validator.New(),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.userregister"
	log := h.log.With(slog.String("op", op))

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

	log = log.With(slog.Int64("user_id", req.ID))

	// Невалидный или собственный код приглашения не срывает регистрацию.
	var referrer *models.User
	if req.ReferralCode != "" {
		u, err := h.repo.GetUserByReferralCode(r.Context(), req.ReferralCode)
		switch {
		case errors.Is(err, repository.ErrUserNotFound):
			log.Warn("unknown referral code ignored", slog.String("code", req.ReferralCode))
		case err != nil:
			log.Error("failed to resolve referral code", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("internal error"))
			return
		case u.ID == req.ID:
			log.Warn("self referral ignored")
		default:
			referrer = u
		}
	}

	newUser := models.User{
		ID:           req.ID,
		Username:     req.Username,
		FirstName:    req.FirstName,
		LanguageCode: req.LanguageCode,
	}
	if referrer != nil {
		newUser.ReferrerID = &referrer.ID
	}

	user, err := h.repo.CreateUser(r.Context(), newUser)
	if err != nil {
		log.Error("failed to create user", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to create user"))
		return
	}

	// Связь создаётся только если пригласивший закрепился за записью:
	// повторный /start уже зарегистрированного пользователя не
	// переписывает его реферала.
	if referrer != nil && user.ReferrerID != nil && *user.ReferrerID == referrer.ID {
		created, err := h.repo.CreateReferral(r.Context(), referrer.ID, user.ID)
		if err != nil {
			log.Error("failed to create referral", sl.Err(err))
		} else if created {
			log.Info("referral registered", slog.Int64("referrer_id", referrer.ID))
		}
	}

	log.Info("user registered")
	w.WriteHeader(http.StatusCreated)
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"user_id":       user.ID,
		"referral_code": user.ReferralCode,
	}))
}

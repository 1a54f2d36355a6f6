// Package payment обрабатывает платёжные события провайдера: начисляет
// premium-дни, фиксирует запись в истории платежей и ровно один раз
// продвигает реферальную связь в subscribed с бонусом пригласившему.
// Идемпотентность строится на уникальности ключа события в таблице
// payments, поэтому повторная доставка вебхука безопасна.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/speakly/billing-engine/internal/lib/clock"
	"github.com/speakly/billing-engine/internal/lib/sl"
	"github.com/speakly/billing-engine/internal/models"
	"github.com/speakly/billing-engine/internal/storage/repository"
	"github.com/speakly/billing-engine/internal/tribute"
)

// ErrUnsupportedSource возвращается на источник ручного начисления,
// отличный от admin и promo.
var ErrUnsupportedSource = errors.New("unsupported grant source")

// Repository определяет операции хранилища, нужные обработке платежей.
type Repository interface {
	GetUser(ctx context.Context, userID int64) (*models.User, error)
	CreatePayment(ctx context.Context, p models.Payment) (int, error)
	CreatePaymentAndExtendPremium(ctx context.Context, p models.Payment, now time.Time) (time.Time, error)
	PaymentEventProcessed(ctx context.Context, providerEventID string) (bool, error)
	GetReferralByReferred(ctx context.Context, referredID int64) (*models.Referral, error)
	MarkReferralSubscribed(ctx context.Context, referredID int64, bonusDays int) (bool, error)
}

// Creditor начисляет и снимает premium-дни.
type Creditor interface {
	GrantDays(ctx context.Context, userID int64, days int) (time.Time, error)
	RemovePremium(ctx context.Context, userID int64) error
}

// Publisher публикует уведомления. Доставка best-effort: ошибка
// публикации не откатывает уже начисленные дни.
type Publisher interface {
	Publish(routingKey string, message any) error
}

// Service — сервис обработки платежей.
type Service struct {
	repo        Repository
	creditor    Creditor
	publisher   Publisher
	premiumDays int
	clock       clock.Clock
	log         *slog.Logger
}

// New создает новый экземпляр Service.
func New(repo Repository, creditor Creditor, publisher Publisher, premiumDays int, clk clock.Clock, log *slog.Logger) *Service {
	return &Service{
		repo:        repo,
		creditor:    creditor,
		publisher:   publisher,
		premiumDays: premiumDays,
		clock:       clk,
		log:         log,
	}
}

// Result — итог обработки платёжного события.
type Result struct {
	PremiumUntil time.Time
	// Duplicate означает, что событие уже обрабатывалось ранее
	// и повторная доставка подтверждена без начисления.
	Duplicate bool
}

// ProcessNewDigitalProduct обрабатывает покупку подписки.
// body — точное тело запроса вебхука, из него строится ключ
// идемпотентности, если провайдер не прислал payment_id.
func (s *Service) ProcessNewDigitalProduct(ctx context.Context, e *tribute.NewDigitalProduct, body []byte) (Result, error) {
	const op = "payment.ProcessNewDigitalProduct"
	log := s.log.With(slog.String("op", op), slog.Int64("user_id", e.TelegramUserID))

	eventKey := tribute.EventKey(e, body)

	processed, err := s.repo.PaymentEventProcessed(ctx, eventKey)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}
	if processed {
		log.Info("duplicate payment event acknowledged", slog.String("event_key", eventKey))
		return Result{Duplicate: true}, nil
	}

	user, err := s.repo.GetUser(ctx, e.TelegramUserID)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}

	currency := e.Currency
	if currency == "" {
		currency = "RUB"
	}

	// Запись платежа и продление идут одной транзакцией: уникальный
	// индекс по ключу события закрывает гонку двух одновременных
	// доставок, а сбой продления откатывает и запись о платеже, так
	// что повторная доставка дообработает событие.
	newUntil, err := s.repo.CreatePaymentAndExtendPremium(ctx, models.Payment{
		UserID:            user.ID,
		Amount:            e.Amount,
		Currency:          currency,
		ProviderEventID:   eventKey,
		ProviderReference: e.ProductID.String(),
		Status:            models.PaymentStatusCompleted,
		DaysGranted:       s.premiumDays,
		Source:            models.PaymentSourcePayment,
	}, s.clock.Now())
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEvent) {
			log.Info("concurrent duplicate payment event acknowledged", slog.String("event_key", eventKey))
			return Result{Duplicate: true}, nil
		}
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}

	s.propagateReferralBonus(ctx, log, user.ID)

	if err := s.publisher.Publish(models.NotificationPremiumActivated, models.Notification{
		UserID:       user.ID,
		Kind:         models.NotificationPremiumActivated,
		PremiumUntil: &newUntil,
	}); err != nil {
		log.Error("failed to publish premium activated notification", sl.Err(err))
	}

	return Result{PremiumUntil: newUntil}, nil
}

// propagateReferralBonus начисляет бонус пригласившему, если оплативший
// был приведён по реферальной ссылке и связь ещё в статусе registered.
// Переход registered -> subscribed выполняется условным UPDATE, поэтому
// бонус начисляется не более одного раза за всю жизнь связи.
// Сбои здесь не откатывают платёж: дни покупателю уже начислены.
func (s *Service) propagateReferralBonus(ctx context.Context, log *slog.Logger, referredID int64) {
	ref, err := s.repo.GetReferralByReferred(ctx, referredID)
	if err != nil {
		log.Error("failed to load referral", sl.Err(err))
		return
	}
	if ref == nil || ref.Status != models.ReferralStatusRegistered {
		return
	}

	won, err := s.repo.MarkReferralSubscribed(ctx, referredID, s.premiumDays)
	if err != nil {
		log.Error("failed to mark referral subscribed", sl.Err(err))
		return
	}
	if !won {
		return
	}

	log = log.With(slog.Int64("referrer_id", ref.ReferrerID))

	bonusUntil, err := s.creditor.GrantDays(ctx, ref.ReferrerID, s.premiumDays)
	if err != nil {
		log.Error("failed to grant referral bonus", sl.Err(err))
		return
	}

	if _, err := s.repo.CreatePayment(ctx, models.Payment{
		UserID:            ref.ReferrerID,
		Currency:          "RUB",
		ProviderReference: fmt.Sprintf("referral:%d", referredID),
		Status:            models.PaymentStatusCompleted,
		DaysGranted:       s.premiumDays,
		Source:            models.PaymentSourceReferral,
	}); err != nil {
		log.Error("failed to record referral bonus payment", sl.Err(err))
	}

	if err := s.publisher.Publish(models.NotificationReferralBonus, models.Notification{
		UserID:       ref.ReferrerID,
		Kind:         models.NotificationReferralBonus,
		PremiumUntil: &bonusUntil,
	}); err != nil {
		log.Error("failed to publish referral bonus notification", sl.Err(err))
	}
}

// AdminGrant начисляет premium-дни вручную с источником admin или promo
// и фиксирует запись в истории платежей.
func (s *Service) AdminGrant(ctx context.Context, userID int64, days int, source string) (time.Time, error) {
	const op = "payment.AdminGrant"

	if source != models.PaymentSourceAdmin && source != models.PaymentSourcePromo {
		return time.Time{}, fmt.Errorf("%s: %w: %q", op, ErrUnsupportedSource, source)
	}

	newUntil, err := s.creditor.GrantDays(ctx, userID, days)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	if _, err := s.repo.CreatePayment(ctx, models.Payment{
		UserID:      userID,
		Currency:    "RUB",
		Status:      models.PaymentStatusCompleted,
		DaysGranted: days,
		Source:      source,
	}); err != nil {
		s.log.Error("failed to record manual grant", sl.Err(err), slog.Int64("user_id", userID))
	}

	return newUntil, nil
}

// Package sender превращает сообщения из очередей уведомлений
// в Telegram-сообщения пользователям.
package sender

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/speakly/billing-engine/internal/models"
)

// Messenger отправляет сообщения пользователю.
type Messenger interface {
	SendMessage(chatID int64, text string) error
	SendMessageWithPaymentButton(chatID int64, text string) error
}

// Service — отправитель уведомлений.
type Service struct {
	messenger Messenger
	log       *slog.Logger
}

// New создает новый экземпляр Service.
func New(messenger Messenger, log *slog.Logger) *Service {
	return &Service{
		messenger: messenger,
		log:       log,
	}
}

// SendTrialExpired уведомляет об окончании пробного периода.
func (s *Service) SendTrialExpired(body []byte) error {
	const op = "sender.SendTrialExpired"

	n, err := decode(body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	text := "Пробный период закончился 😢\n\n" +
		"Чтобы продолжить заниматься без ограничений, оформите подписку."
	if err := s.messenger.SendMessageWithPaymentButton(n.UserID, text); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("trial expired notification sent", slog.Int64("user_id", n.UserID))
	return nil
}

// SendPremiumExpired уведомляет об окончании подписки.
func (s *Service) SendPremiumExpired(body []byte) error {
	const op = "sender.SendPremiumExpired"

	n, err := decode(body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	text := "Срок подписки истёк 😢\n\n" +
		"Продлите подписку, чтобы вернуть полный доступ к занятиям."
	if err := s.messenger.SendMessageWithPaymentButton(n.UserID, text); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("premium expired notification sent", slog.Int64("user_id", n.UserID))
	return nil
}

// SendPremiumActivated подтверждает активацию подписки.
func (s *Service) SendPremiumActivated(body []byte) error {
	const op = "sender.SendPremiumActivated"

	n, err := decode(body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	text := "Подписка активирована! 🎉"
	if n.PremiumUntil != nil {
		text = fmt.Sprintf("Подписка активирована! 🎉\n\nДействует до <b>%s</b>.",
			formatDate(*n.PremiumUntil))
	}
	if err := s.messenger.SendMessage(n.UserID, text); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("premium activated notification sent", slog.Int64("user_id", n.UserID))
	return nil
}

// SendReferralBonus сообщает пригласившему о бонусных днях.
func (s *Service) SendReferralBonus(body []byte) error {
	const op = "sender.SendReferralBonus"

	n, err := decode(body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	text := "Ваш друг оформил подписку — вам начислены бонусные дни! 🎁"
	if n.PremiumUntil != nil {
		text = fmt.Sprintf(
			"Ваш друг оформил подписку — вам начислены бонусные дни! 🎁\n\nПодписка действует до <b>%s</b>.",
			formatDate(*n.PremiumUntil))
	}
	if err := s.messenger.SendMessage(n.UserID, text); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("referral bonus notification sent", slog.Int64("user_id", n.UserID))
	return nil
}

func decode(body []byte) (models.Notification, error) {
	var n models.Notification
	if err := json.Unmarshal(body, &n); err != nil {
		return models.Notification{}, fmt.Errorf("unmarshal notification: %w", err)
	}
	return n, nil
}

func formatDate(t time.Time) string {
	return t.Format("02.01.2006")
}

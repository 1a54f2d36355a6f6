package models

import "time"

// Виды уведомлений, совпадают с ключами маршрутизации RabbitMQ.
const (
	NotificationTrialExpired     = "trial.expired"
	NotificationPremiumExpired   = "premium.expired"
	NotificationPremiumActivated = "premium.activated"
	NotificationReferralBonus    = "referral.bonus"
)

// Notification — сообщение для отправителя уведомлений.
// Публикуется в RabbitMQ вебхуком и планировщиком, доставка best-effort.
type Notification struct {
	UserID       int64      `json:"user_id"`
	Kind         string     `json:"kind"`
	PremiumUntil *time.Time `json:"premium_until,omitempty"`
}

package rabbitmq

import "github.com/speakly/billing-engine/internal/models"

// Exchange — общий exchange уведомлений биллингового ядра.
const Exchange = "billing.notifications"

// QueueConfig описывает очередь и ключ маршрутизации.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// GetNotificationQueues возвращает очереди отправителя уведомлений.
// Ключи маршрутизации совпадают с видами уведомлений.
func GetNotificationQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "notification.trial-expired", RoutingKey: models.NotificationTrialExpired},
		{QueueName: "notification.premium-expired", RoutingKey: models.NotificationPremiumExpired},
		{QueueName: "notification.premium-activated", RoutingKey: models.NotificationPremiumActivated},
		{QueueName: "notification.referral-bonus", RoutingKey: models.NotificationReferralBonus},
	}
}

// Package models содержит доменные структуры биллингового ядра:
// пользователь с его правом доступа, платежи и реферальные записи.
package models

import "time"

// User представляет пользователя Telegram с полями entitlement.
// PremiumUntil == nil означает, что оплаченного доступа нет и статус
// определяется пробным периодом от CreatedAt.
type User struct {
	ID           int64  // Telegram user ID
	Username     string
	FirstName    string
	LanguageCode string

	PremiumUntil           *time.Time // до какого момента действует Premium
	TrialNotified          bool       // уведомление об окончании триала уже отправлялось
	PremiumExpiredNotified bool       // уведомление об окончании Premium уже отправлялось

	ReferrerID   *int64 // кто пригласил, выставляется один раз при регистрации
	ReferralCode string

	IsBlocked    bool
	CreatedAt    time.Time
	LastActiveAt time.Time
}

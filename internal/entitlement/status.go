// Package entitlement определяет статус доступа пользователя.
// Resolve — чистая функция без побочных эффектов: одно и то же
// состояние пользователя и время всегда дают один и тот же статус.
package entitlement

import (
	"time"

	"github.com/speakly/billing-engine/internal/models"
)

// Status — уровень доступа пользователя.
type Status string

const (
	StatusPremium Status = "premium"
	StatusTrial   Status = "trial"
	StatusFree    Status = "free"
)

// Resolve вычисляет статус на момент now. Порядок проверок фиксирован:
// действующий premium, затем пробный период, иначе free.
// Сравнения строгие: на границе (premium_until == now или конец триала == now)
// пользователь уже считается уровнем ниже.
func Resolve(u *models.User, now time.Time, trialDays int) Status {
	if u.PremiumUntil != nil && u.PremiumUntil.After(now) {
		return StatusPremium
	}
	trialEnd := u.CreatedAt.Add(time.Duration(trialDays) * 24 * time.Hour)
	if now.Before(trialEnd) {
		return StatusTrial
	}
	return StatusFree
}

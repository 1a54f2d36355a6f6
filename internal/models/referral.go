package models

import "time"

// Статусы реферальной записи. Переход registered -> subscribed
// происходит ровно один раз и не откатывается.
const (
	ReferralStatusRegistered = "registered"
	ReferralStatusSubscribed = "subscribed"
)

// Referral связывает пригласившего и приглашённого пользователя.
// Уникальна по ReferredID: у пользователя может быть только один реферер.
type Referral struct {
	ID             int
	ReferrerID     int64
	ReferredID     int64
	Status         string
	BonusDaysGiven int
	CreatedAt      time.Time
}

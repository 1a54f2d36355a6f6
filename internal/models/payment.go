package models

import "time"

// Источники начисления premium-дней.
const (
	PaymentSourcePayment  = "payment"
	PaymentSourceReferral = "referral"
	PaymentSourceAdmin    = "admin"
	PaymentSourcePromo    = "promo"
)

// Статусы платежа.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
	PaymentStatusRefunded  = "refunded"
)

// Payment — запись о начислении premium-дней. Таблица append-only,
// записи никогда не изменяются и не удаляются.
type Payment struct {
	ID       int
	UID      string // внутренний UUID записи
	UserID   int64
	Amount   int    // сумма в копейках
	Currency string // "RUB"

	ProviderEventID   string // ключ идемпотентности вебхука, уникальный
	ProviderReference string // product_id провайдера для трассировки

	Status      string
	DaysGranted int
	Source      string
	CreatedAt   time.Time
}

// Package tribute описывает события вебхука платёжного провайдера Tribute
// и их разбор. Событие декодируется один раз на границе в закрытое
// множество типов; всё нераспознанное превращается в UnknownEvent
// и подтверждается без обработки — так новые типы событий провайдера
// не ломают вебхук.
package tribute

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// EventNewDigitalProduct — покупка цифрового продукта, единственное
// событие, которое ядро обрабатывает.
const EventNewDigitalProduct = "new_digital_product"

// Event - одно из распознанных событий вебхука.
// Возможные типы: *NewDigitalProduct, *UnknownEvent.
type Event interface {
	EventName() string
}

// ProductID — идентификатор продукта провайдера. Tribute присылает его
// то строкой, то числом, поэтому значение нормализуется к строке.
type ProductID string

// UnmarshalJSON принимает JSON-строку или число.
func (p *ProductID) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = ProductID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*p = ProductID(n.String())
	return nil
}

// String возвращает нормализованный идентификатор.
func (p ProductID) String() string { return string(p) }

// NewDigitalProduct — завершённая покупка подписки.
type NewDigitalProduct struct {
	ProductID      ProductID `json:"product_id" validate:"required"`
	Amount         int       `json:"amount" validate:"required,gt=0"`
	Currency       string    `json:"currency"`
	TelegramUserID int64     `json:"telegram_user_id" validate:"required"`
	PaymentID      string    `json:"payment_id"`
}

// EventName реализует Event.
func (*NewDigitalProduct) EventName() string { return EventNewDigitalProduct }

// UnknownEvent — событие, тип которого ядру не известен.
type UnknownEvent struct {
	Name string
}

// EventName реализует Event.
func (e *UnknownEvent) EventName() string { return e.Name }

type envelope struct {
	Name    string          `json:"name"`
	Payload json.RawMessage `json:"payload"`
}

// ParseEvent разбирает сырое тело вебхука в типизированное событие.
// Ошибка возвращается только для синтаксически некорректного JSON;
// незнакомый тип события ошибкой не является.
func ParseEvent(body []byte) (Event, error) {
	const op = "tribute.ParseEvent"

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	switch env.Name {
	case EventNewDigitalProduct:
		var e NewDigitalProduct
		if err := json.Unmarshal(env.Payload, &e); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return &e, nil
	default:
		return &UnknownEvent{Name: env.Name}, nil
	}
}

// Sign вычисляет подпись HMAC-SHA256 (hex) над точным телом запроса.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature сравнивает подпись заголовка trbt-signature с ожидаемой.
// Сравнение постоянное по времени. Пустой секрет или пустая подпись
// всегда дают отказ.
func VerifySignature(secret string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	expected := Sign(secret, body)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// EventKey возвращает ключ идемпотентности события: payment_id провайдера,
// а если его нет — SHA-256 от точного тела запроса. Повторная доставка
// того же события даёт тот же ключ.
func EventKey(e *NewDigitalProduct, body []byte) string {
	if e.PaymentID != "" {
		return "payment:" + e.PaymentID
	}
	sum := sha256.Sum256(body)
	return "body:" + hex.EncodeToString(sum[:])
}

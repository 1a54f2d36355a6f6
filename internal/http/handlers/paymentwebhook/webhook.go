// Package paymentwebhook принимает вебхуки платёжного провайдера Tribute.
//
// Контракт с провайдером: подпись тела в заголовке trbt-signature,
// 403 на плохую подпись, 400 на некорректное событие, 500 только на
// сбой обработки — провайдер повторяет доставку при любом не-2xx.
package paymentwebhook

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
	"github.com/go-playground/validator"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/speakly/billing-engine/internal/http/response"
	"github.com/speakly/billing-engine/internal/lib/sl"
	"github.com/speakly/billing-engine/internal/services/payment"
	"github.com/speakly/billing-engine/internal/storage/repository"
	"github.com/speakly/billing-engine/internal/tribute"
)

// SignatureHeader — заголовок с HMAC-подписью тела запроса.
const SignatureHeader = "trbt-signature"

// maxBodySize ограничивает тело вебхука, провайдер шлёт небольшие события.
const maxBodySize = 1 << 20

var webhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "billing_webhook_events_total",
	Help: "Webhook deliveries by outcome.",
}, []string{"outcome"})

// Service обрабатывает распознанные платёжные события.
type Service interface {
	ProcessNewDigitalProduct(ctx context.Context, e *tribute.NewDigitalProduct, body []byte) (payment.Result, error)
}

// Handler — HTTP-обработчик вебхука Tribute.
type Handler struct {
	log       *slog.Logger
	service   Service
	secret    string
	productID string
	validate  *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service, secret, productID string) *Handler {
	return &Handler{
		log:       log,
		service:   service,
		secret:    secret,
		productID: productID,
		validate:  validator.New(),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.paymentwebhook"
	log := h.log.With(slog.String("op", op))

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		log.Error("failed to read webhook body", sl.Err(err))
		webhookEvents.WithLabelValues("read_error").Inc()
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("failed to read request body"))
		return
	}
	defer r.Body.Close()

	// Подпись проверяется над точным телом запроса до любого разбора.
	if !tribute.VerifySignature(h.secret, body, r.Header.Get(SignatureHeader)) {
		log.Warn("invalid or missing webhook signature")
		webhookEvents.WithLabelValues("bad_signature").Inc()
		w.WriteHeader(http.StatusForbidden)
		render.JSON(w, r, response.Error("invalid signature"))
		return
	}

	event, err := tribute.ParseEvent(body)
	if err != nil {
		log.Error("failed to parse webhook event", sl.Err(err))
		webhookEvents.WithLabelValues("malformed").Inc()
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("malformed event"))
		return
	}

	e, ok := event.(*tribute.NewDigitalProduct)
	if !ok {
		// Незнакомые события подтверждаются, иначе провайдер будет
		// ретраить их бесконечно.
		log.Info("ignored webhook event", slog.String("event", event.EventName()))
		webhookEvents.WithLabelValues("ignored").Inc()
		w.WriteHeader(http.StatusOK)
		render.JSON(w, r, response.OK())
		return
	}

	if err := h.validate.Struct(e); err != nil {
		var validateErrs validator.ValidationErrors
		if errors.As(err, &validateErrs) {
			log.Warn("invalid webhook payload", sl.Err(err))
			webhookEvents.WithLabelValues("invalid_payload").Inc()
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.ValidationError(validateErrs))
			return
		}
		log.Error("failed to validate webhook payload", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	if e.ProductID.String() != h.productID {
		log.Warn("unknown product in webhook", slog.String("product_id", e.ProductID.String()))
		webhookEvents.WithLabelValues("unknown_product").Inc()
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("unknown product"))
		return
	}

	res, err := h.service.ProcessNewDigitalProduct(r.Context(), e, body)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			log.Warn("payment for unknown user", slog.Int64("user_id", e.TelegramUserID))
			webhookEvents.WithLabelValues("unknown_user").Inc()
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("unknown user"))
			return
		}
		log.Error("failed to process payment event", sl.Err(err))
		webhookEvents.WithLabelValues("processing_error").Inc()
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to process event"))
		return
	}

	if res.Duplicate {
		webhookEvents.WithLabelValues("duplicate").Inc()
		w.WriteHeader(http.StatusOK)
		render.JSON(w, r, response.StatusOKWithData(map[string]any{
			"duplicate": true,
		}))
		return
	}

	log.Info("payment event processed",
		slog.Int64("user_id", e.TelegramUserID),
		slog.Time("premium_until", res.PremiumUntil))
	webhookEvents.WithLabelValues("processed").Inc()
	w.WriteHeader(http.StatusOK)
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"premium_until": res.PremiumUntil,
	}))
}

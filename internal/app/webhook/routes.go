// Package webhook собирает и запускает сервер приёма платёжных вебхуков.
package webhook

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/speakly/billing-engine/internal/config"
	"github.com/speakly/billing-engine/internal/http/handlers/admingrant"
	"github.com/speakly/billing-engine/internal/http/handlers/health"
	"github.com/speakly/billing-engine/internal/http/handlers/paymenthistory"
	"github.com/speakly/billing-engine/internal/http/handlers/paymentwebhook"
	"github.com/speakly/billing-engine/internal/http/handlers/premiumrevoke"
	"github.com/speakly/billing-engine/internal/http/handlers/revenue"
	"github.com/speakly/billing-engine/internal/http/handlers/useractivity"
	"github.com/speakly/billing-engine/internal/http/handlers/userblock"
	"github.com/speakly/billing-engine/internal/http/handlers/userregister"
	"github.com/speakly/billing-engine/internal/http/handlers/userstatus"
	"github.com/speakly/billing-engine/internal/http/middlewarectx"
	"github.com/speakly/billing-engine/internal/lib/clock"
	creditservice "github.com/speakly/billing-engine/internal/services/credit"
	paymentservice "github.com/speakly/billing-engine/internal/services/payment"
	"github.com/speakly/billing-engine/internal/storage/repository"
	"github.com/speakly/billing-engine/internal/storage/usage"
)

// RegisterRoutes регистрирует все маршруты вебхук-сервера.
func RegisterRoutes(r chi.Router, logger *slog.Logger, cfg *config.Config,
	db *repository.Storage, usageCounter *usage.Counter,
	paymentService *paymentservice.Service, creditService *creditservice.Service) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
	)

	// Открытая часть: провайдер и инфраструктура
	r.Post("/webhook/tribute", paymentwebhook.New(logger, paymentService,
		cfg.Tribute.WebhookSecret, cfg.Tribute.ProductID).ServeHTTP)
	r.Get("/health", health.New(logger, db.DB).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())

	// Внутренние маршруты для коллабораторов (бот, поддержка)
	r.Route("/internal", func(r chi.Router) {
		r.Use(middlewarectx.AdminTokenMiddleware(logger, cfg.AdminToken))
		r.Post("/users", userregister.New(logger, db).ServeHTTP)
		r.Get("/users/{id}/status", userstatus.New(logger, db, usageCounter, clock.Real{},
			cfg.TrialDays, cfg.FreeTextLimit, cfg.FreeVoiceLimit).ServeHTTP)
		r.Get("/users/{id}/payments", paymenthistory.New(logger, db).ServeHTTP)
		r.Post("/users/{id}/grant", admingrant.New(logger, paymentService).ServeHTTP)
		r.Delete("/users/{id}/premium", premiumrevoke.New(logger, creditService).ServeHTTP)
		blockHandler := userblock.New(logger, db)
		r.Post("/users/{id}/block", blockHandler.Block)
		r.Delete("/users/{id}/block", blockHandler.Unblock)
		r.Post("/users/{id}/activity", useractivity.New(logger, db, clock.Real{}).ServeHTTP)
		r.Get("/revenue", revenue.New(logger, db).ServeHTTP)
	})
}

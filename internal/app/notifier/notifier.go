// Package notifier собирает и запускает планировщик уведомлений об истечении.
package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/speakly/billing-engine/internal/config"
	"github.com/speakly/billing-engine/internal/lib/clock"
	"github.com/speakly/billing-engine/internal/rabbitmq"
	notifierservice "github.com/speakly/billing-engine/internal/services/notifier"
	"github.com/speakly/billing-engine/internal/storage/repository"
)

// App — приложение планировщика.
type App struct {
	notifierService *notifierservice.Service
	conn            *amqp.Connection
	ch              *amqp.Channel
	db              *repository.Storage
	logger          *slog.Logger
}

// Миграции применяет вебхук-сервер; планировщик лишь дожидается схемы.
func waitForDB(db *repository.Storage) error {
	for range 10 {
		err := repository.CheckDatabaseReady(db)
		if err == nil {
			return nil
		}
		time.Sleep(3 * time.Second)
	}
	return fmt.Errorf("database not ready after retries")
}

// New создает новый экземпляр приложения планировщика.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
	if err != nil {
		closeResources(nil, conn, logger)
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}

	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		closeResources(ch, conn, logger)
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}
	if err := waitForDB(db); err != nil {
		closeResources(ch, conn, logger)
		return nil, err
	}

	notifierService := notifierservice.New(db, rabbitmq.NewPublisher(ch), clock.Real{},
		cfg.TrialDays, cfg.ScanInterval, logger)

	return &App{
		notifierService: notifierService,
		conn:            conn,
		ch:              ch,
		db:              db,
		logger:          logger,
	}, nil
}

func closeResources(ch *amqp.Channel, conn *amqp.Connection, logger *slog.Logger) {
	if ch != nil {
		if err := ch.Close(); err != nil {
			logger.Error("failed to close channel", "error", err)
		}
	}
	if conn != nil {
		if err := conn.Close(); err != nil {
			logger.Error("failed to close connection", "error", err)
		}
	}
}

// Run запускает планировщик и блокируется до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	a.notifierService.Run(ctx)

	a.logger.Info("shutting down notifier service")

	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", slog.Any("err", err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", slog.Any("err", err))
	}
	a.db.DB.Close()

	return nil
}

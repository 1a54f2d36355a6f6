// Package sender собирает и запускает отправителя Telegram-уведомлений.
package sender

import (
	"context"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/speakly/billing-engine/internal/config"
	"github.com/speakly/billing-engine/internal/rabbitmq"
	senderservice "github.com/speakly/billing-engine/internal/services/sender"
	"github.com/speakly/billing-engine/internal/telegram"
)

// App — приложение отправителя уведомлений.
type App struct {
	conn          *amqp.Connection
	ch            *amqp.Channel
	senderService *senderservice.Service
	logger        *slog.Logger
}

// New создает новый экземпляр приложения отправителя.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, err
	}

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
	if err != nil {
		conn.Close()
		return nil, err
	}

	bot, err := telegram.New(cfg.TelegramBotToken, cfg.Tribute.PaymentLink, logger)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	senderService := senderservice.New(bot, logger)

	return &App{
		conn:          conn,
		ch:            ch,
		senderService: senderService,
		logger:        logger,
	}, nil
}

// Run подписывает отправителя на очереди и блокируется до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	consumers := []struct {
		queue   string
		handler func([]byte) error
	}{
		{"notification.trial-expired", a.senderService.SendTrialExpired},
		{"notification.premium-expired", a.senderService.SendPremiumExpired},
		{"notification.premium-activated", a.senderService.SendPremiumActivated},
		{"notification.referral-bonus", a.senderService.SendReferralBonus},
	}
	for _, c := range consumers {
		if err := rabbitmq.ConsumerMessage(ctx, a.ch, c.queue, c.handler); err != nil {
			a.logger.Error("failed to start consumer",
				slog.String("queue", c.queue), slog.Any("err", err))
			return err
		}
	}

	<-ctx.Done()
	a.logger.Info("sender service shutting down gracefully")

	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", slog.Any("err", err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", slog.Any("err", err))
	}

	return nil
}

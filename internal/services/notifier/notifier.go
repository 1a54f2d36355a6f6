// Package notifier реализует планировщик уведомлений об истечении
// trial и premium. Планировщик периодически сканирует хранилище и
// публикует уведомления в RabbitMQ.
//
// Семантика доставки at-most-once: флаг notified выставляется сразу
// после попытки публикации независимо от её исхода, поэтому пользователь
// никогда не получит уведомление дважды — даже ценой потерянного
// уведомления при падении брокера.
package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/speakly/billing-engine/internal/lib/clock"
	"github.com/speakly/billing-engine/internal/lib/sl"
	"github.com/speakly/billing-engine/internal/models"
)

// Repository определяет операции хранилища, нужные планировщику.
type Repository interface {
	FindExpiredTrialUsers(ctx context.Context, now time.Time, trialDays int) ([]*models.User, error)
	FindExpiredPremiumUsers(ctx context.Context, now time.Time) ([]*models.User, error)
	MarkTrialNotified(ctx context.Context, userID int64) error
	MarkPremiumExpiredNotified(ctx context.Context, userID int64) error
}

// Publisher публикует уведомления в exchange.
type Publisher interface {
	Publish(routingKey string, message any) error
}

// Service — планировщик уведомлений об истечении.
type Service struct {
	repo      Repository
	publisher Publisher
	clock     clock.Clock
	trialDays int
	interval  time.Duration
	log       *slog.Logger
}

// New создает новый экземпляр Service.
func New(repo Repository, publisher Publisher, clk clock.Clock, trialDays int, interval time.Duration, log *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		clock:     clk,
		trialDays: trialDays,
		interval:  interval,
		log:       log,
	}
}

// Run запускает цикл сканирования. Первый проход выполняется сразу,
// дальше по тикеру. Возвращает после отмены ctx.
func (s *Service) Run(ctx context.Context) {
	const op = "notifier.Run"
	log := s.log.With(slog.String("op", op))
	log.Info("expiry notifier started", slog.Duration("interval", s.interval))

	s.Scan(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("expiry notifier stopped")
			return
		case <-ticker.C:
			s.Scan(ctx)
		}
	}
}

// Scan выполняет один проход по обоим наборам пользователей.
// Ошибки одного набора не мешают обработке другого.
func (s *Service) Scan(ctx context.Context) {
	now := s.clock.Now()

	if err := s.scanExpiredTrials(ctx, now); err != nil {
		s.log.Error("trial scan failed", sl.Err(err))
	}
	if err := s.scanExpiredPremium(ctx, now); err != nil {
		s.log.Error("premium scan failed", sl.Err(err))
	}
}

func (s *Service) scanExpiredTrials(ctx context.Context, now time.Time) error {
	const op = "notifier.scanExpiredTrials"

	users, err := s.repo.FindExpiredTrialUsers(ctx, now, s.trialDays)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	for _, u := range users {
		s.notify(ctx, u, models.NotificationTrialExpired)
	}
	return nil
}

func (s *Service) scanExpiredPremium(ctx context.Context, now time.Time) error {
	const op = "notifier.scanExpiredPremium"

	users, err := s.repo.FindExpiredPremiumUsers(ctx, now)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	for _, u := range users {
		s.notify(ctx, u, models.NotificationPremiumExpired)
	}
	return nil
}

// notify публикует уведомление и выставляет флаг notified.
// Флаг ставится даже при ошибке публикации: подавление дублей важнее
// гарантии доставки. Ошибка выставления флага лишь логируется —
// следующий проход попробует пользователя заново.
func (s *Service) notify(ctx context.Context, u *models.User, kind string) {
	log := s.log.With(slog.Int64("user_id", u.ID), slog.String("kind", kind))

	if err := s.publisher.Publish(kind, models.Notification{
		UserID:       u.ID,
		Kind:         kind,
		PremiumUntil: u.PremiumUntil,
	}); err != nil {
		log.Error("failed to publish expiry notification", sl.Err(err))
	}

	var err error
	switch kind {
	case models.NotificationTrialExpired:
		err = s.repo.MarkTrialNotified(ctx, u.ID)
	case models.NotificationPremiumExpired:
		err = s.repo.MarkPremiumExpiredNotified(ctx, u.ID)
	}
	if err != nil {
		log.Error("failed to mark user notified", sl.Err(err))
		return
	}

	log.Info("expiry notification scheduled")
}

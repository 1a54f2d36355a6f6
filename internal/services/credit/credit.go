// Package credit реализует начисление и отзыв premium-дней.
// Само продление атомарно выполняет хранилище; сервис отвечает
// за валидацию и единую точку входа для вебхука, рефералки и админки.
package credit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/speakly/billing-engine/internal/lib/clock"
)

// ErrInvalidDays возвращается на неположительное количество дней.
// Это нарушение инварианта вызывающего кода, значение не исправляется.
var ErrInvalidDays = errors.New("days must be positive")

// UserRepository определяет операции хранилища над entitlement пользователя.
type UserRepository interface {
	// AddPremiumDays атомарно продлевает premium и возвращает новый срок.
	AddPremiumDays(ctx context.Context, userID int64, days int, now time.Time) (time.Time, error)
	// RemovePremium снимает premium.
	RemovePremium(ctx context.Context, userID int64) error
}

// Service — сервис начисления premium-дней.
type Service struct {
	repo  UserRepository
	clock clock.Clock
	log   *slog.Logger
}

// New создает новый экземпляр Service.
func New(repo UserRepository, clk clock.Clock, log *slog.Logger) *Service {
	return &Service{
		repo:  repo,
		clock: clk,
		log:   log,
	}
}

// GrantDays продлевает premium пользователя на days дней и возвращает
// новый срок действия. Гарантия: результат не раньше now + days.
func (s *Service) GrantDays(ctx context.Context, userID int64, days int) (time.Time, error) {
	const op = "credit.GrantDays"

	if days <= 0 {
		return time.Time{}, fmt.Errorf("%s: %w: %d", op, ErrInvalidDays, days)
	}

	newUntil, err := s.repo.AddPremiumDays(ctx, userID, days, s.clock.Now())
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("premium extended",
		slog.Int64("user_id", userID),
		slog.Int("days", days),
		slog.Time("premium_until", newUntil))
	return newUntil, nil
}

// RemovePremium снимает premium с пользователя. Используется только
// административным отзывом.
func (s *Service) RemovePremium(ctx context.Context, userID int64) error {
	const op = "credit.RemovePremium"

	if err := s.repo.RemovePremium(ctx, userID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("premium removed", slog.Int64("user_id", userID))
	return nil
}

package notifier

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/speakly/billing-engine/internal/lib/clock"
	"github.com/speakly/billing-engine/internal/models"
)

type RepositoryMock struct{ mock.Mock }

func (m *RepositoryMock) FindExpiredTrialUsers(ctx context.Context, now time.Time, trialDays int) ([]*models.User, error) {
	args := m.Called(ctx, now, trialDays)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *RepositoryMock) FindExpiredPremiumUsers(ctx context.Context, now time.Time) ([]*models.User, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *RepositoryMock) MarkTrialNotified(ctx context.Context, userID int64) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *RepositoryMock) MarkPremiumExpiredNotified(ctx context.Context, userID int64) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

type PublisherMock struct{ mock.Mock }

func (m *PublisherMock) Publish(routingKey string, message any) error {
	args := m.Called(routingKey, message)
	return args.Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestService_Scan(t *testing.T) {
	now := time.Date(2025, 5, 10, 12, 0, 0, 0, time.UTC)
	clk := &clock.Fake{Current: now}
	expired := now.Add(-time.Hour)

	t.Run("publishes and marks both expiry kinds", func(t *testing.T) {
		repo := new(RepositoryMock)
		publisher := new(PublisherMock)

		repo.On("FindExpiredTrialUsers", mock.Anything, now, 3).
			Return([]*models.User{{ID: 1}}, nil).Once()
		repo.On("FindExpiredPremiumUsers", mock.Anything, now).
			Return([]*models.User{{ID: 2, PremiumUntil: &expired}}, nil).Once()

		publisher.On("Publish", models.NotificationTrialExpired, models.Notification{
			UserID: 1,
			Kind:   models.NotificationTrialExpired,
		}).Return(nil).Once()
		publisher.On("Publish", models.NotificationPremiumExpired, models.Notification{
			UserID:       2,
			Kind:         models.NotificationPremiumExpired,
			PremiumUntil: &expired,
		}).Return(nil).Once()

		repo.On("MarkTrialNotified", mock.Anything, int64(1)).Return(nil).Once()
		repo.On("MarkPremiumExpiredNotified", mock.Anything, int64(2)).Return(nil).Once()

		svc := New(repo, publisher, clk, 3, time.Hour, newNoopLogger())
		svc.Scan(context.Background())

		repo.AssertExpectations(t)
		publisher.AssertExpectations(t)
	})

	t.Run("marks notified even when publish fails", func(t *testing.T) {
		repo := new(RepositoryMock)
		publisher := new(PublisherMock)

		repo.On("FindExpiredTrialUsers", mock.Anything, now, 3).
			Return([]*models.User{{ID: 1}}, nil).Once()
		repo.On("FindExpiredPremiumUsers", mock.Anything, now).
			Return([]*models.User{}, nil).Once()
		publisher.On("Publish", models.NotificationTrialExpired, mock.Anything).
			Return(errors.New("broker down")).Once()
		repo.On("MarkTrialNotified", mock.Anything, int64(1)).Return(nil).Once()

		svc := New(repo, publisher, clk, 3, time.Hour, newNoopLogger())
		svc.Scan(context.Background())

		repo.AssertExpectations(t)
		publisher.AssertExpectations(t)
	})

	t.Run("trial scan failure does not block premium scan", func(t *testing.T) {
		repo := new(RepositoryMock)
		publisher := new(PublisherMock)

		repo.On("FindExpiredTrialUsers", mock.Anything, now, 3).
			Return(nil, errors.New("db down")).Once()
		repo.On("FindExpiredPremiumUsers", mock.Anything, now).
			Return([]*models.User{{ID: 2, PremiumUntil: &expired}}, nil).Once()
		publisher.On("Publish", models.NotificationPremiumExpired, mock.Anything).Return(nil).Once()
		repo.On("MarkPremiumExpiredNotified", mock.Anything, int64(2)).Return(nil).Once()

		svc := New(repo, publisher, clk, 3, time.Hour, newNoopLogger())
		svc.Scan(context.Background())

		repo.AssertExpectations(t)
		publisher.AssertExpectations(t)
	})
}

func TestService_Run_StopsOnContextCancel(t *testing.T) {
	repo := new(RepositoryMock)
	publisher := new(PublisherMock)
	repo.On("FindExpiredTrialUsers", mock.Anything, mock.Anything, 3).
		Return([]*models.User{}, nil)
	repo.On("FindExpiredPremiumUsers", mock.Anything, mock.Anything).
		Return([]*models.User{}, nil)

	svc := New(repo, publisher, clock.Real{}, 3, time.Hour, newNoopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("notifier did not stop after context cancellation")
	}

	// первый проход выполняется сразу, без ожидания тикера
	repo.AssertCalled(t, "FindExpiredTrialUsers", mock.Anything, mock.Anything, 3)
}

package credit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/speakly/billing-engine/internal/lib/clock"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) AddPremiumDays(ctx context.Context, userID int64, days int, now time.Time) (time.Time, error) {
	args := m.Called(ctx, userID, days, now)
	return args.Get(0).(time.Time), args.Error(1)
}

func (m *RepoMock) RemovePremium(ctx context.Context, userID int64) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestService_GrantDays(t *testing.T) {
	now := time.Date(2025, 5, 10, 12, 0, 0, 0, time.UTC)
	clk := &clock.Fake{Current: now}

	tests := []struct {
		name       string
		days       int
		setupMocks func(r *RepoMock)
		wantUntil  time.Time
		wantErr    error
	}{
		{
			name: "success grant",
			days: 30,
			setupMocks: func(r *RepoMock) {
				r.On("AddPremiumDays", mock.Anything, int64(42), 30, now).
					Return(now.Add(30*24*time.Hour), nil).Once()
			},
			wantUntil: now.Add(30 * 24 * time.Hour),
		},
		{
			name:       "zero days rejected before touching storage",
			days:       0,
			setupMocks: func(_ *RepoMock) {},
			wantErr:    ErrInvalidDays,
		},
		{
			name:       "negative days rejected",
			days:       -5,
			setupMocks: func(_ *RepoMock) {},
			wantErr:    ErrInvalidDays,
		},
		{
			name: "storage error propagates",
			days: 30,
			setupMocks: func(r *RepoMock) {
				r.On("AddPremiumDays", mock.Anything, int64(42), 30, now).
					Return(time.Time{}, errors.New("db down")).Once()
			},
			wantErr: errors.New("db down"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			tt.setupMocks(repo)
			svc := New(repo, clk, newNoopLogger())

			got, err := svc.GrantDays(context.Background(), 42, tt.days)

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr.Error())
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantUntil, got)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestService_RemovePremium(t *testing.T) {
	repo := new(RepoMock)
	repo.On("RemovePremium", mock.Anything, int64(42)).Return(nil).Once()

	svc := New(repo, &clock.Fake{Current: time.Now()}, newNoopLogger())
	require.NoError(t, svc.RemovePremium(context.Background(), 42))
	repo.AssertExpectations(t)
}

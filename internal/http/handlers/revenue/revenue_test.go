package revenue

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type RepositoryMock struct{ mock.Mock }

func (m *RepositoryMock) TotalRevenue(ctx context.Context, since time.Time) (int64, error) {
	args := m.Called(ctx, since)
	return args.Get(0).(int64), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func doRequest(h *Handler, target string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
	return rr
}

func TestHandler_ServeHTTP(t *testing.T) {
	t.Run("sums revenue since the given moment", func(t *testing.T) {
		since := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
		repo := new(RepositoryMock)
		repo.On("TotalRevenue", mock.Anything, since).Return(int64(154000), nil).Once()
		h := New(newNoopLogger(), repo)

		rr := doRequest(h, "/internal/revenue?since=2025-06-01T00:00:00Z")

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "154000")
		repo.AssertExpectations(t)
	})

	t.Run("no since means all time", func(t *testing.T) {
		repo := new(RepositoryMock)
		repo.On("TotalRevenue", mock.Anything, time.Time{}).Return(int64(0), nil).Once()
		h := New(newNoopLogger(), repo)

		rr := doRequest(h, "/internal/revenue")

		require.Equal(t, http.StatusOK, rr.Code)
		repo.AssertExpectations(t)
	})

	t.Run("bad since format", func(t *testing.T) {
		h := New(newNoopLogger(), new(RepositoryMock))
		rr := doRequest(h, "/internal/revenue?since=yesterday")
		require.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "RFC3339")
	})

	t.Run("storage failure", func(t *testing.T) {
		repo := new(RepositoryMock)
		repo.On("TotalRevenue", mock.Anything, time.Time{}).
			Return(int64(0), errors.New("db down")).Once()
		h := New(newNoopLogger(), repo)

		rr := doRequest(h, "/internal/revenue")

		require.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}

package paymenthistory

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/speakly/billing-engine/internal/models"
)

type RepositoryMock struct{ mock.Mock }

func (m *RepositoryMock) ListPayments(ctx context.Context, userID int64) ([]*models.Payment, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Payment), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func doRequest(h *Handler, path string) *httptest.ResponseRecorder {
	router := chi.NewRouter()
	router.Get("/internal/users/{id}/payments", h.ServeHTTP)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func TestHandler_ListsPayments(t *testing.T) {
	repo := new(RepositoryMock)
	repo.On("ListPayments", mock.Anything, int64(42)).Return([]*models.Payment{
		{
			UID:         "f7b7d3e0-0000-0000-0000-000000000001",
			Amount:      77000,
			Currency:    "RUB",
			Status:      models.PaymentStatusCompleted,
			DaysGranted: 30,
			Source:      models.PaymentSourcePayment,
			CreatedAt:   time.Date(2025, 5, 10, 12, 0, 0, 0, time.UTC),
		},
		{
			UID:         "f7b7d3e0-0000-0000-0000-000000000002",
			Currency:    "RUB",
			Status:      models.PaymentStatusCompleted,
			DaysGranted: 30,
			Source:      models.PaymentSourceReferral,
		},
	}, nil).Once()

	h := New(newNoopLogger(), repo)
	rr := doRequest(h, "/internal/users/42/payments")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"amount":77000`)
	assert.Contains(t, rr.Body.String(), `"source":"referral"`)
	repo.AssertExpectations(t)
}

func TestHandler_EmptyHistory(t *testing.T) {
	repo := new(RepositoryMock)
	repo.On("ListPayments", mock.Anything, int64(42)).Return([]*models.Payment{}, nil).Once()

	h := New(newNoopLogger(), repo)
	rr := doRequest(h, "/internal/users/42/payments")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"payments":[]`)
}

func TestHandler_StorageError(t *testing.T) {
	repo := new(RepositoryMock)
	repo.On("ListPayments", mock.Anything, int64(42)).Return(nil, errors.New("db down")).Once()

	h := New(newNoopLogger(), repo)
	rr := doRequest(h, "/internal/users/42/payments")

	require.Equal(t, http.StatusInternalServerError, rr.Code)
}

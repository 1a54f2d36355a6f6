package premiumrevoke

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/speakly/billing-engine/internal/storage/repository"
)

type ServiceMock struct{ mock.Mock }

func (m *ServiceMock) RemovePremium(ctx context.Context, userID int64) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func doRequest(h *Handler, path string) *httptest.ResponseRecorder {
	router := chi.NewRouter()
	router.Delete("/internal/users/{id}/premium", h.ServeHTTP)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, path, nil))
	return rr
}

func TestHandler_RevokesPremium(t *testing.T) {
	service := new(ServiceMock)
	service.On("RemovePremium", mock.Anything, int64(42)).Return(nil).Once()

	rr := doRequest(New(newNoopLogger(), service), "/internal/users/42/premium")

	require.Equal(t, http.StatusOK, rr.Code)
	service.AssertExpectations(t)
}

func TestHandler_UnknownUser(t *testing.T) {
	service := new(ServiceMock)
	service.On("RemovePremium", mock.Anything, int64(42)).Return(repository.ErrUserNotFound).Once()

	rr := doRequest(New(newNoopLogger(), service), "/internal/users/42/premium")

	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandler_BadUserID(t *testing.T) {
	rr := doRequest(New(newNoopLogger(), new(ServiceMock)), "/internal/users/abc/premium")
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

package sender

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/speakly/billing-engine/internal/models"
)

type MessengerMock struct{ mock.Mock }

func (m *MessengerMock) SendMessage(chatID int64, text string) error {
	args := m.Called(chatID, text)
	return args.Error(0)
}

func (m *MessengerMock) SendMessageWithPaymentButton(chatID int64, text string) error {
	args := m.Called(chatID, text)
	return args.Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func marshalNotification(t *testing.T, n models.Notification) []byte {
	t.Helper()
	body, err := json.Marshal(n)
	require.NoError(t, err)
	return body
}

func TestService_SendTrialExpired(t *testing.T) {
	messenger := new(MessengerMock)
	messenger.On("SendMessageWithPaymentButton", int64(1), mock.MatchedBy(func(text string) bool {
		return strings.Contains(text, "подписку")
	})).Return(nil).Once()

	svc := New(messenger, newNoopLogger())
	body := marshalNotification(t, models.Notification{UserID: 1, Kind: models.NotificationTrialExpired})

	require.NoError(t, svc.SendTrialExpired(body))
	messenger.AssertExpectations(t)
}

func TestService_SendPremiumActivated_IncludesDate(t *testing.T) {
	until := time.Date(2025, 6, 9, 12, 0, 0, 0, time.UTC)
	messenger := new(MessengerMock)
	messenger.On("SendMessage", int64(2), mock.MatchedBy(func(text string) bool {
		return strings.Contains(text, "09.06.2025")
	})).Return(nil).Once()

	svc := New(messenger, newNoopLogger())
	body := marshalNotification(t, models.Notification{
		UserID:       2,
		Kind:         models.NotificationPremiumActivated,
		PremiumUntil: &until,
	})

	require.NoError(t, svc.SendPremiumActivated(body))
	messenger.AssertExpectations(t)
}

func TestService_SendReferralBonus(t *testing.T) {
	until := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	messenger := new(MessengerMock)
	messenger.On("SendMessage", int64(10), mock.MatchedBy(func(text string) bool {
		return strings.Contains(text, "01.07.2025")
	})).Return(nil).Once()

	svc := New(messenger, newNoopLogger())
	body := marshalNotification(t, models.Notification{
		UserID:       10,
		Kind:         models.NotificationReferralBonus,
		PremiumUntil: &until,
	})

	require.NoError(t, svc.SendReferralBonus(body))
	messenger.AssertExpectations(t)
}

func TestService_SendPremiumExpired_TransportError(t *testing.T) {
	messenger := new(MessengerMock)
	messenger.On("SendMessageWithPaymentButton", int64(3), mock.Anything).
		Return(errors.New("chat not found")).Once()

	svc := New(messenger, newNoopLogger())
	body := marshalNotification(t, models.Notification{UserID: 3, Kind: models.NotificationPremiumExpired})

	err := svc.SendPremiumExpired(body)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestService_MalformedBody(t *testing.T) {
	svc := New(new(MessengerMock), newNoopLogger())
	require.Error(t, svc.SendTrialExpired([]byte("{not json")))
}

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/speakly/billing-engine/internal/migrations"
)

// setupTestDatabase поднимает одноразовый PostgreSQL в контейнере
// и накатывает миграции проекта.
func setupTestDatabase(t *testing.T) (*Storage, func()) {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("billing_test"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second),
		),
	)
	require.NoError(t, err)

	dsn, err := pgContainer.ConnectionString(ctx)
	require.NoError(t, err)

	storage, err := New(dsn)
	require.NoError(t, err)

	require.NoError(t, migrations.Run(storage.DB, "../../../migrations"))

	cleanup := func() {
		_ = storage.DB.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}
	return storage, cleanup
}

// TestDataFactory содержит методы для создания тестовых данных
type TestDataFactory struct {
	storage *Storage
}

// NewTestDataFactory создает новую фабрику тестовых данных
func NewTestDataFactory(storage *Storage) *TestDataFactory {
	return &TestDataFactory{storage: storage}
}

// CreateUser создает тестового пользователя с заданным временем регистрации
func (f *TestDataFactory) CreateUser(t *testing.T, userID int64, username string, createdAt time.Time) {
	t.Helper()
	_, err := f.storage.DB.Exec(`INSERT INTO users (id, username, referral_code, created_at)
		VALUES ($1, $2, $3, $4)`,
		userID, username, username+"-code", createdAt)
	require.NoError(t, err)
}

// SetPremiumUntil выставляет пользователю срок premium напрямую
func (f *TestDataFactory) SetPremiumUntil(t *testing.T, userID int64, until time.Time) {
	t.Helper()
	_, err := f.storage.DB.Exec(`UPDATE users SET premium_until = $1 WHERE id = $2`, until, userID)
	require.NoError(t, err)
}

// CreateReferral создает тестовую реферальную запись
func (f *TestDataFactory) CreateReferral(t *testing.T, referrerID, referredID int64) {
	t.Helper()
	_, err := f.storage.DB.Exec(`INSERT INTO referrals (referrer_id, referred_id)
		VALUES ($1, $2)`, referrerID, referredID)
	require.NoError(t, err)
}

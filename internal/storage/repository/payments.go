package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/speakly/billing-engine/internal/models"
)

// CreatePayment добавляет запись о начислении premium-дней и возвращает её ID.
// Таблица append-only. Если ProviderEventID уже встречался, возвращается
// ErrDuplicateEvent — на этом строится идемпотентность вебхука.
func (s *Storage) CreatePayment(ctx context.Context, p models.Payment) (int, error) {
	const op = "storage.CreatePayment"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	newID, err := insertPayment(ctx, s.DB, p)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func insertPayment(ctx context.Context, q rowQuerier, p models.Payment) (int, error) {
	query := `INSERT INTO payments (uid, user_id, amount, currency, provider_event_id,
			      provider_reference, status, days_granted, source)
			  VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $9)
			  RETURNING id`
	var newID int
	err := q.QueryRowContext(ctx, query,
		uuid.NewString(), p.UserID, p.Amount, p.Currency, p.ProviderEventID,
		p.ProviderReference, p.Status, p.DaysGranted, p.Source).Scan(&newID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return 0, ErrDuplicateEvent
		}
		return 0, err
	}
	return newID, nil
}

// CreatePaymentAndExtendPremium записывает платёж и продлевает premium
// одной транзакцией. Если продление не удалось, запись о платеже
// откатывается и повторная доставка события обработается заново.
// Повторный ProviderEventID даёт ErrDuplicateEvent без изменения срока.
func (s *Storage) CreatePaymentAndExtendPremium(ctx context.Context, p models.Payment, now time.Time) (time.Time, error) {
	const op = "storage.CreatePaymentAndExtendPremium"
	select {
	case <-ctx.Done():
		return time.Time{}, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err = insertPayment(ctx, tx, p); err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	newUntil, err := extendPremium(ctx, tx, p.UserID, p.DaysGranted, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	if err = tx.Commit(); err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", op, err)
	}
	return newUntil, nil
}

// PaymentEventProcessed сообщает, обрабатывалось ли уже событие провайдера.
func (s *Storage) PaymentEventProcessed(ctx context.Context, providerEventID string) (bool, error) {
	const op = "storage.PaymentEventProcessed"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var exists bool
	err := s.DB.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM payments WHERE provider_event_id = $1)`,
		providerEventID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

// ListPayments возвращает историю начислений пользователя, новые первыми.
func (s *Storage) ListPayments(ctx context.Context, userID int64) ([]*models.Payment, error) {
	const op = "storage.ListPayments"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, uid, user_id, amount, currency,
			      COALESCE(provider_event_id, ''), provider_reference,
			      status, days_granted, source, created_at
			  FROM payments
			  WHERE user_id = $1
			  ORDER BY created_at DESC`
	rows, err := s.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Payment
	for rows.Next() {
		var p models.Payment
		if err := rows.Scan(&p.ID, &p.UID, &p.UserID, &p.Amount, &p.Currency,
			&p.ProviderEventID, &p.ProviderReference,
			&p.Status, &p.DaysGranted, &p.Source, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// TotalRevenue возвращает сумму завершённых платежей (в копейках) начиная с since.
// Учитываются только платежи с source = payment: реферальные и админские
// начисления дохода не приносят.
func (s *Storage) TotalRevenue(ctx context.Context, since time.Time) (int64, error) {
	const op = "storage.TotalRevenue"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var total int64
	err := s.DB.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM payments
		 WHERE created_at >= $1 AND status = $2 AND source = $3`,
		since, models.PaymentStatusCompleted, models.PaymentSourcePayment).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return total, nil
}

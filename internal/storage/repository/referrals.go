package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/speakly/billing-engine/internal/models"
)

// CreateReferral создаёт реферальную запись. Возвращает false, если для
// приглашённого запись уже существует: у пользователя может быть только
// один реферер.
func (s *Storage) CreateReferral(ctx context.Context, referrerID, referredID int64) (bool, error) {
	const op = "storage.CreateReferral"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.DB.ExecContext(ctx,
		`INSERT INTO referrals (referrer_id, referred_id) VALUES ($1, $2)
		 ON CONFLICT (referred_id) DO NOTHING`,
		referrerID, referredID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return affected == 1, nil
}

// GetReferralByReferred возвращает реферальную запись приглашённого
// пользователя или nil, если её нет.
func (s *Storage) GetReferralByReferred(ctx context.Context, referredID int64) (*models.Referral, error) {
	const op = "storage.GetReferralByReferred"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, referrer_id, referred_id, status, bonus_days_given, created_at
			  FROM referrals
			  WHERE referred_id = $1`
	r := &models.Referral{}
	err := s.DB.QueryRowContext(ctx, query, referredID).Scan(
		&r.ID, &r.ReferrerID, &r.ReferredID, &r.Status, &r.BonusDaysGiven, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return r, nil
}

// MarkReferralSubscribed переводит запись из registered в subscribed и
// фиксирует выданный бонус. Обновление сработает только у одного
// вызывающего: условие status = registered в WHERE делает переход
// одноразовым даже при гонке двух вебхуков.
func (s *Storage) MarkReferralSubscribed(ctx context.Context, referredID int64, bonusDays int) (bool, error) {
	const op = "storage.MarkReferralSubscribed"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.DB.ExecContext(ctx,
		`UPDATE referrals
		 SET status = $1, bonus_days_given = bonus_days_given + $2
		 WHERE referred_id = $3 AND status = $4`,
		models.ReferralStatusSubscribed, bonusDays, referredID, models.ReferralStatusRegistered)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return affected == 1, nil
}

// CountReferrals возвращает количество приглашённых пользователем:
// всего и дошедших до оплаты.
func (s *Storage) CountReferrals(ctx context.Context, referrerID int64) (total, subscribed int, err error) {
	const op = "storage.CountReferrals"
	select {
	case <-ctx.Done():
		return 0, 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	err = s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE status = $1)
		 FROM referrals WHERE referrer_id = $2`,
		models.ReferralStatusSubscribed, referrerID).Scan(&total, &subscribed)
	if err != nil {
		return 0, 0, fmt.Errorf("%s: %w", op, err)
	}
	return total, subscribed, nil
}

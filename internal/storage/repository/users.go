package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/speakly/billing-engine/internal/models"
)

const userColumns = `id, username, first_name, language_code, premium_until,
			      trial_notified, premium_expired_notified, referrer_id, referral_code,
			      is_blocked, created_at, last_active_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	u := &models.User{}
	var premiumUntil sql.NullTime
	var referrerID sql.NullInt64
	var username, firstName sql.NullString
	if err := row.Scan(&u.ID, &username, &firstName, &u.LanguageCode, &premiumUntil,
		&u.TrialNotified, &u.PremiumExpiredNotified, &referrerID, &u.ReferralCode,
		&u.IsBlocked, &u.CreatedAt, &u.LastActiveAt); err != nil {
		return nil, err
	}
	u.Username = username.String
	u.FirstName = firstName.String
	if premiumUntil.Valid {
		t := premiumUntil.Time.UTC()
		u.PremiumUntil = &t
	}
	if referrerID.Valid {
		u.ReferrerID = &referrerID.Int64
	}
	return u, nil
}

// newReferralCode генерирует короткий уникальный код приглашения.
func newReferralCode() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// CreateUser сохраняет нового пользователя и возвращает его запись.
// ReferrerID выставляется только при создании и далее не меняется.
func (s *Storage) CreateUser(ctx context.Context, user models.User) (*models.User, error) {
	const op = "storage.CreateUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO users (id, username, first_name, language_code, referrer_id, referral_code)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  ON CONFLICT (id) DO NOTHING`
	if _, err := s.DB.ExecContext(ctx, query,
		user.ID, user.Username, user.FirstName, user.LanguageCode,
		user.ReferrerID, newReferralCode()); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s.GetUser(ctx, user.ID)
}

// GetUser возвращает пользователя по его Telegram ID.
func (s *Storage) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	const op = "storage.GetUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// GetUserByReferralCode возвращает пользователя по коду приглашения.
func (s *Storage) GetUserByReferralCode(ctx context.Context, code string) (*models.User, error) {
	const op = "storage.GetUserByReferralCode"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE referral_code = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// AddPremiumDays атомарно продлевает premium пользователя на days дней
// и возвращает новый срок действия. База продления — максимум из текущего
// premium_until и now: раннее продление не теряет оплаченные дни, а после
// перерыва отсчёт идёт от настоящего момента, не от истёкшей даты.
// Строка пользователя блокируется на время транзакции (FOR UPDATE),
// поэтому гонка двух начислений невозможна. Флаг premium_expired_notified
// сбрасывается: продлившийся пользователь снова получит уведомление
// об окончании.
func (s *Storage) AddPremiumDays(ctx context.Context, userID int64, days int, now time.Time) (time.Time, error) {
	const op = "storage.AddPremiumDays"
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

	newUntil, err := extendPremium(ctx, tx, userID, days, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	if err = tx.Commit(); err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", op, err)
	}
	return newUntil, nil
}

// extendPremium продлевает premium внутри открытой транзакции.
// Строка пользователя блокируется до конца транзакции.
func extendPremium(ctx context.Context, tx *sql.Tx, userID int64, days int, now time.Time) (time.Time, error) {
	var current sql.NullTime
	err := tx.QueryRowContext(ctx,
		`SELECT premium_until FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&current)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, ErrUserNotFound
		}
		return time.Time{}, err
	}

	base := now
	if current.Valid && current.Time.After(now) {
		base = current.Time.UTC()
	}
	newUntil := base.Add(time.Duration(days) * 24 * time.Hour)

	_, err = tx.ExecContext(ctx,
		`UPDATE users SET premium_until = $1, premium_expired_notified = FALSE WHERE id = $2`,
		newUntil, userID)
	if err != nil {
		return time.Time{}, err
	}
	return newUntil, nil
}

// RemovePremium снимает premium с пользователя. Флаги уведомлений
// не трогает.
func (s *Storage) RemovePremium(ctx context.Context, userID int64) error {
	const op = "storage.RemovePremium"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.DB.ExecContext(ctx,
		`UPDATE users SET premium_until = NULL WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	return nil
}

// FindExpiredTrialUsers находит пользователей с закончившимся пробным
// периодом, которым ещё не отправлялось уведомление. Пользователи
// с действующим premium и заблокированные не попадают в выборку.
func (s *Storage) FindExpiredTrialUsers(ctx context.Context, now time.Time, trialDays int) ([]*models.User, error) {
	const op = "storage.FindExpiredTrialUsers"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	cutoff := now.Add(-time.Duration(trialDays) * 24 * time.Hour)
	query := `SELECT ` + userColumns + `
			  FROM users
			  WHERE trial_notified = FALSE
			    AND (premium_until IS NULL OR premium_until <= $1)
			    AND created_at <= $2
			    AND NOT is_blocked`
	return s.queryUsers(ctx, op, query, now, cutoff)
}

// FindExpiredPremiumUsers находит пользователей с истёкшим premium,
// которым ещё не отправлялось уведомление об этом.
func (s *Storage) FindExpiredPremiumUsers(ctx context.Context, now time.Time) ([]*models.User, error) {
	const op = "storage.FindExpiredPremiumUsers"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + userColumns + `
			  FROM users
			  WHERE premium_expired_notified = FALSE
			    AND premium_until IS NOT NULL
			    AND premium_until <= $1
			    AND NOT is_blocked`
	return s.queryUsers(ctx, op, query, now)
}

func (s *Storage) queryUsers(ctx context.Context, op, query string, args ...any) ([]*models.User, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// MarkTrialNotified отмечает, что попытка уведомления об окончании
// триала была сделана. Вызывается независимо от успеха доставки.
func (s *Storage) MarkTrialNotified(ctx context.Context, userID int64) error {
	const op = "storage.MarkTrialNotified"

	_, err := s.DB.ExecContext(ctx,
		`UPDATE users SET trial_notified = TRUE WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// MarkPremiumExpiredNotified отмечает попытку уведомления об окончании premium.
func (s *Storage) MarkPremiumExpiredNotified(ctx context.Context, userID int64) error {
	const op = "storage.MarkPremiumExpiredNotified"

	_, err := s.DB.ExecContext(ctx,
		`UPDATE users SET premium_expired_notified = TRUE WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// SetBlocked выставляет флаг блокировки пользователя.
func (s *Storage) SetBlocked(ctx context.Context, userID int64, blocked bool) error {
	const op = "storage.SetBlocked"

	_, err := s.DB.ExecContext(ctx,
		`UPDATE users SET is_blocked = $1 WHERE id = $2`, blocked, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// UpdateLastActive обновляет отметку последней активности пользователя.
func (s *Storage) UpdateLastActive(ctx context.Context, userID int64, now time.Time) error {
	const op = "storage.UpdateLastActive"

	_, err := s.DB.ExecContext(ctx,
		`UPDATE users SET last_active_at = $1 WHERE id = $2`, now, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Package usage ведёт дневные счётчики использования free-версии в Redis.
// Счётчики лежат вне процесса, поэтому лимиты работают одинаково при
// нескольких экземплярах бота. Ядро счётчики не читает — ими пользуются
// обработчики сообщений.
package usage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/speakly/billing-engine/internal/config"
)

// Виды считаемых сообщений.
const (
	KindText  = "text"
	KindVoice = "voice"
)

// keyTTL с запасом перекрывает сутки, чтобы ключ дожил до конца дня
// в любом часовом поясе и затем удалился сам.
const keyTTL = 48 * time.Hour

// Counter хранит дневные счётчики в Redis.
type Counter struct {
	db *redis.Client
}

// InitServer подключается к Redis и проверяет соединение.
func InitServer(ctx context.Context, cfg config.RedisConnection) (*Counter, error) {
	const op = "usage.InitServer"
	db := redis.NewClient(&redis.Options{
		Addr:         cfg.AddressRedis,
		Password:     cfg.Password,
		DB:           cfg.DB,
		Username:     cfg.User,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.TimeoutRedis,
		WriteTimeout: cfg.TimeoutRedis,
	})

	if err := db.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Counter{db: db}, nil
}

func key(userID int64, kind string, day time.Time) string {
	return fmt.Sprintf("usage:%d:%s:%s", userID, kind, day.Format("2006-01-02"))
}

// Increment увеличивает счётчик пользователя за день day и возвращает
// новое значение. TTL выставляется при первом инкременте.
func (c *Counter) Increment(ctx context.Context, userID int64, kind string, day time.Time) (int, error) {
	const op = "usage.Increment"

	k := key(userID, kind, day)
	n, err := c.db.Incr(ctx, k).Result()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if n == 1 {
		if err := c.db.Expire(ctx, k, keyTTL).Err(); err != nil {
			return int(n), fmt.Errorf("%s: %w", op, err)
		}
	}
	return int(n), nil
}

// Count возвращает текущее значение счётчика за день day.
func (c *Counter) Count(ctx context.Context, userID int64, kind string, day time.Time) (int, error) {
	const op = "usage.Count"

	n, err := c.db.Get(ctx, key(userID, kind, day)).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

// Allow инкрементирует счётчик и сообщает, укладывается ли пользователь
// в лимит. Вызывающий проверяет статус подписки сам: premium и trial
// сюда не приходят.
func (c *Counter) Allow(ctx context.Context, userID int64, kind string, day time.Time, limit int) (bool, error) {
	n, err := c.Increment(ctx, userID, kind, day)
	if err != nil {
		return false, err
	}
	return n <= limit, nil
}

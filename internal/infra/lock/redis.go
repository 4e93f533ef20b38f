package lock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"time"

	"checkout-engine/internal/pkg/errs"
	"checkout-engine/internal/usecase/commands"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "checkout:confirm:"

// Deletes the key only while it still carries our token, so a holder whose TTL
// lapsed cannot release a lock someone else now owns.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type Settings struct {
	TTL          time.Duration
	RetryDelay   time.Duration
	AcquireLimit time.Duration
}

// RedisLocker is a single-instance SET NX PX lock. It narrows the window for
// duplicate confirmations across processes; the conditional status update in
// Postgres remains the source of truth.
type RedisLocker struct {
	client   redis.UniversalClient
	settings Settings
	logger   *slog.Logger
}

func NewRedisLocker(client redis.UniversalClient, settings Settings, logger *slog.Logger) *RedisLocker {
	if settings.RetryDelay <= 0 {
		settings.RetryDelay = 25 * time.Millisecond
	}
	if settings.AcquireLimit <= 0 {
		settings.AcquireLimit = settings.TTL
	}
	return &RedisLocker{client: client, settings: settings, logger: logger}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	token, err := newToken()
	if err != nil {
		return nil, errs.Wrap(err, "generate lock token")
	}
	redisKey := keyPrefix + key

	ctx, cancel := context.WithTimeout(ctx, l.settings.AcquireLimit)
	defer cancel()

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.settings.TTL).Result()
		if err != nil {
			return nil, errs.Wrapf(commands.ErrLockUnavailable, "acquire %s: %v", redisKey, err)
		}
		if ok {
			return l.releaser(redisKey, token), nil
		}

		select {
		case <-ctx.Done():
			return nil, errs.Wrapf(commands.ErrLockUnavailable, "acquire %s: %v", redisKey, ctx.Err())
		case <-time.After(l.settings.RetryDelay):
		}
	}
}

func (l *RedisLocker) releaser(redisKey, token string) func() {
	return func() {
		// Release must run even when the request context is already cancelled.
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.client, []string{redisKey}, token).Err(); err != nil {
			l.logger.Warn("failed to release confirmation lock", "key", redisKey, "error", err.Error())
		}
	}
}

func newToken() (string, error) {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf[:]), nil
}

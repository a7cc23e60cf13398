package lock

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
end
return 0`

const renewScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("pexpire", KEYS[1], ARGV[2])
end
return 0`

// Redis serializes holders across processes with SET NX PX. While a holder keeps the lock
// its lease is extended every third of the TTL, so the TTL only bounds how long a crashed
// holder blocks others. Release only deletes the key while it still carries this holder's
// token.
type Redis struct {
	client    redis.Cmdable
	ttl       time.Duration
	retry     time.Duration
	newToken  func() string
	newTicker func(time.Duration) (<-chan time.Time, func())
}

func NewRedis(client redis.Cmdable, ttl, retry time.Duration) *Redis {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if retry <= 0 {
		retry = 50 * time.Millisecond
	}
	return &Redis{client: client, ttl: ttl, retry: retry, newToken: uuid.NewString, newTicker: stdTicker}
}

func stdTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	token := r.newToken()
	for {
		ok, err := r.client.SetNX(ctx, key, token, r.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}
		timer := time.NewTimer(r.retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	stop := make(chan struct{})
	renewed := make(chan struct{})
	go func() {
		defer close(renewed)
		r.keepAlive(context.WithoutCancel(ctx), key, token, stop)
	}()

	return func() {
		close(stop)
		<-renewed
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := r.client.Eval(releaseCtx, releaseScript, []string{key}, token).Err(); err != nil {
			slog.Warn("lock release failed", "key", key, "err", err)
		}
	}, nil
}

func (r *Redis) keepAlive(ctx context.Context, key, token string, stop <-chan struct{}) {
	ticks, stopTicker := r.newTicker(r.ttl / 3)
	defer stopTicker()
	for {
		select {
		case <-stop:
			return
		case <-ticks:
		}
		held, err := r.renew(ctx, key, token)
		switch {
		case err != nil:
			slog.Warn("lock renew failed", "key", key, "err", err)
		case !held:
			slog.Error("lock lease lost", "key", key)
			return
		}
	}
}

// renew extends the lease and reports whether this holder still owns the key.
func (r *Redis) renew(ctx context.Context, key, token string) (bool, error) {
	renewCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	n, err := r.client.Eval(renewCtx, renewScript, []string{key}, token, r.ttl.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("renew lock %s: %w", key, err)
	}
	return n == 1, nil
}

package authcode

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// throttle enforces fixed-window budgets for sign-in failures and reset
// requests with Redis counters. Keys expire with the cooldown, so a window
// resets itself without cleanup jobs. All methods fail closed: when Redis
// is unreachable the flow is refused, not waved through.
type throttle struct {
	redis  redis.UniversalClient
	config ThrottleConfig
}

func newThrottle(client redis.UniversalClient, cfg ThrottleConfig) *throttle {
	return &throttle{redis: client, config: cfg}
}

func signInKey(login string) string { return "acl:signin:" + login }
func signInIPKey(ip string) string  { return "acl:signin:ip:" + ip }
func resetKey(login string) string  { return "acr:reset:" + login }
func resetIPKey(ip string) string   { return "acr:reset:ip:" + ip }

// checkSignIn reports whether another sign-in attempt is allowed for the
// login/IP pair. A nil receiver allows everything.
func (t *throttle) checkSignIn(ctx context.Context, login string) error {
	if t == nil {
		return nil
	}
	if err := t.check(ctx, signInKey(login), t.config.MaxSignInFails); err != nil {
		return err
	}
	if ip := t.clientIP(ctx); ip != "" {
		return t.check(ctx, signInIPKey(ip), t.config.MaxSignInFails)
	}
	return nil
}

// recordSignInFailure counts a failed attempt against the login and IP
// windows.
func (t *throttle) recordSignInFailure(ctx context.Context, login string) error {
	if t == nil {
		return nil
	}
	if err := t.bump(ctx, signInKey(login), t.config.SignInCooldown); err != nil {
		return err
	}
	if ip := t.clientIP(ctx); ip != "" {
		return t.bump(ctx, signInIPKey(ip), t.config.SignInCooldown)
	}
	return nil
}

// clearSignIn forgets the failure counters after a successful sign-in.
func (t *throttle) clearSignIn(ctx context.Context, login string) error {
	if t == nil {
		return nil
	}
	keys := []string{signInKey(login)}
	if ip := t.clientIP(ctx); ip != "" {
		keys = append(keys, signInIPKey(ip))
	}
	if err := t.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrThrottleUnavailable, err)
	}
	return nil
}

// checkAndRecordReset counts a reset request and refuses it when the window
// budget is spent. Unlike sign-in, every request costs budget, success or
// not, because each one sends an email.
func (t *throttle) checkAndRecordReset(ctx context.Context, login string) error {
	if t == nil {
		return nil
	}
	count, err := t.incr(ctx, resetKey(login), t.config.ResetCooldown)
	if err != nil {
		return err
	}
	if count > int64(t.config.MaxResetRequests) {
		return ErrResetRateLimited
	}
	if ip := t.clientIP(ctx); ip != "" {
		count, err = t.incr(ctx, resetIPKey(ip), t.config.ResetCooldown)
		if err != nil {
			return err
		}
		if count > int64(t.config.MaxResetRequests) {
			return ErrResetRateLimited
		}
	}
	return nil
}

func (t *throttle) clientIP(ctx context.Context) string {
	if !t.config.PerIP {
		return ""
	}
	return clientIPFromContext(ctx)
}

func (t *throttle) check(ctx context.Context, key string, budget int) error {
	count, err := t.redis.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrThrottleUnavailable, err)
	}
	if count >= int64(budget) {
		return ErrSignInRateLimited
	}
	return nil
}

func (t *throttle) bump(ctx context.Context, key string, ttl time.Duration) error {
	_, err := t.incr(ctx, key, ttl)
	return err
}

func (t *throttle) incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := t.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrThrottleUnavailable, err)
	}
	// Fixed window: the TTL is set once, by the first hit.
	if count == 1 {
		if err := t.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrThrottleUnavailable, err)
		}
	}
	return count, nil
}

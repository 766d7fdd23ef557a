package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/CerisonAutomation/FYKBEST-sub001/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

// renewScript extends the lease only while it is still held by owner.
var renewScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lease is a named lock held by at most one instance at a time. The holder
// keeps it by calling Hold again before ttl runs out.
type Lease struct {
	rdb   goredis.Cmdable
	key   string
	owner string
	ttl   time.Duration
}

var _ domain.Lease = (*Lease)(nil)

// NewLease creates a lease on key. owner must be unique per instance, e.g.
// hostname and PID.
func NewLease(rdb goredis.Cmdable, key, owner string, ttl time.Duration) *Lease {
	return &Lease{rdb: rdb, key: "lease:" + key, owner: owner, ttl: ttl}
}

// Hold renews the lease if this instance owns it, otherwise tries to take it.
// It reports whether this instance holds the lease afterwards.
func (l *Lease) Hold(ctx context.Context) (bool, error) {
	renewed, err := renewScript.Run(ctx, l.rdb, []string{l.key}, l.owner, l.ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("failed to renew lease %s: %w", l.key, err)
	}
	if renewed == 1 {
		return true, nil
	}

	ok, err := l.rdb.SetNX(ctx, l.key, l.owner, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lease %s: %w", l.key, err)
	}
	return ok, nil
}

// Release gives the lease up if this instance still owns it.
func (l *Lease) Release(ctx context.Context) error {
	err := releaseScript.Run(ctx, l.rdb, []string{l.key}, l.owner).Err()
	if err != nil && !errors.Is(err, goredis.Nil) {
		return fmt.Errorf("failed to release lease %s: %w", l.key, err)
	}
	return nil
}

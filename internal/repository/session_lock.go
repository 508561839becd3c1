package repository

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrSessionBusy 同一会话已有另一个请求在占用（比如同一供应商开了两个标签页）
var ErrSessionBusy = errors.New("session is locked by another request")

const sessionLockTTL = 10 * time.Second

// RedisSessionLocker 基于 Redis SETNX 的会话级排他锁。
// 状态机对同一会话的转换必须串行，锁只护住单次请求的临界区，
// 真正的丢失更新由会话的版本号检查兜底。
type RedisSessionLocker struct {
	RDB *redis.Client
}

func NewRedisSessionLocker(rdb *redis.Client) *RedisSessionLocker {
	return &RedisSessionLocker{RDB: rdb}
}

func (l *RedisSessionLocker) Acquire(ctx context.Context, sessionID string) (func(), error) {
	key := "vet:session_lock:" + sessionID
	ok, err := l.RDB.SetNX(ctx, key, 1, sessionLockTTL).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrSessionBusy
	}
	release := func() {
		l.RDB.Del(context.Background(), key)
	}
	return release, nil
}

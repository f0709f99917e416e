package service

import (
	"context"
	"fmt"
	"lesson_quest_backend/pkg/logger"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AccountLocker 同一账户的成长数据修改串行执行
type AccountLocker interface {
	Lock(ctx context.Context, userID uint) (unlock func(), err error)
}

type lockEntry struct {
	ch   chan struct{}
	refs int
}

// LocalLocker 进程内按账户加锁，无人等待时释放条目
type LocalLocker struct {
	mu    sync.Mutex
	locks map[uint]*lockEntry
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[uint]*lockEntry)}
}

func (l *LocalLocker) Lock(ctx context.Context, userID uint) (func(), error) {
	l.mu.Lock()
	e, ok := l.locks[userID]
	if !ok {
		e = &lockEntry{ch: make(chan struct{}, 1)}
		l.locks[userID] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-e.ch
				l.release(userID, e)
			})
		}, nil
	case <-ctx.Done():
		l.release(userID, e)
		return nil, ctx.Err()
	}
}

func (l *LocalLocker) release(userID uint, e *lockEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.locks, userID)
	}
}

func (l *LocalLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

// 仅删除自己持有的锁
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisLocker 多实例部署时基于 SET NX 的账户锁，TTL 防止持有者崩溃后死锁
type RedisLocker struct {
	Redis *redis.Client
	TTL   time.Duration
	Retry time.Duration
}

func NewRedisLocker(rdb *redis.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &RedisLocker{Redis: rdb, TTL: ttl, Retry: 25 * time.Millisecond}
}

func accountLockKey(userID uint) string {
	return fmt.Sprintf("lesson_quest:lock:account:%d", userID)
}

func (l *RedisLocker) Lock(ctx context.Context, userID uint) (func(), error) {
	key := accountLockKey(userID)
	token := uuid.New().String()

	for {
		ok, err := l.Redis.SetNX(ctx, key, token, l.TTL).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}

		timer := time.NewTimer(l.Retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// 请求 ctx 可能已取消，释放使用独立超时
			releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := releaseScript.Run(releaseCtx, l.Redis, []string{key}, token).Err(); err != nil {
				// 释放失败时锁会在 TTL 后自动过期
				logger.Log.Warn("Account lock release failed", zap.String("key", key), zap.Error(err))
			}
		})
	}, nil
}

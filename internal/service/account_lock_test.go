package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"lesson_quest_backend/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

func assertMutualExclusion(t *testing.T, locker AccountLocker) {
	t.Helper()
	var (
		wg      sync.WaitGroup
		holders int32
		maxSeen int32
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			unlock, err := locker.Lock(ctx, 7)
			if err != nil {
				t.Errorf("Lock: %v", err)
				return
			}
			n := atomic.AddInt32(&holders, 1)
			for {
				m := atomic.LoadInt32(&maxSeen)
				if n <= m || atomic.CompareAndSwapInt32(&maxSeen, m, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&holders, -1)
			unlock()
		}()
	}
	wg.Wait()
	if maxSeen != 1 {
		t.Fatalf("concurrent holders: want=1 got=%d", maxSeen)
	}
}

func TestLocalLockerSerializesSameAccount(t *testing.T) {
	l := NewLocalLocker()
	assertMutualExclusion(t, l)
	if l.size() != 0 {
		t.Fatalf("lock entries leaked: %d", l.size())
	}
}

func TestLocalLockerIndependentAccounts(t *testing.T) {
	l := NewLocalLocker()
	unlock1, err := l.Lock(context.Background(), 1)
	if err != nil {
		t.Fatalf("Lock 1: %v", err)
	}
	defer unlock1()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	unlock2, err := l.Lock(ctx, 2)
	if err != nil {
		t.Fatalf("Lock 2 blocked by account 1: %v", err)
	}
	unlock2()
}

func TestLocalLockerHonorsContext(t *testing.T) {
	l := NewLocalLocker()
	unlock, _ := l.Lock(context.Background(), 1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := l.Lock(ctx, 1); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("want deadline exceeded, got=%v", err)
	}

	unlock()
	unlock()
	if l.size() != 0 {
		t.Fatalf("lock entries leaked: %d", l.size())
	}
}

func TestRedisLockerSerializesSameAccount(t *testing.T) {
	_, rdb := newTestRedis(t)
	locker := NewRedisLocker(rdb, time.Second)
	locker.Retry = time.Millisecond
	assertMutualExclusion(t, locker)
}

func TestRedisLockerReleasesOnlyOwnLock(t *testing.T) {
	mr, rdb := newTestRedis(t)
	locker := NewRedisLocker(rdb, time.Second)

	unlock, err := locker.Lock(context.Background(), 3)
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	key := accountLockKey(3)
	if !mr.Exists(key) {
		t.Fatalf("lock key %s not set", key)
	}

	// 锁过期后被其他持有者获取
	mr.FastForward(2 * time.Second)
	if err := mr.Set(key, "someone-else"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	unlock()
	if v, _ := mr.Get(key); v != "someone-else" {
		t.Fatalf("released a lock held by another owner: %q", v)
	}
}

func TestRedisLockerLogsFailedRelease(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	previous := logger.Log
	logger.Log = zap.New(core)
	t.Cleanup(func() { logger.Log = previous })

	mr, rdb := newTestRedis(t)
	locker := NewRedisLocker(rdb, time.Minute)
	unlock, err := locker.Lock(context.Background(), 5)
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}

	mr.Close()
	unlock()

	entries := logs.FilterMessage("Account lock release failed").All()
	if len(entries) != 1 {
		t.Fatalf("release failure logs: want=1 got=%d", len(entries))
	}
	if key := entries[0].ContextMap()["key"]; key != accountLockKey(5) {
		t.Fatalf("logged key: want=%s got=%v", accountLockKey(5), key)
	}
}

func TestRedisLockerHonorsContext(t *testing.T) {
	_, rdb := newTestRedis(t)
	locker := NewRedisLocker(rdb, time.Minute)

	unlock, err := locker.Lock(context.Background(), 4)
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	if _, err := locker.Lock(ctx, 4); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("want deadline exceeded, got=%v", err)
	}
}

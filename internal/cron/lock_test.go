package cron

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/pizzeria-backend/pkg/redis"
)

type memLockStore struct {
	values map[string]string
}

func (m *memLockStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	return true, nil
}

func (m *memLockStore) Get(_ context.Context, key string) (string, error) {
	v, ok := m.values[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memLockStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

func (m *memLockStore) LockKey(name string) string { return "pz:lock:" + name }

func TestRedisLockExclusive(t *testing.T) {
	store := &memLockStore{values: map[string]string{}}
	first, err := NewRedisLock(store, "cron", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	second, _ := NewRedisLock(store, "cron", time.Minute)
	ctx := context.Background()

	if ok, err := first.Acquire(ctx); err != nil || !ok {
		t.Fatalf("expected first acquire, got %v %v", ok, err)
	}
	if ok, _ := second.Acquire(ctx); ok {
		t.Fatal("expected second acquire to fail")
	}
	if err := second.Release(ctx); err != nil {
		t.Fatal(err)
	}
	if _, held := store.values["pz:lock:cron"]; !held {
		t.Fatal("non-owner release must not drop the lock")
	}
	if err := first.Release(ctx); err != nil {
		t.Fatal(err)
	}
	if ok, _ := second.Acquire(ctx); !ok {
		t.Fatal("expected lock free after owner release")
	}
}

func TestRedisLockLeavesTakenOverLock(t *testing.T) {
	store := &memLockStore{values: map[string]string{}}
	lock, _ := NewRedisLock(store, "cron", time.Minute)
	ctx := context.Background()
	if ok, _ := lock.Acquire(ctx); !ok {
		t.Fatal("expected acquire")
	}
	store.values["pz:lock:cron"] = "someone-else"

	if err := lock.Release(ctx); err != nil {
		t.Fatal(err)
	}
	if store.values["pz:lock:cron"] != "someone-else" {
		t.Fatal("expected foreign lock kept")
	}
}

package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// setupTestRedis creates a test Redis client. Tests are skipped when no
// local Redis is reachable; the testcontainers-backed integration suite
// covers the same paths against a real instance.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // Use a separate DB for tests
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}

	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

func TestNewManager_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewManager should panic with nil redis client")
		}
	}()
	NewManager(nil, 0)
}

func TestManager_SetAndGet(t *testing.T) {
	client := setupTestRedis(t)
	manager := NewManager(client, 0)
	ctx := context.Background()

	key := NewKey("/books", map[string]string{"page": "1", "limit": "20"})
	payload := json.RawMessage(`{"books":[{"id":"b1","title":"X"}],"pagination":{"total":1}}`)

	entry := NewEntry(payload)
	if err := manager.Set(ctx, key, entry); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	retrieved, err := manager.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if string(retrieved.Payload) != string(payload) {
		t.Errorf("Payload mismatch: got %s, want %s", retrieved.Payload, payload)
	}
	if retrieved.StoredAt.IsZero() {
		t.Error("StoredAt not preserved")
	}
}

func TestManager_Get_CacheMiss(t *testing.T) {
	client := setupTestRedis(t)
	manager := NewManager(client, 0)

	_, err := manager.Get(context.Background(), NewKey("/nonexistent", nil))
	if err != ErrCacheMiss {
		t.Errorf("Expected ErrCacheMiss, got %v", err)
	}
}

func TestManager_Overwrite(t *testing.T) {
	client := setupTestRedis(t)
	manager := NewManager(client, 0)
	ctx := context.Background()

	key := NewKey("/books/recent", nil)

	if err := manager.Set(ctx, key, NewEntry(json.RawMessage(`{"v":"a"}`))); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := manager.Set(ctx, key, NewEntry(json.RawMessage(`{"v":"b"}`))); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	retrieved, err := manager.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(retrieved.Payload) != `{"v":"b"}` {
		t.Errorf("Expected last write to win, got %s", retrieved.Payload)
	}
}

func TestManager_Delete(t *testing.T) {
	client := setupTestRedis(t)
	manager := NewManager(client, 0)
	ctx := context.Background()

	key := NewKey("/books", nil)

	if err := manager.Set(ctx, key, NewEntry(json.RawMessage(`{}`))); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := manager.Delete(ctx, key); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	_, err := manager.Get(ctx, key)
	if err != ErrCacheMiss {
		t.Errorf("Expected ErrCacheMiss after Delete, got %v", err)
	}
}

func TestManager_TTL(t *testing.T) {
	client := setupTestRedis(t)
	manager := NewManager(client, 1*time.Second)
	ctx := context.Background()

	key := NewKey("/books", nil)

	if err := manager.Set(ctx, key, NewEntry(json.RawMessage(`{}`))); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	ttl, err := client.TTL(ctx, key.String()).Result()
	if err != nil {
		t.Fatalf("TTL failed: %v", err)
	}
	if ttl <= 0 || ttl > 1*time.Second {
		t.Errorf("Expected TTL in (0, 1s], got %v", ttl)
	}
}

func TestManager_Set_NilEntry(t *testing.T) {
	client := setupTestRedis(t)
	manager := NewManager(client, 0)

	if err := manager.Set(context.Background(), NewKey("/books", nil), nil); err == nil {
		t.Error("Set with nil entry should return error")
	}
}

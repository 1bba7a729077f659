package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"

	"github.com/batchcorp/pbench/types"
)

func newTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("unable to start miniredis: %v", err)
	}

	t.Cleanup(mr.Close)

	store, err := NewWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	if err != nil {
		t.Fatalf("unable to create store: %v", err)
	}

	return store, mr
}

func TestSaveAndGetRecord(t *testing.T) {
	store, _ := newTestStore(t)

	record := &types.PersistedPayloadRecord{
		ID:        "p1",
		Content:   "hello",
		Timestamp: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		Protocol:  "REST",
	}

	if err := store.SaveRecord(context.Background(), record); err != nil {
		t.Fatalf("unexpected save error: %v", err)
	}

	got, err := store.GetRecord(context.Background(), "p1")
	if err != nil {
		t.Fatalf("unexpected get error: %v", err)
	}

	if got.ID != record.ID || got.Content != record.Content || got.Protocol != record.Protocol {
		t.Errorf("record mismatch: got %+v, want %+v", got, record)
	}

	if !got.Timestamp.Equal(record.Timestamp) {
		t.Errorf("timestamp mismatch: got %s, want %s", got.Timestamp, record.Timestamp)
	}
}

func TestSaveRecord_DuplicateIDOverwrites(t *testing.T) {
	store, _ := newTestStore(t)

	first := &types.PersistedPayloadRecord{ID: "dup", Content: "first", Protocol: "REST"}
	second := &types.PersistedPayloadRecord{ID: "dup", Content: "second", Protocol: "RPC_UNARY"}

	if err := store.SaveRecord(context.Background(), first); err != nil {
		t.Fatalf("unexpected save error: %v", err)
	}

	if err := store.SaveRecord(context.Background(), second); err != nil {
		t.Fatalf("unexpected save error: %v", err)
	}

	got, err := store.GetRecord(context.Background(), "dup")
	if err != nil {
		t.Fatalf("unexpected get error: %v", err)
	}

	if got.Content != "second" || got.Protocol != "RPC_UNARY" {
		t.Errorf("expected last write to win, got %+v", got)
	}
}

func TestSaveRecord_Validation(t *testing.T) {
	store, _ := newTestStore(t)

	if err := store.SaveRecord(context.Background(), nil); err == nil {
		t.Error("expected error for nil record")
	}

	if err := store.SaveRecord(context.Background(), &types.PersistedPayloadRecord{}); err == nil {
		t.Error("expected error for empty id")
	}
}

func TestHealthCheck(t *testing.T) {
	store, mr := newTestStore(t)

	if err := store.HealthCheck(context.Background()); err != nil {
		t.Errorf("unexpected health check error: %v", err)
	}

	mr.Close()

	if err := store.HealthCheck(context.Background()); err == nil {
		t.Error("expected health check error after redis shutdown")
	}
}

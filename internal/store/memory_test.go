package store

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestMemoryStoreUpsertAndGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	rec := Record{Namespace: NamespaceUsers, Key: "user-1", Fields: map[string]string{"name": "Jane"}}
	if err := s.Upsert(ctx, rec); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, err := s.Get(ctx, NamespaceUsers, "user-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Fields["name"] != "Jane" {
		t.Fatalf("unexpected record: %+v", got)
	}

	// Mutating the returned record must not affect the stored copy.
	got.Fields["name"] = "Mallory"
	again, _ := s.Get(ctx, NamespaceUsers, "user-1")
	if again.Fields["name"] != "Jane" {
		t.Fatal("store returned a shared map")
	}
}

func TestMemoryStoreUpsertReplaces(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_ = s.Upsert(ctx, Record{Namespace: NamespaceUsers, Key: "u", Fields: map[string]string{"v": "1"}})
	_ = s.Upsert(ctx, Record{Namespace: NamespaceUsers, Key: "u", Fields: map[string]string{"v": "2"}})

	got, err := s.Get(ctx, NamespaceUsers, "u")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Fields["v"] != "2" {
		t.Fatalf("expected replaced value, got %q", got.Fields["v"])
	}
}

func TestMemoryStoreQueryFilter(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_ = s.Upsert(ctx, Record{Namespace: NamespaceAppointments, Key: "a1",
		Fields: map[string]string{"user_id": "jane", "status": "confirmed"}})
	_ = s.Upsert(ctx, Record{Namespace: NamespaceAppointments, Key: "a2",
		Fields: map[string]string{"user_id": "jane", "status": "cancelled"}})
	_ = s.Upsert(ctx, Record{Namespace: NamespaceAppointments, Key: "a3",
		Fields: map[string]string{"user_id": "bob", "status": "confirmed"}})

	got, err := s.Query(ctx, NamespaceAppointments, Filter{"user_id": "jane", "status": "confirmed"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 1 || got[0].Key != "a1" {
		t.Fatalf("unexpected matches: %+v", got)
	}

	all, _ := s.Query(ctx, NamespaceAppointments, nil)
	if len(all) != 3 {
		t.Fatalf("nil filter should match everything, got %d", len(all))
	}
}

func TestMemoryStoreGetMissing(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.Get(context.Background(), NamespaceUsers, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreConcurrentAccess(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = s.Upsert(ctx, Record{Namespace: NamespaceUsers, Key: "shared",
				Fields: map[string]string{"n": "x"}})
			_, _ = s.Query(ctx, NamespaceUsers, nil)
		}(i)
	}
	wg.Wait()
}

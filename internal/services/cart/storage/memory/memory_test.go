package memory

import (
	"fmt"
	"testing"
	"time"

	"github.com/louisbranch/cartstore/internal/services/cart/domain"
)

func openTestStore(t *testing.T, capacity int) *Store {
	t.Helper()
	store, err := Open(capacity)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return store
}

func TestPutGetCopies(t *testing.T) {
	t.Parallel()

	store := openTestStore(t, 4)
	cart := domain.New("cart-1", time.Now())
	cart.AddItem(domain.Item{ProductID: 1, Price: 2, Quantity: 1})
	store.Put(cart)

	cart.Items[0].Quantity = 50

	got, ok := store.Get("cart-1")
	if !ok {
		t.Fatal("expected cart")
	}
	if got.Items[0].Quantity != 1 {
		t.Fatalf("quantity = %d, want 1", got.Items[0].Quantity)
	}

	got.Items[0].Quantity = 70
	again, _ := store.Get("cart-1")
	if again.Items[0].Quantity != 1 {
		t.Fatalf("quantity = %d, want 1", again.Items[0].Quantity)
	}
}

func TestDelete(t *testing.T) {
	t.Parallel()

	store := openTestStore(t, 4)
	store.Put(domain.New("cart-1", time.Now()))

	if !store.Delete("cart-1") {
		t.Fatal("expected delete to report presence")
	}
	if store.Delete("cart-1") {
		t.Fatal("second delete should report absence")
	}
	if _, ok := store.Get("cart-1"); ok {
		t.Fatal("expected cart to be gone")
	}
}

func TestCapacityEvictsLeastRecentlyUsed(t *testing.T) {
	t.Parallel()

	store := openTestStore(t, 2)
	now := time.Now()
	if evicted := store.Put(domain.New("a", now)); len(evicted) != 0 {
		t.Fatalf("evicted = %v, want none", evicted)
	}
	store.Put(domain.New("b", now))
	store.Get("a")
	evicted := store.Put(domain.New("c", now))

	if len(evicted) != 1 || evicted[0] != "b" {
		t.Fatalf("evicted = %v, want [b]", evicted)
	}
	if store.Len() != 2 {
		t.Fatalf("len = %d, want 2", store.Len())
	}
	if _, ok := store.Get("b"); ok {
		t.Fatal("expected b to be evicted")
	}
}

func TestUpdateDoesNotEvict(t *testing.T) {
	t.Parallel()

	store := openTestStore(t, 1)
	now := time.Now()
	store.Put(domain.New("a", now))
	if evicted := store.Put(domain.New("a", now.Add(time.Minute))); len(evicted) != 0 {
		t.Fatalf("evicted = %v, want none", evicted)
	}
}

func TestDeleteIsNotReportedAsEviction(t *testing.T) {
	t.Parallel()

	store := openTestStore(t, 2)
	now := time.Now()
	store.Put(domain.New("a", now))
	store.Delete("a")
	if evicted := store.Put(domain.New("b", now)); len(evicted) != 0 {
		t.Fatalf("evicted = %v, want none", evicted)
	}
}

func TestUnboundedKeepsEveryCart(t *testing.T) {
	t.Parallel()

	store := openTestStore(t, Unbounded)
	now := time.Now()
	for i := 0; i < 50000; i++ {
		if evicted := store.Put(domain.New(fmt.Sprintf("cart-%d", i), now)); len(evicted) != 0 {
			t.Fatalf("put %d evicted %v", i, evicted)
		}
	}
	if store.Len() != 50000 {
		t.Fatalf("len = %d, want 50000", store.Len())
	}
	if _, ok := store.Get("cart-0"); !ok {
		t.Fatal("expected oldest cart to survive")
	}
}

func TestSnapshot(t *testing.T) {
	t.Parallel()

	store := openTestStore(t, Unbounded)
	now := time.Now()
	store.Put(domain.New("a", now))
	store.Put(domain.New("b", now))

	snap := store.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("snapshot = %d, want 2", len(snap))
	}
}

func TestNilStore(t *testing.T) {
	t.Parallel()

	var store *Store
	if evicted := store.Put(domain.New("a", time.Now())); evicted != nil {
		t.Fatalf("evicted = %v, want nil", evicted)
	}
	if _, ok := store.Get("a"); ok {
		t.Fatal("nil store should be empty")
	}
	if store.Len() != 0 || store.Delete("a") || store.Snapshot() != nil {
		t.Fatal("nil store should be inert")
	}
}

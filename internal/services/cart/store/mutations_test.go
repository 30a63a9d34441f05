package store

import (
	"context"
	"testing"
	"time"

	"github.com/louisbranch/cartstore/internal/services/cart/domain"
)

func TestMutationScenario(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, newFakePrimary(), newTestClock())
	ctx := context.Background()

	cart, _ := s.GetOrCreate(ctx, "cart-1")

	cart, res := s.AddItem(ctx, cart.ID, domain.Item{ProductID: 1, Price: 10, Quantity: 2})
	if !res.Success || cart.Total != 20 {
		t.Fatalf("after first add: total = %v, result = %+v", cart.Total, res)
	}

	cart, _ = s.AddItem(ctx, cart.ID, domain.Item{ProductID: 1, Price: 10, Quantity: 3})
	if len(cart.Items) != 1 || cart.Items[0].Quantity != 5 || cart.Total != 50 {
		t.Fatalf("after second add: %+v", cart)
	}

	cart, res = s.SetQuantity(ctx, cart.ID, domain.BaseKey(1), 0)
	if !res.Found || !res.Success {
		t.Fatalf("set quantity result = %+v", res)
	}
	if len(cart.Items) != 0 || cart.Total != 0 {
		t.Fatalf("after set quantity 0: %+v", cart)
	}

	stored, _ := s.Get(ctx, cart.ID)
	if len(stored.Items) != 0 {
		t.Fatalf("stored items = %+v, want empty", stored.Items)
	}
}

func TestSetQuantityMissingItemSkipsSave(t *testing.T) {
	t.Parallel()

	primary := newFakePrimary()
	s := newTestStore(t, primary, newTestClock())
	ctx := context.Background()

	s.AddItem(ctx, "cart-1", domain.Item{ProductID: 1, Price: 2, Quantity: 1})
	sets := primary.count("Set")

	cart, res := s.SetQuantity(ctx, "cart-1", domain.VariantKey(1, 9), 3)
	if res.Found || res.Success {
		t.Fatalf("result = %+v, want not found", res)
	}
	if len(cart.Items) != 1 || cart.Items[0].Quantity != 1 {
		t.Fatalf("cart changed: %+v", cart.Items)
	}
	if primary.count("Set") != sets {
		t.Fatal("missing target must not trigger a save")
	}
}

func TestMutationsOnMissingCart(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, newFakePrimary(), newTestClock())
	ctx := context.Background()

	if _, res := s.SetQuantity(ctx, "ghost", domain.BaseKey(1), 2); res.Found {
		t.Fatal("set quantity on missing cart should not be found")
	}
	if _, res := s.RemoveItem(ctx, "ghost", domain.BaseKey(1)); res.Found {
		t.Fatal("remove item on missing cart should not be found")
	}
	if _, res := s.Clear(ctx, "ghost"); res.Found {
		t.Fatal("clear on missing cart should not be found")
	}
	if stats := s.Stats(ctx); stats.FallbackCount != 0 {
		t.Fatalf("fallback count = %d, want 0", stats.FallbackCount)
	}
}

func TestRemoveItemAndProduct(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, newFakePrimary(), newTestClock())
	ctx := context.Background()
	variant := int64(2)

	s.AddItem(ctx, "cart-1", domain.Item{ProductID: 1, Price: 1, Quantity: 1})
	s.AddItem(ctx, "cart-1", domain.Item{ProductID: 1, VariantID: &variant, Price: 2, Quantity: 1})
	s.AddItem(ctx, "cart-1", domain.Item{ProductID: 4, Price: 5, Quantity: 1})

	cart, res := s.RemoveItem(ctx, "cart-1", domain.VariantKey(1, 2))
	if !res.Found || len(cart.Items) != 2 || cart.Total != 6 {
		t.Fatalf("after strict remove: %+v, %+v", cart, res)
	}

	cart, res = s.RemoveProduct(ctx, "cart-1", 1)
	if !res.Found || len(cart.Items) != 1 || cart.Total != 5 {
		t.Fatalf("after broad remove: %+v, %+v", cart, res)
	}

	if _, res := s.RemoveProduct(ctx, "cart-1", 1); res.Found {
		t.Fatal("removing an absent product should report not found")
	}
}

func TestClearPersists(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, newFakePrimary(), newTestClock())
	ctx := context.Background()
	s.AddItem(ctx, "cart-1", domain.Item{ProductID: 1, Price: 1, Quantity: 3})

	cart, res := s.Clear(ctx, "cart-1")
	if !res.Success || len(cart.Items) != 0 || cart.Total != 0 {
		t.Fatalf("clear = %+v, %+v", cart, res)
	}
	stored, _ := s.Get(ctx, "cart-1")
	if len(stored.Items) != 0 {
		t.Fatalf("stored = %+v", stored)
	}
}

func TestMutationStampsUpdatedAt(t *testing.T) {
	t.Parallel()

	clock := newTestClock()
	s := newTestStore(t, newFakePrimary(), clock)
	ctx := context.Background()

	first, _ := s.AddItem(ctx, "cart-1", domain.Item{ProductID: 1, Quantity: 1})
	clock.Advance(time.Minute)
	second, _ := s.AddItem(ctx, "cart-1", domain.Item{ProductID: 1, Quantity: 1})

	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Fatalf("createdAt changed: %v -> %v", first.CreatedAt, second.CreatedAt)
	}
	if !second.UpdatedAt.Equal(clock.Now()) {
		t.Fatalf("updatedAt = %v, want %v", second.UpdatedAt, clock.Now())
	}
}

package domain

import (
	"math"
	"testing"
	"time"

	apperrors "github.com/louisbranch/cartstore/internal/platform/errors"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func int64Ptr(v int64) *int64 { return &v }

func assertTotal(t *testing.T, c Cart) {
	t.Helper()
	want := 0.0
	for _, it := range c.Items {
		want += it.Price * float64(it.Quantity)
	}
	if math.Abs(c.Total-want) > 1e-9 {
		t.Fatalf("total = %v, want %v", c.Total, want)
	}
}

func TestNewCartIsEmpty(t *testing.T) {
	t.Parallel()

	c := New(" cart-1 ", testNow)
	if c.ID != "cart-1" {
		t.Fatalf("id = %q, want %q", c.ID, "cart-1")
	}
	if c.Items == nil || len(c.Items) != 0 {
		t.Fatalf("items = %v, want empty non-nil slice", c.Items)
	}
	if c.Total != 0 {
		t.Fatalf("total = %v, want 0", c.Total)
	}
	if !c.CreatedAt.Equal(testNow) || !c.UpdatedAt.Equal(testNow) {
		t.Fatalf("timestamps = %v/%v, want %v", c.CreatedAt, c.UpdatedAt, testNow)
	}
}

func TestAddSetQuantityScenario(t *testing.T) {
	t.Parallel()

	c := New("cart-1", testNow)
	c.AddItem(Item{ProductID: 1, Price: 10, Quantity: 2})
	if c.Total != 20 {
		t.Fatalf("total = %v, want 20", c.Total)
	}

	c.AddItem(Item{ProductID: 1, Price: 10, Quantity: 3})
	if len(c.Items) != 1 {
		t.Fatalf("items = %d, want 1", len(c.Items))
	}
	if c.Items[0].Quantity != 5 {
		t.Fatalf("quantity = %d, want 5", c.Items[0].Quantity)
	}
	if c.Total != 50 {
		t.Fatalf("total = %v, want 50", c.Total)
	}

	if !c.SetQuantity(BaseKey(1), 0) {
		t.Fatal("expected set quantity to find item")
	}
	if len(c.Items) != 0 {
		t.Fatalf("items = %v, want empty", c.Items)
	}
	if c.Total != 0 {
		t.Fatalf("total = %v, want 0", c.Total)
	}
}

func TestAddItemMergeLaw(t *testing.T) {
	t.Parallel()

	x := Item{ProductID: 7, VariantID: int64Ptr(3), Name: "mug", Price: 4.5, Quantity: 2}
	c := New("cart-1", testNow)
	c.AddItem(x)
	c.AddItem(x)

	if len(c.Items) != 1 {
		t.Fatalf("items = %d, want 1", len(c.Items))
	}
	if c.Items[0].Quantity != 4 {
		t.Fatalf("quantity = %d, want 4", c.Items[0].Quantity)
	}
	assertTotal(t, c)
}

func TestAddItemKeepsVariantsApart(t *testing.T) {
	t.Parallel()

	c := New("cart-1", testNow)
	c.AddItem(Item{ProductID: 1, Price: 5, Quantity: 1})
	c.AddItem(Item{ProductID: 1, VariantID: int64Ptr(2), Price: 6, Quantity: 1})
	c.AddItem(Item{ProductID: 1, VariantID: int64Ptr(3), Price: 7, Quantity: 1})

	if len(c.Items) != 3 {
		t.Fatalf("items = %d, want 3", len(c.Items))
	}
	assertTotal(t, c)
	if err := c.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestAddItemDefaultsInvalidQuantity(t *testing.T) {
	t.Parallel()

	c := New("cart-1", testNow)
	c.AddItem(Item{ProductID: 1, Price: 2, Quantity: 0})
	c.AddItem(Item{ProductID: 1, Price: 2, Quantity: -4})

	if c.Items[0].Quantity != 2 {
		t.Fatalf("quantity = %d, want 2", c.Items[0].Quantity)
	}
	assertTotal(t, c)
}

func TestAddItemCopiesVariantPointer(t *testing.T) {
	t.Parallel()

	variant := int64Ptr(9)
	c := New("cart-1", testNow)
	c.AddItem(Item{ProductID: 1, VariantID: variant, Quantity: 1})
	*variant = 10

	if got := *c.Items[0].VariantID; got != 9 {
		t.Fatalf("variant = %d, want 9", got)
	}
}

func TestSetQuantityBoundaries(t *testing.T) {
	t.Parallel()

	c := New("cart-1", testNow)
	c.AddItem(Item{ProductID: 1, VariantID: int64Ptr(2), Price: 3, Quantity: 1})

	if c.SetQuantity(BaseKey(1), 4) {
		t.Fatal("base key must not match a variant line")
	}
	if c.SetQuantity(VariantKey(1, 5), 4) {
		t.Fatal("other variant must not match")
	}
	if len(c.Items) != 1 || c.Items[0].Quantity != 1 {
		t.Fatalf("items changed on miss: %+v", c.Items)
	}

	if !c.SetQuantity(VariantKey(1, 2), 6) {
		t.Fatal("expected match")
	}
	if c.Items[0].Quantity != 6 {
		t.Fatalf("quantity = %d, want 6", c.Items[0].Quantity)
	}
	assertTotal(t, c)

	if !c.SetQuantity(VariantKey(1, 2), -1) {
		t.Fatal("expected match on removal")
	}
	if len(c.Items) != 0 {
		t.Fatalf("items = %v, want empty", c.Items)
	}
}

func TestRemoveItemIsStrict(t *testing.T) {
	t.Parallel()

	c := New("cart-1", testNow)
	c.AddItem(Item{ProductID: 1, Price: 1, Quantity: 1})
	c.AddItem(Item{ProductID: 1, VariantID: int64Ptr(2), Price: 2, Quantity: 1})

	if !c.RemoveItem(VariantKey(1, 2)) {
		t.Fatal("expected variant removal")
	}
	if len(c.Items) != 1 || c.Items[0].VariantID != nil {
		t.Fatalf("items = %+v, want base line only", c.Items)
	}
	if c.RemoveItem(VariantKey(1, 2)) {
		t.Fatal("second removal should report nothing removed")
	}
	assertTotal(t, c)
}

func TestRemoveProductIsBroad(t *testing.T) {
	t.Parallel()

	c := New("cart-1", testNow)
	c.AddItem(Item{ProductID: 1, Price: 1, Quantity: 1})
	c.AddItem(Item{ProductID: 1, VariantID: int64Ptr(2), Price: 2, Quantity: 1})
	c.AddItem(Item{ProductID: 3, Price: 4, Quantity: 2})

	if !c.RemoveProduct(1) {
		t.Fatal("expected product removal")
	}
	if len(c.Items) != 1 || c.Items[0].ProductID != 3 {
		t.Fatalf("items = %+v, want product 3 only", c.Items)
	}
	if c.Total != 8 {
		t.Fatalf("total = %v, want 8", c.Total)
	}
	if c.RemoveProduct(42) {
		t.Fatal("unknown product should report nothing removed")
	}
}

func TestClear(t *testing.T) {
	t.Parallel()

	c := New("cart-1", testNow)
	c.AddItem(Item{ProductID: 1, Price: 9, Quantity: 2})
	c.Clear()

	if len(c.Items) != 0 || c.Total != 0 {
		t.Fatalf("cart = %+v, want empty", c)
	}
}

func TestRecomputeTotalIgnoresCorruptLines(t *testing.T) {
	t.Parallel()

	c := Cart{ID: "cart-1", Items: []Item{
		{ProductID: 1, Price: math.NaN(), Quantity: 2},
		{ProductID: 2, Price: math.Inf(1), Quantity: 1},
		{ProductID: 3, Price: 5, Quantity: -2},
		{ProductID: 4, Price: 2.5, Quantity: 2},
	}, Total: 999}
	c.RecomputeTotal()

	if c.Total != 5 {
		t.Fatalf("total = %v, want 5", c.Total)
	}
}

func TestCloneIsDeep(t *testing.T) {
	t.Parallel()

	c := New("cart-1", testNow)
	c.AddItem(Item{ProductID: 1, VariantID: int64Ptr(2), Quantity: 1})
	cp := c.Clone()
	cp.Items[0].Quantity = 9
	*cp.Items[0].VariantID = 8

	if c.Items[0].Quantity != 1 {
		t.Fatalf("quantity = %d, want 1", c.Items[0].Quantity)
	}
	if *c.Items[0].VariantID != 2 {
		t.Fatalf("variant = %d, want 2", *c.Items[0].VariantID)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cart *Cart
	}{
		{name: "nil", cart: nil},
		{name: "blank id", cart: &Cart{ID: "  "}},
		{name: "zero quantity", cart: &Cart{ID: "c", Items: []Item{{ProductID: 1}}}},
		{name: "duplicate key", cart: &Cart{ID: "c", Items: []Item{
			{ProductID: 1, Quantity: 1},
			{ProductID: 1, Quantity: 2},
		}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cart.Validate()
			if !apperrors.IsCode(err, apperrors.CodeValidation) {
				t.Fatalf("code = %v, want %v", apperrors.CodeOf(err), apperrors.CodeValidation)
			}
		})
	}
}

func TestItemKeyString(t *testing.T) {
	t.Parallel()

	if got := BaseKey(4).String(); got != "4" {
		t.Fatalf("base key = %q, want %q", got, "4")
	}
	if got := VariantKey(4, 2).String(); got != "4/2" {
		t.Fatalf("variant key = %q, want %q", got, "4/2")
	}
}

// Package domain defines the cart aggregate and the pure mutations applied to
// it. Persistence lives in the store package; nothing here performs I/O.
package domain

import (
	"fmt"
	"math"
	"strings"
	"time"

	apperrors "github.com/louisbranch/cartstore/internal/platform/errors"
)

// Item is one line of a cart. Name, Price, SKU and ImageURL are opaque
// catalog fields carried through unchanged.
type Item struct {
	ProductID int64   `json:"productId"`
	VariantID *int64  `json:"variantId"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	ImageURL  string  `json:"imageUrl"`
	SKU       string  `json:"sku"`
}

// ItemKey is the merge key of an item: product plus optional variant.
type ItemKey struct {
	ProductID  int64
	VariantID  int64
	HasVariant bool
}

// BaseKey identifies the base product without a variant.
func BaseKey(productID int64) ItemKey {
	return ItemKey{ProductID: productID}
}

// VariantKey identifies one variant of a product.
func VariantKey(productID, variantID int64) ItemKey {
	return ItemKey{ProductID: productID, VariantID: variantID, HasVariant: true}
}

// KeyOf builds a key from an optional variant pointer.
func KeyOf(productID int64, variantID *int64) ItemKey {
	if variantID == nil {
		return BaseKey(productID)
	}
	return VariantKey(productID, *variantID)
}

// Key returns the item's merge key.
func (it Item) Key() ItemKey {
	return KeyOf(it.ProductID, it.VariantID)
}

func (k ItemKey) String() string {
	if !k.HasVariant {
		return fmt.Sprintf("%d", k.ProductID)
	}
	return fmt.Sprintf("%d/%d", k.ProductID, k.VariantID)
}

// Cart is the aggregate root for one shopping session.
//
// Total is derived: it is recomputed by every mutation and otherwise only
// trusted as a cached display value.
type Cart struct {
	ID        string    `json:"id"`
	Items     []Item    `json:"items"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Total     float64   `json:"total"`
}

// New returns an empty cart stamped with now.
func New(id string, now time.Time) Cart {
	return Cart{
		ID:        strings.TrimSpace(id),
		Items:     []Item{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy so callers never share the items slice or
// variant pointers with a stored value.
func (c Cart) Clone() Cart {
	out := c
	out.Items = make([]Item, len(c.Items))
	for i, it := range c.Items {
		out.Items[i] = it.clone()
	}
	return out
}

func (it Item) clone() Item {
	if it.VariantID != nil {
		v := *it.VariantID
		it.VariantID = &v
	}
	return it
}

// ItemCount returns the sum of quantities across all lines.
func (c Cart) ItemCount() int {
	count := 0
	for _, it := range c.Items {
		count += it.Quantity
	}
	return count
}

// Find returns the index of the item with key, or -1.
func (c Cart) Find(key ItemKey) int {
	for i := range c.Items {
		if c.Items[i].Key() == key {
			return i
		}
	}
	return -1
}

// Validate checks the structural invariants a stored cart must hold.
func (c *Cart) Validate() error {
	if c == nil {
		return apperrors.New(apperrors.CodeValidation, "cart is nil")
	}
	if strings.TrimSpace(c.ID) == "" {
		return apperrors.New(apperrors.CodeValidation, "cart id is required")
	}
	seen := make(map[ItemKey]struct{}, len(c.Items))
	for _, it := range c.Items {
		key := it.Key()
		if it.Quantity < 1 {
			return apperrors.WithMetadata(apperrors.CodeValidation,
				fmt.Sprintf("item %s has quantity %d", key, it.Quantity),
				map[string]string{"cart_id": c.ID})
		}
		if _, dup := seen[key]; dup {
			return apperrors.WithMetadata(apperrors.CodeValidation,
				fmt.Sprintf("item %s appears more than once", key),
				map[string]string{"cart_id": c.ID})
		}
		seen[key] = struct{}{}
	}
	return nil
}

// lineTotal treats non-finite prices and negative quantities as zero so one
// corrupt line cannot poison the cart total.
func lineTotal(it Item) float64 {
	if math.IsNaN(it.Price) || math.IsInf(it.Price, 0) || it.Quantity < 0 {
		return 0
	}
	return it.Price * float64(it.Quantity)
}

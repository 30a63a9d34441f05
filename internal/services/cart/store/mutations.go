package store

import (
	"context"

	"github.com/louisbranch/cartstore/internal/services/cart/domain"
)

// AddItem merges item into the cart, creating the cart when absent.
func (s *Store) AddItem(ctx context.Context, id string, item domain.Item) (domain.Cart, Result) {
	return s.mutate(ctx, "AddItem", id, true, func(c *domain.Cart) bool {
		c.AddItem(item)
		return true
	})
}

// SetQuantity sets the quantity of the item with exactly key. Zero or less
// removes it. Found is false when the cart or item is missing, and nothing is
// saved.
func (s *Store) SetQuantity(ctx context.Context, id string, key domain.ItemKey, quantity int) (domain.Cart, Result) {
	return s.mutate(ctx, "SetQuantity", id, false, func(c *domain.Cart) bool {
		return c.SetQuantity(key, quantity)
	})
}

// RemoveItem removes the item with exactly key.
func (s *Store) RemoveItem(ctx context.Context, id string, key domain.ItemKey) (domain.Cart, Result) {
	return s.mutate(ctx, "RemoveItem", id, false, func(c *domain.Cart) bool {
		return c.RemoveItem(key)
	})
}

// RemoveProduct removes every variant of productID.
func (s *Store) RemoveProduct(ctx context.Context, id string, productID int64) (domain.Cart, Result) {
	return s.mutate(ctx, "RemoveProduct", id, false, func(c *domain.Cart) bool {
		return c.RemoveProduct(productID)
	})
}

// Clear empties the cart.
func (s *Store) Clear(ctx context.Context, id string) (domain.Cart, Result) {
	return s.mutate(ctx, "Clear", id, false, func(c *domain.Cart) bool {
		c.Clear()
		return true
	})
}

// mutate runs load, apply and save under the cart lock. apply reports
// whether its target existed; when it did not, the cart is returned as
// loaded and not saved.
func (s *Store) mutate(ctx context.Context, name, id string, create bool, apply func(*domain.Cart) bool) (domain.Cart, Result) {
	id = normalizeID(id)
	if id == "" {
		if !create {
			return domain.Cart{}, Result{Errors: []error{missingIDError()}}
		}
		id = s.newID()
	}
	unlock := s.locks.lock(id)
	defer unlock()

	o := s.begin(ctx, name, id)
	defer o.end()

	cart, found := s.load(o, id)
	if !found {
		if !create {
			return domain.Cart{}, Result{Errors: o.errs}
		}
		cart = domain.New(id, s.clock())
	}

	if !apply(&cart) {
		return cart, Result{Errors: o.errs}
	}
	cart.RecomputeTotal()

	success := s.persist(o, &cart)
	return cart, Result{Success: success, Found: true, Errors: o.errs}
}

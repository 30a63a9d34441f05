package domain

// AddItem merges item into the cart by its strict (product, variant) key.
// Quantities below one are treated as one. The item is copied; the caller's
// variant pointer is never retained.
func (c *Cart) AddItem(item Item) {
	qty := item.Quantity
	if qty < 1 {
		qty = 1
	}
	if idx := c.Find(item.Key()); idx >= 0 {
		c.Items[idx].Quantity += qty
		c.RecomputeTotal()
		return
	}
	added := item.clone()
	added.Quantity = qty
	c.Items = append(c.Items, added)
	c.RecomputeTotal()
}

// SetQuantity overwrites the quantity of the item matching key exactly.
// A quantity of zero or less removes the line. It reports false and leaves
// the cart untouched when no item matches.
func (c *Cart) SetQuantity(key ItemKey, quantity int) bool {
	idx := c.Find(key)
	if idx < 0 {
		return false
	}
	if quantity <= 0 {
		c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
	} else {
		c.Items[idx].Quantity = quantity
	}
	c.RecomputeTotal()
	return true
}

// RemoveItem removes the single line matching key exactly.
func (c *Cart) RemoveItem(key ItemKey) bool {
	return c.removeWhere(func(it Item) bool { return it.Key() == key })
}

// RemoveProduct removes every line for productID, whatever its variant.
func (c *Cart) RemoveProduct(productID int64) bool {
	return c.removeWhere(func(it Item) bool { return it.ProductID == productID })
}

func (c *Cart) removeWhere(match func(Item) bool) bool {
	kept := c.Items[:0]
	removed := false
	for _, it := range c.Items {
		if match(it) {
			removed = true
			continue
		}
		kept = append(kept, it)
	}
	// Zero the tail so dropped variant pointers are not retained.
	for i := len(kept); i < len(c.Items); i++ {
		c.Items[i] = Item{}
	}
	c.Items = kept
	if removed {
		c.RecomputeTotal()
	}
	return removed
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.Items = []Item{}
	c.Total = 0
}

// RecomputeTotal sets Total to the sum of price*quantity over all lines.
func (c *Cart) RecomputeTotal() {
	total := 0.0
	for _, it := range c.Items {
		total += lineTotal(it)
	}
	c.Total = total
}

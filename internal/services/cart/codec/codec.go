// Package codec converts carts to and from the string form stored in the
// primary cache tier.
//
// Encoding is strict and deterministic. Decoding is lenient: only payloads
// that are not JSON objects are rejected, and every field-level problem is
// resolved by a default rule so a partially corrupted entry still yields a
// usable cart.
package codec

import (
	"encoding/json"
	"math"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/louisbranch/cartstore/internal/platform/errors"
	"github.com/louisbranch/cartstore/internal/services/cart/domain"
	"github.com/tidwall/gjson"
)

// TimeLayout is the ISO-8601 layout used for createdAt and updatedAt.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// Codec encodes and decodes carts. The zero value is usable.
type Codec struct {
	// Now supplies the fallback timestamp for missing or invalid dates.
	Now func() time.Time
	// NewID supplies an id when a decoded payload has none.
	NewID func() string
}

type wireItem struct {
	ProductID int64   `json:"productId"`
	VariantID *int64  `json:"variantId"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	ImageURL  string  `json:"imageUrl"`
	SKU       string  `json:"sku"`
}

type wireCart struct {
	ID        string     `json:"id"`
	Items     []wireItem `json:"items"`
	CreatedAt string     `json:"createdAt"`
	UpdatedAt string     `json:"updatedAt"`
	Total     float64    `json:"total"`
}

func (c Codec) now() time.Time {
	if c.Now != nil {
		return c.Now().UTC()
	}
	return time.Now().UTC()
}

func (c Codec) newID() string {
	if c.NewID != nil {
		return c.NewID()
	}
	return uuid.NewString()
}

// Encode renders cart in the persisted wire shape.
func (c Codec) Encode(cart domain.Cart) (string, error) {
	now := c.now()
	w := wireCart{
		ID:        cart.ID,
		Items:     make([]wireItem, 0, len(cart.Items)),
		CreatedAt: formatTime(cart.CreatedAt, now),
		UpdatedAt: formatTime(cart.UpdatedAt, now),
		Total:     finite(cart.Total),
	}
	for _, it := range cart.Items {
		w.Items = append(w.Items, wireItem{
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			Name:      it.Name,
			Price:     finite(it.Price),
			Quantity:  it.Quantity,
			ImageURL:  it.ImageURL,
			SKU:       it.SKU,
		})
	}
	data, err := json.Marshal(w)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeDecode, "encode cart", err)
	}
	return string(data), nil
}

// Decode rebuilds a cart from payload, applying the default rules to every
// malformed field.
func (c Codec) Decode(payload string) (domain.Cart, error) {
	if !gjson.Valid(payload) {
		return domain.Cart{}, apperrors.New(apperrors.CodeDecode, "cart payload is not valid JSON")
	}
	root := gjson.Parse(payload)
	if !root.IsObject() {
		return domain.Cart{}, apperrors.New(apperrors.CodeDecode, "cart payload is not an object")
	}

	var cart domain.Cart
	now := c.now()
	for _, rule := range decodeRules {
		rule.apply(c, root.Get(rule.field), &cart, now)
	}
	return cart, nil
}

func formatTime(t time.Time, fallback time.Time) string {
	if t.IsZero() {
		t = fallback
	}
	return t.UTC().Format(TimeLayout)
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

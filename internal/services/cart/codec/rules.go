package codec

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/louisbranch/cartstore/internal/services/cart/domain"
	"github.com/tidwall/gjson"
)

// fieldRule decodes one top-level field, substituting its default when the
// value is missing or has the wrong type.
type fieldRule struct {
	field string
	apply func(c Codec, v gjson.Result, cart *domain.Cart, now time.Time)
}

// decodeRules is the complete set of lenient defaults.
var decodeRules = []fieldRule{
	{field: "id", apply: func(c Codec, v gjson.Result, cart *domain.Cart, _ time.Time) {
		id := ""
		if v.Type == gjson.String {
			id = strings.TrimSpace(v.Str)
		}
		if id == "" {
			id = c.newID()
		}
		cart.ID = id
	}},
	{field: "items", apply: func(_ Codec, v gjson.Result, cart *domain.Cart, _ time.Time) {
		cart.Items = decodeItems(v)
	}},
	{field: "total", apply: func(_ Codec, v gjson.Result, cart *domain.Cart, _ time.Time) {
		total, ok := number(v)
		if !ok {
			total = 0
		}
		cart.Total = total
	}},
	{field: "createdAt", apply: func(_ Codec, v gjson.Result, cart *domain.Cart, now time.Time) {
		cart.CreatedAt = parseTime(v, now)
	}},
	{field: "updatedAt", apply: func(_ Codec, v gjson.Result, cart *domain.Cart, now time.Time) {
		cart.UpdatedAt = parseTime(v, now)
	}},
}

// decodeItems keeps only elements that can become valid lines. Duplicate keys
// are merged by summing quantities.
func decodeItems(v gjson.Result) []domain.Item {
	items := []domain.Item{}
	if !v.IsArray() {
		return items
	}
	index := map[domain.ItemKey]int{}
	v.ForEach(func(_, el gjson.Result) bool {
		it, ok := decodeItem(el)
		if !ok {
			return true
		}
		key := it.Key()
		if i, dup := index[key]; dup {
			items[i].Quantity += it.Quantity
			return true
		}
		index[key] = len(items)
		items = append(items, it)
		return true
	})
	return items
}

func decodeItem(el gjson.Result) (domain.Item, bool) {
	if !el.IsObject() {
		return domain.Item{}, false
	}
	pid, ok := integer(el.Get("productId"))
	if !ok {
		return domain.Item{}, false
	}
	qty, ok := integer(el.Get("quantity"))
	if !ok || qty < 1 {
		return domain.Item{}, false
	}
	price, ok := number(el.Get("price"))
	if !ok {
		price = 0
	}
	it := domain.Item{
		ProductID: pid,
		Name:      str(el.Get("name")),
		Price:     price,
		Quantity:  int(qty),
		ImageURL:  str(el.Get("imageUrl")),
		SKU:       str(el.Get("sku")),
	}
	if vid, ok := integer(el.Get("variantId")); ok {
		it.VariantID = &vid
	}
	return it, true
}

// number accepts JSON numbers and numeric strings.
func number(v gjson.Result) (float64, bool) {
	var f float64
	switch v.Type {
	case gjson.Number:
		f = v.Num
	case gjson.String:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// integer accepts numbers with no fractional part.
func integer(v gjson.Result) (int64, bool) {
	f, ok := number(v)
	if !ok || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return 0, false
	}
	return int64(f), true
}

func str(v gjson.Result) string {
	if v.Type != gjson.String {
		return ""
	}
	return v.Str
}

func parseTime(v gjson.Result, now time.Time) time.Time {
	if v.Type != gjson.String {
		return now
	}
	for _, layout := range []string{TimeLayout, time.RFC3339Nano} {
		if t, err := time.Parse(layout, v.Str); err == nil {
			return t.UTC()
		}
	}
	return now
}

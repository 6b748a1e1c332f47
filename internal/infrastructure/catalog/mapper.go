package catalog

import (
	"fmt"
	"sort"

	"github.com/pricelens/backend/internal/domain"
)

// Field aliases seen across storefront feeds, in order of preference
var (
	nameKeys     = []string{"title", "name", "voucherName", "displayName"}
	urlKeys      = []string{"url", "link", "handle"}
	priceKeys    = []string{"price", "amount", "sellingPrice", "displayPrice"}
	variantKeys  = []string{"denominations", "variants", "values"}
	wrapperKeys  = []string{"products", "items", "data"}
	categoryKeys = []string{"category", "categoryName"}
	// a denomination object carries its amount under one of these
	denominationPriceKeys = []string{"price", "value", "amount"}
)

// MapPayload converts a decoded JSON feed into raw products.
// A top-level products/items/data list is read directly; any other shape is
// walked recursively for objects that carry a product name.
func MapPayload(payload any) []domain.RawProduct {
	if list, ok := unwrap(payload); ok {
		var products []domain.RawProduct
		for _, item := range list {
			if obj, ok := item.(map[string]any); ok {
				products = append(products, mapItem(obj)...)
			}
		}
		return products
	}

	var products []domain.RawProduct
	walk(payload, &products)
	return products
}

// unwrap finds the product list of a feed
func unwrap(payload any) ([]any, bool) {
	switch v := payload.(type) {
	case []any:
		return v, true
	case map[string]any:
		for _, key := range wrapperKeys {
			if inner, ok := v[key]; ok {
				if list, ok := inner.([]any); ok {
					return list, true
				}
				// {"data": {"items": [...]}}
				if nested, ok := unwrap(inner); ok {
					return nested, true
				}
			}
		}
	}
	return nil, false
}

// walk collects products from arbitrarily nested payloads
func walk(node any, out *[]domain.RawProduct) {
	switch v := node.(type) {
	case map[string]any:
		if firstString(v, nameKeys) != "" {
			*out = append(*out, mapItem(v)...)
		}
		// sorted so repeated runs over the same payload agree
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			walk(v[k], out)
		}
	case []any:
		for _, child := range v {
			walk(child, out)
		}
	}
}

// mapItem maps one feed object. A denomination list expands into one raw
// product per denomination, with the denomination as the explicit variant.
func mapItem(item map[string]any) []domain.RawProduct {
	name := firstString(item, nameKeys)
	if name == "" {
		return nil
	}
	url := firstString(item, urlKeys)
	category := firstString(item, categoryKeys)

	if denominations, ok := firstValue(item, variantKeys).([]any); ok && len(denominations) > 0 {
		products := make([]domain.RawProduct, 0, len(denominations))
		for _, d := range denominations {
			price := d
			if obj, ok := d.(map[string]any); ok {
				price = firstValue(obj, denominationPriceKeys)
			}
			products = append(products, domain.RawProduct{
				Name:     name,
				Price:    price,
				Variant:  price,
				URL:      url,
				Category: category,
			})
		}
		return products
	}

	price := firstValue(item, priceKeys)
	return []domain.RawProduct{{
		Name:     name,
		Price:    price,
		Variant:  price,
		URL:      url,
		Category: category,
	}}
}

// firstValue returns the first non-empty value under any of keys
func firstValue(item map[string]any, keys []string) any {
	for _, key := range keys {
		v, ok := item[key]
		if !ok || v == nil {
			continue
		}
		if s, isString := v.(string); isString && s == "" {
			continue
		}
		return v
	}
	return nil
}

// firstString is firstValue rendered as a string. Numbers are formatted, other
// shapes are ignored.
func firstString(item map[string]any, keys []string) string {
	switch v := firstValue(item, keys).(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%g", v)
	default:
		return ""
	}
}

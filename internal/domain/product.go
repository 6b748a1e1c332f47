package domain

// RawProduct is a product record as handed over by the scraping or feed layer.
// Price and Variant arrive as strings, numbers or nothing at all, so they are kept
// untyped until the normalizer cleans them.
type RawProduct struct {
	Name     string `json:"name"`
	Price    any    `json:"price,omitempty"`
	URL      string `json:"url,omitempty"`
	Category string `json:"category,omitempty"`
	Variant  any    `json:"variant,omitempty"`
}

// CanonicalProduct is a cleaned product record. (Signature, VariantValue) is the
// compound identity key shared across catalogs and across days.
type CanonicalProduct struct {
	Name           string   `json:"name"`
	NormalizedName string   `json:"normalized_name"`
	Signature      string   `json:"signature"`
	VariantValue   *int     `json:"variant_value"`
	Price          *float64 `json:"price"`
	URL            string   `json:"url,omitempty"`
	Category       string   `json:"category,omitempty"`
}

// SKUKey is the compound identity of a product
type SKUKey struct {
	Signature  string
	Variant    int
	HasVariant bool
}

// Key returns the compound identity key of the product.
// A product without a variant dimension keys on its signature alone.
func (p CanonicalProduct) Key() SKUKey {
	if p.VariantValue == nil {
		return SKUKey{Signature: p.Signature}
	}
	return SKUKey{Signature: p.Signature, Variant: *p.VariantValue, HasVariant: true}
}

// Source describes a storefront to pull a catalog from
type Source struct {
	Name string `json:"name" mapstructure:"name"`
	URL  string `json:"url" mapstructure:"url"`
	API  string `json:"api,omitempty" mapstructure:"api"`
}

// Endpoint returns the feed endpoint for the source, preferring the explicit API.
func (s Source) Endpoint() string {
	if s.API != "" {
		return s.API
	}
	return s.URL
}

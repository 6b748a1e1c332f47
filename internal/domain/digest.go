package domain

import "time"

// VariantGap is a competitor SKU whose variant the baseline does not carry
// for the same signature
type VariantGap struct {
	Product         string   `json:"product"`
	Signature       string   `json:"signature"`
	MissingVariant  *int     `json:"missing_variant"`
	CompetitorPrice *float64 `json:"competitor_price"`
	URL             string   `json:"url,omitempty"`
}

// PriceComparison compares baseline and competitor prices for one exact
// (signature, variant) pair
type PriceComparison struct {
	Product         string  `json:"product"`
	Signature       string  `json:"signature"`
	Variant         *int    `json:"variant"`
	BaselinePrice   float64 `json:"baseline_price"`
	CompetitorPrice float64 `json:"competitor_price"`
	Difference      float64 `json:"difference"`   // competitor - baseline
	PercentDiff     float64 `json:"percent_diff"` // relative to baseline, 0 when baseline is 0
	URL             string  `json:"url,omitempty"`
}

// CompetitorCheaper reports whether the competitor undercuts the baseline
func (c PriceComparison) CompetitorCheaper() bool {
	return c.CompetitorPrice < c.BaselinePrice
}

// MatchResult is the output of a catalog matcher for one baseline/competitor pair
type MatchResult struct {
	Matched         []CanonicalProduct `json:"matched"`
	Missing         []CanonicalProduct `json:"missing"`
	VariantGaps     []VariantGap       `json:"variant_gaps"`
	PriceComparison []PriceComparison  `json:"price_comparison"`
}

// NewMatchResult returns a MatchResult with empty, non-nil lists
func NewMatchResult() MatchResult {
	return MatchResult{
		Matched:         []CanonicalProduct{},
		Missing:         []CanonicalProduct{},
		VariantGaps:     []VariantGap{},
		PriceComparison: []PriceComparison{},
	}
}

// ChangeSummary holds day-over-day changes for one competitor
type ChangeSummary struct {
	NewSKUs          []string `json:"new_skus"`
	DeletedSKUs      []string `json:"deleted_skus"`
	PriceDrops       []string `json:"price_drops"`
	VariantExpansion []string `json:"variant_expansion"`
}

// BaselineReport is the baseline section of a digest
type BaselineReport struct {
	Name     string             `json:"name"`
	Products []CanonicalProduct `json:"products"`
}

// CompetitorReport is one competitor's section of a digest. When the fetch fails,
// Error is set, Diff is empty and Products holds the last stored catalog.
type CompetitorReport struct {
	Name     string             `json:"name"`
	Products []CanonicalProduct `json:"products"`
	Diff     MatchResult        `json:"diff"`
	Insights string             `json:"insights"`
	Error    string             `json:"error,omitempty"`
}

// Digest is the complete output of one scan run. It is read-only once produced
// and superseded by the next run's digest.
type Digest struct {
	ID          string                   `json:"id"`
	DateKey     string                   `json:"date_key"`
	GeneratedAt time.Time                `json:"generated_at"`
	Baseline    BaselineReport           `json:"baseline"`
	Competitors []CompetitorReport       `json:"competitors"`
	Changes     map[string]ChangeSummary `json:"changes"`
}

// Competitor returns the competitor report with the exact given name
func (d *Digest) Competitor(name string) (CompetitorReport, bool) {
	if d == nil {
		return CompetitorReport{}, false
	}
	for _, c := range d.Competitors {
		if c.Name == name {
			return c, true
		}
	}
	return CompetitorReport{}, false
}

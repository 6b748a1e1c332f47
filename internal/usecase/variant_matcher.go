package usecase

import (
	"github.com/pricelens/backend/internal/domain"
)

// VariantMatcher joins catalogs on the (signature, variant value) compound key
type VariantMatcher struct{}

// NewVariantMatcher creates an exact compound-key matcher
func NewVariantMatcher() *VariantMatcher {
	return &VariantMatcher{}
}

// Match compares a competitor catalog against the baseline.
// Competitor signatures unknown to the baseline are missing; known ones are
// matched, and each matched item is checked for a variant gap and, on an exact
// variant hit, compared on price.
func (m *VariantMatcher) Match(baseline, competitor []domain.CanonicalProduct) domain.MatchResult {
	index := newBaselineIndex(baseline)
	result := domain.NewMatchResult()

	for _, group := range groupBySignature(competitor) {
		if !index.hasSignature(group.signature) {
			result.Missing = append(result.Missing, group.items...)
			continue
		}
		for _, cp := range group.items {
			index.compare(&result, group.signature, cp)
		}
	}

	return result
}

// signatureGroup holds one signature's products in input order
type signatureGroup struct {
	signature string
	items     []domain.CanonicalProduct
}

// groupBySignature builds a multi-map keyed by signature. Groups come back in
// order of first appearance so output is reproducible.
func groupBySignature(products []domain.CanonicalProduct) []signatureGroup {
	positions := make(map[string]int)
	var groups []signatureGroup

	for _, p := range products {
		if p.Signature == "" {
			continue
		}
		idx, ok := positions[p.Signature]
		if !ok {
			idx = len(groups)
			positions[p.Signature] = idx
			groups = append(groups, signatureGroup{signature: p.Signature})
		}
		groups[idx].items = append(groups[idx].items, p)
	}

	return groups
}

// baselineIndex answers the lookups both matchers need against the baseline
type baselineIndex struct {
	variants map[string]map[domain.SKUKey]bool
	// first baseline occurrence of each compound key is the price reference
	reference map[domain.SKUKey]domain.CanonicalProduct
}

func newBaselineIndex(baseline []domain.CanonicalProduct) *baselineIndex {
	idx := &baselineIndex{
		variants:  make(map[string]map[domain.SKUKey]bool),
		reference: make(map[domain.SKUKey]domain.CanonicalProduct),
	}

	for _, p := range baseline {
		if p.Signature == "" {
			continue
		}
		key := p.Key()
		if idx.variants[p.Signature] == nil {
			idx.variants[p.Signature] = make(map[domain.SKUKey]bool)
		}
		idx.variants[p.Signature][key] = true
		if _, seen := idx.reference[key]; !seen {
			idx.reference[key] = p
		}
	}

	return idx
}

func (idx *baselineIndex) hasSignature(signature string) bool {
	return len(idx.variants[signature]) > 0
}

// compare records cp as matched under signature and appends any variant gap or
// price comparison it produces
func (idx *baselineIndex) compare(result *domain.MatchResult, signature string, cp domain.CanonicalProduct) {
	result.Matched = append(result.Matched, cp)

	key := cp.Key()
	key.Signature = signature

	if !idx.variants[signature][key] {
		result.VariantGaps = append(result.VariantGaps, domain.VariantGap{
			Product:         cp.Name,
			Signature:       signature,
			MissingVariant:  cp.VariantValue,
			CompetitorPrice: cp.Price,
			URL:             cp.URL,
		})
		return
	}

	bp, ok := idx.reference[key]
	if !ok || bp.Price == nil || cp.Price == nil {
		return
	}

	result.PriceComparison = append(result.PriceComparison, newPriceComparison(signature, bp, cp))
}

func newPriceComparison(signature string, bp, cp domain.CanonicalProduct) domain.PriceComparison {
	baselinePrice := *bp.Price
	competitorPrice := *cp.Price
	diff := competitorPrice - baselinePrice

	percent := 0.0
	if baselinePrice != 0 {
		percent = diff / baselinePrice * 100
	}

	return domain.PriceComparison{
		Product:         cp.Name,
		Signature:       signature,
		Variant:         cp.VariantValue,
		BaselinePrice:   baselinePrice,
		CompetitorPrice: competitorPrice,
		Difference:      diff,
		PercentDiff:     percent,
		URL:             cp.URL,
	}
}

package usecase

import (
	"github.com/pricelens/backend/internal/domain"
)

// ChangeDetector compares today's digest with the previous one
type ChangeDetector struct{}

// NewChangeDetector creates a change detector
func NewChangeDetector() *ChangeDetector {
	return &ChangeDetector{}
}

// Detect returns per-competitor changes between two digests. Without a previous
// digest there is no change signal and the result is empty. A competitor missing
// from the previous digest is compared against an empty catalog; one whose fetch
// failed today is left out.
func (d *ChangeDetector) Detect(today, yesterday *domain.Digest) map[string]domain.ChangeSummary {
	changes := make(map[string]domain.ChangeSummary)
	if today == nil || yesterday == nil {
		return changes
	}

	for _, comp := range today.Competitors {
		// a failed fetch says nothing about the catalog
		if comp.Error != "" {
			continue
		}
		var previous []domain.CanonicalProduct
		if prev, ok := yesterday.Competitor(comp.Name); ok {
			previous = prev.Products
		}
		changes[comp.Name] = compareSnapshots(comp.Products, previous)
	}

	return changes
}

// keyedProducts keeps the first product per compound key, in input order
type keyedProducts struct {
	order []domain.SKUKey
	byKey map[domain.SKUKey]domain.CanonicalProduct
}

func indexByKey(products []domain.CanonicalProduct) keyedProducts {
	k := keyedProducts{byKey: make(map[domain.SKUKey]domain.CanonicalProduct)}
	for _, p := range products {
		key := p.Key()
		if _, seen := k.byKey[key]; seen {
			continue
		}
		k.order = append(k.order, key)
		k.byKey[key] = p
	}
	return k
}

func compareSnapshots(today, yesterday []domain.CanonicalProduct) domain.ChangeSummary {
	summary := domain.ChangeSummary{
		NewSKUs:          []string{},
		DeletedSKUs:      []string{},
		PriceDrops:       []string{},
		VariantExpansion: []string{},
	}

	todayKeys := indexByKey(today)
	yesterdayKeys := indexByKey(yesterday)

	for _, key := range todayKeys.order {
		p := todayKeys.byKey[key]
		old, existed := yesterdayKeys.byKey[key]
		if !existed {
			summary.NewSKUs = append(summary.NewSKUs, p.Name)
			continue
		}
		if p.Price != nil && old.Price != nil && *p.Price < *old.Price {
			summary.PriceDrops = append(summary.PriceDrops, p.Name)
		}
	}

	for _, key := range yesterdayKeys.order {
		if _, still := todayKeys.byKey[key]; !still {
			summary.DeletedSKUs = append(summary.DeletedSKUs, yesterdayKeys.byKey[key].Name)
		}
	}

	// Count heuristic: the line grew its range, without naming the new variants.
	// Lines absent yesterday are already reported as new SKUs.
	todayVariants := distinctVariants(today)
	yesterdayVariants := distinctVariants(yesterday)
	for _, group := range groupBySignature(today) {
		before, existed := yesterdayVariants[group.signature]
		if existed && len(todayVariants[group.signature]) > len(before) {
			summary.VariantExpansion = append(summary.VariantExpansion, group.signature)
		}
	}

	return summary
}

// distinctVariants maps each signature to its set of variant keys
func distinctVariants(products []domain.CanonicalProduct) map[string]map[domain.SKUKey]bool {
	out := make(map[string]map[domain.SKUKey]bool)
	for _, p := range products {
		if out[p.Signature] == nil {
			out[p.Signature] = make(map[domain.SKUKey]bool)
		}
		out[p.Signature][p.Key()] = true
	}
	return out
}

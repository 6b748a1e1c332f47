package usecase

import (
	"fmt"
	"strings"

	"github.com/pricelens/backend/internal/domain"
)

// Matcher strategy names
const (
	StrategyExact = "exact"
	StrategyFuzzy = "fuzzy"
)

// NewCatalogMatcher returns the matcher implementation for a strategy name.
// An empty name selects the exact compound-key matcher.
func NewCatalogMatcher(strategy string, fuzzy FuzzyMatcherConfig) (domain.CatalogMatcher, error) {
	switch strings.ToLower(strings.TrimSpace(strategy)) {
	case "", StrategyExact:
		return NewVariantMatcher(), nil
	case StrategyFuzzy:
		return NewFuzzyMatcher(fuzzy), nil
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownStrategy, strategy)
	}
}

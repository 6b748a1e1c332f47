package usecase

import (
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pricelens/backend/internal/domain"
)

// Package-level compiled regex pattern for performance
var punctuationRegex = regexp.MustCompile(`[^\w\s]`)

// Scoring weights
const (
	competitorCoverageWeight = 0.60 // share of competitor tokens found in the baseline name
	baselineCoverageWeight   = 0.20 // share of baseline tokens found in the competitor name
	jaccardWeight            = 0.20
	substringMatchBonus      = 10.0 // one cleaned name contains the other
	exactSignatureScore      = 100.0
)

// Defaults
const (
	defaultFuzzyThreshold    = 60.0
	defaultFuzzyEditDistance = 1
	minFuzzyTokenLength      = 4
)

// catalogStopWords includes basic English stop words plus storefront noise
var catalogStopWords = map[string]bool{
	// Basic English stop words
	"a": true, "an": true, "the": true, "and": true, "or": true,
	"of": true, "in": true, "on": true, "at": true, "to": true,
	"for": true, "with": true, "by": true, "from": true, "is": true,
	// Gift card / voucher wording
	"gift": true, "card": true, "cards": true, "voucher": true, "vouchers": true,
	"egift": true, "code": true, "codes": true, "recharge": true, "instant": true,
	"digital": true, "online": true, "ecard": true, "evoucher": true,
	// Currency
	"rs": true, "inr": true, "usd": true, "eur": true, "worth": true,
	// Marketing/generic terms
	"buy": true, "new": true, "offer": true, "deal": true, "best": true,
	"official": true, "store": true, "shop": true, "pack": true, "value": true,
}

// FuzzyMatcherConfig holds configuration for the fuzzy matcher
type FuzzyMatcherConfig struct {
	Threshold    float64 // minimum score (0-100] to bind a competitor item; zero or less selects the default
	EditDistance int
	Logger       logrus.FieldLogger // debug logging when set
}

// FuzzyMatcher binds competitor items to baseline items by name similarity when
// their signatures differ. Gap and price rules then follow the compound key of
// the bound baseline signature.
type FuzzyMatcher struct {
	threshold    float64
	editDistance int
	log          logrus.FieldLogger
}

// NewFuzzyMatcher creates a fuzzy matcher with the given configuration
func NewFuzzyMatcher(config FuzzyMatcherConfig) *FuzzyMatcher {
	threshold := config.Threshold
	if threshold <= 0 {
		threshold = defaultFuzzyThreshold
	}

	editDistance := config.EditDistance
	if editDistance < 0 {
		editDistance = defaultFuzzyEditDistance
	}

	return &FuzzyMatcher{
		threshold:    threshold,
		editDistance: editDistance,
		log:          config.Logger,
	}
}

// baselineCandidate is a baseline product with its pre-tokenized name
type baselineCandidate struct {
	product domain.CanonicalProduct
	cleaned string
	tokens  []string
}

// Match compares a competitor catalog against the baseline
func (m *FuzzyMatcher) Match(baseline, competitor []domain.CanonicalProduct) domain.MatchResult {
	index := newBaselineIndex(baseline)
	result := domain.NewMatchResult()

	candidates := make([]baselineCandidate, 0, len(baseline))
	for _, bp := range baseline {
		if bp.Signature == "" {
			continue
		}
		cleaned := matchableName(bp)
		candidates = append(candidates, baselineCandidate{
			product: bp,
			cleaned: cleaned,
			tokens:  tokenize(cleaned),
		})
	}

	for _, cp := range competitor {
		if cp.Signature == "" {
			continue
		}

		if index.hasSignature(cp.Signature) {
			index.compare(&result, cp.Signature, cp)
			continue
		}

		best, score := m.bestCandidate(cp, candidates)
		if best == nil || score < m.threshold {
			if m.log != nil {
				m.log.WithFields(logrus.Fields{"product": cp.Name, "score": score}).Debug("fuzzy match below threshold")
			}
			result.Missing = append(result.Missing, cp)
			continue
		}

		if m.log != nil {
			m.log.WithFields(logrus.Fields{
				"product":  cp.Name,
				"baseline": best.product.Name,
				"score":    score,
			}).Debug("fuzzy match")
		}
		index.compare(&result, best.product.Signature, cp)
	}

	return result
}

// bestCandidate returns the highest scoring baseline candidate. Ties keep the
// earliest baseline entry.
func (m *FuzzyMatcher) bestCandidate(cp domain.CanonicalProduct, candidates []baselineCandidate) (*baselineCandidate, float64) {
	cleaned := matchableName(cp)
	tokens := tokenize(cleaned)

	var best *baselineCandidate
	highestScore := -1.0

	for i := range candidates {
		score := m.calculateMatchScore(cleaned, tokens, candidates[i].cleaned, candidates[i].tokens)
		if score > highestScore {
			highestScore = score
			best = &candidates[i]
		}
	}

	return best, highestScore
}

// Score returns the similarity (0-100) of two product names
func (m *FuzzyMatcher) Score(a, b string) float64 {
	ca := NormalizeName(a)
	cb := NormalizeName(b)
	return m.calculateMatchScore(ca, tokenize(ca), cb, tokenize(cb))
}

// calculateMatchScore computes similarity between a competitor name and a baseline name.
// Uses a weighted combination of:
//   - Competitor token coverage: what % of the competitor tokens appear in the baseline name (most important)
//   - Baseline token coverage: what % of the baseline tokens appear in the competitor name
//   - Jaccard similarity of the two token sets
//   - Substring match bonus
func (m *FuzzyMatcher) calculateMatchScore(competitorName string, competitorTokens []string, baselineName string, baselineTokens []string) float64 {
	if len(competitorTokens) == 0 || len(baselineTokens) == 0 {
		return 0
	}

	competitorMatched := m.countMatches(competitorTokens, baselineTokens)
	competitorCoverage := float64(competitorMatched) / float64(len(competitorTokens))

	baselineMatched := m.countMatches(baselineTokens, competitorTokens)
	baselineCoverage := float64(baselineMatched) / float64(len(baselineTokens))

	union := findUnion(competitorTokens, baselineTokens)
	jaccard := float64(competitorMatched) / float64(union)
	if jaccard > 1 {
		jaccard = 1
	}

	score := (competitorCoverage*competitorCoverageWeight +
		baselineCoverage*baselineCoverageWeight +
		jaccard*jaccardWeight) * 100

	if len(competitorName) > 3 && len(baselineName) > 3 &&
		(strings.Contains(baselineName, competitorName) || strings.Contains(competitorName, baselineName)) {
		score += substringMatchBonus
	}

	if score > exactSignatureScore {
		score = exactSignatureScore
	}

	return score
}

// countMatches counts distinct tokens of `from` that appear in `in`, exactly or
// within the edit distance
func (m *FuzzyMatcher) countMatches(from, in []string) int {
	exact, _ := findIntersection(in, from)
	if m.editDistance == 0 {
		return exact
	}

	set := make(map[string]bool, len(in))
	for _, t := range in {
		set[t] = true
	}

	count := 0
	seen := make(map[string]bool)
	for _, t := range from {
		if seen[t] {
			continue
		}
		seen[t] = true
		if set[t] {
			count++
			continue
		}
		for _, candidate := range in {
			if fuzzyTokenMatch(t, candidate, m.editDistance) {
				count++
				break
			}
		}
	}
	return count
}

// matchableName prefers the normalized name and falls back to the display name
func matchableName(p domain.CanonicalProduct) string {
	if p.NormalizedName != "" {
		return p.NormalizedName
	}
	return NormalizeName(p.Name)
}

// tokenize splits a string into normalized lowercase tokens.
// Removes punctuation, stop words, and pure numeric tokens.
func tokenize(s string) []string {
	cleaned := punctuationRegex.ReplaceAllString(strings.ToLower(s), " ")

	var tokens []string
	for _, word := range strings.Fields(cleaned) {
		if len(word) <= 1 {
			continue
		}
		if catalogStopWords[word] {
			continue
		}
		// Denominations are handled by the variant value
		if isNumeric(word) {
			continue
		}
		tokens = append(tokens, word)
	}

	return tokens
}

// isNumeric checks if a string contains only digits
func isNumeric(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}

// fuzzyTokenMatch checks if two tokens are similar within the edit distance threshold
func fuzzyTokenMatch(token1, token2 string, threshold int) bool {
	if token1 == token2 {
		return true
	}

	// Only apply fuzzy matching to longer tokens to avoid false positives
	if len(token1) < minFuzzyTokenLength || len(token2) < minFuzzyTokenLength {
		return false
	}

	lenDiff := len(token1) - len(token2)
	if lenDiff < 0 {
		lenDiff = -lenDiff
	}
	if lenDiff > threshold {
		return false
	}

	return levenshteinDistance(token1, token2) <= threshold
}

// levenshteinDistance calculates the edit distance between two strings
func levenshteinDistance(s1, s2 string) int {
	r1 := []rune(s1)
	r2 := []rune(s2)
	if len(r1) == 0 {
		return len(r2)
	}
	if len(r2) == 0 {
		return len(r1)
	}

	m := len(r1)
	n := len(r2)

	// Two rows instead of the full matrix
	prev := make([]int, n+1)
	curr := make([]int, n+1)
	for j := 0; j <= n; j++ {
		prev[j] = j
	}

	for i := 1; i <= m; i++ {
		curr[0] = i
		for j := 1; j <= n; j++ {
			cost := 0
			if r1[i-1] != r2[j-1] {
				cost = 1
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[n]
}

// findIntersection returns the count of common tokens and the list of matched tokens
func findIntersection(tokens1, tokens2 []string) (int, []string) {
	set := make(map[string]bool)
	for _, t := range tokens1 {
		set[t] = true
	}

	var matched []string
	seen := make(map[string]bool)
	for _, t := range tokens2 {
		if set[t] && !seen[t] {
			matched = append(matched, t)
			seen[t] = true
		}
	}

	return len(matched), matched
}

// findUnion returns the count of unique tokens across both sets
func findUnion(tokens1, tokens2 []string) int {
	set := make(map[string]bool)
	for _, t := range tokens1 {
		set[t] = true
	}
	for _, t := range tokens2 {
		set[t] = true
	}
	return len(set)
}

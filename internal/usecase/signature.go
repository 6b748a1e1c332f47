package usecase

import (
	"regexp"
	"strings"
)

// maxSignatureLength caps fallback signatures built from free text
const maxSignatureLength = 40

// unknownSignature is returned when a name carries no usable identity
const unknownSignature = "unknown"

var (
	// everything after a "|" is a store breadcrumb
	breadcrumbSuffixRegex = regexp.MustCompile(`\|.*`)

	signatureNoiseRegex = regexp.MustCompile(`voucher|gift card|recharge code|e-gift|instant|digital`)

	// amounts such as "₹500", "rs.1,000" or "$25.00"
	currencyAmountRegex = regexp.MustCompile(`(?:₹|\$|€|\brs\.?|\binr)\s*\d[\d,]*(?:\.\d+)?`)

	nonSignatureCharsRegex = regexp.MustCompile(`[^a-z0-9 ]`)
)

// currencyTokens are dropped from fallback signatures along with bare amounts
var currencyTokens = map[string]bool{
	"rs": true, "inr": true, "usd": true, "eur": true,
}

// BrandRule collapses every name containing one of Keywords into Signature
type BrandRule struct {
	Signature string
	Keywords  []string
}

// DefaultBrandRules is the curated brand table. Order matters: the first rule
// with a matching keyword wins.
var DefaultBrandRules = []BrandRule{
	{Signature: "google_play", Keywords: []string{"google play"}},
	{Signature: "tinder", Keywords: []string{"tinder"}},
	{Signature: "amazon", Keywords: []string{"amazon"}},
	{Signature: "nykaa", Keywords: []string{"nykaa"}},
	{Signature: "jio", Keywords: []string{"jio"}},
}

// SignatureResolver maps free-text product names to short identity tokens
type SignatureResolver struct {
	rules []BrandRule
}

// NewSignatureResolver creates a resolver with the given brand rules,
// falling back to DefaultBrandRules when none are given
func NewSignatureResolver(rules ...BrandRule) *SignatureResolver {
	if len(rules) == 0 {
		rules = DefaultBrandRules
	}
	return &SignatureResolver{rules: rules}
}

// SignatureFor returns the canonical identity token for a product name.
// It never fails and never returns an empty string.
func (r *SignatureResolver) SignatureFor(name string) string {
	if strings.TrimSpace(name) == "" {
		return unknownSignature
	}

	text := strings.ToLower(name)
	text = breadcrumbSuffixRegex.ReplaceAllString(text, "")
	text = signatureNoiseRegex.ReplaceAllString(text, "")
	text = currencyAmountRegex.ReplaceAllString(text, " ")
	text = nonSignatureCharsRegex.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)

	for _, rule := range r.rules {
		for _, keyword := range rule.Keywords {
			if strings.Contains(text, keyword) {
				return rule.Signature
			}
		}
	}

	// Denominations live in the variant value, not in the identity
	var kept []string
	for _, word := range strings.Fields(text) {
		if isNumeric(word) || currencyTokens[word] {
			continue
		}
		kept = append(kept, word)
	}
	if len(kept) == 0 {
		return unknownSignature
	}

	sig := strings.Join(kept, "_")
	if len(sig) > maxSignatureLength {
		sig = strings.TrimRight(sig[:maxSignatureLength], "_")
	}
	return sig
}

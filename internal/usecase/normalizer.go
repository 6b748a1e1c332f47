package usecase

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/pricelens/backend/internal/domain"
)

// navigationBlacklist is a hard filter: scraped entries containing any of these
// tokens are site chrome, not products
var navigationBlacklist = []string{
	"login", "sign in", "account", "privacy",
	"terms", "help", "footer", "wishlist",
	"support", "policy",
}

// minPriceAsVariant is the smallest price accepted as a stand-in variant value
const minPriceAsVariant = 10.0

var (
	// "The Official KStore | ..." style site-title prefixes
	siteTitlePrefixRegex = regexp.MustCompile(`^\s*(?:the\s+)?official\b[^|]*\|`)

	// longest phrases first so "instant voucher" wins over "voucher"
	marketingNoiseRegex = regexp.MustCompile(`instant voucher|gift voucher|e-gift|egift|e-voucher|gift card|voucher`)

	currencyNumberRegex  = regexp.MustCompile(`(?:₹|\$|€|\brs\.?|\binr)?\s*\d[\d,]*(?:\.\d+)?`)
	nonAlphanumericRegex = regexp.MustCompile(`[^a-z0-9\s]`)
	multipleSpacesRegex  = regexp.MustCompile(`\s+`)

	thousandsSeparatorRegex = regexp.MustCompile(`(\d),(\d{3})`)
	variantDigitsRegex      = regexp.MustCompile(`(?:^|\D)(\d{2,5})(?:\D|$)`)
	anyDigitRegex           = regexp.MustCompile(`\d`)
	priceCharsRegex         = regexp.MustCompile(`[^\d.]`)
)

// Normalizer cleans raw scraped records into canonical products
type Normalizer struct {
	signatures *SignatureResolver
}

// NewNormalizer creates a normalizer that delegates identity to the given resolver
func NewNormalizer(signatures *SignatureResolver) *Normalizer {
	if signatures == nil {
		signatures = NewSignatureResolver()
	}
	return &Normalizer{signatures: signatures}
}

// Normalize cleans a batch of raw records. Records without a name or matching the
// navigation blacklist are dropped; unparseable prices and variants become nil.
func (n *Normalizer) Normalize(raw []domain.RawProduct) []domain.CanonicalProduct {
	out := make([]domain.CanonicalProduct, 0, len(raw))

	for _, p := range raw {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			continue
		}
		if isBlacklisted(name) {
			continue
		}

		price := cleanPrice(p.Price)

		out = append(out, domain.CanonicalProduct{
			Name:           name,
			NormalizedName: NormalizeName(name),
			Signature:      n.signatures.SignatureFor(name),
			VariantValue:   extractVariant(p.Variant, name, price),
			Price:          price,
			URL:            strings.TrimSpace(p.URL),
			Category:       strings.TrimSpace(p.Category),
		})
	}

	return out
}

// isBlacklisted reports whether a name is navigational noise
func isBlacklisted(name string) bool {
	lowered := strings.ToLower(name)
	for _, token := range navigationBlacklist {
		if strings.Contains(lowered, token) {
			return true
		}
	}
	return false
}

// NormalizeName produces the legacy join key for a display name.
// Applying it to its own output returns the output unchanged.
func NormalizeName(name string) string {
	result := normalizeNameOnce(name)

	// Stripping punctuation can join words into a noise phrase ("gift, card")
	for i := 0; i < maxNormalizePasses; i++ {
		next := normalizeNameOnce(result)
		if next == result {
			break
		}
		result = next
	}
	return result
}

// maxNormalizePasses bounds the fixed-point loop in NormalizeName
const maxNormalizePasses = 4

func normalizeNameOnce(name string) string {
	result := strings.ToLower(name)
	result = siteTitlePrefixRegex.ReplaceAllString(result, "")
	result = marketingNoiseRegex.ReplaceAllString(result, " ")
	result = currencyNumberRegex.ReplaceAllString(result, " ")
	result = nonAlphanumericRegex.ReplaceAllString(result, "")
	result = multipleSpacesRegex.ReplaceAllString(result, " ")
	return strings.TrimSpace(result)
}

// extractVariant resolves the variant discriminator. An explicit upstream value
// beats a number found in the name, which beats the price as a proxy. Only a
// standalone run of 2-5 digits counts; longer runs are codes, not denominations.
func extractVariant(explicit any, name string, price *float64) *int {
	if v := toFloat(explicit); v != nil {
		return roundVariant(*v)
	}

	folded := thousandsSeparatorRegex.ReplaceAllString(name, "$1$2")
	if m := variantDigitsRegex.FindStringSubmatch(folded); m != nil {
		if iv, err := strconv.Atoi(m[1]); err == nil {
			return &iv
		}
	}

	if anyDigitRegex.MatchString(name) {
		return nil
	}

	if price != nil && *price > minPriceAsVariant {
		return roundVariant(*price)
	}

	return nil
}

// roundVariant rounds v to an int, or returns nil when it does not fit one
func roundVariant(v float64) *int {
	r := math.Round(v)
	if r < math.MinInt || r >= -math.MinInt {
		return nil
	}
	iv := int(r)
	return &iv
}

// cleanPrice converts a raw price into a float, returning nil when it cannot
func cleanPrice(raw any) *float64 {
	return toFloat(raw)
}

// toFloat accepts the shapes a decoded JSON value can take. Strings are stripped
// down to digits and dots before parsing.
func toFloat(raw any) *float64 {
	var v float64

	switch val := raw.(type) {
	case nil:
		return nil
	case float64:
		v = val
	case float32:
		v = float64(val)
	case int:
		v = float64(val)
	case int8:
		v = float64(val)
	case int16:
		v = float64(val)
	case int32:
		v = float64(val)
	case int64:
		v = float64(val)
	case uint:
		v = float64(val)
	case uint8:
		v = float64(val)
	case uint16:
		v = float64(val)
	case uint32:
		v = float64(val)
	case uint64:
		v = float64(val)
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return nil
		}
		v = f
	case string:
		cleaned := priceCharsRegex.ReplaceAllString(val, "")
		cleaned = strings.Trim(cleaned, ".")
		if cleaned == "" {
			return nil
		}
		f, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return nil
		}
		v = f
	default:
		return nil
	}

	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

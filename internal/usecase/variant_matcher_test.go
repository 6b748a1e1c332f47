package usecase

import (
	"math"
	"testing"

	"github.com/pricelens/backend/internal/domain"
)

func product(name, signature string, variant *int, price *float64) domain.CanonicalProduct {
	return domain.CanonicalProduct{
		Name:           name,
		NormalizedName: NormalizeName(name),
		Signature:      signature,
		VariantValue:   variant,
		Price:          price,
		URL:            "/p/" + signature,
	}
}

func names(products []domain.CanonicalProduct) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.Name
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestVariantMatcher_Match(t *testing.T) {
	m := NewVariantMatcher()

	baseline := []domain.CanonicalProduct{
		product("Zomato ₹500", "zomato", intPtr(500), floatPtr(500)),
		product("Tinder Gold", "tinder", nil, floatPtr(999)),
		product("Uber ₹250", "uber", intPtr(250), nil),
	}

	t.Run("unknown signature is missing", func(t *testing.T) {
		competitor := []domain.CanonicalProduct{
			product("Netflix ₹199", "netflix", intPtr(199), floatPtr(199)),
		}

		result := m.Match(baseline, competitor)

		if len(result.Missing) != 1 || result.Missing[0].Signature != "netflix" {
			t.Errorf("Missing = %v, want netflix", names(result.Missing))
		}
		if len(result.Matched) != 0 {
			t.Errorf("Matched = %v, want none", names(result.Matched))
		}
	})

	t.Run("exact key produces price comparison", func(t *testing.T) {
		competitor := []domain.CanonicalProduct{
			product("Zomato Card ₹500", "zomato", intPtr(500), floatPtr(450)),
		}

		result := m.Match(baseline, competitor)

		if len(result.PriceComparison) != 1 {
			t.Fatalf("PriceComparison = %+v, want one entry", result.PriceComparison)
		}
		pc := result.PriceComparison[0]
		if pc.BaselinePrice != 500 || pc.CompetitorPrice != 450 {
			t.Errorf("prices = %v/%v, want 500/450", pc.BaselinePrice, pc.CompetitorPrice)
		}
		if pc.Difference != -50 {
			t.Errorf("Difference = %v, want -50", pc.Difference)
		}
		if math.Abs(pc.PercentDiff-(-10)) > 1e-9 {
			t.Errorf("PercentDiff = %v, want -10", pc.PercentDiff)
		}
		if !pc.CompetitorCheaper() {
			t.Errorf("CompetitorCheaper() = false, want true")
		}
		if len(result.VariantGaps) != 0 {
			t.Errorf("VariantGaps = %+v, want none", result.VariantGaps)
		}
	})

	t.Run("unknown variant of known signature is a gap", func(t *testing.T) {
		competitor := []domain.CanonicalProduct{
			product("Zomato ₹1000", "zomato", intPtr(1000), floatPtr(1000)),
		}

		result := m.Match(baseline, competitor)

		if len(result.Matched) != 1 {
			t.Errorf("Matched = %v, want the gap item", names(result.Matched))
		}
		if len(result.VariantGaps) != 1 {
			t.Fatalf("VariantGaps = %+v, want one", result.VariantGaps)
		}
		gap := result.VariantGaps[0]
		if gap.Signature != "zomato" || gap.MissingVariant == nil || *gap.MissingVariant != 1000 {
			t.Errorf("gap = %+v, want zomato/1000", gap)
		}
		if gap.CompetitorPrice == nil || *gap.CompetitorPrice != 1000 {
			t.Errorf("gap price = %v, want 1000", gap.CompetitorPrice)
		}
		if len(result.PriceComparison) != 0 {
			t.Errorf("PriceComparison = %+v, want none", result.PriceComparison)
		}
	})

	t.Run("nil variants key on signature", func(t *testing.T) {
		competitor := []domain.CanonicalProduct{
			product("Tinder Gold Monthly", "tinder", nil, floatPtr(899)),
		}

		result := m.Match(baseline, competitor)

		if len(result.PriceComparison) != 1 {
			t.Fatalf("PriceComparison = %+v, want one", result.PriceComparison)
		}
		if result.PriceComparison[0].Variant != nil {
			t.Errorf("Variant = %v, want nil", *result.PriceComparison[0].Variant)
		}
	})

	t.Run("variant against variantless baseline is a gap", func(t *testing.T) {
		competitor := []domain.CanonicalProduct{
			product("Tinder ₹499", "tinder", intPtr(499), floatPtr(499)),
		}

		result := m.Match(baseline, competitor)

		if len(result.VariantGaps) != 1 {
			t.Errorf("VariantGaps = %+v, want one", result.VariantGaps)
		}
	})

	t.Run("missing price skips comparison", func(t *testing.T) {
		competitor := []domain.CanonicalProduct{
			product("Uber ₹250", "uber", intPtr(250), floatPtr(240)),
			product("Zomato ₹500", "zomato", intPtr(500), nil),
		}

		result := m.Match(baseline, competitor)

		if len(result.Matched) != 2 {
			t.Errorf("Matched = %v, want both", names(result.Matched))
		}
		if len(result.PriceComparison) != 0 || len(result.VariantGaps) != 0 {
			t.Errorf("got comparisons %+v gaps %+v, want none", result.PriceComparison, result.VariantGaps)
		}
	})
}

func TestVariantMatcher_FirstBaselineOccurrenceIsReference(t *testing.T) {
	baseline := []domain.CanonicalProduct{
		product("Zomato ₹500", "zomato", intPtr(500), floatPtr(500)),
		product("Zomato ₹500 (promo)", "zomato", intPtr(500), floatPtr(520)),
	}
	competitor := []domain.CanonicalProduct{
		product("Zomato ₹500", "zomato", intPtr(500), floatPtr(450)),
	}

	result := NewVariantMatcher().Match(baseline, competitor)

	if len(result.PriceComparison) != 1 {
		t.Fatalf("PriceComparison = %+v, want one", result.PriceComparison)
	}
	if got := result.PriceComparison[0].BaselinePrice; got != 500 {
		t.Errorf("BaselinePrice = %v, want 500", got)
	}
}

func TestVariantMatcher_GroupsBySignature(t *testing.T) {
	baseline := []domain.CanonicalProduct{
		product("Uber ₹250", "uber", intPtr(250), floatPtr(250)),
	}
	competitor := []domain.CanonicalProduct{
		product("Ola ₹100", "ola", intPtr(100), floatPtr(100)),
		product("Uber ₹250", "uber", intPtr(250), floatPtr(260)),
		product("Ola ₹200", "ola", intPtr(200), floatPtr(200)),
		product("Rapido ₹50", "rapido", intPtr(50), floatPtr(50)),
	}

	result := NewVariantMatcher().Match(baseline, competitor)

	wantMissing := []string{"Ola ₹100", "Ola ₹200", "Rapido ₹50"}
	if got := names(result.Missing); !equalStrings(got, wantMissing) {
		t.Errorf("Missing = %v, want %v", got, wantMissing)
	}
	if got := names(result.Matched); !equalStrings(got, []string{"Uber ₹250"}) {
		t.Errorf("Matched = %v, want [Uber ₹250]", got)
	}
}

func TestVariantMatcher_EmptyInputs(t *testing.T) {
	result := NewVariantMatcher().Match(nil, nil)

	if result.Matched == nil || result.Missing == nil || result.VariantGaps == nil || result.PriceComparison == nil {
		t.Errorf("Match(nil, nil) = %+v, want empty non-nil lists", result)
	}
}

func TestVariantMatcher_Deterministic(t *testing.T) {
	baseline := []domain.CanonicalProduct{
		product("Zomato ₹500", "zomato", intPtr(500), floatPtr(500)),
	}
	competitor := []domain.CanonicalProduct{
		product("Swiggy ₹100", "swiggy", intPtr(100), floatPtr(100)),
		product("Zomato ₹1000", "zomato", intPtr(1000), floatPtr(990)),
		product("Ola ₹100", "ola", intPtr(100), floatPtr(100)),
		product("Zomato ₹500", "zomato", intPtr(500), floatPtr(480)),
	}

	m := NewVariantMatcher()
	first := m.Match(baseline, competitor)
	for i := 0; i < 5; i++ {
		got := m.Match(baseline, competitor)
		if !equalStrings(names(got.Missing), names(first.Missing)) || !equalStrings(names(got.Matched), names(first.Matched)) {
			t.Fatalf("Match is not deterministic: %v vs %v", names(got.Missing), names(first.Missing))
		}
	}
}

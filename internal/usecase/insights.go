package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/sirupsen/logrus"

	"github.com/pricelens/backend/internal/domain"
)

const (
	// positioningBand is the +/- percent window reported as price parity
	positioningBand = 5.0

	maxMissingSuggestions = 5
	maxPriceRows          = 10
	maxProductColumnWidth = 40
	unknownCategory       = "unknown"
)

// Positioning labels a competitor's mean price difference against the baseline:
// "Premium (+N%)", "Value (-N%)" or "Parity". ok is false without comparisons.
func Positioning(comparisons []domain.PriceComparison) (label string, meanPercent float64, ok bool) {
	if len(comparisons) == 0 {
		return "", 0, false
	}

	total := 0.0
	for _, c := range comparisons {
		total += c.PercentDiff
	}
	meanPercent = total / float64(len(comparisons))

	switch {
	case meanPercent > positioningBand:
		return fmt.Sprintf("Premium (+%.0f%%)", meanPercent), meanPercent, true
	case meanPercent < -positioningBand:
		return fmt.Sprintf("Value (%.0f%%)", meanPercent), meanPercent, true
	default:
		return "Parity", meanPercent, true
	}
}

// CategoryGap is a category where the competitor lists more SKUs than the baseline
type CategoryGap struct {
	Category   string
	Baseline   int
	Competitor int
}

// CategoryGaps counts SKUs per category on both sides and returns the categories
// the competitor leads in, largest gap first
func CategoryGaps(baseline, competitor []domain.CanonicalProduct) []CategoryGap {
	count := func(products []domain.CanonicalProduct) map[string]int {
		out := make(map[string]int)
		for _, p := range products {
			cat := p.Category
			if cat == "" {
				cat = unknownCategory
			}
			out[cat]++
		}
		return out
	}

	base := count(baseline)
	comp := count(competitor)

	var gaps []CategoryGap
	for cat, n := range comp {
		if n > base[cat] {
			gaps = append(gaps, CategoryGap{Category: cat, Baseline: base[cat], Competitor: n})
		}
	}

	sort.Slice(gaps, func(i, j int) bool {
		di := gaps[i].Competitor - gaps[i].Baseline
		dj := gaps[j].Competitor - gaps[j].Baseline
		if di != dj {
			return di > dj
		}
		return gaps[i].Category < gaps[j].Category
	})

	return gaps
}

// TemplateInsightGenerator produces a deterministic offline summary. It needs
// no network and is the fallback whenever a remote generator fails.
type TemplateInsightGenerator struct{}

// NewTemplateInsightGenerator creates the offline insight generator
func NewTemplateInsightGenerator() *TemplateInsightGenerator {
	return &TemplateInsightGenerator{}
}

// Generate renders the summary for one competitor
func (g *TemplateInsightGenerator) Generate(ctx context.Context, req domain.InsightRequest) (string, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "Competitor: %s\n", req.Competitor)
	fmt.Fprintf(&b, "Matched products: %d\n", len(req.Diff.Matched))
	fmt.Fprintf(&b, "Missing products: %d\n", len(req.Diff.Missing))
	fmt.Fprintf(&b, "Variant gaps: %d\n", len(req.Diff.VariantGaps))

	if label, mean, ok := Positioning(req.Diff.PriceComparison); ok {
		fmt.Fprintf(&b, "Price positioning: %s over %d comparable SKUs (mean %+.1f%%)\n",
			label, len(req.Diff.PriceComparison), mean)
	}

	if gaps := CategoryGaps(req.Baseline, req.Products); len(gaps) > 0 {
		b.WriteString("\nCategory gaps:\n")
		for _, gap := range gaps {
			fmt.Fprintf(&b, "- %s: %d more SKUs than baseline (%d vs %d)\n",
				gap.Category, gap.Competitor-gap.Baseline, gap.Competitor, gap.Baseline)
		}
	}

	if len(req.Diff.Missing) > 0 {
		b.WriteString("\nSKUs to consider adding:\n")
		for i, m := range req.Diff.Missing {
			if i == maxMissingSuggestions {
				break
			}
			if m.URL != "" {
				fmt.Fprintf(&b, "- %s (%s)\n", m.Name, m.URL)
			} else {
				fmt.Fprintf(&b, "- %s\n", m.Name)
			}
		}
	}

	if len(req.Diff.PriceComparison) > 0 {
		b.WriteString("\nPrice comparison:\n")
		b.WriteString(renderPriceTable(req.Diff.PriceComparison))
	}

	return b.String(), nil
}

// renderPriceTable lays out the largest price differences as a fixed-width table.
// Widths are measured in terminal cells so "₹" and CJK names stay aligned.
func renderPriceTable(comparisons []domain.PriceComparison) string {
	rows := make([]domain.PriceComparison, len(comparisons))
	copy(rows, comparisons)
	sort.SliceStable(rows, func(i, j int) bool {
		return absFloat(rows[i].PercentDiff) > absFloat(rows[j].PercentDiff)
	})
	if len(rows) > maxPriceRows {
		rows = rows[:maxPriceRows]
	}

	header := []string{"Product", "Variant", "Baseline", "Competitor", "Diff"}
	table := [][]string{header}
	for _, r := range rows {
		variant := "-"
		if r.Variant != nil {
			variant = fmt.Sprintf("%d", *r.Variant)
		}
		table = append(table, []string{
			runewidth.Truncate(r.Product, maxProductColumnWidth, "..."),
			variant,
			fmt.Sprintf("%.2f", r.BaselinePrice),
			fmt.Sprintf("%.2f", r.CompetitorPrice),
			fmt.Sprintf("%+.1f%%", r.PercentDiff),
		})
	}

	widths := make([]int, len(header))
	for _, row := range table {
		for i, cell := range row {
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var b strings.Builder
	for n, row := range table {
		for i, cell := range row {
			if i > 0 {
				b.WriteString("  ")
			}
			b.WriteString(runewidth.FillRight(cell, widths[i]))
		}
		b.WriteString("\n")
		if n == 0 {
			for i, w := range widths {
				if i > 0 {
					b.WriteString("  ")
				}
				b.WriteString(strings.Repeat("-", w))
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// FallbackInsightGenerator tries Primary and falls back to Fallback on any error
type FallbackInsightGenerator struct {
	Primary  domain.InsightGenerator
	Fallback domain.InsightGenerator
	Log      logrus.FieldLogger
}

// Generate returns the primary generator's text, or the fallback's when the
// primary is missing or fails
func (g *FallbackInsightGenerator) Generate(ctx context.Context, req domain.InsightRequest) (string, error) {
	if g.Primary != nil {
		text, err := g.Primary.Generate(ctx, req)
		if err == nil {
			return text, nil
		}
		if g.Log != nil {
			g.Log.WithError(err).WithField("competitor", req.Competitor).Warn("insight generator failed, using fallback")
		}
	}

	if g.Fallback == nil {
		return "", domain.ErrInsightsUnavailable
	}
	return g.Fallback.Generate(ctx, req)
}

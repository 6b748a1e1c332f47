package domain

import "context"

// SnapshotStore persists one digest per date key.
// The pipeline reads the latest digest before writing today's.
type SnapshotStore interface {
	Save(ctx context.Context, dateKey string, digest *Digest) error
	Load(ctx context.Context, dateKey string) (*Digest, error)
	LoadLatest(ctx context.Context) (*Digest, error)
}

// ProductSource fetches the raw catalog of a storefront
type ProductSource interface {
	Fetch(ctx context.Context, source Source) ([]RawProduct, error)
}

// CatalogMatcher compares a competitor catalog against the baseline catalog
type CatalogMatcher interface {
	Match(baseline, competitor []CanonicalProduct) MatchResult
}

// InsightRequest is the input handed to an insight generator for one competitor
type InsightRequest struct {
	Competitor string
	Baseline   []CanonicalProduct
	Products   []CanonicalProduct
	Diff       MatchResult
}

// InsightGenerator turns a match result into free text for the report
type InsightGenerator interface {
	Generate(ctx context.Context, req InsightRequest) (string, error)
}

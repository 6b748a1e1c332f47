package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/pricelens/backend/internal/domain"
)

// DateKeyLayout is the layout of snapshot date keys
const DateKeyLayout = "2006-01-02"

const defaultConcurrency = 4

// DigestServiceConfig holds configuration for the digest service
type DigestServiceConfig struct {
	Baseline    domain.Source
	Competitors []domain.Source
	Concurrency int // competitors processed in parallel
}

// DigestService runs one scan: fetch, normalize, match, detect changes, persist
type DigestService struct {
	source     domain.ProductSource
	store      domain.SnapshotStore
	matcher    domain.CatalogMatcher
	insights   domain.InsightGenerator
	signatures *SignatureResolver
	normalizer *Normalizer
	detector   *ChangeDetector
	log        logrus.FieldLogger

	baseline    domain.Source
	competitors []domain.Source
	concurrency int

	now func() time.Time
}

// NewDigestService creates a digest service with dependencies
func NewDigestService(
	source domain.ProductSource,
	store domain.SnapshotStore,
	matcher domain.CatalogMatcher,
	insights domain.InsightGenerator,
	log logrus.FieldLogger,
	config DigestServiceConfig,
) *DigestService {
	if matcher == nil {
		matcher = NewVariantMatcher()
	}
	if insights == nil {
		insights = NewTemplateInsightGenerator()
	}
	if log == nil {
		log = logrus.New()
	}

	concurrency := config.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	signatures := NewSignatureResolver()

	return &DigestService{
		source:      source,
		store:       store,
		matcher:     matcher,
		insights:    insights,
		signatures:  signatures,
		normalizer:  NewNormalizer(signatures),
		detector:    NewChangeDetector(),
		log:         log,
		baseline:    config.Baseline,
		competitors: config.Competitors,
		concurrency: concurrency,
		now:         time.Now,
	}
}

// ValidateDateKey checks that a date key is a calendar date in YYYY-MM-DD form
func ValidateDateKey(dateKey string) error {
	if _, err := time.Parse(DateKeyLayout, dateKey); err != nil {
		return fmt.Errorf("%w: %q", domain.ErrInvalidDateKey, dateKey)
	}
	return nil
}

// Run executes one scan for the given date key (today in UTC when empty).
// Flow: baseline -> competitors -> previous snapshot -> changes -> save.
func (s *DigestService) Run(ctx context.Context, dateKey string) (*domain.Digest, error) {
	if dateKey == "" {
		dateKey = s.now().UTC().Format(DateKeyLayout)
	}
	if err := ValidateDateKey(dateKey); err != nil {
		return nil, err
	}

	log := s.log.WithField("date_key", dateKey)
	log.Info("scan started")

	baselineRaw, err := s.source.Fetch(ctx, s.baseline)
	if err != nil {
		return nil, fmt.Errorf("baseline %q: %w", s.baseline.Name, err)
	}
	baseline := s.normalizer.Normalize(baselineRaw)
	log.WithFields(logrus.Fields{"raw": len(baselineRaw), "products": len(baseline)}).Info("baseline loaded")

	reports, err := s.processCompetitors(ctx, baseline)
	if err != nil {
		return nil, err
	}

	digest := &domain.Digest{
		ID:          uuid.NewString(),
		DateKey:     dateKey,
		GeneratedAt: s.now().UTC(),
		Baseline: domain.BaselineReport{
			Name:     s.baseline.Name,
			Products: baseline,
		},
		Competitors: reports,
	}

	previous, err := s.store.LoadLatest(ctx)
	if err != nil && !errors.Is(err, domain.ErrSnapshotNotFound) {
		return nil, fmt.Errorf("load previous snapshot: %w", err)
	}
	if previous == nil {
		log.Info("no previous snapshot, first run")
	}
	carryForward(digest, previous)
	digest.Changes = s.detector.Detect(digest, previous)

	if err := s.store.Save(ctx, dateKey, digest); err != nil {
		return nil, fmt.Errorf("save snapshot: %w", err)
	}

	log.WithFields(logrus.Fields{
		"digest_id":   digest.ID,
		"competitors": len(reports),
	}).Info("scan completed")

	return digest, nil
}

// processCompetitors runs fetch, normalize, match and insights for every
// competitor. Each competitor is independent; results keep configuration order.
func (s *DigestService) processCompetitors(ctx context.Context, baseline []domain.CanonicalProduct) ([]domain.CompetitorReport, error) {
	reports := make([]domain.CompetitorReport, len(s.competitors))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, competitor := range s.competitors {
		g.Go(func() error {
			reports[i] = s.processCompetitor(gctx, competitor, baseline)
			return gctx.Err()
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

func (s *DigestService) processCompetitor(ctx context.Context, competitor domain.Source, baseline []domain.CanonicalProduct) domain.CompetitorReport {
	log := s.log.WithField("competitor", competitor.Name)

	report := domain.CompetitorReport{
		Name:     competitor.Name,
		Products: []domain.CanonicalProduct{},
	}

	raw, err := s.source.Fetch(ctx, competitor)
	if err != nil {
		// A dead competitor feed must not sink the whole run
		log.WithError(err).Warn("competitor fetch failed")
		report.Error = err.Error()
		raw = nil
	}

	report.Products = s.normalizer.Normalize(raw)
	report.Diff = s.matcher.Match(baseline, report.Products)

	text, err := s.insights.Generate(ctx, domain.InsightRequest{
		Competitor: competitor.Name,
		Baseline:   baseline,
		Products:   report.Products,
		Diff:       report.Diff,
	})
	if err != nil {
		log.WithError(err).Warn("insights unavailable")
	}
	report.Insights = text

	log.WithFields(logrus.Fields{
		"products":     len(report.Products),
		"matched":      len(report.Diff.Matched),
		"missing":      len(report.Diff.Missing),
		"variant_gaps": len(report.Diff.VariantGaps),
	}).Info("competitor processed")

	return report
}

// carryForward keeps the last known catalog of every competitor whose fetch
// failed, so the stored snapshot does not read as a delisting
func carryForward(digest, previous *domain.Digest) {
	for i := range digest.Competitors {
		report := &digest.Competitors[i]
		if report.Error == "" {
			continue
		}
		if prev, ok := previous.Competitor(report.Name); ok {
			report.Products = prev.Products
		}
	}
}

// Latest returns the most recent stored digest
func (s *DigestService) Latest(ctx context.Context) (*domain.Digest, error) {
	return s.store.LoadLatest(ctx)
}

// ByDate returns the digest stored under a date key
func (s *DigestService) ByDate(ctx context.Context, dateKey string) (*domain.Digest, error) {
	if err := ValidateDateKey(dateKey); err != nil {
		return nil, err
	}
	return s.store.Load(ctx, dateKey)
}

// Normalize exposes the normalizer for ad-hoc requests
func (s *DigestService) Normalize(raw []domain.RawProduct) []domain.CanonicalProduct {
	return s.normalizer.Normalize(raw)
}

// Compare normalizes two raw catalogs and matches them with the given matcher,
// or the configured one when matcher is nil
func (s *DigestService) Compare(baseline, competitor []domain.RawProduct, matcher domain.CatalogMatcher) domain.MatchResult {
	if matcher == nil {
		matcher = s.matcher
	}
	return matcher.Match(s.normalizer.Normalize(baseline), s.normalizer.Normalize(competitor))
}

// Signature resolves the identity token of a product name
func (s *DigestService) Signature(name string) string {
	return s.signatures.SignatureFor(name)
}

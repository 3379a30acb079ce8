package rules

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinscribe/clinscribe/internal/platform/reasoner"
)

// maxListEntries bounds caller-supplied medication and allergy lists.
const maxListEntries = 50

// Extractor is the advisory side of the reasoning service. Both methods are
// best-effort and return empty results on failure.
type Extractor interface {
	ExtractMedications(ctx context.Context, planText string) []string
	ExplainFindings(ctx context.Context, findings []reasoner.Finding) []reasoner.Recommendation
}

type Service struct {
	repo      Repository
	extractor Extractor
	logger    zerolog.Logger
}

// NewService builds the safety orchestrator. repo may be nil when analysis
// results should not be persisted.
func NewService(repo Repository, extractor Extractor, logger zerolog.Logger) *Service {
	return &Service{repo: repo, extractor: extractor, logger: logger}
}

func validateLists(medications, allergies []string) error {
	if len(medications) > maxListEntries || len(allergies) > maxListEntries {
		return fmt.Errorf("too many items in medications/allergies (max %d each)", maxListEntries)
	}
	return nil
}

// Check runs only the deterministic rule engine.
func (s *Service) Check(ctx context.Context, req *CheckRequest) (*CheckResult, error) {
	if err := validateLists(req.Medications, req.Allergies); err != nil {
		return nil, err
	}
	return &CheckResult{Findings: Check(req.Medications, req.Allergies)}, nil
}

// Analyze resolves the medication list, runs the rule engine, and augments
// any findings with advisory rationale. The rule engine always runs on the
// resolved list; extraction or rationale failure never suppresses or alters
// its verdict.
func (s *Service) Analyze(ctx context.Context, req *CheckRequest) (*AnalysisResult, error) {
	if err := validateLists(req.Medications, req.Allergies); err != nil {
		return nil, err
	}

	resolved := req.Medications
	if len(resolved) == 0 && req.PlanText != "" && s.extractor != nil {
		resolved = s.extractor.ExtractMedications(ctx, req.PlanText)
	}
	if resolved == nil {
		resolved = []string{}
	}

	findings := Check(resolved, req.Allergies)

	recommendations := []Recommendation{}
	if len(findings) > 0 && s.extractor != nil {
		recommendations = s.explain(ctx, findings)
	}

	result := &AnalysisResult{
		Medications:     resolved,
		Findings:        findings,
		Recommendations: recommendations,
	}

	if s.repo != nil && req.EncounterID != "" && len(findings) > 0 {
		if err := s.persist(ctx, req.EncounterID, result); err != nil {
			s.logger.Error().Err(err).Str("encounter_id", req.EncounterID).Msg("persist safety findings")
		}
	}

	return result, nil
}

func (s *Service) explain(ctx context.Context, findings []Finding) []Recommendation {
	rf := make([]reasoner.Finding, len(findings))
	for i, f := range findings {
		rf[i] = reasoner.Finding{ID: f.ID, Title: f.Title, Severity: f.Severity, Details: f.Details}
	}

	recs := s.extractor.ExplainFindings(ctx, rf)
	out := make([]Recommendation, 0, len(recs))
	for _, r := range recs {
		out = append(out, Recommendation{
			FindingID:    r.FindingID,
			Reason:       r.Reason,
			Alternatives: r.Alternatives,
		})
	}
	return out
}

func (s *Service) persist(ctx context.Context, encounterID string, result *AnalysisResult) error {
	eid, err := uuid.Parse(encounterID)
	if err != nil {
		return fmt.Errorf("invalid encounter_id: %w", err)
	}

	records := make([]*FindingRecord, len(result.Findings))
	for i, f := range result.Findings {
		records[i] = &FindingRecord{
			EncounterID:    eid,
			RuleID:         f.ID,
			Title:          f.Title,
			Severity:       f.Severity,
			Details:        f.Details,
			RuleSetVersion: CatalogVersion,
		}
	}

	recRecords := make([]*RecommendationRecord, len(result.Recommendations))
	for i, r := range result.Recommendations {
		recRecords[i] = &RecommendationRecord{
			EncounterID:  eid,
			RuleID:       r.FindingID,
			Reason:       r.Reason,
			Alternatives: r.Alternatives,
		}
	}

	return s.repo.SaveAnalysis(ctx, records, recRecords)
}

// GetFindingsByEncounter returns persisted findings with their
// recommendations.
func (s *Service) GetFindingsByEncounter(ctx context.Context, encounterID uuid.UUID) ([]*FindingRecord, []*RecommendationRecord, error) {
	if s.repo == nil {
		return nil, nil, fmt.Errorf("finding persistence is not configured")
	}
	findings, err := s.repo.FindingsByEncounter(ctx, encounterID)
	if err != nil {
		return nil, nil, err
	}
	recs, err := s.repo.RecommendationsByEncounter(ctx, encounterID)
	if err != nil {
		return nil, nil, err
	}
	return findings, recs, nil
}
